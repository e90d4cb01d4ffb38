// Package templates holds the embedded HTML report template, its stylesheet and script,
// and the template functions shared by report renderers.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	ReportTemplateName = "report.html.tmpl"

	stylesheetFile = "assets/theme.css"
	scriptFile     = "assets/collapsible.js"
)

//go:embed assets/*
var assetFS embed.FS

// GetTemplateFunc returns the template functions used by the report templates.
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": FormatDuration,
		"tags":           JoinTags,
	}
}

// FormatDuration renders d in seconds with one decimal place.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// JoinTags renders tags as "@a, @b". Empty input yields an empty string.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "@" + strings.Join(tags, ", @")
}

// Report parses the HTML report template. An empty content uses the embedded template.
func Report(content string) (*template.Template, error) {
	if content == "" {
		raw, err := assetFS.ReadFile("assets/" + ReportTemplateName)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template: %w", err)
		}
		content = string(raw)
	}
	tmpl, err := template.New(ReportTemplateName).Funcs(GetTemplateFunc()).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return tmpl, nil
}

// Stylesheet returns the embedded report theme.
func Stylesheet() template.CSS {
	return template.CSS(mustRead(stylesheetFile))
}

// CollapsibleScript returns the script toggling collapsible report blocks.
func CollapsibleScript() template.JS {
	return template.JS(mustRead(scriptFile))
}

func mustRead(name string) string {
	raw, err := assetFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("templates: missing embedded asset %s: %v", name, err))
	}
	return string(raw)
}
