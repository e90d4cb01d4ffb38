package flags

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_REPORTER"

// ColorMode selects when terminal output carries escape sequences.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func (c ColorMode) String() string {
	return string(c)
}

func (c ColorMode) IsValid() bool {
	return slices.Contains(ValidColorModes(), c)
}

func ValidColorModes() []ColorMode {
	return []ColorMode{ColorAuto, ColorAlways, ColorNever}
}

// Format names a report renderer.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatHTML   Format = "html"
)

func (f Format) String() string {
	return string(f)
}

func (f Format) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

func ValidFormats() []Format {
	return []Format{FormatPretty, FormatHTML}
}

var (
	Events = &cli.StringFlag{
		Name:    "events",
		Value:   "-",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EVENTS"),
		Usage:   "Path to the recorded run events, one JSON event per line. '-' reads stdin",
	}
	Formats = &cli.StringSliceFlag{
		Name:    "format",
		Value:   cli.NewStringSlice(string(FormatPretty)),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORMAT"),
		Usage:   "Report format to render, repeatable. One of: pretty, html",
		Action: func(ctx *cli.Context, values []string) error {
			for _, v := range values {
				if err := ValidateFormat(v); err != nil {
					return err
				}
			}
			return nil
		},
	}
	HTMLOut = &cli.StringFlag{
		Name:    "html-out",
		Value:   "report.html",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HTML_OUT"),
		Usage:   "Path of the HTML report. '-' writes to stdout",
	}
	HTMLTemplate = &cli.StringFlag{
		Name:    "html-template",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HTML_TEMPLATE"),
		Usage:   "Path to a custom html/template replacing the embedded report template",
	}
	Title = &cli.StringFlag{
		Name:    "title",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TITLE"),
		Usage:   "Title of the HTML report",
	}
	Colors = &cli.StringFlag{
		Name:    "colors",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COLORS"),
		Usage:   "Color aliases overriding the defaults (eg. 'passed=green:failed=red,bold'). Falls back to GHERKIN_COLORS",
	}
	Color = &cli.StringFlag{
		Name:    "color",
		Value:   string(ColorAuto),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COLOR"),
		Usage:   "When to color terminal output. One of: auto, always, never",
		Action: func(ctx *cli.Context, v string) error {
			return ValidateColorMode(v)
		},
	}
	HideLocations = &cli.BoolFlag{
		Name:    "hide-locations",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HIDE_LOCATIONS"),
		Usage:   "Omit feature, scenario and step locations from terminal output",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML config file (eg. 'reporter.yaml'). Flags set explicitly take precedence",
	}
	MetricsTextfile = &cli.StringFlag{
		Name:    "metrics-textfile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_TEXTFILE"),
		Usage:   "Write replay metrics to this file in the node exporter textfile format",
	}
	Serve = &cli.StringFlag{
		Name:    "serve",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "After rendering, serve the HTML report with health and metrics endpoints on this address (eg. ':8080') until interrupted",
	}
	ArchiveDir = &cli.StringFlag{
		Name:    "archive-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ARCHIVE_DIR"),
		Usage:   "Keep a copy of the replayed events under <dir>/testrun-<run-id>",
	}
	RunID = &cli.StringFlag{
		Name:    "run-id",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_ID"),
		Usage:   "Identifier of the replayed run. A random UUID is used when empty",
	}
)

var optionalFlags = []cli.Flag{
	Events,
	Formats,
	HTMLOut,
	HTMLTemplate,
	Title,
	Colors,
	Color,
	HideLocations,
	ConfigFile,
	MetricsTextfile,
	Serve,
	ArchiveDir,
	RunID,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, optionalFlags...)
}

func ValidateColorMode(v string) error {
	if !ColorMode(v).IsValid() {
		return fmt.Errorf("color must be one of %s, got %q", joinValues(ValidColorModes()), v)
	}
	return nil
}

func ValidateFormat(v string) error {
	if !Format(v).IsValid() {
		return fmt.Errorf("format must be one of %s, got %q", joinValues(ValidFormats()), v)
	}
	return nil
}

func joinValues[T fmt.Stringer](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = v.String()
	}
	return strings.Join(s, ", ")
}
