package reporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-reporter/ansi"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
)

// StdStream selects stdin for the events and stdout for the HTML report.
const StdStream = "-"

// FileConfig is the optional YAML config file. Empty values leave the flag defaults in place.
type FileConfig struct {
	Title           string   `yaml:"title"`
	Formats         []string `yaml:"formats"`
	HTMLOut         string   `yaml:"html_out"`
	HTMLTemplate    string   `yaml:"html_template"`
	Colors          string   `yaml:"colors"`
	Color           string   `yaml:"color"`
	HideLocations   bool     `yaml:"hide_locations"`
	MetricsTextfile string   `yaml:"metrics_textfile"`
	Serve           string   `yaml:"serve"`
	ArchiveDir      string   `yaml:"archive_dir"`
}

// LoadFileConfig reads a YAML config file. Unknown keys are rejected.
func LoadFileConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Config holds the application configuration
type Config struct {
	EventsPath      string // "-" reads stdin
	Formats         []flags.Format
	HTMLOut         string // "-" writes to stdout
	HTMLTemplate    string // path to a custom template, empty for the embedded one
	Title           string
	Colors          string // color alias overrides
	ColorMode       flags.ColorMode
	HideLocations   bool
	MetricsTextfile string
	Serve           string // address serving the HTML report, empty to disable
	ArchiveDir      string
	RunID           string
	Log             log.Logger
}

// HasFormat reports whether format is enabled.
func (c *Config) HasFormat(format flags.Format) bool {
	return slices.Contains(c.Formats, format)
}

// NewConfig creates a new Config from cli context, merging the optional config file.
// Flags that were set explicitly win over the file.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	file := &FileConfig{}
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		var err error
		if file, err = LoadFileConfig(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		EventsPath:      ctx.String(flags.Events.Name),
		HTMLOut:         stringSetting(ctx, flags.HTMLOut.Name, file.HTMLOut),
		HTMLTemplate:    stringSetting(ctx, flags.HTMLTemplate.Name, file.HTMLTemplate),
		Title:           stringSetting(ctx, flags.Title.Name, file.Title),
		Colors:          stringSetting(ctx, flags.Colors.Name, file.Colors),
		ColorMode:       flags.ColorMode(stringSetting(ctx, flags.Color.Name, file.Color)),
		HideLocations:   ctx.Bool(flags.HideLocations.Name),
		MetricsTextfile: stringSetting(ctx, flags.MetricsTextfile.Name, file.MetricsTextfile),
		Serve:           stringSetting(ctx, flags.Serve.Name, file.Serve),
		ArchiveDir:      stringSetting(ctx, flags.ArchiveDir.Name, file.ArchiveDir),
		RunID:           ctx.String(flags.RunID.Name),
		Log:             log,
	}
	if !ctx.IsSet(flags.HideLocations.Name) && file.HideLocations {
		cfg.HideLocations = true
	}
	if cfg.Colors == "" {
		cfg.Colors = os.Getenv(ansi.ColorsEnvVar)
	}

	formats := ctx.StringSlice(flags.Formats.Name)
	if !ctx.IsSet(flags.Formats.Name) && len(file.Formats) > 0 {
		formats = file.Formats
	}
	for _, f := range formats {
		if err := flags.ValidateFormat(f); err != nil {
			return nil, err
		}
		if !slices.Contains(cfg.Formats, flags.Format(f)) {
			cfg.Formats = append(cfg.Formats, flags.Format(f))
		}
	}
	if len(cfg.Formats) == 0 {
		return nil, errors.New("at least one format is required")
	}
	if err := flags.ValidateColorMode(string(cfg.ColorMode)); err != nil {
		return nil, err
	}
	aliases, err := ansi.ParseAliases(cfg.Colors)
	if err != nil {
		return nil, err
	}
	if _, err := ansi.NewTable(aliases); err != nil {
		return nil, err
	}

	if cfg.Serve != "" && (!cfg.HasFormat(flags.FormatHTML) || cfg.HTMLOut == StdStream) {
		return nil, errors.New("serving the report requires the html format written to a file")
	}

	// Resolve the absolute paths
	for _, p := range []*string{&cfg.EventsPath, &cfg.HTMLOut, &cfg.HTMLTemplate, &cfg.MetricsTextfile, &cfg.ArchiveDir} {
		if *p == "" || *p == StdStream {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for '%s': %w", *p, err)
		}
		*p = abs
	}
	return cfg, nil
}

// stringSetting returns the flag value when the flag was set or the file leaves it empty.
func stringSetting(ctx *cli.Context, name string, fileValue string) string {
	if ctx.IsSet(name) || fileValue == "" {
		return ctx.String(name)
	}
	return fileValue
}
