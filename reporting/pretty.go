package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cucumber/godog/colors"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/ansi"
	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum-optimism/infra/op-reporter/ui"
)

const (
	scenarioIndent = "  "
	stepIndent     = "    "
	detailIndent   = "      "

	summaryWidth = 96
)

var _ Formatter = (*PrettyFormatter)(nil)

// PrettyConfig configures a PrettyFormatter.
type PrettyConfig struct {
	// Colors enables escape sequences; without it they are stripped from the output.
	Colors bool
	// Escapes defaults to the process-wide table.
	Escapes *ansi.Table
	// HideLocations omits "# file:line" comments.
	HideLocations bool
	Log           log.Logger
}

type failingScenario struct {
	feature  string
	location string
	name     string
}

// PrettyFormatter writes a coloured, indented transcript of the run as events arrive.
// It keeps no document; scenario and feature boundaries are inferred from the next
// scenario, feature or close event.
type PrettyFormatter struct {
	w       io.Writer
	escapes *ansi.Table
	cfg     PrettyConfig
	log     log.Logger

	inFeature     bool
	inSteps       bool // a background or scenario is open
	featureName   string
	featureStatus types.Status
	scenario      *types.Scenario
	scenarioSteps []types.Status
	match         *types.Match

	features  StatusCounts
	scenarios StatusCounts
	steps     StatusCounts
	duration  time.Duration
	failing   []failingScenario

	err    error
	closed bool
}

// NewPrettyFormatter creates a terminal formatter writing to w.
func NewPrettyFormatter(w io.Writer, cfg PrettyConfig) *PrettyFormatter {
	if cfg.Colors {
		w = colors.Colored(w)
	} else {
		w = colors.Uncolored(w)
	}
	escapes := cfg.Escapes
	if escapes == nil {
		escapes = ansi.Default()
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	return &PrettyFormatter{
		w:       w,
		escapes: escapes,
		cfg:     cfg,
		log:     logger,
	}
}

// Feature closes the open feature and prints the heading of the next one.
func (p *PrettyFormatter) Feature(feature *types.Feature) error {
	if err := p.ready(); err != nil {
		return err
	}
	if feature == nil {
		return p.violation("feature event without feature")
	}
	p.finishFeature()
	p.inFeature = true
	p.inSteps = false
	p.featureName = feature.Keyword + ": " + feature.Name
	p.featureStatus = ""

	var sb strings.Builder
	if len(feature.Tags) > 0 {
		sb.WriteString(p.color("tag", tagLine(feature.Tags)) + "\n")
	}
	sb.WriteString(feature.Keyword + ": " + feature.Name + p.location(feature.Location) + "\n")
	for _, line := range feature.Description {
		sb.WriteString(scenarioIndent + line + "\n")
	}
	return p.write(sb.String())
}

// Background prints the background heading; its steps do not count towards a scenario.
func (p *PrettyFormatter) Background(background *types.Background) error {
	if err := p.ready(); err != nil {
		return err
	}
	if background == nil {
		return p.violation("background event without background")
	}
	if !p.inFeature {
		return p.violation("background %q before any feature", background.Name)
	}
	p.finishScenario()
	p.inSteps = true
	return p.write("\n" + scenarioIndent + background.Keyword + ": " + background.Name + p.location(background.Location) + "\n")
}

// Scenario closes the open scenario and prints the next heading.
func (p *PrettyFormatter) Scenario(scenario *types.Scenario) error {
	return p.openScenario(scenario, "")
}

// ScenarioOutline is Scenario with the heading in the outline colour.
func (p *PrettyFormatter) ScenarioOutline(outline *types.Scenario) error {
	return p.openScenario(outline, "outline")
}

func (p *PrettyFormatter) openScenario(scenario *types.Scenario, role string) error {
	if err := p.ready(); err != nil {
		return err
	}
	if scenario == nil {
		return p.violation("scenario event without scenario")
	}
	if !p.inFeature {
		return p.violation("scenario %q before any feature", scenario.Name)
	}
	p.finishScenario()
	p.scenario = scenario
	p.inSteps = true

	var sb strings.Builder
	sb.WriteString("\n")
	if len(scenario.Tags) > 0 {
		sb.WriteString(scenarioIndent + p.color("tag", tagLine(scenario.Tags)) + "\n")
	}
	heading := scenario.Keyword + ": " + scenario.Name
	if role != "" {
		heading = p.color(role, heading)
	}
	sb.WriteString(scenarioIndent + heading + p.location(scenario.Location) + "\n")
	for _, line := range scenario.Description {
		sb.WriteString(stepIndent + line + "\n")
	}
	return p.write(sb.String())
}

// Match keeps the arguments and location for the next result.
func (p *PrettyFormatter) Match(match *types.Match) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.match = match
	return nil
}

// Step prints nothing; steps are written once their result arrives.
func (p *PrettyFormatter) Step(step *types.Step) error {
	return p.ready()
}

// Result prints a finished step with its arguments highlighted and any doc string,
// table or error message below it.
func (p *PrettyFormatter) Result(result *types.Step) error {
	if err := p.ready(); err != nil {
		return err
	}
	if result == nil {
		return p.violation("result event without step")
	}
	if !p.inSteps {
		return p.violation("result for step %q without a background or scenario", result.Name)
	}
	if err := checkStatus(result.Status); err != nil {
		return p.fail(fmt.Errorf("step %q: %w", result.Name, err))
	}
	var arguments []types.Argument
	location := UnknownLocation
	if p.match != nil {
		arguments = p.match.Arguments
		if p.match.Location != nil {
			location = p.match.Location.String()
		}
	}
	p.match = nil

	segments, err := splitArguments(result.Name, arguments)
	if err != nil {
		return p.fail(err)
	}

	status := string(result.Status)
	var sb strings.Builder
	sb.WriteString(stepIndent + p.color(status, result.Keyword+" "))
	for _, seg := range segments {
		role := status
		if seg.Argument {
			role = status + "_arg"
		}
		sb.WriteString(p.color(role, seg.Text))
	}
	if !p.cfg.HideLocations {
		sb.WriteString(" " + p.color("comments", "# "+location))
	}
	sb.WriteString("\n")

	if result.Text != "" {
		sb.WriteString(detailIndent + `"""` + "\n")
		for _, line := range strings.Split(result.Text, "\n") {
			sb.WriteString(detailIndent + line + "\n")
		}
		sb.WriteString(detailIndent + `"""` + "\n")
	}
	if result.Table != nil {
		sb.WriteString(indent(renderTable(result.Table), detailIndent))
	}
	if result.ErrorMessage != "" {
		sb.WriteString(p.color("failed", indent(strings.TrimRight(result.ErrorMessage, "\n")+"\n", detailIndent)))
	}

	p.steps.Add(result.Status)
	p.duration += result.Duration
	p.scenarioSteps = append(p.scenarioSteps, result.Status)
	if p.featureStatus, err = deriveFeatureStatus(p.featureStatus, result.Status); err != nil {
		return p.fail(err)
	}
	return p.write(sb.String())
}

// Embedding prints a one-line note in place of the attachment.
func (p *PrettyFormatter) Embedding(mimeType string, data []byte, caption string) error {
	if err := p.ready(); err != nil {
		return err
	}
	note := fmt.Sprintf("# embedded %s (%d bytes)", mimeType, len(data))
	if caption != "" {
		note = fmt.Sprintf("# embedded %s %q (%d bytes)", mimeType, caption, len(data))
	}
	return p.write(detailIndent + p.color("comments", note) + "\n")
}

// Close finishes the open scenario and feature and prints the run totals.
func (p *PrettyFormatter) Close() error {
	if p.closed {
		return fmt.Errorf("%w: formatter already closed", ErrProtocolViolation)
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	p.finishFeature()

	var sb strings.Builder
	if len(p.failing) > 0 {
		sb.WriteString("\nFailing scenarios:\n")
		sb.WriteString(p.color("failed", failingTree(p.failing)))
	}
	sb.WriteString("\n")
	sb.WriteString(ui.Box("Run summary", []string{
		"Features: " + p.features.String(),
		"Scenarios: " + p.scenarios.String(),
		"Steps: " + p.steps.String(),
		"Took " + formatElapsed(p.duration),
	}, summaryWidth))
	return p.write(sb.String())
}

// finishScenario counts the open scenario once its boundary is reached.
func (p *PrettyFormatter) finishScenario() {
	if p.scenario == nil {
		// background steps do not count towards a scenario
		p.scenarioSteps = nil
		return
	}
	status := dominantStatus(p.scenarioSteps)
	p.scenarios.Add(status)
	if status == types.StatusFailed || status == types.StatusUndefined {
		location := p.scenario.Location.String()
		if p.scenario.Location.Filename == "" {
			location = UnknownLocation
		}
		p.failing = append(p.failing, failingScenario{feature: p.featureName, location: location, name: p.scenario.Name})
	}
	p.scenario = nil
	p.scenarioSteps = nil
}

func (p *PrettyFormatter) finishFeature() {
	p.finishScenario()
	if !p.inFeature {
		return
	}
	p.features.Add(p.featureStatus)
	p.inFeature = false
}

func (p *PrettyFormatter) color(role, s string) string {
	if s == "" {
		return ""
	}
	return p.escapes.Resolve(role) + s + p.escapes.Resolve("reset")
}

func (p *PrettyFormatter) location(l types.Location) string {
	if p.cfg.HideLocations || l.Filename == "" {
		return ""
	}
	return " " + p.color("comments", "# "+l.String())
}

func (p *PrettyFormatter) write(s string) error {
	if _, err := io.WriteString(p.w, s); err != nil {
		return p.fail(fmt.Errorf("failed to write terminal output: %w", err))
	}
	return nil
}

func (p *PrettyFormatter) ready() error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return fmt.Errorf("%w: event after close", ErrProtocolViolation)
	}
	return nil
}

func (p *PrettyFormatter) violation(format string, args ...any) error {
	return p.fail(fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...)))
}

func (p *PrettyFormatter) fail(err error) error {
	if p.err == nil {
		p.err = err
		p.log.Error("Terminal output aborted", "err", err)
	}
	return p.err
}

// failingTree groups failing scenarios under their features, in run order.
func failingTree(failing []failingScenario) string {
	var roots []*ui.Node
	for _, s := range failing {
		if len(roots) == 0 || roots[len(roots)-1].Label != s.feature {
			roots = append(roots, &ui.Node{Label: s.feature})
		}
		roots[len(roots)-1].Add(s.location + "  " + s.name)
	}
	return ui.Render(roots)
}

func tagLine(tags []string) string {
	return "@" + strings.Join(tags, " @")
}

// renderTable draws a step data table, header row first.
func renderTable(tbl *types.Table) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleDefault)
	t.Style().Format.Header = text.FormatDefault
	if len(tbl.Headings) > 0 {
		t.AppendHeader(toRow(tbl.Headings))
	}
	for _, row := range tbl.Rows {
		t.AppendRow(toRow(row))
	}
	return t.Render() + "\n"
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString(prefix + line)
	}
	return sb.String()
}

func formatElapsed(d time.Duration) string {
	minutes := int(d / time.Minute)
	seconds := (d - time.Duration(minutes)*time.Minute).Seconds()
	return fmt.Sprintf("%dm%.3fs", minutes, seconds)
}
