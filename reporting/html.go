package reporting

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// DefaultTitle is the report title used when none is configured.
const DefaultTitle = "BDD Test Report"

var _ Formatter = (*HTMLFormatter)(nil)

// HTMLOption configures an HTMLFormatter.
type HTMLOption func(*HTMLFormatter)

// WithTitle sets the report title.
func WithTitle(title string) HTMLOption {
	return func(f *HTMLFormatter) {
		if title != "" {
			f.doc.Title = title
		}
	}
}

// WithRunID records the run identifier in the document head.
func WithRunID(runID string) HTMLOption {
	return func(f *HTMLFormatter) {
		f.doc.RunID = runID
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) HTMLOption {
	return func(f *HTMLFormatter) {
		if l != nil {
			f.log = l
		}
	}
}

// WithTemplate replaces the embedded report template.
func WithTemplate(content string) HTMLOption {
	return func(f *HTMLFormatter) {
		f.templateContent = content
	}
}

// cursor tracks where the next events land in the document.
type cursor struct {
	feature  *FeatureNode
	scenario *ScenarioNode
	steps    *StepList

	lastStep *types.Step // last step announced or reported
	lastNode *StepNode   // last rendered step
	match    *pendingMatch
	pending  []*types.Embedding

	stepsSeen int
}

type pendingMatch struct {
	arguments []types.Argument
	location  string
	stepsSeen int // Step events seen when the match arrived
}

// HTMLFormatter builds a single-page HTML report. The document tree is built as events
// arrive and written to the sink once, on Close.
type HTMLFormatter struct {
	log             log.Logger
	doc             *Document
	tmpl            *template.Template
	templateContent string
	sink            io.WriteCloser

	cur        cursor
	scenarioID int
	embedID    int

	err    error
	closed bool
}

// NewHTMLFormatter creates the formatter and opens its sink.
func NewHTMLFormatter(open StreamOpener, opts ...HTMLOption) (*HTMLFormatter, error) {
	f := &HTMLFormatter{
		log: log.Root(),
		doc: &Document{
			Title:      DefaultTitle,
			Generated:  time.Now(),
			Stylesheet: templates.Stylesheet(),
			Script:     templates.CollapsibleScript(),
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	tmpl, err := templates.Report(f.templateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTML formatter: %w", err)
	}
	f.tmpl = tmpl

	sink, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to open HTML report sink: %w", err)
	}
	f.sink = sink
	return f, nil
}

// Document returns the report tree built so far.
func (f *HTMLFormatter) Document() *Document {
	return f.doc
}

// Feature starts a new feature block.
func (f *HTMLFormatter) Feature(feature *types.Feature) error {
	if err := f.ready(); err != nil {
		return err
	}
	if feature == nil {
		return f.violation("feature event without feature")
	}
	node := &FeatureNode{
		Keyword:     feature.Keyword,
		Name:        feature.Name,
		Tags:        slices.Clone(feature.Tags),
		Description: strings.Join(feature.Description, "\n"),
	}
	f.doc.Features = append(f.doc.Features, node)
	f.cur.feature = node
	f.cur.scenario = nil
	f.cur.steps = nil
	return nil
}

// Background opens the background step list of the current feature.
func (f *HTMLFormatter) Background(background *types.Background) error {
	if err := f.ready(); err != nil {
		return err
	}
	if background == nil {
		return f.violation("background event without background")
	}
	if f.cur.feature == nil {
		return f.violation("background %q before any feature", background.Name)
	}
	if f.cur.feature.Background != nil {
		return f.violation("second background %q in feature %q", background.Name, f.cur.feature.Name)
	}
	node := &BackgroundNode{
		Keyword: background.Keyword,
		Name:    background.Name,
	}
	f.cur.feature.Background = node
	f.cur.scenario = nil
	f.cur.steps = &node.StepList
	return nil
}

// Scenario appends a scenario block to the current feature.
func (f *HTMLFormatter) Scenario(scenario *types.Scenario) error {
	return f.openScenario(scenario, false)
}

// ScenarioOutline appends a scenario block flagged as an outline example.
func (f *HTMLFormatter) ScenarioOutline(outline *types.Scenario) error {
	return f.openScenario(outline, true)
}

func (f *HTMLFormatter) openScenario(scenario *types.Scenario, outline bool) error {
	if err := f.ready(); err != nil {
		return err
	}
	if scenario == nil {
		return f.violation("scenario event without scenario")
	}
	if f.cur.feature == nil {
		return f.violation("scenario %q before any feature", scenario.Name)
	}
	node := &ScenarioNode{
		ID:          fmt.Sprintf("scenario_%d", f.scenarioID),
		Keyword:     scenario.Keyword,
		Name:        scenario.Name,
		Tags:        slices.Clone(scenario.Tags),
		Description: strings.Join(scenario.Description, "\n"),
		Outline:     outline,
	}
	if scenario.Location.Filename != "" {
		node.Location = scenario.Location.String()
	}
	f.scenarioID++

	f.cur.feature.Scenarios = append(f.cur.feature.Scenarios, node)
	f.cur.scenario = node
	f.cur.steps = &node.StepList
	return nil
}

// Match records the arguments and implementation location used by the next result.
func (f *HTMLFormatter) Match(match *types.Match) error {
	if err := f.ready(); err != nil {
		return err
	}
	if match == nil {
		return f.violation("match event without match")
	}
	location := UnknownLocation
	if match.Location != nil {
		location = match.Location.String()
	}
	f.cur.match = &pendingMatch{
		arguments: slices.Clone(match.Arguments),
		location:  location,
		stepsSeen: f.cur.stepsSeen,
	}
	return nil
}

// Step records the step about to execute and drops state left over from earlier steps.
func (f *HTMLFormatter) Step(step *types.Step) error {
	if err := f.ready(); err != nil {
		return err
	}
	if step == nil {
		return f.violation("step event without step")
	}
	// a match that already outlived a step announcement never got its result
	if f.cur.match != nil && f.cur.match.stepsSeen < f.cur.stepsSeen {
		f.cur.match = nil
	}
	f.cur.pending = nil
	f.cur.lastStep = step
	f.cur.stepsSeen++
	return nil
}

// Result renders a finished step into the current step list.
func (f *HTMLFormatter) Result(result *types.Step) error {
	if err := f.ready(); err != nil {
		return err
	}
	if result == nil {
		return f.violation("result event without step")
	}
	if f.cur.steps == nil {
		return f.violation("result for step %q without a background or scenario", result.Name)
	}
	if err := checkStatus(result.Status); err != nil {
		return f.fail(fmt.Errorf("step %q: %w", result.Name, err))
	}

	featureStatus, err := deriveFeatureStatus(f.cur.feature.Status, result.Status)
	if err != nil {
		return f.fail(err)
	}
	f.cur.feature.Status = featureStatus

	node := &StepNode{
		Keyword:  result.Keyword,
		Location: UnknownLocation,
		Status:   result.Status,
		Duration: result.Duration,
		Text:     result.Text,
		Table:    result.Table,
	}
	var arguments []types.Argument
	if f.cur.match != nil {
		arguments = f.cur.match.arguments
		node.Location = f.cur.match.location
	}
	if node.Segments, err = splitArguments(result.Name, arguments); err != nil {
		return f.fail(err)
	}
	if result.ErrorMessage != "" {
		node.Error = &Collapsible{
			ID:   f.nextEmbedID(),
			Text: sanitizeText(result.ErrorMessage),
		}
	}

	f.cur.steps.Steps = append(f.cur.steps.Steps, node)
	f.cur.steps.Heading = f.cur.steps.Heading.Apply(result.Status)
	f.doc.Header = f.doc.Header.Apply(result.Status)

	f.cur.match = nil
	f.cur.lastStep = result
	f.cur.lastNode = node

	for _, e := range f.cur.pending {
		node.Attachments = append(node.Attachments, newAttachment(f.nextEmbedID(), e))
	}
	f.cur.pending = nil
	return nil
}

// Embedding attaches evidence to a step. Embeddings made while the step is still
// executing are held back until its result; later ones go under the last rendered step.
func (f *HTMLFormatter) Embedding(mimeType string, data []byte, caption string) error {
	if err := f.ready(); err != nil {
		return err
	}
	if f.cur.lastStep == nil {
		return f.violation("embedding %q before any step", mimeType)
	}
	e := &types.Embedding{
		MimeType: mimeType,
		Data:     bytes.Clone(data),
		Caption:  caption,
	}
	if isUntested(f.cur.lastStep) {
		f.cur.pending = append(f.cur.pending, e)
		return nil
	}
	if f.cur.lastNode == nil {
		return f.violation("embedding %q without a rendered step", mimeType)
	}
	f.cur.lastNode.Attachments = append(f.cur.lastNode.Attachments, newAttachment(f.nextEmbedID(), e))
	return nil
}

// Close computes the summary, renders the document and writes it to the sink. The sink
// is closed even if rendering fails; after a protocol violation nothing is written.
func (f *HTMLFormatter) Close() (err error) {
	if f.closed {
		return fmt.Errorf("%w: formatter already closed", ErrProtocolViolation)
	}
	f.closed = true
	defer func() {
		if cerr := f.sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close HTML report: %w", cerr))
		}
	}()

	if f.err != nil {
		return f.err
	}
	if len(f.cur.pending) > 0 {
		f.log.Warn("Dropping attachments of a step without result", "count", len(f.cur.pending))
	}

	f.doc.Summary = Summarize(f.doc)

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, f.doc); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	if _, err := f.sink.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}

	f.log.Debug("Wrote HTML report",
		"features", f.doc.Summary.Features.Total(),
		"scenarios", f.doc.Summary.Scenarios.Total(),
		"steps", f.doc.Summary.Steps.Total(),
		"bytes", buf.Len())
	return nil
}

func (f *HTMLFormatter) ready() error {
	if f.err != nil {
		return f.err
	}
	if f.closed {
		return fmt.Errorf("%w: event after close", ErrProtocolViolation)
	}
	return nil
}

func (f *HTMLFormatter) violation(format string, args ...any) error {
	return f.fail(fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...)))
}

// fail remembers the first error; every later event returns it.
func (f *HTMLFormatter) fail(err error) error {
	if f.err == nil {
		f.err = err
		f.log.Error("HTML report aborted", "err", err)
	}
	return f.err
}

func (f *HTMLFormatter) nextEmbedID() string {
	f.embedID++
	return fmt.Sprintf("embed_%d", f.embedID)
}

func isUntested(step *types.Step) bool {
	return step.Status == types.StatusUntested || step.Status == ""
}

// deriveFeatureStatus applies a step status to a feature: failed wins over everything,
// passed only replaces an unset or passed status, other statuses leave it unchanged.
func deriveFeatureStatus(current, step types.Status) (types.Status, error) {
	switch current {
	case "", types.StatusPassed, types.StatusFailed:
	default:
		return "", fmt.Errorf("%w: feature status %q cannot be derived from steps", ErrProtocolViolation, current)
	}
	switch step {
	case types.StatusFailed:
		return types.StatusFailed, nil
	case types.StatusPassed:
		if current == types.StatusFailed {
			return current, nil
		}
		return types.StatusPassed, nil
	}
	return current, nil
}

// splitArguments cuts a step name into plain and argument segments using the byte
// offsets of the matched arguments. Offsets must fall on rune boundaries.
func splitArguments(name string, arguments []types.Argument) ([]TextSegment, error) {
	if len(arguments) == 0 {
		return []TextSegment{{Text: name}}, nil
	}
	var segments []TextSegment
	start := 0
	for _, arg := range arguments {
		if arg.Start < start || arg.End < arg.Start || arg.End > len(name) {
			return nil, fmt.Errorf("%w: argument %q at [%d:%d] does not fit step %q",
				ErrProtocolViolation, arg.Value, arg.Start, arg.End, name)
		}
		if !runeBoundary(name, arg.Start) || !runeBoundary(name, arg.End) {
			return nil, fmt.Errorf("%w: argument %q at [%d:%d] splits a character of step %q",
				ErrProtocolViolation, arg.Value, arg.Start, arg.End, name)
		}
		if arg.Start > start {
			segments = append(segments, TextSegment{Text: name[start:arg.Start]})
		}
		segments = append(segments, TextSegment{Text: name[arg.Start:arg.End], Argument: true})
		start = arg.End
	}
	if start < len(name) {
		segments = append(segments, TextSegment{Text: name[start:]})
	}
	return segments, nil
}

func runeBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}
