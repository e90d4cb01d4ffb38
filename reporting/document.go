package reporting

import (
	"html/template"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Treatment is the visual highlight applied to a heading after a step failed or was undefined.
type Treatment int

const (
	TreatmentNone Treatment = iota
	TreatmentUndefined
	TreatmentFailed
)

const (
	failedStyle    template.CSS = "background: #C40D0D; color: #FFFFFF"
	undefinedStyle template.CSS = "background: #FAF834; color: #000000"
)

// Apply returns the treatment after a step with the given status. Failed is never cleared
// and undefined never replaces failed.
func (t Treatment) Apply(status types.Status) Treatment {
	switch {
	case status == types.StatusFailed:
		return TreatmentFailed
	case status == types.StatusUndefined && t != TreatmentFailed:
		return TreatmentUndefined
	}
	return t
}

// Style is the inline style rendered for the treatment.
func (t Treatment) Style() template.CSS {
	switch t {
	case TreatmentFailed:
		return failedStyle
	case TreatmentUndefined:
		return undefinedStyle
	}
	return ""
}

// Document is the root of the report tree.
type Document struct {
	Title      string
	RunID      string
	Generated  time.Time
	Header     Treatment
	Features   []*FeatureNode
	Summary    *Summary
	Stylesheet template.CSS
	Script     template.JS
}

// FeatureNode is a feature block. Status is empty until a step passed or failed.
type FeatureNode struct {
	Keyword     string
	Name        string
	Tags        []string
	Description string
	Status      types.Status
	Background  *BackgroundNode
	Scenarios   []*ScenarioNode
}

// Class is the CSS class of the feature block.
func (f *FeatureNode) Class() string {
	if f.Status == "" {
		return "feature"
	}
	return "feature " + string(f.Status)
}

// StepList is an ordered list of rendered steps under a heading.
type StepList struct {
	Heading Treatment
	Steps   []*StepNode
}

// BackgroundNode is the background block of a feature.
type BackgroundNode struct {
	StepList
	Keyword string
	Name    string
}

// ScenarioNode is a scenario block. ID addresses its collapsible step list.
type ScenarioNode struct {
	StepList
	ID          string
	Keyword     string
	Name        string
	Location    string
	Tags        []string
	Description string
	Outline     bool
}

// Class is the CSS class of the scenario block.
func (s *ScenarioNode) Class() string {
	if s.Outline {
		return "scenario outline"
	}
	return "scenario"
}

// Status aggregates the statuses of the scenario steps.
func (s *ScenarioNode) Status() types.Status {
	return aggregateStatus(s.Steps)
}

// TextSegment is a piece of a step name; Argument segments came from a match.
type TextSegment struct {
	Text     string
	Argument bool
}

// Collapsible is a block hidden until its toggle is clicked.
type Collapsible struct {
	ID   string
	Text string
}

// StepNode is a rendered step result.
type StepNode struct {
	Keyword     string
	Segments    []TextSegment
	Location    string
	Status      types.Status
	Duration    time.Duration
	Text        string
	Table       *types.Table
	Error       *Collapsible
	Attachments []*AttachmentNode
}

// Name is the full step name without argument highlighting.
func (s *StepNode) Name() string {
	var sb strings.Builder
	for _, seg := range s.Segments {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

func aggregateStatus(steps []*StepNode) types.Status {
	statuses := make([]types.Status, len(steps))
	for i, step := range steps {
		statuses[i] = step.Status
	}
	return dominantStatus(statuses)
}

// dominantStatus picks the status of a scenario from its steps: failed, then undefined,
// then passed, then skipped. A scenario without any of those is untested.
func dominantStatus(statuses []types.Status) types.Status {
	for _, s := range []types.Status{types.StatusFailed, types.StatusUndefined, types.StatusPassed, types.StatusSkipped} {
		if slices.Contains(statuses, s) {
			return s
		}
	}
	return types.StatusUntested
}
