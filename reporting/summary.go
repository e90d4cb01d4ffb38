package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// StatusCounts counts nodes by status.
type StatusCounts struct {
	Passed    int
	Failed    int
	Skipped   int
	Undefined int
	Untested  int
}

// Add counts one node with the given status.
func (c *StatusCounts) Add(s types.Status) {
	switch s {
	case types.StatusPassed:
		c.Passed++
	case types.StatusFailed:
		c.Failed++
	case types.StatusSkipped:
		c.Skipped++
	case types.StatusUndefined:
		c.Undefined++
	default:
		c.Untested++
	}
}

// Get returns the count for s.
func (c StatusCounts) Get(s types.Status) int {
	switch s {
	case types.StatusPassed:
		return c.Passed
	case types.StatusFailed:
		return c.Failed
	case types.StatusSkipped:
		return c.Skipped
	case types.StatusUndefined:
		return c.Undefined
	case types.StatusUntested:
		return c.Untested
	}
	return 0
}

// Total returns the number of counted nodes.
func (c StatusCounts) Total() int {
	return c.Passed + c.Failed + c.Skipped + c.Undefined + c.Untested
}

// String lists every status in summary order, eg. "passed: 1, failed: 0, ...".
func (c StatusCounts) String() string {
	parts := make([]string, 0, len(types.Statuses))
	for _, s := range types.Statuses {
		parts = append(parts, fmt.Sprintf("%s: %d", s, c.Get(s)))
	}
	return strings.Join(parts, ", ")
}

// Summary aggregates a finished report.
type Summary struct {
	Features  StatusCounts
	Scenarios StatusCounts
	Steps     StatusCounts
	Duration  time.Duration
}

// FeatureTotals is the header line for features.
func (s *Summary) FeatureTotals() string {
	return "Features: " + s.Features.String()
}

// ScenarioTotals is the header line for scenarios.
func (s *Summary) ScenarioTotals() string {
	return "Scenarios: " + s.Scenarios.String()
}

// StepTotals is the header line for steps.
func (s *Summary) StepTotals() string {
	return "Steps: " + s.Steps.String()
}

// DurationText is the total run duration to one decimal place of seconds.
func (s *Summary) DurationText() string {
	return fmt.Sprintf("Finished in %0.1f seconds", s.Duration.Seconds())
}

// Summarize walks the document and counts features, scenarios and steps by status.
// Features whose status was never derived count as untested.
func Summarize(doc *Document) *Summary {
	sum := &Summary{}
	countSteps := func(steps []*StepNode) {
		for _, step := range steps {
			sum.Steps.Add(step.Status)
			sum.Duration += step.Duration
		}
	}
	for _, feature := range doc.Features {
		sum.Features.Add(feature.Status)
		if feature.Background != nil {
			countSteps(feature.Background.Steps)
		}
		for _, scenario := range feature.Scenarios {
			sum.Scenarios.Add(scenario.Status())
			countSteps(scenario.Steps)
		}
	}
	return sum
}
