package types

import (
	"fmt"
	"time"
)

// Location points at a line in a feature or step implementation file.
type Location struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Filename, l.Line)
}

// Feature is the top level of a run.
type Feature struct {
	Keyword     string   `json:"keyword"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags,omitempty"`
	Description []string `json:"description,omitempty"`
	Location    Location `json:"location"`
}

// Background holds the steps shared by every scenario of a feature.
type Background struct {
	Keyword  string   `json:"keyword"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

// Scenario is a scenario or one example of a scenario outline.
type Scenario struct {
	Keyword     string   `json:"keyword"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags,omitempty"`
	Description []string `json:"description,omitempty"`
	Location    Location `json:"location"`
}

// Step is announced before execution with StatusUntested and reported again
// once its result is known.
type Step struct {
	Keyword      string        `json:"keyword"`
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	Duration     time.Duration `json:"duration,omitempty"`
	Text         string        `json:"text,omitempty"`
	Table        *Table        `json:"table,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Location     Location      `json:"location"`
}

// Table is a step data table. Headings form the first row.
type Table struct {
	Headings []string   `json:"headings"`
	Rows     [][]string `json:"rows,omitempty"`
}

// Argument is a value captured by step matching. Start and End are byte offsets
// into the step name and must fall on rune boundaries.
type Argument struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Match describes the step implementation a step was matched to.
type Match struct {
	Arguments []Argument `json:"arguments,omitempty"`
	Location  *Location  `json:"location,omitempty"`
}

// Embedding is evidence attached to a step.
type Embedding struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
	Caption  string `json:"caption,omitempty"`
}
