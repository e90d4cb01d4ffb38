package types

import (
	"errors"
	"fmt"
)

// Status is the execution state of a step, scenario or feature.
type Status string

const (
	StatusUntested  Status = "untested"
	StatusSkipped   Status = "skipped"
	StatusUndefined Status = "undefined"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
)

// Statuses lists every known status in summary order.
var Statuses = []Status{StatusPassed, StatusFailed, StatusSkipped, StatusUndefined, StatusUntested}

// ErrUnknownStatus is returned for status values outside the known set.
var ErrUnknownStatus = errors.New("unknown status")

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUntested, StatusSkipped, StatusUndefined, StatusPassed, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw status string, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}
