package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	reporter "github.com/ethereum-optimism/infra/op-reporter"
	"github.com/ethereum-optimism/infra/op-reporter/exitcodes"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no error", err: nil, want: exitcodes.Success},
		{name: "test failure", err: reporter.NewTestFailureError("run-1", 1, 0), want: exitcodes.TestFailure},
		{name: "wrapped test failure", err: fmt.Errorf("run: %w", reporter.NewTestFailureError("run-2", 0, 1)), want: exitcodes.TestFailure},
		{name: "runtime error", err: reporter.NewRuntimeError(errors.New("bad stream")), want: exitcodes.RuntimeErr},
		{name: "untyped error", err: errors.New("boom"), want: exitcodes.RuntimeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
