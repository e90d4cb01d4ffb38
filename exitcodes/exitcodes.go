// Package exitcodes defines the standard exit codes used by op-reporter.
package exitcodes

// Exit code constants used by op-reporter
// These constants define the exit codes that the application uses to indicate
// the outcome of a replayed run:
//
// * Success (0): Used when the report was rendered and no step failed
// * TestFailure (1): Used when the run has failed or undefined steps
// * RuntimeErr (2): Used when no complete report could be rendered
const (
	Success     = 0 // Report rendered, run passed
	TestFailure = 1 // Failed or undefined steps
	RuntimeErr  = 2 // Config, stream or output errors
)
