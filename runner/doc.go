// Package runner replays a recorded test run into report formatters.
//
// A Replayer reads the JSON encoded lifecycle events of one run, delivers each of them
// to every configured formatter in order, and closes the formatters once the stream
// ends. Each replay is traced with an OpenTelemetry span per feature and recorded in
// the op_reporter metrics.
package runner
