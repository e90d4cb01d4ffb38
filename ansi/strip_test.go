package ansi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripEscapes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no escapes",
			input:    "Given a plain step",
			expected: "Given a plain step",
		},
		{
			name:     "color and reset",
			input:    "\x1b[32mpassed\x1b[0m",
			expected: "passed",
		},
		{
			name:     "cursor up",
			input:    "\x1b[1A\x1b[31mfailed\x1b[0m",
			expected: "failed",
		},
		{
			name:     "composite parameters",
			input:    "\x1b[1;32mbold green\x1b[0m",
			expected: "bold green",
		},
		{
			// stripansi removes every CSI form, not only colours and cursor up
			name:     "other CSI commands",
			input:    "\x1b[Hello",
			expected: "ello",
		},
		{
			name:     "control bytes",
			input:    "a\x08b\x0cc\ad\x04e",
			expected: "abcde",
		},
		{
			name:     "stray lead byte",
			input:    "x\xe2y",
			expected: "xy",
		},
		{
			name:     "valid box drawing kept",
			input:    "├── step",
			expected: "├── step",
		},
		{
			name:     "only escapes",
			input:    "\x1b[32m\x1b[0m\x1b[1m",
			expected: "",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripEscapes(tc.input))
		})
	}
}

func TestStripEscapesRoundTrip(t *testing.T) {
	aliases, err := ParseAliases("failed=red,bold:undefined=yellow,magenta,bold")
	require.NoError(t, err)

	for _, overrides := range []map[string][]string{nil, aliases} {
		table, err := NewTable(overrides)
		require.NoError(t, err)

		for _, role := range table.Roles() {
			got := StripEscapes(table.Resolve(role) + "text" + table.Resolve("reset"))
			assert.Equal(t, "text", got, "role %q", role)
		}
	}
}
