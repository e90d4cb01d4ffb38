// Package ansi provides the escape sequences used to colour terminal report output.
//
// Semantic roles ("failed", "passed", "tag", ...) are mapped to one or more palette
// colours through an alias table. The composed table is built once per process and
// is read-only afterwards.
package ansi

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ColorsEnvVar is the environment variable holding alias overrides,
// eg. "failed=red,bold:passed=green".
const ColorsEnvVar = "GHERKIN_COLORS"

const (
	Reset     = "\x1b[0m"
	CursorUp  = "\x1b[1A"
	Backspace = "\x08"
	FormFeed  = "\x0c"
	Bell      = "\a"

	argSuffix = "_arg"
)

// ErrConfig is returned for malformed alias overrides.
var ErrConfig = errors.New("invalid color configuration")

// Colors is the base palette.
var Colors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
	"grey":    "\x1b[90m",
	"bold":    "\x1b[1m",
}

// DefaultAliases maps each role to the colours it is composed of.
var DefaultAliases = map[string][]string{
	"undefined": {"yellow"},
	"pending":   {"yellow"},
	"executing": {"grey"},
	"failed":    {"red"},
	"passed":    {"green"},
	"outline":   {"cyan"},
	"skipped":   {"cyan"},
	"comments":  {"grey"},
	"tag":       {"cyan"},
}

var fixedEscapes = map[string]string{
	"reset":     Reset,
	"up":        CursorUp,
	"backspace": Backspace,
	"form feed": FormFeed,
	"bel":       Bell,
}

// Table maps role names to composed escape sequences.
type Table struct {
	escapes map[string]string
}

// ParseAliases parses an override string of the form "role=color,color:role2=color".
// An empty string yields no overrides. Later entries for the same role win.
func ParseAliases(s string) (map[string][]string, error) {
	aliases := make(map[string][]string)
	s = strings.TrimSpace(s)
	if s == "" {
		return aliases, nil
	}
	for _, entry := range strings.Split(s, ":") {
		role, list, ok := strings.Cut(entry, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("%w: malformed alias %q, expected role=color[,color]", ErrConfig, entry)
		}
		var colors []string
		for _, c := range strings.Split(list, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				return nil, fmt.Errorf("%w: empty color in alias %q", ErrConfig, entry)
			}
			colors = append(colors, c)
		}
		aliases[role] = colors
	}
	return aliases, nil
}

// NewTable composes the escape table from the default aliases and the given overrides.
func NewTable(overrides map[string][]string) (*Table, error) {
	aliases := make(map[string][]string, len(DefaultAliases)+len(overrides))
	for role, colors := range DefaultAliases {
		aliases[role] = colors
	}
	for role, colors := range overrides {
		aliases[role] = colors
	}

	escapes := make(map[string]string, 2*len(aliases)+len(fixedEscapes))
	for name, seq := range fixedEscapes {
		escapes[name] = seq
	}

	for role, colors := range aliases {
		if base, isArg := strings.CutSuffix(role, argSuffix); isArg {
			if _, ok := aliases[base]; !ok {
				return nil, fmt.Errorf("%w: %q overrides unknown role %q", ErrConfig, role, base)
			}
			continue
		}
		seq, err := compose(role, colors)
		if err != nil {
			return nil, err
		}
		escapes[role] = seq

		argColors, ok := aliases[role+argSuffix]
		if !ok {
			argColors = append(append([]string(nil), colors...), "bold")
		}
		if escapes[role+argSuffix], err = compose(role+argSuffix, argColors); err != nil {
			return nil, err
		}
	}
	return &Table{escapes: escapes}, nil
}

func compose(role string, colors []string) (string, error) {
	var sb strings.Builder
	for _, c := range colors {
		code, ok := Colors[c]
		if !ok {
			return "", fmt.Errorf("%w: role %q references unknown color %q", ErrConfig, role, c)
		}
		sb.WriteString(code)
	}
	return sb.String(), nil
}

// Resolve returns the escape sequence for role, or the reset sequence if the role is unknown.
func (t *Table) Resolve(role string) string {
	if seq, ok := t.escapes[role]; ok {
		return seq
	}
	return Reset
}

// Has reports whether role is known to the table.
func (t *Table) Has(role string) bool {
	_, ok := t.escapes[role]
	return ok
}

// Roles returns all known role names in sorted order.
func (t *Table) Roles() []string {
	roles := make([]string, 0, len(t.escapes))
	for role := range t.escapes {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Up returns the sequence moving the cursor up n lines.
func Up(n int) string {
	return fmt.Sprintf("\x1b[%dA", n)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Init composes the process-wide table from an override string. Only the first call
// composes; later calls return the first result regardless of their argument.
func Init(override string) (*Table, error) {
	defaultOnce.Do(func() {
		aliases, err := ParseAliases(override)
		if err != nil {
			defaultErr = err
			return
		}
		defaultTable, defaultErr = NewTable(aliases)
	})
	return defaultTable, defaultErr
}

// Default returns the process-wide table, composing it from ColorsEnvVar if Init
// has not been called. It panics if the configuration is invalid; callers that
// accept user configuration should call Init at startup and handle the error.
func Default() *Table {
	t, err := Init(os.Getenv(ColorsEnvVar))
	if err != nil {
		panic(fmt.Sprintf("ansi: %v", err))
	}
	return t
}

// Resolve resolves role against the process-wide table.
func Resolve(role string) string {
	return Default().Resolve(role)
}
