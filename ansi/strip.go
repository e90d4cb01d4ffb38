package ansi

import (
	"strings"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
)

var controlStripper = strings.NewReplacer(
	Backspace, "",
	FormFeed, "",
	Bell, "",
	"\x04", "",
)

// StripEscapes removes terminal escape sequences and control bytes from text so it
// can be measured or logged.
func StripEscapes(text string) string {
	text = stripansi.Strip(text)
	text = controlStripper.Replace(text)
	return dropStrayLeadBytes(text)
}

// dropStrayLeadBytes removes 0xE2 bytes that do not begin a valid UTF-8 sequence.
// They show up when box-drawing characters get split by a byte-oriented writer.
func dropStrayLeadBytes(s string) string {
	if strings.IndexByte(s, 0xe2) < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == 0xe2 {
			if r, size := utf8.DecodeRuneInString(s[i:]); r == utf8.RuneError && size == 1 {
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}
