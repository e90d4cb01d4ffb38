package reporting

import "strings"

// validXMLChar reports whether r may appear in an XML 1.0 document.
func validXMLChar(r rune) bool {
	return r == 0x9 || r == 0xA || r == 0xD ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// sanitizeText drops characters that cannot be embedded in markup, such as
// terminal control bytes left in error output.
func sanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if validXMLChar(r) {
			return r
		}
		return -1
	}, s)
}
