package reporting

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func TestAttachmentKind(t *testing.T) {
	testCases := []struct {
		mimeType string
		expected AttachmentKind
	}{
		{"video/webm", KindVideo},
		{"image/png", KindImage},
		{"text/plain", KindText},
		{"text/html; charset=utf-8", KindText},
		{"application/json", KindOther},
		{"", KindOther},
	}
	for _, tc := range testCases {
		t.Run(tc.mimeType, func(t *testing.T) {
			assert.Equal(t, tc.expected, attachmentKind(tc.mimeType))
		})
	}
}

func TestNewAttachment(t *testing.T) {
	video := newAttachment("embed_1", &types.Embedding{MimeType: "video/webm", Data: []byte("abc")})
	assert.Equal(t, "Video", video.Caption)
	assert.Equal(t, template.URL("data:video/webm;base64,YWJj"), video.Source)
	assert.Equal(t, `video/webm; codecs="vp8 vorbis"`, video.SourceType())
	assert.Empty(t, video.Text)

	text := newAttachment("embed_2", &types.Embedding{MimeType: "text/plain", Data: []byte("a\x00b\x07c"), Caption: "Log"})
	assert.Equal(t, "Log", text.Caption)
	assert.Equal(t, "abc", text.Text)
	assert.Empty(t, text.Source)
}

func TestSanitizeText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "hello", expected: "hello"},
		{name: "whitespace kept", input: "a\tb\nc\rd", expected: "a\tb\nc\rd"},
		{name: "escape dropped", input: "\x1b[31mred\x1b[0m", expected: "[31mred[0m"},
		{name: "null and bell dropped", input: "a\x00b\x07", expected: "ab"},
		{name: "unicode kept", input: "héllo ✓", expected: "héllo ✓"},
		{name: "noncharacter dropped", input: "a\uFFFEb", expected: "ab"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, sanitizeText(tc.input))
		})
	}
}
