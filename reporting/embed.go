package reporting

import (
	"encoding/base64"
	"html/template"
	"strings"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// AttachmentKind selects how an attachment is inlined into the report.
type AttachmentKind string

const (
	KindVideo AttachmentKind = "video"
	KindImage AttachmentKind = "image"
	KindText  AttachmentKind = "text"
	KindOther AttachmentKind = "other"
)

var defaultCaptions = map[AttachmentKind]string{
	KindVideo: "Video",
	KindImage: "Screenshot",
	KindText:  "Data",
	KindOther: "Attachment",
}

// AttachmentNode is an embedded blob rendered under a step. Binary kinds are inlined
// as base64 data URLs, text is inlined after sanitization.
type AttachmentNode struct {
	ID       string
	Kind     AttachmentKind
	MimeType string
	Caption  string
	Source   template.URL
	Text     string
}

// SourceType is the type attribute of a video source element.
func (a *AttachmentNode) SourceType() string {
	return a.MimeType + `; codecs="vp8 vorbis"`
}

func attachmentKind(mimeType string) AttachmentKind {
	switch {
	case strings.Contains(mimeType, "video/"):
		return KindVideo
	case strings.Contains(mimeType, "image/"):
		return KindImage
	case strings.Contains(mimeType, "text/"):
		return KindText
	}
	return KindOther
}

func newAttachment(id string, e *types.Embedding) *AttachmentNode {
	kind := attachmentKind(e.MimeType)
	node := &AttachmentNode{
		ID:       id,
		Kind:     kind,
		MimeType: e.MimeType,
		Caption:  e.Caption,
	}
	if node.Caption == "" {
		node.Caption = defaultCaptions[kind]
	}
	if kind == KindText {
		node.Text = sanitizeText(string(e.Data))
	} else {
		// data URLs are built here, never from template input
		node.Source = template.URL("data:" + e.MimeType + ";base64," + base64.StdEncoding.EncodeToString(e.Data))
	}
	return node
}
