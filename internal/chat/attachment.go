package chat

import (
	"path"
	"strings"
)

// AttachmentKind classifies how an attachment should be presented.
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindAudio AttachmentKind = "audio"
	KindVideo AttachmentKind = "video"
	KindPDF   AttachmentKind = "pdf"
	KindFile  AttachmentKind = "file"
)

// Classify maps an attachment to a renderable kind. The mapping is total:
// anything unrecognized falls through to KindFile. An image extension
// wins over the type=="voice" tag, which in turn covers voice notes with
// extensions outside the audio list.
func Classify(a Attachment) AttachmentKind {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(a.Name), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif":
		return KindImage
	}
	if a.Type == "voice" {
		return KindAudio
	}
	switch ext {
	case "mp3", "wav":
		return KindAudio
	case "mp4", "mov":
		return KindVideo
	case "pdf":
		return KindPDF
	default:
		return KindFile
	}
}
