package model

import "strings"

// Kind identifies the payload carried by a Submission.
type Kind string

// Supported submission kinds.
const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindVoice    Kind = "voice"
	KindSticker  Kind = "sticker"
	KindDocument Kind = "document"
)

// Kinds lists every kind the relay knows how to publish.
var Kinds = []Kind{KindText, KindPhoto, KindVideo, KindVoice, KindSticker, KindDocument}

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// HasCaption reports whether the kind carries a caption when published.
func (k Kind) HasCaption() bool {
	return k == KindPhoto || k == KindVideo || k == KindDocument
}

// Source is the chat context a submission arrived from.
type Source string

const (
	SourcePrivate Source = "private"
	SourceGroup   Source = "group"
)

// PhotoSize is one resolution variant of an inbound photo.
type PhotoSize struct {
	FileRef  string `json:"file_ref"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int    `json:"file_size,omitempty"`
}

// Pixels returns the area of the variant.
func (p PhotoSize) Pixels() int {
	return p.Width * p.Height
}

// Submission is one inbound unit of content to be relayed anonymously.
// It lives only for the duration of a single handling task.
type Submission struct {
	Kind     Kind        `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Photos   []PhotoSize `json:"photos,omitempty"`
	FileRef  string      `json:"file_ref,omitempty"`
	Caption  string      `json:"caption,omitempty"`
	SenderID string      `json:"-"`
	Source   Source      `json:"source"`
}

// NewTextSubmission creates a text Submission.
func NewTextSubmission(text string) Submission {
	return Submission{Kind: KindText, Text: text}
}

// Validate checks that exactly one supported kind is set and that its
// payload is present.
func (s Submission) Validate() error {
	switch s.Kind {
	case KindText:
		if s.Text == "" {
			return &ValidationError{Field: "text", Message: "text submission is empty"}
		}
	case KindPhoto:
		if len(s.Photos) == 0 {
			return &ValidationError{Field: "photos", Message: "photo submission has no variants"}
		}
	case KindVideo, KindVoice, KindSticker, KindDocument:
		if s.FileRef == "" {
			return &ValidationError{Field: "file_ref", Message: string(s.Kind) + " submission has no content reference"}
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// ModeratedText returns the user-authored text that moderation inspects:
// the body for text submissions, the caption for media.
func (s Submission) ModeratedText() string {
	if s.Kind == KindText {
		return s.Text
	}
	return strings.TrimSpace(s.Caption)
}

// LargestPhoto returns the highest-resolution photo variant. Ties are
// broken by byte size, then by the later variant.
func (s Submission) LargestPhoto() (PhotoSize, bool) {
	if len(s.Photos) == 0 {
		return PhotoSize{}, false
	}
	best := s.Photos[0]
	for _, p := range s.Photos[1:] {
		switch {
		case p.Pixels() > best.Pixels():
			best = p
		case p.Pixels() == best.Pixels() && p.FileSize >= best.FileSize:
			best = p
		}
	}
	return best, true
}
