package domain

import "time"

// SourceType tells where a memory's content came from.
type SourceType string

// Known source types.
const (
	SourceText  SourceType = "text"
	SourceLink  SourceType = "link"
	SourceImage SourceType = "image"
	SourceVoice SourceType = "voice"
)

// ParseSourceType maps a string to a SourceType, defaulting to SourceText.
func ParseSourceType(s string) SourceType {
	switch SourceType(s) {
	case SourceLink, SourceImage, SourceVoice:
		return SourceType(s)
	default:
		return SourceText
	}
}

// Memory is a user's stored text item subject to classification and embedding.
//
// Category, Confidence, Tags and Metadata are written by the background
// pipeline and overwritten wholesale on every reclassification (last write
// wins, no merge with prior state).
type Memory struct {
	ID         string
	OwnerID    string
	Title      string
	Content    string
	SourceType SourceType
	SourceURL  string

	Category   string  // taxonomy label, empty until classified
	Confidence float64 // in [0,1]; NaN-free, zero means unclassified
	Classified bool    // whether Category/Confidence carry pipeline output
	Tags       []string
	Metadata   map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmbedText returns the canonical text fed to the embedding model.
// The title-first ordering is part of the contract: repeated runs over
// unchanged content must produce the same input.
func (m *Memory) EmbedText() string {
	return m.Title + "\n\n" + m.Content
}
