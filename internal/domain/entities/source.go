package entities

import (
	"fmt"
	"strings"
)

// SourceKind discriminates the three ingestion paths
type SourceKind string

const (
	SourceKindUpload SourceKind = "upload"
	SourceKindRemote SourceKind = "remote"
	SourceKindText   SourceKind = "text"
)

// Source is an immutable description of the material a lesson is built from.
// Exactly one of the kind-specific field groups is populated.
type Source struct {
	Kind SourceKind

	// Upload sources
	FileName string
	MimeType string
	Data     []byte

	// Remote sources (e.g. a YouTube video)
	VideoID string

	// Text sources
	Text string
}

// NewUploadSource creates a source from an uploaded file
func NewUploadSource(fileName, mimeType string, data []byte) Source {
	return Source{
		Kind:     SourceKindUpload,
		FileName: fileName,
		MimeType: mimeType,
		Data:     data,
	}
}

// NewRemoteSource creates a source referencing a remote video
func NewRemoteSource(videoID string) Source {
	return Source{Kind: SourceKindRemote, VideoID: videoID}
}

// NewTextSource creates a source from raw text
func NewTextSource(text string) Source {
	return Source{Kind: SourceKindText, Text: text}
}

// CacheKey derives the deterministic transcript cache key for this source.
// Text sources are never transcribed and return an empty key.
func (s Source) CacheKey() string {
	switch s.Kind {
	case SourceKindRemote:
		return fmt.Sprintf("yt_%s", s.VideoID)
	case SourceKindUpload:
		name := strings.ReplaceAll(s.FileName, " ", "_")
		return fmt.Sprintf("file_%s_%d", name, len(s.Data))
	default:
		return ""
	}
}

// SupportsCaptions reports whether a caption lookup makes sense for this source
func (s Source) SupportsCaptions() bool {
	return s.Kind == SourceKindRemote
}
