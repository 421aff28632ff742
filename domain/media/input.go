package media

import (
	"path/filepath"
	"strings"
)

// SourceKind identifies where an input came from
type SourceKind string

const (
	SourceUpload  SourceKind = "upload"
	SourceRecord  SourceKind = "record"
	SourceVideo   SourceKind = "video"
	SourceYouTube SourceKind = "youtube"
)

// ParseSourceKind converts a user-supplied kind name into a SourceKind
func ParseSourceKind(s string) (SourceKind, bool) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(s))) {
	case SourceUpload, "audio":
		return SourceUpload, true
	case SourceRecord, "recording":
		return SourceRecord, true
	case SourceVideo:
		return SourceVideo, true
	case SourceYouTube, "url":
		return SourceYouTube, true
	}
	return "", false
}

// Input is the tagged union of everything the pipeline can ingest.
// Only the types in this package implement it.
type Input interface {
	Kind() SourceKind
	isInput()
}

// UploadAudio is an uploaded audio file
type UploadAudio struct {
	Data     []byte
	Filename string
}

// UploadVideo is an uploaded video file
type UploadVideo struct {
	Data     []byte
	Filename string
}

// RecordedClip is a browser-recorded microphone clip. SampleRate is the
// rate declared by the recorder and is treated as authoritative.
type RecordedClip struct {
	Data       []byte
	SampleRate int
}

// YouTubeURL is a link to a remote video
type YouTubeURL struct {
	URL string
}

func (UploadAudio) Kind() SourceKind  { return SourceUpload }
func (UploadVideo) Kind() SourceKind  { return SourceVideo }
func (RecordedClip) Kind() SourceKind { return SourceRecord }
func (YouTubeURL) Kind() SourceKind   { return SourceYouTube }

func (UploadAudio) isInput()  {}
func (UploadVideo) isInput()  {}
func (RecordedClip) isInput() {}
func (YouTubeURL) isInput()   {}

// ExtensionHint returns the lower-case extension of a filename without the dot
func ExtensionHint(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// BaseName returns the filename without directory or extension
func BaseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
