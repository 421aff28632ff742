package transcript

import (
	"strings"
	"time"

	"speech-transcriber/domain/media"
)

// Result is the outcome of one successful transcription
type Result struct {
	Text         string
	LanguageHint string
	Engine       string
	Elapsed      time.Duration

	// Artifact is the audio the text came from, kept for display and download
	Artifact *media.AudioArtifact
}

// Empty reports whether no speech was detected
func (r *Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}
