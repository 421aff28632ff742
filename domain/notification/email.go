package notification

import (
	"context"
	"strings"
	"time"
)

// Recipient represents an email recipient with name and address
type Recipient struct {
	Name    string
	Address string
}

// EmailRequest contains everything needed to send a finished transcript
type EmailRequest struct {
	To           []Recipient   // Primary recipients
	CC           []Recipient   // Carbon copy recipients
	SourceName   string        // What was transcribed, e.g. "lecture.mp4" or a video title
	Transcript   string        // Transcript text; empty means no speech was detected
	Language     string        // Language hint the run used
	Duration     time.Duration // Length of the audio
	ArtifactURL  string        // Download link for the extracted audio, if stored
	ArtifactName string        // Filename of the extracted audio
	CompletedAt  time.Time     // When the transcript was produced
	SenderName   string        // Name to sign the email with
}

// Validate checks that the email request has all required fields
func (r *EmailRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, rcpt := range append(append([]Recipient{}, r.To...), r.CC...) {
		if strings.TrimSpace(rcpt.Address) == "" || !strings.Contains(rcpt.Address, "@") {
			return ErrInvalidRecipient
		}
	}
	if strings.TrimSpace(r.SourceName) == "" {
		return ErrNoSource
	}
	if r.CompletedAt.IsZero() {
		return ErrNoCompletionTime
	}
	return nil
}

// NoSpeech reports whether the transcript is empty
func (r *EmailRequest) NoSpeech() bool {
	return strings.TrimSpace(r.Transcript) == ""
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, req *EmailRequest) error
}
