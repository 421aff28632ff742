package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"speech-transcriber/domain/notification"
	"speech-transcriber/domain/transcript"
)

// Service sends finished transcripts by email
type Service struct {
	sender     notification.EmailSender
	senderName string
	now        func() time.Time
}

// NewService creates a new notification service
func NewService(sender notification.EmailSender, senderName string) *Service {
	return &Service{
		sender:     sender,
		senderName: senderName,
		now:        time.Now,
	}
}

// SendRequest contains the parameters for sending a transcript notification
type SendRequest struct {
	To         []notification.Recipient
	CC         []notification.Recipient
	SourceName string
	Result     *transcript.Result
}

// Send emails the transcript and, when the audio was stored remotely, its link
func (s *Service) Send(ctx context.Context, req SendRequest) error {
	if req.Result == nil {
		return errors.New("no transcript to send")
	}

	emailReq := &notification.EmailRequest{
		To:          req.To,
		CC:          req.CC,
		SourceName:  req.SourceName,
		Transcript:  req.Result.Text,
		Language:    req.Result.LanguageHint,
		CompletedAt: s.now(),
		SenderName:  s.senderName,
	}

	if a := req.Result.Artifact; a != nil {
		emailReq.Duration = a.Duration()
		emailReq.ArtifactName = a.SuggestedFilename
		// Local store locations are paths on this machine, useless to a recipient
		if a.Stored != nil && isLink(a.Stored.Location) {
			emailReq.ArtifactURL = a.Stored.Location
		}
	}

	return s.sender.Send(ctx, emailReq)
}

func isLink(location string) bool {
	return strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "http://")
}
