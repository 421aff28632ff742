package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/domain/notification"
	"speech-transcriber/domain/transcript"
)

type mockSender struct {
	requests []*notification.EmailRequest
	err      error
}

func (m *mockSender) Send(ctx context.Context, req *notification.EmailRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

func artifactWithLocation(location string) *media.AudioArtifact {
	return &media.AudioArtifact{
		Samples:           make([]float32, 32000),
		SampleRate:        16000,
		Channels:          1,
		Source:            media.SourceVideo,
		SuggestedFilename: "lecture.wav",
		Stored:            &media.StoredRef{Key: "k", Filename: "lecture.wav", Location: location},
	}
}

func TestService_Send(t *testing.T) {
	completed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name        string
		artifact    *media.AudioArtifact
		wantURL     string
		wantDur     time.Duration
		wantArtName string
	}{
		{
			name:        "drive link is included",
			artifact:    artifactWithLocation("https://drive.google.com/file/d/abc/view"),
			wantURL:     "https://drive.google.com/file/d/abc/view",
			wantDur:     2 * time.Second,
			wantArtName: "lecture.wav",
		},
		{
			name:        "local path is left out",
			artifact:    artifactWithLocation("/var/lib/transcriber/k/lecture.wav"),
			wantDur:     2 * time.Second,
			wantArtName: "lecture.wav",
		},
		{
			name: "no artifact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			svc := NewService(sender, "Transcriber")
			svc.now = func() time.Time { return completed }

			err := svc.Send(context.Background(), SendRequest{
				To:         []notification.Recipient{{Name: "Ann", Address: "ann@example.com"}},
				SourceName: "lecture.mp4",
				Result:     &transcript.Result{Text: "hello", LanguageHint: "en", Artifact: tt.artifact},
			})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if len(sender.requests) != 1 {
				t.Fatalf("expected 1 email, got %d", len(sender.requests))
			}

			req := sender.requests[0]
			if req.ArtifactURL != tt.wantURL {
				t.Errorf("ArtifactURL = %q, want %q", req.ArtifactURL, tt.wantURL)
			}
			if req.Duration != tt.wantDur {
				t.Errorf("Duration = %v, want %v", req.Duration, tt.wantDur)
			}
			if req.ArtifactName != tt.wantArtName {
				t.Errorf("ArtifactName = %q, want %q", req.ArtifactName, tt.wantArtName)
			}
			if !req.CompletedAt.Equal(completed) || req.SenderName != "Transcriber" || req.Transcript != "hello" || req.Language != "en" {
				t.Errorf("unexpected request %+v", req)
			}
		})
	}
}

func TestService_Send_Errors(t *testing.T) {
	sendErr := errors.New("boom")
	svc := NewService(&mockSender{err: sendErr}, "Transcriber")

	if err := svc.Send(context.Background(), SendRequest{}); err == nil {
		t.Error("expected error for missing result")
	}

	err := svc.Send(context.Background(), SendRequest{
		To:         []notification.Recipient{{Address: "ann@example.com"}},
		SourceName: "x",
		Result:     &transcript.Result{},
	})
	if !errors.Is(err, sendErr) {
		t.Errorf("Send() error = %v, want %v", err, sendErr)
	}
}
