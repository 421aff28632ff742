package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	appnotif "speech-transcriber/application/notification"
	"speech-transcriber/domain/media"
	"speech-transcriber/domain/notification"
	"speech-transcriber/domain/transcript"
)

// --- Mock implementations for testing ---

type mockRouter struct {
	artifact *media.AudioArtifact
	err      error
	calls    int
}

func (m *mockRouter) Route(ctx context.Context, input media.Input) (*media.AudioArtifact, error) {
	m.calls++
	return m.artifact, m.err
}

type mockTranscriber struct {
	text     string
	err      error
	calls    int
	lastHint string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, a *media.AudioArtifact, hint string) (*transcript.Result, error) {
	m.calls++
	m.lastHint = hint
	if m.err != nil {
		return nil, m.err
	}
	lang := hint
	if lang == "" {
		lang = "auto"
	}
	return &transcript.Result{Text: m.text, LanguageHint: lang, Engine: "fake", Artifact: a}, nil
}

type mockNotifier struct {
	requests []appnotif.SendRequest
	err      error
}

func (m *mockNotifier) Send(ctx context.Context, req appnotif.SendRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

func videoArtifact() *media.AudioArtifact {
	return &media.AudioArtifact{
		Samples:           make([]float32, 16000*65),
		SampleRate:        16000,
		Channels:          1,
		Source:            media.SourceVideo,
		SuggestedFilename: "lecture.wav",
		Stored:            &media.StoredRef{Key: "k", Filename: "lecture.wav", Location: "artifacts/k/lecture.wav"},
	}
}

func TestService_Run(t *testing.T) {
	router := &mockRouter{artifact: videoArtifact()}
	transcriber := &mockTranscriber{text: "welcome everyone"}
	var out bytes.Buffer

	svc := NewService(router, transcriber, &out)
	result, err := svc.Run(context.Background(), Request{
		Input:    media.UploadVideo{Data: []byte("x"), Filename: "lecture.mp4"},
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Transcript.Text != "welcome everyone" || result.SourceName != "lecture.mp4" {
		t.Errorf("result = %+v", result)
	}
	if result.Emailed {
		t.Error("no email was requested")
	}
	if transcriber.lastHint != "en" {
		t.Errorf("language hint = %q", transcriber.lastHint)
	}

	progress := out.String()
	for _, want := range []string{
		"[1/2] Ingesting lecture.mp4...",
		"Audio: 1m 05s (lecture.wav)",
		"Saved: artifacts/k/lecture.wav",
		"[2/2] Transcribing...",
		"Engine: fake, language: English",
		"Done! Completed in",
	} {
		if !strings.Contains(progress, want) {
			t.Errorf("progress missing %q in:\n%s", want, progress)
		}
	}
}

func TestService_Run_NoSpeech(t *testing.T) {
	var out bytes.Buffer
	svc := NewService(&mockRouter{artifact: videoArtifact()}, &mockTranscriber{}, &out)

	result, err := svc.Run(context.Background(), Request{Input: media.RecordedClip{Data: []byte{0, 0}, SampleRate: 16000}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Transcript.Empty() {
		t.Error("expected empty transcript")
	}
	if !strings.Contains(out.String(), "No speech detected") {
		t.Errorf("progress missing no-speech line:\n%s", out.String())
	}
}

func TestService_Run_StageErrors(t *testing.T) {
	routeErr := media.UnsupportedFormat(media.StageExtract, media.ReasonNoAudioTrack)
	transcribeErr := media.TranscriptionFailure("engine error", nil)

	tests := []struct {
		name            string
		router          *mockRouter
		transcriber     *mockTranscriber
		wantErr         error
		wantTranscribes int
	}{
		{"route failure stops the run", &mockRouter{err: routeErr}, &mockTranscriber{}, routeErr, 0},
		{"transcription failure", &mockRouter{artifact: videoArtifact()}, &mockTranscriber{err: transcribeErr}, transcribeErr, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			svc := NewService(tt.router, tt.transcriber, nil, WithNotifier(notifier))

			result, err := svc.Run(context.Background(), Request{
				Input:   media.UploadVideo{Data: []byte("x"), Filename: "v.mp4"},
				EmailTo: []notification.Recipient{{Address: "a@example.com"}},
			})
			if result != nil || err != tt.wantErr {
				t.Errorf("Run() = %v, %v; want nil, %v", result, err, tt.wantErr)
			}
			if tt.transcriber.calls != tt.wantTranscribes {
				t.Errorf("transcriber calls = %d, want %d", tt.transcriber.calls, tt.wantTranscribes)
			}
			if len(notifier.requests) != 0 {
				t.Error("email sent after a failed run")
			}
		})
	}
}

func TestService_Run_Email(t *testing.T) {
	notifier := &mockNotifier{}
	var out bytes.Buffer
	svc := NewService(&mockRouter{artifact: videoArtifact()}, &mockTranscriber{text: "hi"}, &out, WithNotifier(notifier))

	to := []notification.Recipient{{Name: "Ana Lima", Address: "ana@example.com"}}
	cc := []notification.Recipient{{Address: "archive@example.com"}}
	result, err := svc.Run(context.Background(), Request{
		Input:   media.YouTubeURL{URL: "https://youtu.be/abc"},
		EmailTo: to,
		EmailCC: cc,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Emailed || result.EmailErr != nil {
		t.Errorf("result = %+v", result)
	}
	if len(notifier.requests) != 1 {
		t.Fatalf("expected 1 email, got %d", len(notifier.requests))
	}
	req := notifier.requests[0]
	if req.SourceName != "https://youtu.be/abc" || len(req.CC) != 1 || req.Result.Text != "hi" {
		t.Errorf("email request = %+v", req)
	}
	if !strings.Contains(out.String(), "[3/3] Sending email...") || !strings.Contains(out.String(), "Sent to: Ana Lima <ana@example.com>") {
		t.Errorf("progress:\n%s", out.String())
	}
}

func TestService_Run_EmailFailureKeepsTranscript(t *testing.T) {
	notifier := &mockNotifier{err: notification.ErrSendFailed}
	svc := NewService(&mockRouter{artifact: videoArtifact()}, &mockTranscriber{text: "hi"}, nil, WithNotifier(notifier))

	result, err := svc.Run(context.Background(), Request{
		Input:   media.UploadAudio{Data: []byte("x"), Filename: "a.wav"},
		EmailTo: []notification.Recipient{{Address: "ana@example.com"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Transcript.Text != "hi" || result.Emailed {
		t.Errorf("result = %+v", result)
	}
	if !errors.Is(result.EmailErr, notification.ErrSendFailed) {
		t.Errorf("EmailErr = %v", result.EmailErr)
	}
}

func TestService_Run_EmailWithoutNotifierIsSkipped(t *testing.T) {
	var out bytes.Buffer
	svc := NewService(&mockRouter{artifact: videoArtifact()}, &mockTranscriber{text: "hi"}, &out)

	result, err := svc.Run(context.Background(), Request{
		Input:   media.UploadAudio{Data: []byte("x"), Filename: "a.wav"},
		EmailTo: []notification.Recipient{{Address: "ana@example.com"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Emailed || strings.Contains(out.String(), "Sending email") {
		t.Error("email step should be skipped without a notifier")
	}
}

func TestDescribeInput(t *testing.T) {
	tests := []struct {
		input media.Input
		want  string
	}{
		{media.UploadAudio{Filename: "song.mp3"}, "song.mp3"},
		{media.UploadAudio{}, "uploaded audio"},
		{media.UploadVideo{Filename: "v.mkv"}, "v.mkv"},
		{media.UploadVideo{}, "uploaded video"},
		{media.RecordedClip{}, "recorded clip"},
		{media.YouTubeURL{URL: "https://youtu.be/x"}, "https://youtu.be/x"},
		{nil, "input"},
	}
	for _, tt := range tests {
		if got := DescribeInput(tt.input); got != tt.want {
			t.Errorf("DescribeInput(%#v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Message: "recipient 'bob' not found in config", Suggestion: "speech-transcriber config recipient add --key bob"}
	if !strings.Contains(err.Error(), "To fix this, run:") {
		t.Errorf("Error() = %q", err.Error())
	}
	if (&ValidationError{Message: "m"}).Error() != "m" {
		t.Error("message-only error should render as the message")
	}
}
