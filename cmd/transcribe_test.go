package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speech-transcriber/application/pipeline"
	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/config"
)

type mockRunner struct {
	req    pipeline.Request
	calls  int
	result *pipeline.Result
	err    error
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	m.calls++
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func textResult(source, text string) *pipeline.Result {
	return &pipeline.Result{
		SourceName: source,
		Transcript: &transcript.Result{Text: text, Engine: "fake", LanguageHint: "en"},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Email.FromAddress = "transcripts@example.com"
	cfg.Email.DefaultCC = []config.RecipientConfig{{Name: "Archive", Address: "archive@example.com"}}
	cfg.Email.Recipients = map[string]config.RecipientConfig{
		"jane": {Name: "Jane Doe", Address: "jane@example.com"},
		"john": {Name: "John Roe", Address: "john@example.com"},
	}
	return cfg
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media bytes"), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return path
}

func TestBuildInput(t *testing.T) {
	audioPath := writeInput(t, "interview.mp3")

	tests := []struct {
		name    string
		opts    TranscribeOptions
		want    media.Input
		wantErr string
	}{
		{
			name: "audio",
			opts: TranscribeOptions{Kind: media.SourceUpload, Target: audioPath},
			want: media.UploadAudio{Data: []byte("media bytes"), Filename: "interview.mp3"},
		},
		{
			name: "video",
			opts: TranscribeOptions{Kind: media.SourceVideo, Target: audioPath},
			want: media.UploadVideo{Data: []byte("media bytes"), Filename: "interview.mp3"},
		},
		{
			name: "recorded clip",
			opts: TranscribeOptions{Kind: media.SourceRecord, Target: audioPath, SampleRate: 48000},
			want: media.RecordedClip{Data: []byte("media bytes"), SampleRate: 48000},
		},
		{
			name: "youtube does not touch the filesystem",
			opts: TranscribeOptions{Kind: media.SourceYouTube, Target: "https://youtu.be/abc"},
			want: media.YouTubeURL{URL: "https://youtu.be/abc"},
		},
		{
			name:    "recorded clip without rate",
			opts:    TranscribeOptions{Kind: media.SourceRecord, Target: audioPath},
			wantErr: "--sample-rate",
		},
		{
			name:    "missing file",
			opts:    TranscribeOptions{Kind: media.SourceUpload, Target: filepath.Join(t.TempDir(), "nope.wav")},
			wantErr: "input file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildInput(tt.opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind() != tt.want.Kind() {
				t.Fatalf("kind = %s, want %s", got.Kind(), tt.want.Kind())
			}
			switch want := tt.want.(type) {
			case media.UploadAudio:
				g := got.(media.UploadAudio)
				if g.Filename != want.Filename || !bytes.Equal(g.Data, want.Data) {
					t.Errorf("got %+v, want %+v", g, want)
				}
			case media.UploadVideo:
				g := got.(media.UploadVideo)
				if g.Filename != want.Filename || !bytes.Equal(g.Data, want.Data) {
					t.Errorf("got %+v, want %+v", g, want)
				}
			case media.RecordedClip:
				g := got.(media.RecordedClip)
				if g.SampleRate != want.SampleRate || !bytes.Equal(g.Data, want.Data) {
					t.Errorf("got %+v, want %+v", g, want)
				}
			case media.YouTubeURL:
				if got.(media.YouTubeURL).URL != want.URL {
					t.Errorf("got %+v, want %+v", got, want)
				}
			}
		})
	}
}

func TestRunTranscribe_PrintsTranscript(t *testing.T) {
	runner := &mockRunner{result: textResult("interview.mp3", "hello there")}
	out := &bytes.Buffer{}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:     media.SourceUpload,
		Target:   writeInput(t, "interview.mp3"),
		Language: "en",
	}, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.TrimSpace(out.String()); got != "hello there" {
		t.Errorf("output = %q, want transcript only", got)
	}
	if runner.req.Language != "en" {
		t.Errorf("language = %q, want en", runner.req.Language)
	}
	if len(runner.req.EmailTo) != 0 {
		t.Errorf("expected no email recipients, got %v", runner.req.EmailTo)
	}
}

func TestRunTranscribe_NoSpeech(t *testing.T) {
	runner := &mockRunner{result: textResult("recorded clip", "")}
	out := &bytes.Buffer{}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:       media.SourceRecord,
		Target:     writeInput(t, "clip.wav"),
		SampleRate: 16000,
	}, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "no speech detected in recorded clip") {
		t.Errorf("expected no-speech warning, got %q", out.String())
	}
}

func TestRunTranscribe_WritesOutputFile(t *testing.T) {
	runner := &mockRunner{result: textResult("https://youtu.be/abc", "a talk")}
	target := filepath.Join(t.TempDir(), "talk.txt")
	out, status := &bytes.Buffer{}, &bytes.Buffer{}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:       media.SourceYouTube,
		Target:     "https://youtu.be/abc",
		OutputFile: target,
		Status:     status,
	}, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("transcript file not written: %v", err)
	}
	if string(data) != "a talk\n" {
		t.Errorf("file content = %q", data)
	}
	if out.String() != "a talk\n" {
		t.Errorf("stdout = %q, want only the transcript", out.String())
	}
	if !strings.Contains(status.String(), "Transcript written to "+target) {
		t.Errorf("status = %q, want the written-file note", status.String())
	}
}

func TestRunTranscribe_EmailFailureIsAWarning(t *testing.T) {
	result := textResult("https://youtu.be/abc", "a talk")
	result.EmailErr = errors.New("email failed: quota exceeded")
	runner := &mockRunner{result: result}
	out, status := &bytes.Buffer{}, &bytes.Buffer{}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:   media.SourceYouTube,
		Target: "https://youtu.be/abc",
		Email:  []string{"jane"},
		Status: status,
	}, out)
	if err != nil {
		t.Fatalf("email failure should not fail the run: %v", err)
	}
	if strings.TrimSpace(out.String()) != "a talk" {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(status.String(), "Warning: email failed: quota exceeded") {
		t.Errorf("status = %q, want the email warning", status.String())
	}
}

func TestRunTranscribe_ResolvesRecipients(t *testing.T) {
	runner := &mockRunner{result: textResult("lecture.mp4", "text")}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:   media.SourceYouTube,
		Target: "https://youtu.be/abc",
		Email:  []string{"jane,john", "Jane Doe"},
		CC:     []string{"boss@example.com"},
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.req.EmailTo) != 2 {
		t.Fatalf("EmailTo = %v, want jane and john once each", runner.req.EmailTo)
	}
	if runner.req.EmailTo[0].Address != "jane@example.com" || runner.req.EmailTo[1].Address != "john@example.com" {
		t.Errorf("EmailTo = %v", runner.req.EmailTo)
	}

	var ccs []string
	for _, r := range runner.req.EmailCC {
		ccs = append(ccs, r.Address)
	}
	if strings.Join(ccs, ",") != "archive@example.com,boss@example.com" {
		t.Errorf("EmailCC = %v, want default CC then explicit CC", ccs)
	}
}

func TestRunTranscribe_UnknownRecipientSuggestsFix(t *testing.T) {
	runner := &mockRunner{result: textResult("x", "y")}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:   media.SourceYouTube,
		Target: "https://youtu.be/abc",
		Email:  []string{"bob"},
	}, &bytes.Buffer{})

	var verr *pipeline.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Suggestion, "config recipient add --key bob") {
		t.Errorf("suggestion = %q", verr.Suggestion)
	}
	if runner.calls != 0 {
		t.Error("pipeline should not run when a recipient is unknown")
	}
}

func TestRunTranscribe_PipelineError(t *testing.T) {
	runner := &mockRunner{err: media.UnsupportedFormat(media.StageExtract, media.ReasonNoAudioTrack)}

	err := RunTranscribeWithDependencies(context.Background(), testConfig(), runner, TranscribeOptions{
		Kind:   media.SourceVideo,
		Target: writeInput(t, "silent.mp4"),
	}, &bytes.Buffer{})
	if !errors.Is(err, media.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if msg := ErrorMessage(err); msg != "The video has no audio track to transcribe." {
		t.Errorf("ErrorMessage = %q", msg)
	}
}

func TestErrorMessage_PlainError(t *testing.T) {
	if got := ErrorMessage(errors.New("boom")); got != "boom" {
		t.Errorf("ErrorMessage = %q, want boom", got)
	}
}
