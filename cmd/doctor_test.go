package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"speech-transcriber/domain/distribution"
)

func TestRunDoctor_AllPass(t *testing.T) {
	out := &bytes.Buffer{}
	checks := []Check{
		{Name: "ffmpeg and ffprobe", Run: func(ctx context.Context) error { return nil }},
		{Name: "yt-dlp", Run: func(ctx context.Context) error { return nil }},
	}

	if err := RunDoctorWithDependencies(context.Background(), checks, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "[ OK ] yt-dlp") || !strings.Contains(out.String(), "All checks passed.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunDoctor_ReportsEveryFailure(t *testing.T) {
	out := &bytes.Buffer{}
	ran := 0
	checks := []Check{
		{Name: "ffmpeg and ffprobe", Run: func(ctx context.Context) error { ran++; return errors.New("ffmpeg not found") }},
		{Name: "yt-dlp", Run: func(ctx context.Context) error { ran++; return nil }},
		{Name: "speech engine whisper-cli", Run: func(ctx context.Context) error { ran++; return errors.New("model missing") }},
	}

	err := RunDoctorWithDependencies(context.Background(), checks, out)
	if err == nil || !strings.Contains(err.Error(), "2 of 3 checks failed") {
		t.Fatalf("expected 2 of 3 failures, got %v", err)
	}
	if ran != 3 {
		t.Errorf("expected every check to run, ran %d", ran)
	}
	if !strings.Contains(out.String(), "[FAIL] speech engine whisper-cli: model missing") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

type mockPruner struct {
	maxAge time.Duration
	result *distribution.CleanupResult
	err    error
}

func (m *mockPruner) Prune(ctx context.Context, maxAge time.Duration) (*distribution.CleanupResult, error) {
	m.maxAge = maxAge
	return m.result, m.err
}

func TestRunArtifactsPrune(t *testing.T) {
	result := &distribution.CleanupResult{}
	result.Add(distribution.DeletedFile{Name: "run-1", Size: 2 * 1024 * 1024, Created: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)})
	pruner := &mockPruner{result: result}
	out := &bytes.Buffer{}

	if err := RunArtifactsPruneWithDependencies(context.Background(), pruner, 48*time.Hour, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pruner.maxAge != 48*time.Hour {
		t.Errorf("maxAge = %v", pruner.maxAge)
	}
	if !strings.Contains(out.String(), "Deleted run-1 (2.0 MB, 2025-01-02 03:04)") || !strings.Contains(out.String(), "Freed 2.0 MB") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunArtifactsPrune_NothingToDo(t *testing.T) {
	out := &bytes.Buffer{}
	pruner := &mockPruner{result: &distribution.CleanupResult{}}

	if err := RunArtifactsPruneWithDependencies(context.Background(), pruner, time.Hour, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "Nothing to prune." {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunArtifactsPrune_RejectsNonPositiveAge(t *testing.T) {
	pruner := &mockPruner{result: &distribution.CleanupResult{}}
	if err := RunArtifactsPruneWithDependencies(context.Background(), pruner, 0, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for zero age")
	}
}

type mockListener struct {
	err error
}

func (m *mockListener) ListenAndServe(ctx context.Context) error { return m.err }

func TestRunServe(t *testing.T) {
	out := &bytes.Buffer{}
	if err := RunServeWithDependencies(context.Background(), &mockListener{}, ":9000", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Listening on :9000") || !strings.Contains(out.String(), "Server stopped.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	err := RunServeWithDependencies(context.Background(), &mockListener{err: errors.New("address in use")}, ":9000", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Errorf("expected bind error, got %v", err)
	}
}
