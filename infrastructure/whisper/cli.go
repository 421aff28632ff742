package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/audio"
	"speech-transcriber/infrastructure/command"
)

const (
	// CLIEngineName identifies the whisper.cpp command-line engine
	CLIEngineName = "whisper-cli"

	defaultCLIBinary  = "whisper-cli"
	defaultCLIThreads = 4
	defaultCLITimeout = 10 * time.Minute
)

// CLIEngine runs whisper.cpp as a child process per transcription
type CLIEngine struct {
	binary  string
	model   string
	threads int
	timeout time.Duration
	tempDir string
	runner  command.Runner
}

// CLIOption is a functional option for configuring CLIEngine
type CLIOption func(*CLIEngine)

// WithBinary sets the whisper.cpp executable
func WithBinary(path string) CLIOption {
	return func(e *CLIEngine) {
		e.binary = path
	}
}

// WithThreads sets the number of decoder threads
func WithThreads(n int) CLIOption {
	return func(e *CLIEngine) {
		e.threads = n
	}
}

// WithCLITimeout bounds a single transcription
func WithCLITimeout(d time.Duration) CLIOption {
	return func(e *CLIEngine) {
		e.timeout = d
	}
}

// WithTempDir sets where work files are created
func WithTempDir(dir string) CLIOption {
	return func(e *CLIEngine) {
		e.tempDir = dir
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner command.Runner) CLIOption {
	return func(e *CLIEngine) {
		e.runner = runner
	}
}

// NewCLIEngine creates an engine for the given ggml model file
func NewCLIEngine(model string, opts ...CLIOption) *CLIEngine {
	e := &CLIEngine{
		binary:  defaultCLIBinary,
		model:   model,
		threads: defaultCLIThreads,
		timeout: defaultCLITimeout,
		runner:  command.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CLIEngine) Name() string { return CLIEngineName }

// Load checks that the model file exists and the binary runs
func (e *CLIEngine) Load(ctx context.Context) error {
	info, err := os.Stat(e.model)
	if err != nil {
		return fmt.Errorf("whisper model not found at %s: %w", e.model, err)
	}
	if info.IsDir() {
		return fmt.Errorf("whisper model path %s is a directory", e.model)
	}
	if err := e.runner.Run(ctx, e.binary, "--help"); err != nil {
		return fmt.Errorf("whisper.cpp not found or not executable: %w", err)
	}
	return nil
}

// Transcribe writes the audio as WAV, runs whisper.cpp with txt output and
// returns the text file's contents
func (e *CLIEngine) Transcribe(ctx context.Context, a transcript.Audio) (string, error) {
	wav, err := audio.EncodeWAV(&media.AudioArtifact{Samples: a.Samples, SampleRate: a.SampleRate, Channels: 1})
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(e.tempDir, "whisper-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(input, wav, 0o600); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	outBase := filepath.Join(dir, "transcript")

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.runner.Run(runCtx, e.binary, e.args(input, outBase, a.Language)...); err != nil {
		return "", fmt.Errorf("whisper.cpp transcription failed: %w", err)
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("whisper.cpp completed but transcript file is missing: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func (e *CLIEngine) args(input, outBase, language string) []string {
	if language == "" {
		language = transcript.AutoDetect
	}
	return []string{
		"-m", e.model,
		"-f", input,
		"-of", outBase,
		"-otxt",
		"-nt",
		"-t", strconv.Itoa(e.threads),
		"-l", language,
	}
}

// Close is a no-op; each transcription owns its process
func (e *CLIEngine) Close() error { return nil }

var _ transcript.Engine = (*CLIEngine)(nil)
