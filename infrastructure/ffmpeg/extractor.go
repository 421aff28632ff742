package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/command"
)

const (
	// DefaultTimeout bounds a single probe or decode
	DefaultTimeout = 2 * time.Minute

	videoAudioFilename = "video_audio.wav"
)

// ffmpeg diagnostics that mean the container has no audio to map
var noAudioMarkers = []string{
	"matches no streams",
	"does not contain any stream",
	"Output file #0 does not contain any stream",
}

// Extractor pulls the first audio stream out of any container ffmpeg can read.
// It serves both uploaded videos and the non-native audio containers.
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	sampleRate  int
	tempDir     string
	runner      command.Runner
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffprobePath = path
	}
}

// WithTimeout bounds each ffprobe and ffmpeg invocation
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithSampleRate sets the canonical output rate
func WithSampleRate(rate int) ExtractorOption {
	return func(e *Extractor) {
		e.sampleRate = rate
	}
}

// WithTempDir sets where uploaded bytes are staged for ffmpeg
func WithTempDir(dir string) ExtractorOption {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner command.Runner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// NewExtractor creates a new FFmpeg-based audio extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		timeout:     DefaultTimeout,
		sampleRate:  media.DefaultSampleRate,
		runner:      command.NewExecRunner(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract implements media.VideoAudioExtractor
func (e *Extractor) Extract(ctx context.Context, data []byte, hint string) (*media.AudioArtifact, error) {
	pcm, err := e.decode(ctx, data, hint, media.StageExtract)
	if err != nil {
		return nil, err
	}
	if pcm.Frames() == 0 {
		return nil, media.DecodeFailure(media.StageExtract, "audio track is empty", nil)
	}

	a, err := media.NewArtifact(pcm, e.sampleRate, media.SourceVideo, videoFilename(hint))
	if err != nil {
		return nil, media.DecodeFailure(media.StageExtract, "invalid decoded audio", err)
	}
	return a, nil
}

// DecodePCM implements media.PCMDecoder for audio containers decoded out of process
func (e *Extractor) DecodePCM(ctx context.Context, data []byte, hint string) (media.PCM, error) {
	return e.decode(ctx, data, hint, media.StageDecode)
}

func (e *Extractor) decode(ctx context.Context, data []byte, hint string, stage media.Stage) (media.PCM, error) {
	if len(data) == 0 {
		return media.PCM{}, media.DecodeFailure(stage, "input is empty", nil)
	}

	path, cleanup, err := e.writeTemp(data, hint)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(stage, "failed to stage input", err)
	}
	defer cleanup()

	stream, err := e.probe(ctx, path)
	if err != nil {
		return media.PCM{}, classify(stage, e.ffprobePath, err)
	}
	if stream == nil {
		return media.PCM{}, media.UnsupportedFormat(stage, media.ReasonNoAudioTrack)
	}

	// Keep the source layout so resampling and downmix happen in one place.
	// Probes that report no rate or layout get the canonical form directly.
	rate, channels := stream.SampleRate, stream.Channels
	if rate <= 0 || channels <= 0 {
		rate, channels = e.sampleRate, 1
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.runner.Output(runCtx, e.ffmpegPath, e.decodeArgs(path, rate, channels)...)
	if err != nil {
		return media.PCM{}, classify(stage, e.ffmpegPath, err)
	}

	out = out[:len(out)-len(out)%(2*channels)]
	samples, err := media.Int16LEToFloat(out)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(stage, "malformed ffmpeg output", err)
	}
	return media.PCM{Samples: samples, SampleRate: rate, Channels: channels}, nil
}

func (e *Extractor) probe(ctx context.Context, path string) (*AudioStream, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.runner.Output(probeCtx, e.ffprobePath, e.probeArgs(path)...)
	if err != nil {
		return nil, err
	}
	return parseProbe(out)
}

func (e *Extractor) decodeArgs(path string, rate, channels int) []string {
	return []string{
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-map", "0:a:0", // First audio stream only
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}
}

// writeTemp writes the bytes to a private temp file named with the hint's
// extension so ffmpeg can seek and pick the right demuxer
func (e *Extractor) writeTemp(data []byte, hint string) (string, func(), error) {
	ext := media.ExtensionHint(hint)
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(hint), ".")
	}
	pattern := "ingest-*"
	if ext != "" && !strings.ContainsAny(ext, `/\`) {
		pattern += "." + ext
	}

	f, err := os.CreateTemp(e.tempDir, pattern)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

// VerifyInstalled checks that ffmpeg and ffprobe are available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	if _, err := e.runner.Output(ctx, e.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	if _, err := e.runner.Output(ctx, e.ffprobePath, "-version"); err != nil {
		return fmt.Errorf("ffprobe not found or not executable: %w", err)
	}
	return nil
}

// classify maps a failed probe or decode onto the pipeline taxonomy
func classify(stage media.Stage, tool string, err error) error {
	stderr := command.StderrOf(err)
	for _, marker := range noAudioMarkers {
		if strings.Contains(stderr, marker) {
			return media.UnsupportedFormat(stage, media.ReasonNoAudioTrack)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return media.DecodeFailure(stage, tool+" timed out", err)
	case errors.Is(err, context.Canceled):
		return media.DecodeFailure(stage, "cancelled", err)
	case command.IsNotFound(err):
		return media.DecodeFailure(stage, tool+" is not installed", err)
	}
	return media.DecodeFailure(stage, tool+" could not read the input", err)
}

func videoFilename(hint string) string {
	base := media.BaseName(hint)
	if base == "" || base == "." || media.ExtensionHint(hint) == "" {
		return videoAudioFilename
	}
	return base + ".wav"
}

// Ensure Extractor implements the media ports
var (
	_ media.VideoAudioExtractor = (*Extractor)(nil)
	_ media.PCMDecoder          = (*Extractor)(nil)
)
