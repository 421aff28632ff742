package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/logging"

	"github.com/sirupsen/logrus"
)

// DefaultSilenceThreshold is the peak amplitude below which audio counts as silent
const DefaultSilenceThreshold = 0.001

// Adapter feeds canonical audio to the injected engine and shapes the result
type Adapter struct {
	engine           transcript.Engine
	sampleRate       int
	defaultLanguage  string
	silenceThreshold float32
	log              logrus.FieldLogger
}

// AdapterOption is a functional option for configuring Adapter
type AdapterOption func(*Adapter)

// WithSampleRate sets the canonical rate artifacts must have
func WithSampleRate(rate int) AdapterOption {
	return func(a *Adapter) {
		a.sampleRate = rate
	}
}

// WithDefaultLanguage sets the language used when a call passes no hint
func WithDefaultLanguage(code string) AdapterOption {
	return func(a *Adapter) {
		a.defaultLanguage = code
	}
}

// WithSilenceThreshold sets the peak amplitude below which the engine is skipped
func WithSilenceThreshold(threshold float64) AdapterOption {
	return func(a *Adapter) {
		a.silenceThreshold = float32(threshold)
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) AdapterOption {
	return func(a *Adapter) {
		a.log = log
	}
}

// NewAdapter creates an adapter over an engine that has already been loaded
func NewAdapter(engine transcript.Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		engine:           engine,
		sampleRate:       media.DefaultSampleRate,
		defaultLanguage:  transcript.AutoDetect,
		silenceThreshold: DefaultSilenceThreshold,
		log:              logging.Discard(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Transcribe returns the text spoken in the artifact. Silent audio succeeds
// with empty text without reaching the engine. Every failure is a
// TranscriptionFailure.
func (a *Adapter) Transcribe(ctx context.Context, artifact *media.AudioArtifact, languageHint string) (*transcript.Result, error) {
	if err := artifact.Validate(a.sampleRate); err != nil {
		return nil, media.TranscriptionFailure("audio is not in canonical form", err)
	}

	language := transcript.NormalizeLanguage(languageHint, a.defaultLanguage)
	if err := transcript.ValidateLanguage(language); err != nil {
		return nil, media.TranscriptionFailure(err.Error(), nil)
	}

	result := &transcript.Result{
		LanguageHint: language,
		Engine:       a.engine.Name(),
		Artifact:     artifact,
	}

	log := a.log.WithFields(logrus.Fields{
		"engine":   result.Engine,
		"language": language,
		"duration": artifact.Duration(),
	})

	if peak := artifact.Peak(); len(artifact.Samples) == 0 || peak < a.silenceThreshold {
		log.WithField("peak", peak).Info("audio is silent, skipping engine")
		return result, nil
	}

	start := time.Now()
	text, err := a.run(ctx, transcript.Audio{
		Samples:    artifact.Samples,
		SampleRate: artifact.SampleRate,
		Language:   transcript.EngineLanguage(language),
	})
	result.Elapsed = time.Since(start)
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		return nil, err
	}

	result.Text = strings.TrimSpace(text)
	log.WithFields(logrus.Fields{
		"elapsed": result.Elapsed,
		"chars":   len(result.Text),
	}).Info("transcription finished")

	return result, nil
}

// run calls the engine, converting panics and errors into TranscriptionFailure
func (a *Adapter) run(ctx context.Context, audio transcript.Audio) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = media.TranscriptionFailure("engine crashed", fmt.Errorf("panic: %v", r))
		}
	}()

	text, err = a.engine.Transcribe(ctx, audio)
	if err == nil {
		return text, nil
	}
	if _, ok := media.AsPipelineError(err); ok && errors.Is(err, media.ErrTranscriptionFailure) {
		return "", err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", media.TranscriptionFailure("engine timed out", err)
	case errors.Is(err, context.Canceled):
		return "", media.TranscriptionFailure("transcription canceled", err)
	}
	return "", media.TranscriptionFailure("engine error", err)
}
