package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	appnotif "speech-transcriber/application/notification"
	"speech-transcriber/domain/media"
	"speech-transcriber/domain/notification"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/logging"

	"github.com/sirupsen/logrus"
)

// Router turns an input into canonical audio
type Router interface {
	Route(ctx context.Context, input media.Input) (*media.AudioArtifact, error)
}

// Transcriber turns canonical audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, artifact *media.AudioArtifact, languageHint string) (*transcript.Result, error)
}

// Notifier sends a finished transcript to people
type Notifier interface {
	Send(ctx context.Context, req appnotif.SendRequest) error
}

// Service runs one input through ingestion, transcription and the optional email
type Service struct {
	router      Router
	transcriber Transcriber
	notifier    Notifier
	output      io.Writer
	log         logrus.FieldLogger
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithNotifier enables emailing transcripts
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a pipeline service. Progress lines go to output.
func NewService(router Router, transcriber Transcriber, output io.Writer, opts ...ServiceOption) *Service {
	s := &Service{
		router:      router,
		transcriber: transcriber,
		output:      output,
		log:         logging.Discard(),
	}
	if s.output == nil {
		s.output = io.Discard
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Request contains everything one run needs
type Request struct {
	Input    media.Input
	Language string                   // Empty means the configured default
	EmailTo  []notification.Recipient // Optional; empty skips the email step
	EmailCC  []notification.Recipient
}

// Result contains the outcome of a successful run
type Result struct {
	Transcript *transcript.Result
	SourceName string
	Emailed    bool
	EmailErr   error // Set when the transcript was produced but the email failed
	Elapsed    time.Duration
}

// Run ingests, transcribes and optionally emails. Ingestion and
// transcription failures are returned as *media.PipelineError. An email
// failure does not discard the transcript; it is reported in Result.EmailErr.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	sourceName := DescribeInput(req.Input)

	steps := 2
	sendEmail := len(req.EmailTo) > 0 && s.notifier != nil
	if sendEmail {
		steps++
	}

	fmt.Fprintf(s.output, "[1/%d] Ingesting %s...\n", steps, sourceName)
	artifact, err := s.router.Route(ctx, req.Input)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Audio: %s (%s)\n", notification.FormatDuration(artifact.Duration()), artifact.SuggestedFilename)
	if artifact.Stored != nil {
		fmt.Fprintf(s.output, "      Saved: %s\n", artifact.Stored.Location)
	}
	fmt.Fprintln(s.output)

	fmt.Fprintf(s.output, "[2/%d] Transcribing...\n", steps)
	res, err := s.transcriber.Transcribe(ctx, artifact, req.Language)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Engine: %s, language: %s\n", res.Engine, notification.FormatLanguage(res.LanguageHint))
	if res.Empty() {
		fmt.Fprintf(s.output, "      No speech detected\n")
	}
	fmt.Fprintln(s.output)

	result := &Result{Transcript: res, SourceName: sourceName}

	if sendEmail {
		fmt.Fprintf(s.output, "[3/%d] Sending email...\n", steps)
		err := s.notifier.Send(ctx, appnotif.SendRequest{
			To:         req.EmailTo,
			CC:         req.EmailCC,
			SourceName: sourceName,
			Result:     res,
		})
		if err != nil {
			result.EmailErr = fmt.Errorf("email failed: %w", err)
			s.log.WithError(err).Warn("transcript email failed")
			fmt.Fprintf(s.output, "      Email failed: %v\n", err)
		} else {
			result.Emailed = true
			for _, r := range req.EmailTo {
				fmt.Fprintf(s.output, "      Sent to: %s\n", formatRecipient(r))
			}
		}
		fmt.Fprintln(s.output)
	}

	result.Elapsed = time.Since(start)
	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatElapsed(result.Elapsed))

	s.log.WithFields(logrus.Fields{
		"source":    req.Input.Kind(),
		"elapsed":   result.Elapsed,
		"no_speech": res.Empty(),
	}).Info("pipeline run finished")

	return result, nil
}

// DescribeInput names an input for progress lines and email subjects
func DescribeInput(input media.Input) string {
	switch in := input.(type) {
	case media.UploadAudio:
		return nameOr(in.Filename, "uploaded audio")
	case media.UploadVideo:
		return nameOr(in.Filename, "uploaded video")
	case media.RecordedClip:
		return "recorded clip"
	case media.YouTubeURL:
		return in.URL
	}
	return "input"
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func formatRecipient(r notification.Recipient) string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Address)
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
