package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"

	appdist "speech-transcriber/application/distribution"
	"speech-transcriber/application/ingest"
	appnotif "speech-transcriber/application/notification"
	"speech-transcriber/application/pipeline"
	"speech-transcriber/application/transcription"
	"speech-transcriber/domain/distribution"
	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/audio"
	"speech-transcriber/infrastructure/command"
	"speech-transcriber/infrastructure/config"
	"speech-transcriber/infrastructure/drive"
	"speech-transcriber/infrastructure/ffmpeg"
	"speech-transcriber/infrastructure/filesystem"
	"speech-transcriber/infrastructure/gmail"
	"speech-transcriber/infrastructure/googleauth"
	"speech-transcriber/infrastructure/logging"
	"speech-transcriber/infrastructure/whisper"
	"speech-transcriber/infrastructure/youtube"
)

// Dependencies holds the production collaborators built from configuration
type Dependencies struct {
	Engine    transcript.Engine
	Extractor *ffmpeg.Extractor
	Resolver  *youtube.YTDLPResolver
	Router    *ingest.Router
	Adapter   *transcription.Adapter
	Store     distribution.ArtifactStore
	Reader    distribution.ArtifactReader // nil when the store cannot serve files back
	Notifier  pipeline.Notifier           // nil unless email was requested
	Log       *logging.Logger
}

// DependencyOptions selects the optional parts of the wiring
type DependencyOptions struct {
	WithEmail bool
	Output    io.Writer // Where OAuth instructions and store housekeeping are printed
}

// BuildDependencies wires engines, decoders, fetcher, store and notifier
// according to cfg
func BuildDependencies(ctx context.Context, cfg *config.Config, log *logging.Logger, opts DependencyOptions) (*Dependencies, error) {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	runner := command.NewExecRunner()

	engine, err := NewEngine(cfg, runner)
	if err != nil {
		return nil, err
	}

	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithFFmpegPath(cfg.FFmpeg.FFmpegPath),
		ffmpeg.WithFFprobePath(cfg.FFmpeg.FFprobePath),
		ffmpeg.WithTimeout(cfg.FFmpeg.Timeout),
		ffmpeg.WithSampleRate(cfg.Audio.SampleRate),
		ffmpeg.WithCommandRunner(runner),
	)
	decoder := audio.NewDecoder(
		audio.WithSampleRate(cfg.Audio.SampleRate),
		audio.WithFallback(extractor),
	)
	resolver := youtube.NewYTDLPResolver(
		youtube.WithYTDLPPath(cfg.YouTube.YTDLPPath),
		youtube.WithCommandRunner(runner),
	)
	fetcher := youtube.NewFetcher(resolver, youtube.NewHTTPDownloader(),
		youtube.WithAllowedHosts(cfg.YouTube.AllowedHosts),
		youtube.WithMaxDownloadBytes(cfg.YouTube.MaxDownloadBytes),
		youtube.WithMaxDuration(cfg.YouTube.MaxDuration),
		youtube.WithMinAudioBitrate(cfg.YouTube.MinAudioBitrate),
		youtube.WithFetchTimeout(cfg.YouTube.FetchTimeout),
	)

	deps := &Dependencies{
		Engine:    engine,
		Extractor: extractor,
		Resolver:  resolver,
		Log:       log,
	}

	// One Google client serves both Drive and Gmail
	var google *http.Client
	googleClient := func() (*http.Client, error) {
		if google != nil {
			return google, nil
		}
		c, err := googleauth.HTTPClient(ctx, googleauth.Config{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			Output:          opts.Output,
		}, googleauth.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to authorise with Google: %w", err)
		}
		google = c
		return c, nil
	}

	switch cfg.Storage.Backend {
	case "drive":
		httpClient, err := googleClient()
		if err != nil {
			return nil, err
		}
		driveClient, err := drive.NewClient(ctx, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Drive client: %w", err)
		}
		deps.Store = appdist.NewDriveStore(driveClient, cfg.Google.ArtifactsFolderID, opts.Output)
	default:
		store := filesystem.NewStore(cfg.Storage.LocalDirectory)
		deps.Store = store
		deps.Reader = store
	}

	if opts.WithEmail {
		if cfg.Email.FromAddress == "" {
			return nil, &pipeline.ValidationError{
				Message:    "email.from_address is not configured",
				Suggestion: "speech-transcriber config set email.from_address you@example.com",
			}
		}
		httpClient, err := googleClient()
		if err != nil {
			return nil, err
		}
		svc, err := gmail.NewGoogleGmailService(ctx, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gmail client: %w", err)
		}
		sender := gmail.NewClient(config.NewRecipientLookup(cfg).From(), gmail.WithGmailService(svc))
		deps.Notifier = appnotif.NewService(sender, cfg.Email.FromName)
	}

	deps.Router = ingest.NewRouter(decoder, extractor, fetcher,
		ingest.WithArtifactStore(deps.Store),
		ingest.WithSampleRate(cfg.Audio.SampleRate),
		ingest.WithLogger(log.WithField("component", "ingest")),
	)
	deps.Adapter = transcription.NewAdapter(engine,
		transcription.WithSampleRate(cfg.Audio.SampleRate),
		transcription.WithDefaultLanguage(cfg.Transcription.Language),
		transcription.WithSilenceThreshold(cfg.Transcription.SilenceThreshold),
		transcription.WithLogger(log.WithField("component", "transcription")),
	)

	return deps, nil
}

// NewEngine returns the speech engine named by transcription.engine
func NewEngine(cfg *config.Config, runner command.Runner) (transcript.Engine, error) {
	t := cfg.Transcription
	switch t.Engine {
	case whisper.CLIEngineName:
		return whisper.NewCLIEngine(t.WhisperCLI.Model,
			whisper.WithBinary(t.WhisperCLI.Binary),
			whisper.WithThreads(t.WhisperCLI.Threads),
			whisper.WithCLITimeout(t.WhisperCLI.Timeout),
			whisper.WithCommandRunner(runner),
		), nil
	case whisper.HTTPEngineName:
		return whisper.NewHTTPEngine(t.WhisperHTTP.URL,
			whisper.WithModel(t.WhisperHTTP.Model),
			whisper.WithHTTPTimeout(t.WhisperHTTP.Timeout),
			whisper.WithMaxRetries(t.WhisperHTTP.MaxRetries),
		), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q (use %s or %s)", t.Engine, whisper.CLIEngineName, whisper.HTTPEngineName)
	}
}

// Prepare checks the external tools an input kind needs and loads the engine
func (d *Dependencies) Prepare(ctx context.Context, kind media.SourceKind) error {
	switch kind {
	case media.SourceVideo:
		if err := d.Extractor.VerifyInstalled(ctx); err != nil {
			return err
		}
	case media.SourceYouTube:
		if err := d.Extractor.VerifyInstalled(ctx); err != nil {
			return err
		}
		if err := d.Resolver.VerifyInstalled(ctx); err != nil {
			return err
		}
	}

	if err := d.Engine.Load(ctx); err != nil {
		return media.TranscriptionFailure("engine not ready", err)
	}
	return nil
}

// Pipeline returns a pipeline service printing progress to output
func (d *Dependencies) Pipeline(output io.Writer) *pipeline.Service {
	opts := []pipeline.ServiceOption{pipeline.WithLogger(d.Log.WithField("component", "pipeline"))}
	if d.Notifier != nil {
		opts = append(opts, pipeline.WithNotifier(d.Notifier))
	}
	return pipeline.NewService(d.Router, d.Adapter, output, opts...)
}

// Close releases the engine
func (d *Dependencies) Close() error {
	return d.Engine.Close()
}
