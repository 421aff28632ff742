package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"speech-transcriber/application/pipeline"
	"speech-transcriber/domain/media"
	"speech-transcriber/domain/notification"
	"speech-transcriber/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	transcribeLanguage   string
	transcribeEmail      []string
	transcribeCC         []string
	transcribeOutputFile string
	transcribeSampleRate int
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file, video file, recorded clip or YouTube link",
	Long: `Transcribe one input and print the text to stdout.

Video, recorded and YouTube inputs also keep the extracted audio as a WAV
file in the configured artifact store.

Examples:
  speech-transcriber transcribe audio interview.mp3
  speech-transcriber transcribe video lecture.mp4 --language en --email jane
  speech-transcriber transcribe record clip.wav --sample-rate 48000
  speech-transcriber transcribe youtube "https://youtu.be/dQw4w9WgXcQ" --output talk.txt`,
}

var transcribeAudioCmd = &cobra.Command{
	Use:   "audio <file>",
	Short: "Transcribe an audio file (wav, mp3, flac, m4a, ogg, webm)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(cmd, media.SourceUpload, args[0])
	},
}

var transcribeVideoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Transcribe the audio track of a video file (mp4, mkv, mov, webm)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(cmd, media.SourceVideo, args[0])
	},
}

var transcribeRecordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Transcribe a browser-recorded clip at its declared sample rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(cmd, media.SourceRecord, args[0])
	},
}

var transcribeYouTubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Transcribe a YouTube video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(cmd, media.SourceYouTube, args[0])
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.AddCommand(transcribeAudioCmd, transcribeVideoCmd, transcribeRecordCmd, transcribeYouTubeCmd)

	flags := transcribeCmd.PersistentFlags()
	flags.StringVar(&transcribeLanguage, "language", "", "Spoken language (auto, en, hi, es, fr, de, ja, zh); defaults to config")
	flags.StringArrayVar(&transcribeEmail, "email", nil, "Email the transcript to a recipient key, name or address (can be repeated)")
	flags.StringArrayVar(&transcribeCC, "cc", nil, "Additional CC recipient (can be repeated)")
	flags.StringVarP(&transcribeOutputFile, "output", "o", "", "Also write the transcript to this file")

	transcribeRecordCmd.Flags().IntVar(&transcribeSampleRate, "sample-rate", 0, "Sample rate the recorder declared (required)")
	transcribeRecordCmd.MarkFlagRequired("sample-rate")
}

func runTranscribe(cmd *cobra.Command, kind media.SourceKind, target string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := newLogger(cfg, os.Stderr)

	deps, err := BuildDependencies(ctx, cfg, log, DependencyOptions{
		WithEmail: len(transcribeEmail) > 0,
		Output:    os.Stderr,
	})
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Prepare(ctx, kind); err != nil {
		return err
	}

	opts := TranscribeOptions{
		Kind:       kind,
		Target:     target,
		SampleRate: transcribeSampleRate,
		Language:   transcribeLanguage,
		Email:      transcribeEmail,
		CC:         transcribeCC,
		OutputFile: transcribeOutputFile,
		Status:     os.Stderr,
	}

	// Progress lines go to stderr so stdout carries only the transcript
	return RunTranscribeWithDependencies(ctx, cfg, deps.Pipeline(os.Stderr), opts, DefaultOutput)
}

// PipelineRunner runs one request through ingestion and transcription
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// TranscribeOptions contains the input parameters for the transcribe command
type TranscribeOptions struct {
	Kind       media.SourceKind
	Target     string // File path, or the URL for YouTube
	SampleRate int    // Declared rate for recorded clips
	Language   string
	Email      []string
	CC         []string
	OutputFile string
	Status     OutputWriter // Notes and warnings beside the transcript; discarded when nil
}

// RunTranscribeWithDependencies runs the transcribe command with injected dependencies
func RunTranscribeWithDependencies(ctx context.Context, cfg *config.Config, runner PipelineRunner, opts TranscribeOptions, out OutputWriter) error {
	input, err := BuildInput(opts)
	if err != nil {
		return err
	}
	status := opts.Status
	if status == nil {
		status = io.Discard
	}

	req := pipeline.Request{Input: input, Language: opts.Language}
	if len(opts.Email) > 0 {
		lookup := config.NewRecipientLookup(cfg)
		if req.EmailTo, err = resolveRecipients(lookup, opts.Email); err != nil {
			return err
		}
		cc, err := resolveRecipients(lookup, opts.CC)
		if err != nil {
			return err
		}
		req.EmailCC = append(lookup.DefaultCC(), cc...)
	}

	result, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	res := result.Transcript
	if res.Empty() {
		fmt.Fprintf(out, "Warning: no speech detected in %s\n", result.SourceName)
	} else {
		fmt.Fprintln(out, res.Text)
	}

	if opts.OutputFile != "" {
		if err := os.WriteFile(opts.OutputFile, []byte(res.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
		fmt.Fprintf(status, "Transcript written to %s\n", opts.OutputFile)
	}

	if result.EmailErr != nil {
		fmt.Fprintf(status, "Warning: %v\n", result.EmailErr)
	}

	return nil
}

// BuildInput reads the target named by opts into a pipeline input
func BuildInput(opts TranscribeOptions) (media.Input, error) {
	if opts.Kind == media.SourceYouTube {
		return media.YouTubeURL{URL: opts.Target}, nil
	}

	data, err := os.ReadFile(opts.Target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file not found: %s", opts.Target)
		}
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	name := filepath.Base(opts.Target)

	switch opts.Kind {
	case media.SourceUpload:
		return media.UploadAudio{Data: data, Filename: name}, nil
	case media.SourceVideo:
		return media.UploadVideo{Data: data, Filename: name}, nil
	case media.SourceRecord:
		if opts.SampleRate <= 0 {
			return nil, fmt.Errorf("--sample-rate must be positive for recorded clips")
		}
		return media.RecordedClip{Data: data, SampleRate: opts.SampleRate}, nil
	default:
		return nil, fmt.Errorf("unknown input kind %q", opts.Kind)
	}
}

// resolveRecipients looks each query up on its own so a miss can name the
// exact key to add
func resolveRecipients(lookup *config.RecipientLookup, queries []string) ([]notification.Recipient, error) {
	var all []string
	for _, q := range queries {
		for _, part := range strings.Split(q, ",") {
			if part = strings.TrimSpace(part); part != "" {
				all = append(all, part)
			}
		}
	}
	if len(all) == 0 {
		return nil, nil
	}

	for _, q := range all {
		_, err := lookup.LookupRecipients([]string{q})
		if errors.Is(err, notification.ErrRecipientNotFound) {
			return nil, &pipeline.ValidationError{
				Message:    fmt.Sprintf("recipient %q not found in config", q),
				Suggestion: config.SuggestAddRecipientCommand(q),
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return lookup.LookupRecipients(all)
}
