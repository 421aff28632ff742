package cmd

import (
	"fmt"
	"io"
	"os"

	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/config"
	"speech-transcriber/infrastructure/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	cfgErr   error
)

var rootCmd = &cobra.Command{
	Use:   "speech-transcriber",
	Short: "Turn audio, video, recordings and YouTube links into text",
	Long: `speech-transcriber normalises media into canonical mono audio and runs it
through a speech-to-text engine:

  - Uploaded audio (wav, mp3, flac, m4a, ogg, webm)
  - Uploaded video (mp4, mkv, mov, webm)
  - Browser-recorded clips
  - YouTube links

Example:
  speech-transcriber transcribe video lecture.mp4 --language en
  speech-transcriber serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits 1 with a readable message on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", ErrorMessage(err))
		os.Exit(1)
	}
}

// ErrorMessage renders err for a terminal. Pipeline failures use their
// user-facing message instead of the wrapped cause.
func ErrorMessage(err error) string {
	if pe, ok := media.AsPipelineError(err); ok {
		return pe.UserMessage()
	}
	return err.Error()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	if err := config.LoadEnvFiles(".env"); err != nil {
		cfg, cfgErr = nil, err
		return
	}

	// A missing file yields defaults; only unreadable or invalid config fails
	cfg, cfgErr = config.Load(cfgFile)
}

// GetConfig returns the loaded configuration, or nil when loading failed
func GetConfig() *config.Config {
	return cfg
}

func requireConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfgFile, cfgErr)
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded; run 'speech-transcriber setup' first")
	}
	return cfg, nil
}

// newLogger builds the process logger from config and the --log-level flag
func newLogger(c *config.Config, output io.Writer) *logging.Logger {
	level := c.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: c.Log.Format,
		Output: output,
	})
}
