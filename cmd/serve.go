package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"speech-transcriber/infrastructure/httpapi"

	"github.com/spf13/cobra"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transcription HTTP API",
	Long: `Serve the transcription HTTP API until interrupted.

Endpoints:
  GET  /healthz
  POST /api/transcriptions            multipart form: kind, file|url, language, sample_rate
  GET  /api/artifacts/:key/:filename  extracted audio (local storage only)

Example:
  speech-transcriber serve --address :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (defaults to server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(cfg, os.Stderr)
	deps, err := BuildDependencies(ctx, cfg, log, DependencyOptions{Output: os.Stderr})
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Engine.Load(ctx); err != nil {
		return fmt.Errorf("speech engine %s is not ready: %w", deps.Engine.Name(), err)
	}
	if err := deps.Extractor.VerifyInstalled(ctx); err != nil {
		log.WithError(err).Warn("video and youtube inputs will fail")
	}

	address := cfg.Server.Address
	if serveAddress != "" {
		address = serveAddress
	}

	server := httpapi.New(httpapi.Config{
		Address:           address,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
	}, deps.Pipeline(io.Discard), deps.Reader, log)

	return RunServeWithDependencies(ctx, server, address, DefaultOutput)
}

// Listener is the part of the HTTP server the serve command drives
type Listener interface {
	ListenAndServe(ctx context.Context) error
}

// RunServeWithDependencies runs the serve command with injected dependencies
func RunServeWithDependencies(ctx context.Context, server Listener, address string, out OutputWriter) error {
	fmt.Fprintf(out, "Listening on %s (Ctrl+C to stop)\n", address)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	fmt.Fprintln(out, "Server stopped.")
	return nil
}
