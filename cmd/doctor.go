package cmd

import (
	"context"
	"fmt"
	"os"

	"speech-transcriber/infrastructure/config"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that ffmpeg, yt-dlp and the speech engine are usable",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// Check is one named readiness probe
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	deps, err := BuildDependencies(ctx, cfg, newLogger(cfg, os.Stderr), DependencyOptions{Output: os.Stderr})
	if err != nil {
		return err
	}
	defer deps.Close()

	return RunDoctorWithDependencies(ctx, ProductionChecks(cfg, deps), DefaultOutput)
}

// ProductionChecks lists the probes for the configured tools and engine
func ProductionChecks(cfg *config.Config, deps *Dependencies) []Check {
	checks := []Check{
		{Name: "ffmpeg and ffprobe", Run: deps.Extractor.VerifyInstalled},
		{Name: "yt-dlp", Run: deps.Resolver.VerifyInstalled},
		{Name: "speech engine " + deps.Engine.Name(), Run: deps.Engine.Load},
	}
	if cfg.Storage.Backend == "local" {
		dir := cfg.Storage.LocalDirectory
		checks = append(checks, Check{
			Name: "artifact directory " + dir,
			Run: func(ctx context.Context) error {
				return os.MkdirAll(dir, 0o750)
			},
		})
	}
	return checks
}

// RunDoctorWithDependencies runs every check and reports each on its own line
func RunDoctorWithDependencies(ctx context.Context, checks []Check, out OutputWriter) error {
	failed := 0
	for _, c := range checks {
		if err := c.Run(ctx); err != nil {
			failed++
			fmt.Fprintf(out, "[FAIL] %s: %v\n", c.Name, err)
			continue
		}
		fmt.Fprintf(out, "[ OK ] %s\n", c.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
