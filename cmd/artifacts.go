package cmd

import (
	"context"
	"fmt"
	"time"

	"speech-transcriber/domain/distribution"
	"speech-transcriber/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Manage extracted audio kept by the local store",
}

var artifactsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete run directories older than a given age",
	Long: `Delete run directories in storage.local_directory older than --older-than.

Drive storage reclaims space on its own when an upload would not fit.

Example:
  speech-transcriber artifacts prune --older-than 72h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.Backend != "local" {
			return fmt.Errorf("prune only applies to the local storage backend (current: %s)", cfg.Storage.Backend)
		}
		store := filesystem.NewStore(cfg.Storage.LocalDirectory)
		return RunArtifactsPruneWithDependencies(cmd.Context(), store, pruneOlderThan, DefaultOutput)
	},
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.AddCommand(artifactsPruneCmd)
	artifactsPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 7*24*time.Hour, "Minimum age of run directories to delete")
}

// Pruner removes stored runs older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (*distribution.CleanupResult, error)
}

// RunArtifactsPruneWithDependencies runs the prune command with injected dependencies
func RunArtifactsPruneWithDependencies(ctx context.Context, store Pruner, maxAge time.Duration, out OutputWriter) error {
	if maxAge <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	result, err := store.Prune(ctx, maxAge)
	if err != nil {
		return err
	}

	if len(result.DeletedFiles) == 0 {
		fmt.Fprintln(out, "Nothing to prune.")
		return nil
	}
	for _, f := range result.DeletedFiles {
		fmt.Fprintf(out, "Deleted %s (%.1f MB, %s)\n", f.Name, float64(f.Size)/1024/1024, f.Created.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "Freed %.1f MB\n", float64(result.FreedBytes)/1024/1024)
	return nil
}
