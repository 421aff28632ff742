package distribution

import (
	"context"
	"fmt"

	"speech-transcriber/domain/distribution"
)

// CleanupService frees remote storage by deleting the oldest audio artifacts
type CleanupService struct {
	driveClient distribution.DriveClient
	folderID    string
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(client distribution.DriveClient, folderID string) *CleanupService {
	return &CleanupService{
		driveClient: client,
		folderID:    folderID,
	}
}

// EnsureSpaceAvailable deletes the oldest WAV artifacts until an upload of
// neededBytes fits. It returns what was deleted, even on failure.
func (s *CleanupService) EnsureSpaceAvailable(ctx context.Context, neededBytes int64) (*distribution.CleanupResult, error) {
	result := &distribution.CleanupResult{}

	storage, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to check storage: %w", err)
	}
	if storage.HasSpaceFor(neededBytes) {
		return result, nil
	}

	files, err := s.driveClient.ListFiles(ctx, s.folderID, distribution.MimeTypeWAV)
	if err != nil {
		return result, fmt.Errorf("failed to list files: %w", err)
	}

	available := storage.AvailableBytes
	for _, oldest := range files { // already sorted oldest first
		if available >= neededBytes {
			return result, nil
		}
		if err := s.driveClient.DeletePermanently(ctx, oldest.ID); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", oldest.Name, err)
		}
		result.Add(distribution.DeletedFile{Name: oldest.Name, Size: oldest.Size, Created: oldest.CreatedTime})
		available += oldest.Size
	}

	if available < neededBytes {
		return result, fmt.Errorf("no artifacts left to delete, need %d bytes but only %d available",
			neededBytes, available)
	}
	return result, nil
}

// ListArtifacts lists stored WAV artifacts, oldest first
func (s *CleanupService) ListArtifacts(ctx context.Context) ([]distribution.FileInfo, error) {
	return s.driveClient.ListFiles(ctx, s.folderID, distribution.MimeTypeWAV)
}
