package distribution

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"speech-transcriber/domain/distribution"
	"speech-transcriber/domain/media"
)

// DriveStore keeps artifacts in a Google Drive folder and returns a public
// link for each. Quota is reclaimed from the oldest artifacts first.
type DriveStore struct {
	driveClient distribution.DriveClient
	cleanup     *CleanupService
	folderID    string
	output      io.Writer
}

// NewDriveStore creates a Drive-backed artifact store
func NewDriveStore(client distribution.DriveClient, folderID string, output io.Writer) *DriveStore {
	if output == nil {
		output = io.Discard
	}
	return &DriveStore{
		driveClient: client,
		cleanup:     NewCleanupService(client, folderID),
		folderID:    folderID,
		output:      output,
	}
}

// Put implements distribution.ArtifactStore. The run key prefixes the Drive
// filename so concurrent runs never collide.
func (s *DriveStore) Put(ctx context.Context, artifact distribution.Artifact) (*media.StoredRef, error) {
	if artifact.Key == "" || artifact.Filename == "" {
		return nil, fmt.Errorf("artifact key and filename are required")
	}

	size := int64(len(artifact.Data))
	cleaned, err := s.cleanup.EnsureSpaceAvailable(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("failed to make room for %s: %w", artifact.Filename, err)
	}
	for _, f := range cleaned.DeletedFiles {
		fmt.Fprintf(s.output, "      Deleted old artifact %s (%.1f MB)\n", f.Name, float64(f.Size)/1024/1024)
	}

	mimeType := artifact.MimeType
	if mimeType == "" {
		mimeType = distribution.MimeTypeWAV
	}
	result, err := s.driveClient.UploadAndShare(ctx, distribution.UploadRequest{
		FileName: artifact.Key + "-" + artifact.Filename,
		FolderID: s.folderID,
		MimeType: mimeType,
		Content:  bytes.NewReader(artifact.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload and share %s: %w", artifact.Filename, err)
	}

	stored := result.Size
	if stored == 0 {
		stored = size
	}
	return &media.StoredRef{
		Key:      artifact.Key,
		Filename: artifact.Filename,
		Location: result.ShareableURL,
		Size:     stored,
	}, nil
}

var _ distribution.ArtifactStore = (*DriveStore)(nil)
