package distribution

import (
	"context"
	"io"

	"speech-transcriber/domain/media"
)

// MIME type constants for stored artifacts
const (
	MimeTypeWAV = "audio/wav"
	MimeTypeMP3 = "audio/mpeg"
)

// Artifact is a byte blob offered to the user for download
type Artifact struct {
	Key      string // Per-run unique key; two runs never share one
	Filename string // Suggested download filename
	MimeType string
	Data     []byte
}

// ArtifactStore retains artifacts so callers can offer them for download.
// Implementations must accept concurrent Puts of distinct keys.
type ArtifactStore interface {
	Put(ctx context.Context, artifact Artifact) (*media.StoredRef, error)
}

// ArtifactReader is implemented by stores that can serve artifacts back
type ArtifactReader interface {
	Open(ctx context.Context, key, filename string) (io.ReadCloser, error)
}

// UploadRequest contains the parameters needed to upload a file to Google Drive
type UploadRequest struct {
	FileName string    // Target filename in Google Drive
	FolderID string    // Target folder ID in Google Drive
	MimeType string    // MIME type of the file
	Content  io.Reader // File content
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	FileID       string // Google Drive file ID
	FileName     string // Name of the uploaded file
	ShareableURL string // URL for sharing the file
	Size         int64  // Size of the uploaded file in bytes
}
