package distribution

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"speech-transcriber/domain/distribution"
)

// mockDriveClient is an in-memory distribution.DriveClient
type mockDriveClient struct {
	quota      distribution.StorageInfo
	quotaErr   error
	files      []distribution.FileInfo
	deleted    []string
	uploads    []distribution.UploadRequest
	uploadData [][]byte
	uploadErr  error
	deleteErr  error
}

func (m *mockDriveClient) ListFiles(ctx context.Context, folderID, mimeType string) ([]distribution.FileInfo, error) {
	return m.files, nil
}

func (m *mockDriveClient) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	if m.quotaErr != nil {
		return nil, m.quotaErr
	}
	q := m.quota
	return &q, nil
}

func (m *mockDriveClient) UploadAndShare(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, _ := io.ReadAll(req.Content)
	m.uploads = append(m.uploads, req)
	m.uploadData = append(m.uploadData, data)
	return &distribution.UploadResult{
		FileID:       "id-" + req.FileName,
		FileName:     req.FileName,
		ShareableURL: "https://drive.google.com/file/d/id-" + req.FileName + "/view",
		Size:         int64(len(data)),
	}, nil
}

func (m *mockDriveClient) DeletePermanently(ctx context.Context, fileID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, fileID)
	return nil
}

func TestDriveStore_Put(t *testing.T) {
	client := &mockDriveClient{quota: distribution.StorageInfo{AvailableBytes: 1 << 20}}
	var out bytes.Buffer
	store := NewDriveStore(client, "folder-1", &out)

	ref, err := store.Put(context.Background(), distribution.Artifact{
		Key:      "run-1",
		Filename: "lecture.wav",
		Data:     []byte("RIFFdata"),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if len(client.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(client.uploads))
	}
	up := client.uploads[0]
	if up.FileName != "run-1-lecture.wav" || up.FolderID != "folder-1" || up.MimeType != distribution.MimeTypeWAV {
		t.Errorf("upload request = %+v", up)
	}
	if string(client.uploadData[0]) != "RIFFdata" {
		t.Errorf("uploaded %q", client.uploadData[0])
	}
	if ref.Key != "run-1" || ref.Filename != "lecture.wav" || ref.Size != 8 {
		t.Errorf("StoredRef = %+v", ref)
	}
	if !strings.HasPrefix(ref.Location, "https://drive.google.com/") {
		t.Errorf("Location = %q", ref.Location)
	}
}

func TestDriveStore_Put_Errors(t *testing.T) {
	tests := []struct {
		name     string
		client   *mockDriveClient
		artifact distribution.Artifact
		errMsg   string
	}{
		{
			name:     "missing key",
			client:   &mockDriveClient{},
			artifact: distribution.Artifact{Filename: "a.wav", Data: []byte("x")},
			errMsg:   "key and filename are required",
		},
		{
			name:     "quota lookup fails",
			client:   &mockDriveClient{quotaErr: errors.New("boom")},
			artifact: distribution.Artifact{Key: "k", Filename: "a.wav", Data: []byte("x")},
			errMsg:   "failed to make room",
		},
		{
			name:     "upload fails",
			client:   &mockDriveClient{quota: distribution.StorageInfo{Unlimited: true}, uploadErr: errors.New("503")},
			artifact: distribution.Artifact{Key: "k", Filename: "a.wav", Data: []byte("x")},
			errMsg:   "failed to upload and share",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDriveStore(tt.client, "f", nil).Put(context.Background(), tt.artifact)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Put() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestCleanupService_EnsureSpaceAvailable(t *testing.T) {
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	files := []distribution.FileInfo{
		{ID: "f1", Name: "oldest.wav", Size: 300, CreatedTime: old},
		{ID: "f2", Name: "middle.wav", Size: 300, CreatedTime: old.Add(time.Hour)},
		{ID: "f3", Name: "newest.wav", Size: 300, CreatedTime: old.Add(2 * time.Hour)},
	}

	tests := []struct {
		name        string
		client      *mockDriveClient
		needed      int64
		wantDeleted []string
		wantFreed   int64
		wantErr     bool
	}{
		{
			name:   "enough space already",
			client: &mockDriveClient{quota: distribution.StorageInfo{AvailableBytes: 1000}, files: files},
			needed: 500,
		},
		{
			name:   "unlimited account",
			client: &mockDriveClient{quota: distribution.StorageInfo{Unlimited: true}, files: files},
			needed: 1 << 40,
		},
		{
			name:        "deletes oldest until it fits",
			client:      &mockDriveClient{quota: distribution.StorageInfo{AvailableBytes: 100}, files: files},
			needed:      650,
			wantDeleted: []string{"f1", "f2"},
			wantFreed:   600,
		},
		{
			name:        "runs out of artifacts",
			client:      &mockDriveClient{quota: distribution.StorageInfo{AvailableBytes: 0}, files: files},
			needed:      5000,
			wantDeleted: []string{"f1", "f2", "f3"},
			wantFreed:   900,
			wantErr:     true,
		},
		{
			name:    "delete fails",
			client:  &mockDriveClient{quota: distribution.StorageInfo{AvailableBytes: 0}, files: files, deleteErr: errors.New("403")},
			needed:  100,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCleanupService(tt.client, "folder")
			result, err := svc.EnsureSpaceAvailable(context.Background(), tt.needed)

			if (err != nil) != tt.wantErr {
				t.Fatalf("EnsureSpaceAvailable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.client.deleted) != len(tt.wantDeleted) {
				t.Fatalf("deleted = %v, want %v", tt.client.deleted, tt.wantDeleted)
			}
			for i, id := range tt.wantDeleted {
				if tt.client.deleted[i] != id {
					t.Errorf("deleted[%d] = %q, want %q", i, tt.client.deleted[i], id)
				}
			}
			if result.FreedBytes != tt.wantFreed {
				t.Errorf("FreedBytes = %d, want %d", result.FreedBytes, tt.wantFreed)
			}
		})
	}
}
