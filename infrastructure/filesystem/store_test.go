package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"speech-transcriber/domain/distribution"
)

func TestStore_PutAndOpen(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	ref, err := store.Put(context.Background(), distribution.Artifact{
		Key:      "6f1c2d3e",
		Filename: "recorded_audio.wav",
		Data:     []byte("RIFF1234WAVE"),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref.Size != 12 || ref.Key != "6f1c2d3e" || ref.Filename != "recorded_audio.wav" {
		t.Errorf("StoredRef = %+v", ref)
	}
	if want := filepath.Join(root, "6f1c2d3e", "recorded_audio.wav"); ref.Location != want {
		t.Errorf("Location = %q, want %q", ref.Location, want)
	}

	rc, err := store.Open(context.Background(), "6f1c2d3e", "recorded_audio.wav")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "RIFF1234WAVE" {
		t.Errorf("Open() read %q", data)
	}
}

func TestStore_Put_Errors(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	if _, err := store.Put(ctx, distribution.Artifact{Key: "k", Filename: "a.wav", Data: []byte("1")}); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}

	tests := []struct {
		name     string
		artifact distribution.Artifact
		wantErr  error
	}{
		{"duplicate", distribution.Artifact{Key: "k", Filename: "a.wav"}, distribution.ErrArtifactExists},
		{"traversal in key", distribution.Artifact{Key: "../etc", Filename: "a.wav"}, distribution.ErrInvalidKey},
		{"separator in filename", distribution.Artifact{Key: "k2", Filename: "x/a.wav"}, distribution.ErrInvalidKey},
		{"empty key", distribution.Artifact{Filename: "a.wav"}, distribution.ErrInvalidKey},
		{"dot filename", distribution.Artifact{Key: "k3", Filename: ".."}, distribution.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Put(ctx, tt.artifact)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Put() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_Put_ConcurrentDistinctKeys(t *testing.T) {
	store := NewStore(t.TempDir())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := filepath.Base(t.TempDir()) + string(rune('a'+i))
			_, err := store.Put(context.Background(), distribution.Artifact{Key: key, Filename: "audio.wav", Data: []byte{byte(i)}})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Put() error = %v", err)
		}
	}
}

func TestStore_Open_NotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Open(context.Background(), "missing", "audio.wav")
	if !errors.Is(err, distribution.ErrArtifactNotFound) {
		t.Errorf("Open() error = %v, want ErrArtifactNotFound", err)
	}
	_, err = store.Open(context.Background(), "..", "passwd")
	if !errors.Is(err, distribution.ErrInvalidKey) {
		t.Errorf("Open() error = %v, want ErrInvalidKey", err)
	}
}

func TestStore_Prune(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"old-run", "new-run"} {
		if _, err := store.Put(ctx, distribution.Artifact{Key: key, Filename: "audio.wav", Data: make([]byte, 100)}); err != nil {
			t.Fatal(err)
		}
	}
	oldTime := now.Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(root, "old-run"), oldTime, oldTime); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(root, "new-run"), now, now); err != nil {
		t.Fatal(err)
	}

	result, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if len(result.DeletedFiles) != 1 || result.DeletedFiles[0].Name != "old-run" {
		t.Fatalf("DeletedFiles = %+v", result.DeletedFiles)
	}
	if result.FreedBytes != 100 {
		t.Errorf("FreedBytes = %d, want 100", result.FreedBytes)
	}
	if _, err := os.Stat(filepath.Join(root, "old-run")); !os.IsNotExist(err) {
		t.Error("old run directory still exists")
	}
	if _, err := os.Stat(filepath.Join(root, "new-run", "audio.wav")); err != nil {
		t.Errorf("new run artifact removed: %v", err)
	}
}

func TestStore_Prune_MissingRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	result, err := store.Prune(context.Background(), time.Hour)
	if err != nil || len(result.DeletedFiles) != 0 {
		t.Errorf("Prune() = %+v, %v", result, err)
	}
}
