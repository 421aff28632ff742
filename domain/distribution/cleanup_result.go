package distribution

import "time"

// CleanupResult contains information about artifacts deleted during cleanup
type CleanupResult struct {
	DeletedFiles []DeletedFile
	FreedBytes   int64
}

// DeletedFile represents an artifact that was deleted
type DeletedFile struct {
	Name    string
	Size    int64
	Created time.Time
}

// Add records a deletion
func (r *CleanupResult) Add(f DeletedFile) {
	r.DeletedFiles = append(r.DeletedFiles, f)
	r.FreedBytes += f.Size
}
