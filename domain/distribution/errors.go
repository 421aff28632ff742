package distribution

import "errors"

var (
	// ErrInvalidKey is returned when an artifact key or filename is not a plain name
	ErrInvalidKey = errors.New("invalid artifact key or filename")

	// ErrArtifactExists is returned when a key/filename pair was already stored
	ErrArtifactExists = errors.New("artifact already exists")

	// ErrArtifactNotFound is returned when an artifact cannot be found
	ErrArtifactNotFound = errors.New("artifact not found")
)
