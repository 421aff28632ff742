package transcript

import "context"

// Audio is what an engine receives: canonical mono samples plus a language
// code. An empty Language lets the engine detect it.
type Audio struct {
	Samples    []float32
	SampleRate int
	Language   string
}

// Engine is the opaque speech-to-text capability. It is constructed once,
// loaded before first use and closed at shutdown.
type Engine interface {
	// Name identifies the engine in logs and results
	Name() string

	// Load prepares the engine (model present, sidecar reachable)
	Load(ctx context.Context) error

	// Transcribe returns the text spoken in the audio
	Transcribe(ctx context.Context, audio Audio) (string, error)

	// Close releases anything Load acquired
	Close() error
}
