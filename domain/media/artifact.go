package media

import (
	"fmt"
	"math"
	"time"
)

// DefaultSampleRate is the canonical rate expected by whisper-family engines
const DefaultSampleRate = 16000

// StoredRef points at a copy of an artifact kept by an ArtifactStore
type StoredRef struct {
	Key      string // Per-run unique key
	Filename string // Suggested download filename
	Location string // URL or path the caller can offer for download
	Size     int64
}

// AudioArtifact is the canonical audio produced by ingestion: mono float
// samples in [-1, 1] at a single sample rate.
type AudioArtifact struct {
	Samples           []float32
	SampleRate        int
	Channels          int
	Source            SourceKind
	SuggestedFilename string

	// Stored is set when the router handed the audio to an ArtifactStore
	Stored *StoredRef
}

// Validate checks the canonical-form invariants against the expected rate
func (a *AudioArtifact) Validate(sampleRate int) error {
	if a == nil {
		return fmt.Errorf("audio artifact is nil")
	}
	if a.Channels != 1 {
		return fmt.Errorf("audio artifact has %d channels, want 1", a.Channels)
	}
	if a.SampleRate != sampleRate {
		return fmt.Errorf("audio artifact sample rate is %d Hz, want %d Hz", a.SampleRate, sampleRate)
	}
	return nil
}

// Duration returns the playback length of the samples
func (a *AudioArtifact) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// Peak returns the largest absolute sample value
func (a *AudioArtifact) Peak() float32 {
	var peak float32
	for _, s := range a.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// RMS returns the root mean square amplitude
func (a *AudioArtifact) RMS() float64 {
	if len(a.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range a.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(a.Samples)))
}
