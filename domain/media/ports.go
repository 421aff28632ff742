package media

import "context"

// AudioDecoder turns audio container bytes into canonical audio
type AudioDecoder interface {
	// Decode decodes an uploaded audio file. hint is a filename or extension.
	Decode(ctx context.Context, data []byte, hint string) (*AudioArtifact, error)

	// DecodeRecording decodes a recorded clip whose declared sample rate is authoritative
	DecodeRecording(ctx context.Context, data []byte, sampleRate int) (*AudioArtifact, error)
}

// VideoAudioExtractor pulls the audio track out of a video container
type VideoAudioExtractor interface {
	Extract(ctx context.Context, data []byte, hint string) (*AudioArtifact, error)
}

// PCMDecoder is an external decoding capability that turns the first audio
// stream of any container it understands into PCM
type PCMDecoder interface {
	DecodePCM(ctx context.Context, data []byte, hint string) (PCM, error)
}

// RemoteMediaFetcher downloads the audio-bearing payload behind a URL
type RemoteMediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchedMedia, error)
}

// StreamResolver lists the renditions available for a URL
type StreamResolver interface {
	Resolve(ctx context.Context, rawURL string) (*RemoteMedia, error)
}

// StreamDownloader transfers one rendition, aborting past maxBytes
type StreamDownloader interface {
	Download(ctx context.Context, stream StreamDescriptor, maxBytes int64) ([]byte, error)
}
