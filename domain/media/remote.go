package media

import "time"

// StreamDescriptor describes one downloadable rendition offered by a resolver
type StreamDescriptor struct {
	FormatID  string
	Ext       string            // Container extension, e.g. "m4a", "webm", "mp4"
	AudioOnly bool              // True when the stream carries no video
	HasAudio  bool              // False for video-only renditions
	Bitrate   float64           // Average bitrate in kbit/s, 0 if unknown
	Size      int64             // Declared size in bytes, 0 if unknown
	URL       string            // Direct download URL
	Protocol  string            // "https", "http", "m3u8_native", ...
	Headers   map[string]string // Headers the resolver says the download needs
}

// RemoteMedia is the resolver's view of a remote video
type RemoteMedia struct {
	ID       string
	Title    string
	Duration time.Duration
	IsLive   bool
	Streams  []StreamDescriptor
}

// FetchedMedia is the raw payload of one downloaded stream
type FetchedMedia struct {
	Data      []byte
	Ext       string // Extension hint for the decoder or extractor
	AudioOnly bool
	ID        string
	Title     string
}

// SuggestedFilename returns the download name for audio extracted from this media
func (f *FetchedMedia) SuggestedFilename() string {
	if f.ID == "" {
		return "youtube_audio.wav"
	}
	return f.ID + ".wav"
}
