package youtube

import (
	"context"
	"strings"
	"time"

	"speech-transcriber/domain/media"
)

const (
	// DefaultMaxDownloadBytes caps a single stream transfer (200 MiB)
	DefaultMaxDownloadBytes int64 = 200 << 20

	// DefaultMaxDuration caps the length of a video
	DefaultMaxDuration = 2 * time.Hour

	// DefaultFetchTimeout bounds metadata resolution plus transfer
	DefaultFetchTimeout = 5 * time.Minute

	// DefaultMinAudioBitrate is the lowest audio bitrate (kbit/s) considered good enough for speech
	DefaultMinAudioBitrate = 48
)

// Fetcher implements media.RemoteMediaFetcher: validate, resolve, choose a
// stream, enforce limits, download.
type Fetcher struct {
	resolver     media.StreamResolver
	downloader   media.StreamDownloader
	allowedHosts []string
	maxBytes     int64
	maxDuration  time.Duration
	minBitrate   float64
	timeout      time.Duration
}

// FetcherOption is a functional option for configuring Fetcher
type FetcherOption func(*Fetcher)

// WithAllowedHosts restricts which hosts URLs may point at
func WithAllowedHosts(hosts []string) FetcherOption {
	return func(f *Fetcher) {
		f.allowedHosts = hosts
	}
}

// WithMaxDownloadBytes sets the transfer size limit
func WithMaxDownloadBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithMaxDuration sets the video length limit
func WithMaxDuration(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.maxDuration = d
	}
}

// WithMinAudioBitrate sets the preferred minimum audio bitrate in kbit/s
func WithMinAudioBitrate(kbps float64) FetcherOption {
	return func(f *Fetcher) {
		f.minBitrate = kbps
	}
}

// WithFetchTimeout bounds the whole fetch
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a fetcher over the given resolver and downloader
func NewFetcher(resolver media.StreamResolver, downloader media.StreamDownloader, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		resolver:     resolver,
		downloader:   downloader,
		allowedHosts: DefaultAllowedHosts,
		maxBytes:     DefaultMaxDownloadBytes,
		maxDuration:  DefaultMaxDuration,
		minBitrate:   DefaultMinAudioBitrate,
		timeout:      DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements media.RemoteMediaFetcher
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*media.FetchedMedia, error) {
	u, err := ValidateURL(rawURL, f.allowedHosts)
	if err != nil {
		return nil, media.UnsupportedFormat(media.StageFetch, err.Error())
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	remote, err := f.resolver.Resolve(ctx, u.String())
	if err != nil {
		return nil, classifyResolverError("resolver", err)
	}
	if remote.IsLive {
		return nil, media.DownloadFailure("live streams are not supported", nil)
	}
	if f.maxDuration > 0 && remote.Duration > f.maxDuration {
		return nil, media.DownloadFailure(media.ReasonDurationLimit, nil)
	}

	stream, ok := SelectStream(remote.Streams, f.minBitrate)
	if !ok {
		return nil, media.DownloadFailure("no downloadable audio stream", nil)
	}
	if f.maxBytes > 0 && stream.Size > f.maxBytes {
		return nil, media.DownloadFailure(media.ReasonSizeLimit, nil)
	}

	data, err := f.downloader.Download(ctx, stream, f.maxBytes)
	if err != nil {
		return nil, classifyTransferError(err)
	}

	return &media.FetchedMedia{
		Data:      data,
		Ext:       stream.Ext,
		AudioOnly: stream.AudioOnly,
		ID:        remote.ID,
		Title:     remote.Title,
	}, nil
}

// SelectStream chooses the rendition to download. Audio-only streams win;
// among them the lowest bitrate at or above minBitrate, otherwise the
// highest available. Without audio-only streams the smallest combined
// stream is used. Only direct HTTP(S) transfers qualify.
func SelectStream(streams []media.StreamDescriptor, minBitrate float64) (media.StreamDescriptor, bool) {
	var audio, combined []media.StreamDescriptor
	for _, s := range streams {
		if !s.HasAudio || !isDirect(s) {
			continue
		}
		if s.AudioOnly {
			audio = append(audio, s)
		} else {
			combined = append(combined, s)
		}
	}

	if len(audio) > 0 {
		best, bestIdx := -1.0, -1
		for i, s := range audio {
			if s.Bitrate >= minBitrate && (bestIdx < 0 || s.Bitrate < best) {
				best, bestIdx = s.Bitrate, i
			}
		}
		if bestIdx >= 0 {
			return audio[bestIdx], true
		}
		for i, s := range audio {
			if bestIdx < 0 || s.Bitrate > best {
				best, bestIdx = s.Bitrate, i
			}
		}
		return audio[bestIdx], true
	}

	if len(combined) > 0 {
		bestIdx := 0
		for i, s := range combined[1:] {
			if smaller(s, combined[bestIdx]) {
				bestIdx = i + 1
			}
		}
		return combined[bestIdx], true
	}

	return media.StreamDescriptor{}, false
}

// smaller orders combined streams by known size, then bitrate
func smaller(a, b media.StreamDescriptor) bool {
	switch {
	case a.Size > 0 && b.Size > 0:
		return a.Size < b.Size
	case a.Size > 0:
		return true
	case b.Size > 0:
		return false
	}
	return a.Bitrate < b.Bitrate
}

func isDirect(s media.StreamDescriptor) bool {
	if !strings.HasPrefix(s.URL, "https://") && !strings.HasPrefix(s.URL, "http://") {
		return false
	}
	switch s.Protocol {
	case "", "http", "https":
		return true
	}
	return false
}

var _ media.RemoteMediaFetcher = (*Fetcher)(nil)
