package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/command"
)

// YTDLPResolver lists the renditions of a video with `yt-dlp -J`
type YTDLPResolver struct {
	ytdlpPath string
	runner    command.Runner
}

// ResolverOption is a functional option for configuring YTDLPResolver
type ResolverOption func(*YTDLPResolver)

// WithYTDLPPath sets a custom yt-dlp executable path
func WithYTDLPPath(path string) ResolverOption {
	return func(r *YTDLPResolver) {
		r.ytdlpPath = path
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner command.Runner) ResolverOption {
	return func(r *YTDLPResolver) {
		r.runner = runner
	}
}

// NewYTDLPResolver creates a resolver backed by the yt-dlp executable
func NewYTDLPResolver(opts ...ResolverOption) *YTDLPResolver {
	r := &YTDLPResolver{
		ytdlpPath: "yt-dlp",
		runner:    command.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ytdlpInfo is the subset of the yt-dlp info JSON we read
type ytdlpInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Duration float64       `json:"duration"`
	IsLive   bool          `json:"is_live"`
	Formats  []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string            `json:"format_id"`
	Ext            string            `json:"ext"`
	ACodec         string            `json:"acodec"`
	VCodec         string            `json:"vcodec"`
	ABR            float64           `json:"abr"`
	TBR            float64           `json:"tbr"`
	Filesize       float64           `json:"filesize"`
	FilesizeApprox float64           `json:"filesize_approx"`
	URL            string            `json:"url"`
	Protocol       string            `json:"protocol"`
	HTTPHeaders    map[string]string `json:"http_headers"`
}

// Resolve implements media.StreamResolver
func (r *YTDLPResolver) Resolve(ctx context.Context, rawURL string) (*media.RemoteMedia, error) {
	args := []string{
		"-J",
		"--no-playlist",
		"--no-warnings",
		"--",
		rawURL,
	}
	out, err := r.runner.Output(ctx, r.ytdlpPath, args...)
	if err != nil {
		return nil, classifyResolverError(r.ytdlpPath, err)
	}
	return parseInfo(out)
}

// VerifyInstalled checks that yt-dlp is available
func (r *YTDLPResolver) VerifyInstalled(ctx context.Context) error {
	if _, err := r.runner.Output(ctx, r.ytdlpPath, "--version"); err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return nil
}

func parseInfo(out []byte) (*media.RemoteMedia, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, media.DownloadFailure("unreadable video metadata", err)
	}

	remote := &media.RemoteMedia{
		ID:       info.ID,
		Title:    info.Title,
		Duration: time.Duration(info.Duration * float64(time.Second)),
		IsLive:   info.IsLive,
	}
	for _, f := range info.Formats {
		size := f.Filesize
		if size <= 0 {
			size = f.FilesizeApprox
		}
		bitrate := f.ABR
		if bitrate <= 0 {
			bitrate = f.TBR
		}
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "none"
		remote.Streams = append(remote.Streams, media.StreamDescriptor{
			FormatID:  f.FormatID,
			Ext:       f.Ext,
			AudioOnly: hasAudio && !hasVideo,
			HasAudio:  hasAudio,
			Bitrate:   bitrate,
			Size:      int64(size),
			URL:       f.URL,
			Protocol:  f.Protocol,
			Headers:   f.HTTPHeaders,
		})
	}
	return remote, nil
}

var _ media.StreamResolver = (*YTDLPResolver)(nil)
