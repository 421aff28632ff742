package youtube

import (
	"context"
	"io"
	"net/http"
	"time"

	"speech-transcriber/domain/media"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) speech-transcriber"

// HTTPDownloader transfers a resolved stream over plain HTTP(S)
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
}

// DownloaderOption is a functional option for configuring HTTPDownloader
type DownloaderOption func(*HTTPDownloader)

// WithHTTPClient sets the client used for transfers
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.client = client
	}
}

// WithUserAgent overrides the default User-Agent header
func WithUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.userAgent = ua
	}
}

// NewHTTPDownloader creates a downloader. The overall deadline comes from
// the caller's context; the client only bounds the response headers.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download implements media.StreamDownloader. Bytes beyond maxBytes abort
// the transfer and nothing is returned.
func (d *HTTPDownloader) Download(ctx context.Context, stream media.StreamDescriptor, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stream.URL, nil)
	if err != nil {
		return nil, media.DownloadFailure("invalid stream URL", err)
	}
	for k, v := range stream.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransferError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, media.DownloadFailure(media.ReasonSizeLimit, nil)
	}

	body := io.Reader(resp.Body)
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, classifyTransferError(err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, media.DownloadFailure(media.ReasonSizeLimit, nil)
	}
	if len(data) == 0 {
		return nil, media.DownloadFailure("stream is empty", nil)
	}
	return data, nil
}

var _ media.StreamDownloader = (*HTTPDownloader)(nil)
