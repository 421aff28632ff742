package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/command"
)

// Resolver diagnostics that mean the video itself cannot be had. Checked in
// order; the first match names the reason.
var unavailableMarkers = []struct {
	marker string
	reason string
}{
	{"Private video", "video is private"},
	{"has been removed", "video has been removed"},
	{"account associated with this video has been terminated", "video has been removed"},
	{"available in your country", "video is not available in this region"},
	{"blocked it in your country", "video is not available in this region"},
	{"Sign in to confirm your age", "video is age-restricted"},
	{"Sign in to confirm", "video requires sign-in"},
	{"members-only", "video is members-only"},
	{"Video unavailable", "video is unavailable"},
	{"This video is unavailable", "video is unavailable"},
	{"HTTP Error 404", "video not found"},
	{"HTTP Error 403", "access denied"},
	{"HTTP Error 410", "video has been removed"},
}

// Diagnostics of transient network faults
var transientMarkers = []string{
	"timed out",
	"Connection reset",
	"Connection refused",
	"Temporary failure in name resolution",
	"Network is unreachable",
	"HTTP Error 408",
	"HTTP Error 429",
	"HTTP Error 500",
	"HTTP Error 502",
	"HTTP Error 503",
	"HTTP Error 504",
}

// classifyResolverError maps a failed yt-dlp run onto the pipeline taxonomy
func classifyResolverError(tool string, err error) error {
	if pe, ok := media.AsPipelineError(err); ok {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return media.NetworkTimeout("metadata request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return media.DownloadFailure("cancelled", err)
	}
	if command.IsNotFound(err) {
		return media.DownloadFailure(tool+" is not installed", err)
	}

	stderr := command.StderrOf(err)
	if strings.Contains(stderr, "Unsupported URL") {
		return media.UnsupportedFormat(media.StageFetch, "unsupported URL")
	}
	for _, m := range unavailableMarkers {
		if strings.Contains(stderr, m.marker) {
			return media.DownloadFailure(m.reason, err)
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(stderr, marker) {
			return media.NetworkTimeout("video site did not respond", err)
		}
	}
	return media.DownloadFailure("could not resolve video", err)
}

// classifyTransferError maps a failed HTTP transfer onto the pipeline taxonomy
func classifyTransferError(err error) error {
	if pe, ok := media.AsPipelineError(err); ok {
		return pe
	}
	if errors.Is(err, context.Canceled) {
		return media.DownloadFailure("cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return media.NetworkTimeout("download timed out", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound && !dnsErr.IsTemporary {
			return media.DownloadFailure("host not found", err)
		}
		return media.NetworkTimeout("name resolution failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return media.NetworkTimeout("download timed out", err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return media.NetworkTimeout("connection interrupted", err)
	}
	return media.DownloadFailure("download failed", err)
}

// classifyStatus returns nil for 2xx responses
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 408 || code == 429 || code >= 500:
		return media.NetworkTimeout(statusReason(code), nil)
	case code == 404 || code == 410:
		return media.DownloadFailure("video not found", errors.New(statusReason(code)))
	}
	return media.DownloadFailure(statusReason(code), nil)
}

func statusReason(code int) string {
	return fmt.Sprintf("HTTP %d", code)
}
