package media

import (
	"errors"
	"fmt"
)

// Error kinds. A *PipelineError matches exactly one of these with errors.Is.
var (
	// ErrUnsupportedFormat is returned when the input cannot be recognized or handled at all
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecodeFailure is returned when the input was recognized but is corrupt or malformed
	ErrDecodeFailure = errors.New("decode failure")

	// ErrDownloadFailure is returned when a remote resource is unreachable, removed or too large
	ErrDownloadFailure = errors.New("download failure")

	// ErrNetworkTimeout is returned for transient network failures
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrTranscriptionFailure is returned when the transcription engine fails
	ErrTranscriptionFailure = errors.New("transcription failure")
)

// Stage names the pipeline step an error came from
type Stage string

const (
	StageRoute      Stage = "route"
	StageDecode     Stage = "decode"
	StageExtract    Stage = "extract"
	StageFetch      Stage = "fetch"
	StageTranscribe Stage = "transcribe"
)

// Well-known reasons that callers render with a specific message
const (
	ReasonNoAudioTrack      = "video has no audio track"
	ReasonSizeLimit         = "exceeds size limit"
	ReasonDurationLimit     = "exceeds duration limit"
	ReasonSampleRateMissing = "recorded clip has no declared sample rate"
)

// PipelineError is the structured failure every stage returns
type PipelineError struct {
	Kind   error  // One of the Err* kinds above
	Stage  Stage  // Where it happened
	Reason string // Human-readable diagnostic
	Err    error  // Underlying collaborator error, if any
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches the error kind
func (e *PipelineError) Is(target error) bool {
	return target == e.Kind
}

// Retryable reports whether the same request may succeed if tried again
func (e *PipelineError) Retryable() bool {
	return e.Kind == ErrNetworkTimeout || e.Kind == ErrTranscriptionFailure
}

// UserMessage returns an actionable message for this failure
func (e *PipelineError) UserMessage() string {
	switch e.Kind {
	case ErrUnsupportedFormat:
		switch e.Reason {
		case ReasonNoAudioTrack:
			return "The video has no audio track to transcribe."
		case "":
			return "This format is not supported."
		}
		return "This format is not supported: " + e.Reason + "."
	case ErrDecodeFailure:
		if e.Reason == "" {
			return "The file could not be decoded; it may be corrupt or truncated."
		}
		return "The file could not be decoded: " + e.Reason + "."
	case ErrDownloadFailure:
		switch e.Reason {
		case ReasonSizeLimit:
			return "The download is too large."
		case ReasonDurationLimit:
			return "The video is too long."
		case "":
			return "The video could not be downloaded."
		}
		return "The video could not be downloaded: " + e.Reason + "."
	case ErrNetworkTimeout:
		return "The network request timed out. Please try again."
	case ErrTranscriptionFailure:
		if e.Reason == "" {
			return "Transcription failed. Try again, possibly with a different language."
		}
		return "Transcription failed: " + e.Reason + ". Try again, possibly with a different language."
	}
	return e.Error()
}

// KindName returns a stable machine-readable name for the error kind
func (e *PipelineError) KindName() string {
	switch e.Kind {
	case ErrUnsupportedFormat:
		return "unsupported_format"
	case ErrDecodeFailure:
		return "decode_failure"
	case ErrDownloadFailure:
		return "download_failure"
	case ErrNetworkTimeout:
		return "network_timeout"
	case ErrTranscriptionFailure:
		return "transcription_failure"
	}
	return "unknown"
}

// UnsupportedFormat builds an ErrUnsupportedFormat failure
func UnsupportedFormat(stage Stage, reason string) *PipelineError {
	return &PipelineError{Kind: ErrUnsupportedFormat, Stage: stage, Reason: reason}
}

// DecodeFailure builds an ErrDecodeFailure failure
func DecodeFailure(stage Stage, reason string, err error) *PipelineError {
	return &PipelineError{Kind: ErrDecodeFailure, Stage: stage, Reason: reason, Err: err}
}

// DownloadFailure builds an ErrDownloadFailure failure
func DownloadFailure(reason string, err error) *PipelineError {
	return &PipelineError{Kind: ErrDownloadFailure, Stage: StageFetch, Reason: reason, Err: err}
}

// NetworkTimeout builds an ErrNetworkTimeout failure
func NetworkTimeout(reason string, err error) *PipelineError {
	return &PipelineError{Kind: ErrNetworkTimeout, Stage: StageFetch, Reason: reason, Err: err}
}

// TranscriptionFailure builds an ErrTranscriptionFailure failure
func TranscriptionFailure(reason string, err error) *PipelineError {
	return &PipelineError{Kind: ErrTranscriptionFailure, Stage: StageTranscribe, Reason: reason, Err: err}
}

// AsPipelineError extracts a *PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
