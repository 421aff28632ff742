package httpapi

import (
	"errors"
	"net/http"

	"speech-transcriber/domain/media"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatusFor maps a pipeline error kind to its HTTP status
func StatusFor(pe *media.PipelineError) int {
	switch pe.Kind {
	case media.ErrUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case media.ErrDecodeFailure, media.ErrDownloadFailure:
		return http.StatusUnprocessableEntity
	case media.ErrNetworkTimeout:
		return http.StatusGatewayTimeout
	case media.ErrTranscriptionFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	if pe, ok := media.AsPipelineError(err); ok {
		c.AbortWithStatusJSON(StatusFor(pe), ErrorBody{Error: ErrorDetail{
			Kind:      pe.KindName(),
			Message:   pe.UserMessage(),
			Retryable: pe.Retryable(),
		}})
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondStatus(c, http.StatusRequestEntityTooLarge, "too_large", "The upload is too large.")
		return
	}

	respondStatus(c, http.StatusInternalServerError, "internal", "Internal server error.")
}

func respondStatus(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}
