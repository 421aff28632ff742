package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/audio"

	"github.com/cenkalti/backoff/v4"
)

const (
	// HTTPEngineName identifies the faster-whisper HTTP sidecar engine
	HTTPEngineName = "whisper-http"

	defaultSidecarURL     = "http://localhost:8387"
	defaultSidecarModel   = "base"
	defaultSidecarTimeout = 2 * time.Minute
	defaultMaxRetries     = 3
	defaultRetryInterval  = 500 * time.Millisecond
)

// HTTPEngine posts audio to a whisper HTTP sidecar exposing
// POST /transcribe and GET /health
type HTTPEngine struct {
	url           string
	model         string
	client        *http.Client
	maxRetries    uint64
	retryInterval time.Duration
}

// HTTPOption is a functional option for configuring HTTPEngine
type HTTPOption func(*HTTPEngine)

// WithModel selects the sidecar model (base, small, medium, ...)
func WithModel(model string) HTTPOption {
	return func(e *HTTPEngine) {
		e.model = model
	}
}

// WithHTTPClient sets the client used for sidecar requests
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		e.client = client
	}
}

// WithHTTPTimeout bounds each sidecar request
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPEngine) {
		e.client.Timeout = d
	}
}

// WithMaxRetries sets how often connection failures and 5xx responses are retried
func WithMaxRetries(n int) HTTPOption {
	return func(e *HTTPEngine) {
		if n < 0 {
			n = 0
		}
		e.maxRetries = uint64(n)
	}
}

// WithRetryInterval sets the initial backoff interval
func WithRetryInterval(d time.Duration) HTTPOption {
	return func(e *HTTPEngine) {
		e.retryInterval = d
	}
}

// NewHTTPEngine creates a sidecar engine
func NewHTTPEngine(url string, opts ...HTTPOption) *HTTPEngine {
	if url == "" {
		url = defaultSidecarURL
	}
	e := &HTTPEngine{
		url:           strings.TrimRight(url, "/"),
		model:         defaultSidecarModel,
		client:        &http.Client{Timeout: defaultSidecarTimeout},
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *HTTPEngine) Name() string { return HTTPEngineName }

// Load waits for the sidecar's health endpoint to answer 200
func (e *HTTPEngine) Load(ctx context.Context) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url+"/health", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("whisper sidecar health check returned status %d", resp.StatusCode)
		}
		return nil
	}
	if err := backoff.Retry(op, e.retryPolicy(ctx)); err != nil {
		return fmt.Errorf("whisper sidecar at %s is not reachable: %w", e.url, err)
	}
	return nil
}

type sidecarResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe uploads the audio as WAV and returns the sidecar's text
func (e *HTTPEngine) Transcribe(ctx context.Context, a transcript.Audio) (string, error) {
	wav, err := audio.EncodeWAV(&media.AudioArtifact{Samples: a.Samples, SampleRate: a.SampleRate, Channels: 1})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", e.model)
	if a.Language != "" {
		_ = writer.WriteField("language", a.Language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	var result sidecarResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/transcribe", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := e.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			statusErr := fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
			if resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode whisper response: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, e.retryPolicy(ctx)); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (e *HTTPEngine) retryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, e.maxRetries), ctx)
}

// Close drops idle sidecar connections
func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

var _ transcript.Engine = (*HTTPEngine)(nil)
