package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"speech-transcriber/domain/transcript"
)

func TestHTTPEngine_Transcribe(t *testing.T) {
	var gotModel, gotLanguage string
	var gotAudio int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		gotAudio = len(data)
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]string{"text": " bonjour ", "language": "fr"})
	}))
	defer server.Close()

	e := NewHTTPEngine(server.URL, WithModel("small"))
	got, err := e.Transcribe(context.Background(), transcript.Audio{
		Samples:    make([]float32, 1600),
		SampleRate: 16000,
		Language:   "fr",
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != " bonjour " {
		t.Errorf("Transcribe() = %q", got)
	}
	if gotModel != "small" || gotLanguage != "fr" {
		t.Errorf("model=%q language=%q", gotModel, gotLanguage)
	}
	// 44-byte header plus 1600 16-bit samples
	if gotAudio != 44+3200 {
		t.Errorf("uploaded %d bytes, want %d", gotAudio, 44+3200)
	}
}

func TestHTTPEngine_Transcribe_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "ready now"})
	}))
	defer server.Close()

	e := NewHTTPEngine(server.URL, WithMaxRetries(3), WithRetryInterval(time.Millisecond))
	got, err := e.Transcribe(context.Background(), transcript.Audio{Samples: make([]float32, 16), SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "ready now" {
		t.Errorf("Transcribe() = %q", got)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestHTTPEngine_Transcribe_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "unsupported language", http.StatusBadRequest)
	}))
	defer server.Close()

	e := NewHTTPEngine(server.URL, WithMaxRetries(3), WithRetryInterval(time.Millisecond))
	_, err := e.Transcribe(context.Background(), transcript.Audio{Samples: make([]float32, 16), SampleRate: 16000})
	if err == nil {
		t.Fatal("Transcribe() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestHTTPEngine_Load(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Swap(true) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := NewHTTPEngine(server.URL+"/", WithMaxRetries(2), WithRetryInterval(time.Millisecond))
	if err := e.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHTTPEngine_Load_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	e := NewHTTPEngine(url, WithMaxRetries(1), WithRetryInterval(time.Millisecond))
	if err := e.Load(context.Background()); err == nil {
		t.Error("Load() expected error for unreachable sidecar")
	}
}
