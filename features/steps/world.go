//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net/http/httptest"
	"os"
	"os/exec"
	"sync"

	"speech-transcriber/domain/media"
	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/audio"
	"speech-transcriber/infrastructure/command"
	"speech-transcriber/infrastructure/config"

	"github.com/cucumber/godog"
)

// world is the state one scenario builds up
type world struct {
	dir        string
	cfg        *config.Config
	configPath string
	output     *bytes.Buffer
	err        error

	engine    *fakeEngine
	runner    *scriptedRunner
	streams   *httptest.Server
	payloads  map[string][]byte // Stream bodies served by video id
	probeRate int
	downloads int
	decodes   [][]float32
	apiStatus int
	apiBody   []byte
}

// InitializeScenario registers every step against a fresh world per scenario
func InitializeScenario(ctx *godog.ScenarioContext) {
	w := &world{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "transcriber-feature-*")
		if err != nil {
			return c, err
		}
		*w = world{
			dir:        dir,
			cfg:        config.Default(),
			configPath: dir + "/config.yaml",
			output:     &bytes.Buffer{},
			engine:     &fakeEngine{},
			runner:     newScriptedRunner(),
			payloads:   make(map[string][]byte),
		}
		w.cfg.Storage.LocalDirectory = dir + "/artifacts"
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w.streams != nil {
			w.streams.Close()
		}
		if w.dir != "" {
			os.RemoveAll(w.dir)
		}
		return c, nil
	})

	registerTranscriptionSteps(ctx, w)
	registerConfigSteps(ctx, w)
}

// fakeEngine stands in for whisper and counts calls
type fakeEngine struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (e *fakeEngine) Name() string                   { return "fake" }
func (e *fakeEngine) Load(ctx context.Context) error { return nil }
func (e *fakeEngine) Close() error                   { return nil }

func (e *fakeEngine) Transcribe(ctx context.Context, a transcript.Audio) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, nil
}

// scriptedRunner answers external commands by binary name
type scriptedRunner struct {
	mu      sync.Mutex
	scripts map[string]func(args []string) ([]byte, error)
	calls   map[string]int
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		scripts: make(map[string]func(args []string) ([]byte, error)),
		calls:   make(map[string]int),
	}
}

func (r *scriptedRunner) on(name string, fn func(args []string) ([]byte, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[name] = fn
}

func (r *scriptedRunner) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}

func (r *scriptedRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls[name]++
	fn, ok := r.scripts[name]
	r.mu.Unlock()
	if !ok {
		return nil, &command.Error{Name: name, Err: exec.ErrNotFound}
	}
	return fn(args)
}

var _ command.Runner = (*scriptedRunner)(nil)

func failure(name, stderr string) error {
	return &command.Error{Name: name, Stderr: stderr, Err: fmt.Errorf("exit status 1")}
}

// tone returns seconds of a 220 Hz tone interleaved across channels
func tone(seconds float64, rate, channels int, amplitude float64) []float32 {
	frames := int(seconds * float64(rate))
	samples := make([]float32, 0, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(amplitude * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			samples = append(samples, v)
		}
	}
	return samples
}

func wavBytes(samples []float32, rate int) ([]byte, error) {
	return audio.EncodeWAV(&media.AudioArtifact{Samples: samples, SampleRate: rate, Channels: 1})
}

func pcm16(samples []float32) []byte {
	ints := media.FloatToInt16(samples)
	out := make([]byte, 2*len(ints))
	for i, v := range ints {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
