//go:build integration

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"speech-transcriber/application/ingest"
	"speech-transcriber/application/pipeline"
	"speech-transcriber/application/transcription"
	"speech-transcriber/cmd"
	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/audio"
	"speech-transcriber/infrastructure/ffmpeg"
	"speech-transcriber/infrastructure/filesystem"
	"speech-transcriber/infrastructure/httpapi"
	"speech-transcriber/infrastructure/logging"
	"speech-transcriber/infrastructure/youtube"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
)

func registerTranscriptionSteps(ctx *godog.ScenarioContext, w *world) {
	ctx.Step(`^the speech engine answers "([^"]*)"$`, w.theSpeechEngineAnswers)
	ctx.Step(`^an audio file "([^"]*)" with (\d+) seconds of speech$`, w.anAudioFileWithSpeech)
	ctx.Step(`^an audio file "([^"]*)" with (\d+) seconds of silence$`, w.anAudioFileWithSilence)
	ctx.Step(`^a file "([^"]*)" containing "([^"]*)"$`, w.aFileContaining)
	ctx.Step(`^ffprobe reports only a video stream$`, w.ffprobeReportsOnlyVideo)
	ctx.Step(`^ffprobe reports a (\d+) Hz stereo audio stream$`, w.ffprobeReportsStereoAudio)
	ctx.Step(`^ffmpeg decodes (\d+) seconds of speech$`, w.ffmpegDecodesSpeech)
	ctx.Step(`^the video "([^"]*)" resolves to a (\d+) second WAV stream$`, w.theVideoResolvesToWAV)
	ctx.Step(`^the resolver reports "([^"]*)"$`, w.theResolverReports)
	ctx.Step(`^the maximum download size is (\d+) bytes$`, w.theMaximumDownloadSizeIs)

	ctx.Step(`^I transcribe the audio file "([^"]*)" in "([^"]*)"$`, w.iTranscribeTheAudioFile)
	ctx.Step(`^I transcribe the video file "([^"]*)"$`, w.iTranscribeTheVideoFile)
	ctx.Step(`^I transcribe the YouTube link "([^"]*)"$`, w.iTranscribeTheYouTubeLink)
	ctx.Step(`^I decode "([^"]*)" twice$`, w.iDecodeTwice)
	ctx.Step(`^I post a "([^"]*)" transcription with url "([^"]*)" to the API$`, w.iPostATranscription)

	ctx.Step(`^the transcription should succeed$`, w.theTranscriptionShouldSucceed)
	ctx.Step(`^the transcript should be "([^"]*)"$`, w.theTranscriptShouldBe)
	ctx.Step(`^the transcription should fail with a "([^"]*)" error$`, w.theTranscriptionShouldFailWith)
	ctx.Step(`^the error message should be "([^"]*)"$`, w.theErrorMessageShouldBe)
	ctx.Step(`^the error should be retryable$`, w.theErrorShouldBeRetryable)
	ctx.Step(`^the error should not be retryable$`, w.theErrorShouldNotBeRetryable)
	ctx.Step(`^the engine should have been called (\d+) times?$`, w.theEngineShouldHaveBeenCalled)
	ctx.Step(`^the resolver should have been called (\d+) times$`, w.theResolverShouldHaveBeenCalled)
	ctx.Step(`^the downloader should have been called (\d+) times$`, w.theDownloaderShouldHaveBeenCalled)
	ctx.Step(`^the artifact "([^"]*)" should be stored$`, w.theArtifactShouldBeStored)
	ctx.Step(`^both decodes should produce identical samples$`, w.bothDecodesShouldBeIdentical)
	ctx.Step(`^the API should respond with status (\d+)$`, w.theAPIShouldRespondWith)
	ctx.Step(`^the API error kind should be "([^"]*)"$`, w.theAPIErrorKindShouldBe)
}

// pipeline wires the production router and adapter around the scripted
// runner, the local stream server and the fake engine
func (w *world) pipeline() *pipeline.Service {
	c := w.cfg
	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		ffmpeg.WithFFprobePath(c.FFmpeg.FFprobePath),
		ffmpeg.WithSampleRate(c.Audio.SampleRate),
		ffmpeg.WithTempDir(w.dir),
		ffmpeg.WithCommandRunner(w.runner),
	)
	decoder := audio.NewDecoder(audio.WithSampleRate(c.Audio.SampleRate), audio.WithFallback(extractor))
	resolver := youtube.NewYTDLPResolver(youtube.WithYTDLPPath(c.YouTube.YTDLPPath), youtube.WithCommandRunner(w.runner))
	fetcher := youtube.NewFetcher(resolver, youtube.NewHTTPDownloader(),
		youtube.WithAllowedHosts(c.YouTube.AllowedHosts),
		youtube.WithMaxDownloadBytes(c.YouTube.MaxDownloadBytes),
		youtube.WithMaxDuration(c.YouTube.MaxDuration),
	)

	router := ingest.NewRouter(decoder, extractor, fetcher,
		ingest.WithArtifactStore(filesystem.NewStore(c.Storage.LocalDirectory)),
		ingest.WithSampleRate(c.Audio.SampleRate))
	adapter := transcription.NewAdapter(w.engine,
		transcription.WithSampleRate(c.Audio.SampleRate),
		transcription.WithDefaultLanguage(c.Transcription.Language),
		transcription.WithSilenceThreshold(c.Transcription.SilenceThreshold),
	)
	return pipeline.NewService(router, adapter, io.Discard)
}

func (w *world) path(name string) string {
	return filepath.Join(w.dir, name)
}

// --- Given ---

func (w *world) theSpeechEngineAnswers(text string) error {
	w.engine.text = text
	return nil
}

func (w *world) anAudioFileWithSpeech(name string, seconds int) error {
	data, err := wavBytes(tone(float64(seconds), 16000, 1, 0.3), 16000)
	if err != nil {
		return err
	}
	return os.WriteFile(w.path(name), data, 0o644)
}

func (w *world) anAudioFileWithSilence(name string, seconds int) error {
	data, err := wavBytes(make([]float32, seconds*16000), 16000)
	if err != nil {
		return err
	}
	return os.WriteFile(w.path(name), data, 0o644)
}

func (w *world) aFileContaining(name, content string) error {
	return os.WriteFile(w.path(name), []byte(content), 0o644)
}

func (w *world) ffprobeReportsOnlyVideo() error {
	w.runner.on(w.cfg.FFmpeg.FFprobePath, func(args []string) ([]byte, error) {
		return []byte(`{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"}]}`), nil
	})
	return nil
}

func (w *world) ffprobeReportsStereoAudio(rate int) error {
	w.runner.on(w.cfg.FFmpeg.FFprobePath, func(args []string) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"streams":[
			{"index":0,"codec_type":"video","codec_name":"h264"},
			{"index":1,"codec_type":"audio","codec_name":"aac","sample_rate":"%d","channels":2}]}`, rate)), nil
	})
	w.probeRate = rate
	return nil
}

func (w *world) ffmpegDecodesSpeech(seconds int) error {
	out := pcm16(tone(float64(seconds), w.probeRate, 2, 0.3))
	w.runner.on(w.cfg.FFmpeg.FFmpegPath, func(args []string) ([]byte, error) {
		return out, nil
	})
	return nil
}

func (w *world) ensureStreamServer() {
	if w.streams != nil {
		return
	}
	w.streams = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		w.downloads++
		data, ok := w.payloads[strings.TrimPrefix(r.URL.Path, "/stream/")]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "audio/wav")
		rw.Write(data)
	}))
}

func (w *world) theVideoResolvesToWAV(id string, seconds int) error {
	data, err := wavBytes(tone(float64(seconds), 16000, 1, 0.3), 16000)
	if err != nil {
		return err
	}
	w.payloads[id] = data
	w.ensureStreamServer()

	info := map[string]any{
		"id":       id,
		"title":    "Video " + id,
		"duration": seconds,
		"formats": []map[string]any{{
			"format_id": "wav",
			"ext":       "wav",
			"acodec":    "pcm_s16le",
			"vcodec":    "none",
			"abr":       256,
			"url":       w.streams.URL + "/stream/" + id,
			"protocol":  "http",
		}},
	}
	out, err := json.Marshal(info)
	if err != nil {
		return err
	}
	w.runner.on(w.cfg.YouTube.YTDLPPath, func(args []string) ([]byte, error) {
		return out, nil
	})
	return nil
}

func (w *world) theResolverReports(stderr string) error {
	w.runner.on(w.cfg.YouTube.YTDLPPath, func(args []string) ([]byte, error) {
		return nil, failure(w.cfg.YouTube.YTDLPPath, stderr)
	})
	return nil
}

func (w *world) theMaximumDownloadSizeIs(n int) error {
	w.cfg.YouTube.MaxDownloadBytes = int64(n)
	return nil
}

// --- When ---

func (w *world) transcribe(opts cmd.TranscribeOptions) error {
	w.err = cmd.RunTranscribeWithDependencies(context.Background(), w.cfg, w.pipeline(), opts, w.output)
	return nil
}

func (w *world) iTranscribeTheAudioFile(name, language string) error {
	return w.transcribe(cmd.TranscribeOptions{Kind: media.SourceUpload, Target: w.path(name), Language: language})
}

func (w *world) iTranscribeTheVideoFile(name string) error {
	return w.transcribe(cmd.TranscribeOptions{Kind: media.SourceVideo, Target: w.path(name)})
}

func (w *world) iTranscribeTheYouTubeLink(link string) error {
	return w.transcribe(cmd.TranscribeOptions{Kind: media.SourceYouTube, Target: link})
}

func (w *world) iDecodeTwice(name string) error {
	data, err := os.ReadFile(w.path(name))
	if err != nil {
		return err
	}
	decoder := audio.NewDecoder(audio.WithSampleRate(w.cfg.Audio.SampleRate))
	for i := 0; i < 2; i++ {
		a, err := decoder.Decode(context.Background(), data, name)
		if err != nil {
			return err
		}
		w.decodes = append(w.decodes, a.Samples)
	}
	return nil
}

func (w *world) iPostATranscription(kind, link string) error {
	gin.SetMode(gin.TestMode)
	server := httpapi.New(httpapi.Config{MaxUploadBytes: 1 << 20, MaxConcurrentRuns: 1}, w.pipeline(), nil, logging.Discard())

	form := url.Values{"kind": {kind}, "url": {link}}
	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	w.apiStatus = rec.Code
	w.apiBody = rec.Body.Bytes()
	return nil
}

// --- Then ---

func (w *world) theTranscriptionShouldSucceed() error {
	if w.err != nil {
		return fmt.Errorf("expected success, got: %v", w.err)
	}
	return nil
}

func (w *world) theTranscriptShouldBe(expected string) error {
	if got := strings.TrimSpace(w.output.String()); got != expected {
		return fmt.Errorf("transcript = %q, want %q", got, expected)
	}
	return nil
}

func (w *world) pipelineError() (*media.PipelineError, error) {
	if w.err == nil {
		return nil, fmt.Errorf("expected a failure, but the run succeeded with %q", w.output.String())
	}
	pe, ok := media.AsPipelineError(w.err)
	if !ok {
		return nil, fmt.Errorf("expected a pipeline error, got: %v", w.err)
	}
	return pe, nil
}

func (w *world) theTranscriptionShouldFailWith(kind string) error {
	pe, err := w.pipelineError()
	if err != nil {
		return err
	}
	if pe.KindName() != kind {
		return fmt.Errorf("error kind = %s, want %s (%v)", pe.KindName(), kind, pe)
	}
	return nil
}

func (w *world) theErrorMessageShouldBe(expected string) error {
	if got := cmd.ErrorMessage(w.err); got != expected {
		return fmt.Errorf("message = %q, want %q", got, expected)
	}
	return nil
}

func (w *world) theErrorShouldBeRetryable() error {
	pe, err := w.pipelineError()
	if err != nil {
		return err
	}
	if !pe.Retryable() {
		return fmt.Errorf("expected %s to be retryable", pe.KindName())
	}
	return nil
}

func (w *world) theErrorShouldNotBeRetryable() error {
	pe, err := w.pipelineError()
	if err != nil {
		return err
	}
	if pe.Retryable() {
		return fmt.Errorf("expected %s not to be retryable", pe.KindName())
	}
	return nil
}

func (w *world) theEngineShouldHaveBeenCalled(n int) error {
	if w.engine.calls != n {
		return fmt.Errorf("engine called %d times, want %d", w.engine.calls, n)
	}
	return nil
}

func (w *world) theResolverShouldHaveBeenCalled(n int) error {
	if got := w.runner.count(w.cfg.YouTube.YTDLPPath); got != n {
		return fmt.Errorf("resolver called %d times, want %d", got, n)
	}
	return nil
}

func (w *world) theDownloaderShouldHaveBeenCalled(n int) error {
	if w.downloads != n {
		return fmt.Errorf("downloader called %d times, want %d", w.downloads, n)
	}
	return nil
}

func (w *world) theArtifactShouldBeStored(filename string) error {
	var found []string
	filepath.WalkDir(w.cfg.Storage.LocalDirectory, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			found = append(found, d.Name())
		}
		return nil
	})
	for _, f := range found {
		if f == filename {
			return nil
		}
	}
	return fmt.Errorf("artifact %q not stored; found %v", filename, found)
}

func (w *world) bothDecodesShouldBeIdentical() error {
	if len(w.decodes) != 2 {
		return fmt.Errorf("expected two decodes, got %d", len(w.decodes))
	}
	a, b := w.decodes[0], w.decodes[1]
	if len(a) != len(b) {
		return fmt.Errorf("sample counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return fmt.Errorf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	return nil
}

func (w *world) theAPIShouldRespondWith(status int) error {
	if w.apiStatus != status {
		return fmt.Errorf("status = %d, want %d (body %s)", w.apiStatus, status, w.apiBody)
	}
	return nil
}

func (w *world) theAPIErrorKindShouldBe(kind string) error {
	var body httpapi.ErrorBody
	if err := json.Unmarshal(w.apiBody, &body); err != nil {
		return fmt.Errorf("error body is not JSON: %v", err)
	}
	if body.Error.Kind != kind {
		return fmt.Errorf("error kind = %q, want %q", body.Error.Kind, kind)
	}
	return nil
}
