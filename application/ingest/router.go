package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"speech-transcriber/domain/distribution"
	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/audio"
	"speech-transcriber/infrastructure/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Encoder serializes canonical audio for the artifact store
type Encoder func(*media.AudioArtifact) ([]byte, error)

// Router sends each input kind to the component that can turn it into
// canonical audio, and keeps a downloadable copy of extracted audio
type Router struct {
	decoder   media.AudioDecoder
	extractor media.VideoAudioExtractor
	fetcher   media.RemoteMediaFetcher
	store     distribution.ArtifactStore
	encode    Encoder
	newKey    func() string
	rate      int
	log       logrus.FieldLogger
}

// RouterOption is a functional option for configuring Router
type RouterOption func(*Router)

// WithArtifactStore keeps extracted and recorded audio in store
func WithArtifactStore(store distribution.ArtifactStore) RouterOption {
	return func(r *Router) {
		r.store = store
	}
}

// WithEncoder replaces the WAV encoder used for stored artifacts
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encode = enc
	}
}

// WithKeyGenerator sets how per-run artifact keys are made
func WithKeyGenerator(fn func() string) RouterOption {
	return func(r *Router) {
		r.newKey = fn
	}
}

// WithSampleRate sets the canonical rate every routed artifact must have
func WithSampleRate(rate int) RouterOption {
	return func(r *Router) {
		r.rate = rate
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// NewRouter creates a router over the given collaborators
func NewRouter(decoder media.AudioDecoder, extractor media.VideoAudioExtractor, fetcher media.RemoteMediaFetcher, opts ...RouterOption) *Router {
	r := &Router{
		decoder:   decoder,
		extractor: extractor,
		fetcher:   fetcher,
		encode:    audio.EncodeWAV,
		newKey:    uuid.NewString,
		rate:      media.DefaultSampleRate,
		log:       logging.Discard(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Route turns one input into canonical audio. Any failure comes back as a
// *media.PipelineError and no artifact is returned with it.
func (r *Router) Route(ctx context.Context, input media.Input) (*media.AudioArtifact, error) {
	if input == nil {
		return nil, media.UnsupportedFormat(media.StageRoute, "no input")
	}

	runID := r.newKey()
	log := r.log.WithFields(logrus.Fields{"run_id": runID, "source": input.Kind()})
	start := time.Now()

	var (
		artifact *media.AudioArtifact
		err      error
	)
	switch in := input.(type) {
	case media.UploadAudio:
		artifact, err = r.decoder.Decode(ctx, in.Data, in.Filename)
	case media.UploadVideo:
		artifact, err = r.extractor.Extract(ctx, in.Data, in.Filename)
	case media.RecordedClip:
		artifact, err = r.decoder.DecodeRecording(ctx, in.Data, in.SampleRate)
	case media.YouTubeURL:
		artifact, err = r.routeRemote(ctx, in.URL, log)
	default:
		return nil, media.UnsupportedFormat(media.StageRoute, fmt.Sprintf("unknown input type %T", input))
	}

	if err != nil {
		err = asPipelineError(input.Kind(), err)
		log.WithError(err).WithField("elapsed", time.Since(start)).Warn("routing failed")
		return nil, err
	}
	if artifact == nil {
		return nil, media.DecodeFailure(media.StageRoute, "no audio was produced", nil)
	}
	if err := artifact.Validate(r.rate); err != nil {
		log.WithError(err).Warn("routed audio is not canonical")
		return nil, media.DecodeFailure(media.StageRoute, "audio is not in canonical form", err)
	}

	log.WithFields(logrus.Fields{
		"elapsed":  time.Since(start),
		"duration": artifact.Duration(),
		"filename": artifact.SuggestedFilename,
	}).Info("input routed")

	if keepsArtifact(input.Kind()) {
		r.keep(ctx, runID, artifact, log)
	}

	return artifact, nil
}

func (r *Router) routeRemote(ctx context.Context, rawURL string, log logrus.FieldLogger) (*media.AudioArtifact, error) {
	start := time.Now()
	fetched, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"video_id":   fetched.ID,
		"bytes":      len(fetched.Data),
		"audio_only": fetched.AudioOnly,
		"elapsed":    time.Since(start),
	}).Info("remote media fetched")

	var artifact *media.AudioArtifact
	if fetched.AudioOnly {
		artifact, err = r.decoder.Decode(ctx, fetched.Data, fetched.Ext)
	} else {
		artifact, err = r.extractor.Extract(ctx, fetched.Data, fetched.Ext)
	}
	if err != nil {
		return nil, err
	}

	artifact.Source = media.SourceYouTube
	artifact.SuggestedFilename = fetched.SuggestedFilename()
	return artifact, nil
}

// keep hands the artifact to the store. Failure is logged and leaves Stored nil.
func (r *Router) keep(ctx context.Context, runID string, artifact *media.AudioArtifact, log logrus.FieldLogger) {
	if r.store == nil {
		return
	}

	data, err := r.encode(artifact)
	if err != nil {
		log.WithError(err).Warn("could not encode audio for storage")
		return
	}

	ref, err := r.store.Put(ctx, distribution.Artifact{
		Key:      runID,
		Filename: artifact.SuggestedFilename,
		MimeType: distribution.MimeTypeWAV,
		Data:     data,
	})
	if err != nil {
		log.WithError(err).Warn("could not store audio artifact")
		return
	}

	artifact.Stored = ref
	log.WithField("location", ref.Location).Debug("audio artifact stored")
}

// keepsArtifact reports whether the source's audio is offered for download.
// Uploaded audio is already in the user's hands.
func keepsArtifact(kind media.SourceKind) bool {
	switch kind {
	case media.SourceVideo, media.SourceYouTube, media.SourceRecord:
		return true
	}
	return false
}

func asPipelineError(kind media.SourceKind, err error) error {
	if _, ok := media.AsPipelineError(err); ok {
		return err
	}

	if kind == media.SourceYouTube {
		if errors.Is(err, context.DeadlineExceeded) {
			return media.NetworkTimeout("timed out", err)
		}
		return media.DownloadFailure("unexpected fetch error", err)
	}

	stage := media.StageDecode
	if kind == media.SourceVideo {
		stage = media.StageExtract
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return media.DecodeFailure(stage, "timed out", err)
	}
	return media.DecodeFailure(stage, "unexpected decoder error", err)
}
