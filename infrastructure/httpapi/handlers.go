package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"speech-transcriber/application/pipeline"
	"speech-transcriber/domain/distribution"
	"speech-transcriber/domain/media"

	"github.com/gin-gonic/gin"
)

// TranscriptionResponse is the body of a successful transcription
type TranscriptionResponse struct {
	Text      string         `json:"text"`
	NoSpeech  bool           `json:"no_speech"`
	Language  string         `json:"language"`
	Engine    string         `json:"engine"`
	Source    string         `json:"source"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Audio     *AudioResponse `json:"audio,omitempty"`
}

// AudioResponse describes the audio the transcript came from
type AudioResponse struct {
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
	DownloadURL     string  `json:"download_url,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// transcribe accepts a multipart or urlencoded form with fields kind
// (audio|video|record|youtube), file, sample_rate, url and language
func (s *Server) transcribe(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}

	input, err := s.readInput(c)
	if err != nil {
		var bad badRequest
		if errors.As(err, &bad) {
			respondStatus(c, http.StatusBadRequest, "bad_request", bad.Error())
			return
		}
		respondError(c, err)
		return
	}

	release, err := s.acquire(c.Request.Context())
	if err != nil {
		respondStatus(c, http.StatusServiceUnavailable, "canceled", "The request was canceled while waiting for a free slot.")
		return
	}
	defer release()

	result, err := s.runner.Run(c.Request.Context(), pipeline.Request{
		Input:    input,
		Language: c.PostForm("language"),
	})
	if err != nil {
		requestLog(c).WithError(err).Info("transcription failed")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.response(result))
}

func (s *Server) response(result *pipeline.Result) TranscriptionResponse {
	res := result.Transcript
	body := TranscriptionResponse{
		Text:      res.Text,
		NoSpeech:  res.Empty(),
		Language:  res.LanguageHint,
		Engine:    res.Engine,
		Source:    result.SourceName,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}

	if a := res.Artifact; a != nil {
		body.Audio = &AudioResponse{
			Filename:        a.SuggestedFilename,
			DurationSeconds: a.Duration().Seconds(),
		}
		if ref := a.Stored; ref != nil {
			switch {
			case strings.HasPrefix(ref.Location, "https://") || strings.HasPrefix(ref.Location, "http://"):
				body.Audio.DownloadURL = ref.Location
			case s.artifacts != nil:
				body.Audio.DownloadURL = "/api/artifacts/" + url.PathEscape(ref.Key) + "/" + url.PathEscape(ref.Filename)
			}
		}
	}
	return body
}

func (s *Server) artifact(c *gin.Context) {
	if s.artifacts == nil {
		respondStatus(c, http.StatusNotFound, "not_found", "Stored audio is not served here.")
		return
	}

	key, filename := c.Param("key"), c.Param("filename")
	rc, err := s.artifacts.Open(c.Request.Context(), key, filename)
	switch {
	case errors.Is(err, distribution.ErrInvalidKey):
		respondStatus(c, http.StatusBadRequest, "bad_request", "Invalid artifact name.")
		return
	case errors.Is(err, distribution.ErrArtifactNotFound):
		respondStatus(c, http.StatusNotFound, "not_found", "No such artifact.")
		return
	case err != nil:
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, -1, distribution.MimeTypeWAV, rc, nil)
}

type badRequest string

func (b badRequest) Error() string { return string(b) }

func (s *Server) readInput(c *gin.Context) (media.Input, error) {
	if err := parseForm(c.Request); err != nil {
		return nil, err
	}
	kind, ok := media.ParseSourceKind(c.PostForm("kind"))
	if !ok {
		return nil, badRequest("kind must be one of audio, video, record, youtube")
	}

	switch kind {
	case media.SourceYouTube:
		raw := strings.TrimSpace(c.PostForm("url"))
		if raw == "" {
			return nil, badRequest("url is required for youtube input")
		}
		return media.YouTubeURL{URL: raw}, nil

	case media.SourceRecord:
		rate, err := strconv.Atoi(c.PostForm("sample_rate"))
		if err != nil {
			return nil, badRequest("sample_rate is required for recorded input")
		}
		data, _, err := readFile(c)
		if err != nil {
			return nil, err
		}
		return media.RecordedClip{Data: data, SampleRate: rate}, nil

	case media.SourceVideo:
		data, name, err := readFile(c)
		if err != nil {
			return nil, err
		}
		return media.UploadVideo{Data: data, Filename: name}, nil
	}

	data, name, err := readFile(c)
	if err != nil {
		return nil, err
	}
	return media.UploadAudio{Data: data, Filename: name}, nil
}

// parseForm reads the request body up front so an oversized upload is
// reported instead of looking like a missing field
func parseForm(r *http.Request) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(32 << 20)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return badRequest("malformed form body")
}

func readFile(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", badRequest("file is required")
	}
	data, err := readHeader(fh)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func readHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
