package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// probeResult is the subset of `ffprobe -print_format json -show_streams` we read
type probeResult struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// AudioStream is the first audio stream of a probed container
type AudioStream struct {
	Index      int
	Codec      string
	SampleRate int
	Channels   int
}

func parseProbe(out []byte) (*AudioStream, error) {
	var result probeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, s := range result.Streams {
		if s.CodecType != "audio" {
			continue
		}
		rate, _ := strconv.Atoi(s.SampleRate)
		return &AudioStream{
			Index:      s.Index,
			Codec:      s.CodecName,
			SampleRate: rate,
			Channels:   s.Channels,
		}, nil
	}
	return nil, nil
}

func (e *Extractor) probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		path,
	}
}
