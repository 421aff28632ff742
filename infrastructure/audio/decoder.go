package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"speech-transcriber/domain/media"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// RecordingFilename is the artifact name given to recorded clips
	RecordingFilename = "recorded_audio.wav"
)

// Decoder decodes audio uploads and recorded clips into canonical audio.
// WAV, MP3 and FLAC are decoded in-process; other containers go to the
// fallback PCMDecoder when one is configured.
type Decoder struct {
	sampleRate int
	fallback   media.PCMDecoder
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithSampleRate sets the canonical output rate
func WithSampleRate(rate int) DecoderOption {
	return func(d *Decoder) {
		d.sampleRate = rate
	}
}

// WithFallback sets the external decoder used for non-native containers
func WithFallback(fallback media.PCMDecoder) DecoderOption {
	return func(d *Decoder) {
		d.fallback = fallback
	}
}

// NewDecoder creates a new audio decoder
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{sampleRate: media.DefaultSampleRate}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ media.AudioDecoder = (*Decoder)(nil)

// Decode decodes an uploaded audio file. hint is the original filename or
// a bare extension.
func (d *Decoder) Decode(ctx context.Context, data []byte, hint string) (*media.AudioArtifact, error) {
	pcm, err := d.decodePCM(ctx, data, hint)
	if err != nil {
		return nil, err
	}
	return d.artifact(pcm, media.SourceUpload, uploadFilename(hint))
}

// DecodeRecording decodes a recorded clip. Containers with an unambiguous
// signature are decoded normally and must agree with the declared rate;
// anything else is read as signed 16-bit little-endian mono at the declared rate.
func (d *Decoder) DecodeRecording(ctx context.Context, data []byte, sampleRate int) (*media.AudioArtifact, error) {
	if sampleRate <= 0 {
		return nil, media.DecodeFailure(media.StageDecode, media.ReasonSampleRateMissing, nil)
	}
	if len(data) == 0 {
		return nil, media.DecodeFailure(media.StageDecode, "input is empty", nil)
	}

	var pcm media.PCM
	if !HasContainerMagic(data) {
		samples, err := media.Int16LEToFloat(data)
		if err != nil {
			return nil, media.DecodeFailure(media.StageDecode, "malformed raw PCM", err)
		}
		pcm = media.PCM{Samples: samples, SampleRate: sampleRate, Channels: 1}
	} else {
		var err error
		pcm, err = d.decodePCM(ctx, data, "")
		if err != nil {
			return nil, err
		}
		if pcm.SampleRate != sampleRate {
			return nil, media.DecodeFailure(media.StageDecode, "sample rate mismatch",
				fmt.Errorf("container reports %d Hz, recorder declared %d Hz", pcm.SampleRate, sampleRate))
		}
	}

	return d.artifact(pcm, media.SourceRecord, RecordingFilename)
}

func (d *Decoder) artifact(pcm media.PCM, source media.SourceKind, filename string) (*media.AudioArtifact, error) {
	if pcm.Frames() == 0 {
		return nil, media.DecodeFailure(media.StageDecode, "no audio samples", nil)
	}
	a, err := media.NewArtifact(pcm, d.sampleRate, source, filename)
	if err != nil {
		return nil, media.DecodeFailure(media.StageDecode, "invalid decoded audio", err)
	}
	return a, nil
}

func (d *Decoder) decodePCM(ctx context.Context, data []byte, hint string) (pcm media.PCM, err error) {
	if len(data) == 0 {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "input is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "cancelled", err)
	}

	format := DetectFormat(data, hint)
	if format == FormatUnknown {
		return media.PCM{}, media.UnsupportedFormat(media.StageDecode, unknownReason(hint))
	}

	// Codec libraries panic on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			pcm = media.PCM{}
			err = media.DecodeFailure(media.StageDecode, fmt.Sprintf("corrupt %s data", format), fmt.Errorf("%v", r))
		}
	}()

	switch format {
	case FormatWAV:
		pcm, err = decodeWAV(data)
		if errors.Is(err, errNonPCMWave) {
			return d.viaFallback(ctx, data, format)
		}
		return pcm, err
	case FormatMP3:
		return decodeMP3(data)
	case FormatFLAC:
		return decodeFLAC(data)
	}
	return d.viaFallback(ctx, data, format)
}

func (d *Decoder) viaFallback(ctx context.Context, data []byte, format Format) (media.PCM, error) {
	if d.fallback == nil {
		return media.PCM{}, media.UnsupportedFormat(media.StageDecode, fmt.Sprintf("%s audio needs ffmpeg", format))
	}
	pcm, err := d.fallback.DecodePCM(ctx, data, string(format))
	if err != nil {
		if _, ok := media.AsPipelineError(err); ok {
			return media.PCM{}, err
		}
		return media.PCM{}, media.DecodeFailure(media.StageDecode, fmt.Sprintf("corrupt %s data", format), err)
	}
	return pcm, nil
}

var errNonPCMWave = errors.New("wave data is not integer PCM")

func decodeWAV(data []byte) (media.PCM, error) {
	// go-audio reads every extensible file as integer PCM, so the subformat
	// is checked here first
	if tag, sub, ok := wavFormatTags(data); ok && tag == wavFormatExtensible && sub != wavFormatPCM {
		return media.PCM{}, errNonPCMWave
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt wav data", errors.New("invalid RIFF/WAVE header"))
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return media.PCM{}, errNonPCMWave
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt wav data", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt wav data", errors.New("zero channels"))
	}
	samples, err := media.IntToFloat(buf.Data, int(dec.BitDepth), true)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "unsupported wav encoding", err)
	}
	frames := len(samples) / channels
	return media.PCM{Samples: samples[:frames*channels], SampleRate: int(dec.SampleRate), Channels: channels}, nil
}

// wavFormatTags returns the format tag of the fmt chunk and, for
// WAVE_FORMAT_EXTENSIBLE, the tag embedded in the subformat GUID.
func wavFormatTags(data []byte) (tag, sub uint16, ok bool) {
	if len(data) < 12 {
		return 0, 0, false
	}
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return 0, 0, false
		}
		if id == "fmt " {
			if size < 16 {
				return 0, 0, false
			}
			tag = binary.LittleEndian.Uint16(data[body:])
			if tag == wavFormatExtensible {
				if size < 40 {
					return tag, 0, false
				}
				sub = binary.LittleEndian.Uint16(data[body+24:])
			}
			return tag, sub, true
		}
		pos = body + size + size%2
	}
	return 0, 0, false
}

func decodeMP3(data []byte) (media.PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt mp3 data", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt mp3 data", err)
	}
	// go-mp3 always emits 16-bit little-endian stereo; a trailing partial
	// frame is dropped
	raw = raw[:len(raw)-len(raw)%4]
	samples, err := media.Int16LEToFloat(raw)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt mp3 data", err)
	}
	return media.PCM{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

func decodeFLAC(data []byte) (media.PCM, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt flac data", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	if channels <= 0 {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt flac data", errors.New("zero channels"))
	}

	var interleaved []int
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt flac data", err)
		}
		if len(frame.Subframes) != channels {
			return media.PCM{}, media.DecodeFailure(media.StageDecode, "corrupt flac data",
				fmt.Errorf("frame has %d subframes, stream has %d channels", len(frame.Subframes), channels))
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				interleaved = append(interleaved, int(frame.Subframes[c].Samples[i]))
			}
		}
	}

	samples, err := media.IntToFloat(interleaved, bitDepth, false)
	if err != nil {
		return media.PCM{}, media.DecodeFailure(media.StageDecode, "unsupported flac encoding", err)
	}
	return media.PCM{Samples: samples, SampleRate: int(stream.Info.SampleRate), Channels: channels}, nil
}

func uploadFilename(hint string) string {
	base := media.BaseName(hint)
	bareExtension := media.ExtensionHint(hint) == "" && extensionTable[strings.ToLower(base)] != FormatUnknown
	if base == "" || base == "." || bareExtension {
		return "audio.wav"
	}
	return base + ".wav"
}

func unknownReason(hint string) string {
	if ext := media.ExtensionHint(hint); ext != "" {
		return fmt.Sprintf("unrecognised audio format %q", ext)
	}
	return "unrecognised audio format"
}

// EncodeWAV renders a canonical artifact as a 16-bit PCM WAV file
func EncodeWAV(a *media.AudioArtifact) ([]byte, error) {
	if a == nil || a.Channels <= 0 || a.SampleRate <= 0 {
		return nil, errors.New("cannot encode invalid audio artifact")
	}
	out := &memWriteSeeker{}
	enc := wav.NewEncoder(out, a.SampleRate, 16, a.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: a.Channels, SampleRate: a.SampleRate},
		Data:           media.FloatToInt16(a.Samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	return out.buf, nil
}

// memWriteSeeker is the in-memory io.WriteSeeker the WAV encoder needs to
// patch chunk sizes after writing
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = int(next)
	return next, nil
}
