package media

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PCM is decoded audio before normalization: interleaved float samples in
// [-1, 1] at the source rate and channel count.
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

const (
	// sincZeroCrossings is the half-width of the interpolation kernel in zero crossings
	sincZeroCrossings = 16

	// maxPolyphases bounds the precomputed kernel table; rarer rate pairs use linear interpolation
	maxPolyphases = 4096
)

// NewArtifact canonicalizes decoded PCM into an AudioArtifact. Every ingestion
// path goes through here.
func NewArtifact(pcm PCM, targetRate int, source SourceKind, filename string) (*AudioArtifact, error) {
	samples, err := Canonicalize(pcm, targetRate)
	if err != nil {
		return nil, err
	}
	return &AudioArtifact{
		Samples:           samples,
		SampleRate:        targetRate,
		Channels:          1,
		Source:            source,
		SuggestedFilename: filename,
	}, nil
}

// Canonicalize downmixes to mono and resamples to targetRate. It is a pure
// function of its inputs so identical PCM always yields bit-identical output.
func Canonicalize(pcm PCM, targetRate int) ([]float32, error) {
	if pcm.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", pcm.Channels)
	}
	if pcm.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", pcm.SampleRate)
	}
	if targetRate <= 0 {
		return nil, fmt.Errorf("invalid target sample rate %d", targetRate)
	}
	if len(pcm.Samples)%pcm.Channels != 0 {
		return nil, fmt.Errorf("%d samples do not divide into %d channels", len(pcm.Samples), pcm.Channels)
	}

	mono := Downmix(pcm.Samples, pcm.Channels)
	return Resample(mono, pcm.SampleRate, targetRate), nil
}

// Downmix averages interleaved channels into a mono signal
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(interleaved[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// Resample converts a mono signal between sample rates using a windowed-sinc
// polyphase filter. The filter is band-limited to the lower of the two rates.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	g := gcd(from, to)
	up := to / g
	down := from / g
	outLen := int((int64(len(samples))*int64(up) + int64(down) - 1) / int64(down))

	if up > maxPolyphases {
		return resampleLinear(samples, from, to, outLen)
	}

	cutoff := 1.0
	if up < down {
		cutoff = float64(up) / float64(down)
	}
	halfWidth := float64(sincZeroCrossings) / cutoff
	reach := int(math.Ceil(halfWidth))
	table := buildPolyphaseTable(up, reach, cutoff, halfWidth)

	out := make([]float32, outLen)
	taps := 2 * reach
	for n := 0; n < outLen; n++ {
		pos := int64(n) * int64(down)
		base := int(pos / int64(up))
		phase := int(pos % int64(up))
		kernel := table[phase*taps : (phase+1)*taps]

		var acc float64
		for j := 0; j < taps; j++ {
			k := base - reach + 1 + j
			if k < 0 || k >= len(samples) {
				continue
			}
			acc += float64(samples[k]) * kernel[j]
		}
		out[n] = clamp(acc)
	}
	return out
}

// buildPolyphaseTable precomputes kernel taps for every output phase,
// normalized to unity DC gain per phase.
func buildPolyphaseTable(phases, reach int, cutoff, halfWidth float64) []float64 {
	taps := 2 * reach
	table := make([]float64, phases*taps)
	for p := 0; p < phases; p++ {
		frac := float64(p) / float64(phases)
		row := table[p*taps : (p+1)*taps]
		var sum float64
		for j := 0; j < taps; j++ {
			// distance from the output position to input sample base-reach+1+j
			x := frac + float64(reach-1-j)
			row[j] = cutoff * sinc(cutoff*x) * hann(x/halfWidth)
			sum += row[j]
		}
		if sum != 0 {
			for j := range row {
				row[j] /= sum
			}
		}
	}
	return table
}

func resampleLinear(samples []float32, from, to, outLen int) []float32 {
	out := make([]float32, outLen)
	for n := 0; n < outLen; n++ {
		pos := int64(n) * int64(from)
		i := int(pos / int64(to))
		frac := float64(pos%int64(to)) / float64(to)
		a := float64(samples[i])
		b := a
		if i+1 < len(samples) {
			b = float64(samples[i+1])
		}
		out[n] = clamp(a + (b-a)*frac)
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hann(u float64) float64 {
	if u <= -1 || u >= 1 {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*u))
}

func clamp(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Int16LEToFloat converts signed 16-bit little-endian PCM bytes to floats.
// A trailing odd byte is an error.
func Int16LEToFloat(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("16-bit PCM has odd length %d", len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		out[i] = float32(v) / 32768
	}
	return out, nil
}

// IntToFloat scales integer PCM of the given bit depth to floats.
// unsigned8 marks 8-bit data stored as 0..255 (the WAV convention).
func IntToFloat(data []int, bitDepth int, unsigned8 bool) ([]float32, error) {
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	out := make([]float32, len(data))
	if bitDepth == 8 && unsigned8 {
		for i, v := range data {
			out[i] = clamp(float64(v-128) / 128)
		}
		return out, nil
	}
	scale := float64(int64(1) << (bitDepth - 1))
	for i, v := range data {
		out[i] = clamp(float64(v) / scale)
	}
	return out, nil
}

// FloatToInt16 converts canonical samples back to 16-bit integers for encoding
func FloatToInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int(v)
	}
	return out
}
