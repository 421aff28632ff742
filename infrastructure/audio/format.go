package audio

import (
	"bytes"
	"strings"

	"speech-transcriber/domain/media"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a container family the decoder recognises
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatM4A     Format = "m4a"
	FormatAAC     Format = "aac"
	FormatOGG     Format = "ogg"
	FormatWebM    Format = "webm"
	FormatMP4     Format = "mp4"
	FormatMKV     Format = "mkv"
	FormatMOV     Format = "mov"
)

// Native reports whether the format is decoded in-process
func (f Format) Native() bool {
	return f == FormatWAV || f == FormatMP3 || f == FormatFLAC
}

// sniffTable maps detected MIME types to formats. Order matters: mimetype
// matches aliases and parents, so the more specific entries come first.
var sniffTable = []struct {
	mime   string
	format Format
}{
	{"audio/wav", FormatWAV},
	{"audio/flac", FormatFLAC},
	{"audio/mpeg", FormatMP3},
	{"audio/x-m4a", FormatM4A},
	{"audio/mp4", FormatM4A},
	{"audio/aac", FormatAAC},
	{"audio/ogg", FormatOGG},
	{"audio/opus", FormatOGG},
	{"application/ogg", FormatOGG},
	{"video/ogg", FormatOGG},
	{"video/webm", FormatWebM},
	{"audio/webm", FormatWebM},
	{"video/quicktime", FormatMOV},
	{"video/mp4", FormatMP4},
	{"video/x-matroska", FormatMKV},
}

var extensionTable = map[string]Format{
	"wav":  FormatWAV,
	"wave": FormatWAV,
	"mp3":  FormatMP3,
	"flac": FormatFLAC,
	"m4a":  FormatM4A,
	"aac":  FormatAAC,
	"ogg":  FormatOGG,
	"oga":  FormatOGG,
	"opus": FormatOGG,
	"webm": FormatWebM,
	"mp4":  FormatMP4,
	"m4v":  FormatMP4,
	"mkv":  FormatMKV,
	"mov":  FormatMOV,
}

// DetectFormat identifies the container from its leading bytes, falling back
// to the extension hint only when the content is unrecognisable.
func DetectFormat(data []byte, hint string) Format {
	if len(data) > 0 {
		detected := mimetype.Detect(data)
		for _, entry := range sniffTable {
			if detected.Is(entry.mime) {
				return entry.format
			}
		}
	}
	return FormatFromHint(hint)
}

// FormatFromHint maps a filename or bare extension to a format
func FormatFromHint(hint string) Format {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return FormatUnknown
	}
	ext := media.ExtensionHint(hint)
	if ext == "" {
		ext = strings.TrimPrefix(hint, ".")
	}
	return extensionTable[ext]
}

// HasContainerMagic reports whether data opens with a multi-byte container
// signature. Bare MP3 and ADTS frame syncs do not count; a 16-bit PCM sample
// can look like one.
func HasContainerMagic(data []byte) bool {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return true
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return true
	}
	for _, magic := range containerMagics {
		if bytes.HasPrefix(data, magic) {
			return true
		}
	}
	return false
}

var containerMagics = [][]byte{
	[]byte("fLaC"),
	[]byte("OggS"),
	[]byte("ID3"),
	{0x1A, 0x45, 0xDF, 0xA3}, // EBML: webm and mkv
}
