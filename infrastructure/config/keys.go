package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes the environment variable of every config key
const EnvPrefix = "TRANSCRIBER_"

// field reads and writes one scalar setting as text
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

func int64Field(p func(*Config) *int64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatInt(*p(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

func floatField(p func(*Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			*p(c) = f
			return nil
		},
	}
}

func durationField(p func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return p(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("not a duration: %q", v)
			}
			*p(c) = d
			return nil
		},
	}
}

func listField(p func(*Config) *[]string) field {
	return field{
		get: func(c *Config) string { return strings.Join(*p(c), ",") },
		set: func(c *Config, v string) error {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*p(c) = items
			return nil
		},
	}
}

// fields maps dotted YAML paths to their setting
var fields = map[string]field{
	"audio.sample_rate": intField(func(c *Config) *int { return &c.Audio.SampleRate }),

	"transcription.language":                 stringField(func(c *Config) *string { return &c.Transcription.Language }),
	"transcription.engine":                   stringField(func(c *Config) *string { return &c.Transcription.Engine }),
	"transcription.silence_threshold":        floatField(func(c *Config) *float64 { return &c.Transcription.SilenceThreshold }),
	"transcription.whisper_cli.binary":       stringField(func(c *Config) *string { return &c.Transcription.WhisperCLI.Binary }),
	"transcription.whisper_cli.model":        stringField(func(c *Config) *string { return &c.Transcription.WhisperCLI.Model }),
	"transcription.whisper_cli.threads":      intField(func(c *Config) *int { return &c.Transcription.WhisperCLI.Threads }),
	"transcription.whisper_cli.timeout":      durationField(func(c *Config) *time.Duration { return &c.Transcription.WhisperCLI.Timeout }),
	"transcription.whisper_http.url":         stringField(func(c *Config) *string { return &c.Transcription.WhisperHTTP.URL }),
	"transcription.whisper_http.model":       stringField(func(c *Config) *string { return &c.Transcription.WhisperHTTP.Model }),
	"transcription.whisper_http.timeout":     durationField(func(c *Config) *time.Duration { return &c.Transcription.WhisperHTTP.Timeout }),
	"transcription.whisper_http.max_retries": intField(func(c *Config) *int { return &c.Transcription.WhisperHTTP.MaxRetries }),

	"ffmpeg.ffmpeg_path":  stringField(func(c *Config) *string { return &c.FFmpeg.FFmpegPath }),
	"ffmpeg.ffprobe_path": stringField(func(c *Config) *string { return &c.FFmpeg.FFprobePath }),
	"ffmpeg.timeout":      durationField(func(c *Config) *time.Duration { return &c.FFmpeg.Timeout }),

	"youtube.ytdlp_path":         stringField(func(c *Config) *string { return &c.YouTube.YTDLPPath }),
	"youtube.max_download_bytes": int64Field(func(c *Config) *int64 { return &c.YouTube.MaxDownloadBytes }),
	"youtube.max_duration":       durationField(func(c *Config) *time.Duration { return &c.YouTube.MaxDuration }),
	"youtube.fetch_timeout":      durationField(func(c *Config) *time.Duration { return &c.YouTube.FetchTimeout }),
	"youtube.min_audio_bitrate":  floatField(func(c *Config) *float64 { return &c.YouTube.MinAudioBitrate }),
	"youtube.allowed_hosts":      listField(func(c *Config) *[]string { return &c.YouTube.AllowedHosts }),

	"storage.backend":         stringField(func(c *Config) *string { return &c.Storage.Backend }),
	"storage.local_directory": stringField(func(c *Config) *string { return &c.Storage.LocalDirectory }),

	"google.credentials_file":    stringField(func(c *Config) *string { return &c.Google.CredentialsFile }),
	"google.token_file":          stringField(func(c *Config) *string { return &c.Google.TokenFile }),
	"google.artifacts_folder_id": stringField(func(c *Config) *string { return &c.Google.ArtifactsFolderID }),

	"email.from_name":    stringField(func(c *Config) *string { return &c.Email.FromName }),
	"email.from_address": stringField(func(c *Config) *string { return &c.Email.FromAddress }),

	"server.address":             stringField(func(c *Config) *string { return &c.Server.Address }),
	"server.max_upload_bytes":    int64Field(func(c *Config) *int64 { return &c.Server.MaxUploadBytes }),
	"server.max_concurrent_runs": intField(func(c *Config) *int { return &c.Server.MaxConcurrentRuns }),

	"log.level":  stringField(func(c *Config) *string { return &c.Log.Level }),
	"log.format": stringField(func(c *Config) *string { return &c.Log.Format }),
}

// envAliases are short variable names accepted besides the prefixed ones
var envAliases = map[string]string{
	"LOG_LEVEL":  "log.level",
	"LOG_FORMAT": "log.format",
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable that overrides key
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ApplyEnv overrides cfg from the environment. Prefixed variables win over aliases.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for alias, key := range envAliases {
		if v, ok := lookup(alias); ok && v != "" {
			if err := fields[key].set(cfg, v); err != nil {
				return fmt.Errorf("%s: %w", alias, err)
			}
		}
	}
	for _, key := range Keys() {
		name := EnvName(key)
		if v, ok := lookup(name); ok && v != "" {
			if err := fields[key].set(cfg, v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
