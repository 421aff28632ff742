package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its config file
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
	Storage       StorageConfig       `yaml:"storage"`
	Google        GoogleConfig        `yaml:"google"`
	Email         EmailConfig         `yaml:"email"`
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
}

// AudioConfig contains canonical audio settings
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate" validate:"min=8000,max=192000"`
}

// TranscriptionConfig selects and configures the speech engine
type TranscriptionConfig struct {
	Language         string            `yaml:"language" validate:"oneof=auto en hi es fr de ja zh"`
	Engine           string            `yaml:"engine" validate:"oneof=whisper-cli whisper-http"`
	SilenceThreshold float64           `yaml:"silence_threshold" validate:"gte=0,lt=1"`
	WhisperCLI       WhisperCLIConfig  `yaml:"whisper_cli"`
	WhisperHTTP      WhisperHTTPConfig `yaml:"whisper_http"`
}

// WhisperCLIConfig configures the whisper.cpp command line engine
type WhisperCLIConfig struct {
	Binary  string        `yaml:"binary" validate:"required"`
	Model   string        `yaml:"model" validate:"required"`
	Threads int           `yaml:"threads" validate:"min=1,max=64"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// WhisperHTTPConfig configures the HTTP sidecar engine
type WhisperHTTPConfig struct {
	URL        string        `yaml:"url" validate:"required,url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=10"`
}

// FFmpegConfig contains external decoder settings
type FFmpegConfig struct {
	FFmpegPath  string        `yaml:"ffmpeg_path" validate:"required"`
	FFprobePath string        `yaml:"ffprobe_path" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// YouTubeConfig contains remote fetch settings
type YouTubeConfig struct {
	YTDLPPath        string        `yaml:"ytdlp_path" validate:"required"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes" validate:"gt=0"`
	MaxDuration      time.Duration `yaml:"max_duration" validate:"gt=0"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	MinAudioBitrate  float64       `yaml:"min_audio_bitrate" validate:"gte=0"`
	AllowedHosts     []string      `yaml:"allowed_hosts" validate:"min=1,dive,hostname_rfc1123"`
}

// StorageConfig selects where extracted audio is kept
type StorageConfig struct {
	Backend        string `yaml:"backend" validate:"oneof=local drive"`
	LocalDirectory string `yaml:"local_directory" validate:"required"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile   string `yaml:"credentials_file"`
	TokenFile         string `yaml:"token_file"`
	ArtifactsFolderID string `yaml:"artifacts_folder_id"`
}

// EmailConfig contains email notification settings
type EmailConfig struct {
	FromName    string                     `yaml:"from_name"`
	FromAddress string                     `yaml:"from_address" validate:"omitempty,email"`
	DefaultCC   []RecipientConfig          `yaml:"default_cc" validate:"dive"`
	Recipients  map[string]RecipientConfig `yaml:"recipients" validate:"dive"`
}

// RecipientConfig represents an email recipient
type RecipientConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address" validate:"required,email"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address           string `yaml:"address" validate:"required"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes" validate:"gt=0"`
	MaxConcurrentRuns int    `yaml:"max_concurrent_runs" validate:"min=1"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file overrides a value
func Default() *Config {
	return &Config{
		Audio: AudioConfig{SampleRate: 16000},
		Transcription: TranscriptionConfig{
			Language:         "auto",
			Engine:           "whisper-cli",
			SilenceThreshold: 0.001,
			WhisperCLI: WhisperCLIConfig{
				Binary:  "whisper-cli",
				Model:   "models/ggml-small.bin",
				Threads: 4,
				Timeout: 10 * time.Minute,
			},
			WhisperHTTP: WhisperHTTPConfig{
				URL:        "http://localhost:8387",
				Model:      "small",
				Timeout:    2 * time.Minute,
				MaxRetries: 3,
			},
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Timeout:     2 * time.Minute,
		},
		YouTube: YouTubeConfig{
			YTDLPPath:        "yt-dlp",
			MaxDownloadBytes: 200 << 20,
			MaxDuration:      2 * time.Hour,
			FetchTimeout:     5 * time.Minute,
			MinAudioBitrate:  48,
			AllowedHosts:     []string{"youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be"},
		},
		Storage: StorageConfig{
			Backend:        "local",
			LocalDirectory: "artifacts",
		},
		Google: GoogleConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Email: EmailConfig{
			FromName: "Speech Transcriber",
		},
		Server: ServerConfig{
			Address:           ":8080",
			MaxUploadBytes:    100 << 20,
			MaxConcurrentRuns: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides and validates the result. A missing file is not an
// error; the defaults and environment are used alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules that span sections
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Storage.Backend == "drive" && cfg.Google.ArtifactsFolderID == "" {
		return errors.New("invalid config: storage backend drive needs google.artifacts_folder_id")
	}

	return nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
