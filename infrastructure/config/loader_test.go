package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Transcription.Language != "auto" || cfg.YouTube.MaxDownloadBytes != 209715200 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.YouTube.MaxDuration != 2*time.Hour || cfg.FFmpeg.Timeout != 2*time.Minute {
		t.Errorf("duration defaults not applied: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
transcription:
  language: en
  engine: whisper-http
  whisper_http:
    url: http://sidecar:9000
youtube:
  max_duration: 30m
  allowed_hosts: [youtu.be]
email:
  recipients:
    ana: {name: Ana Lima, address: ana@example.com}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transcription.Language != "en" || cfg.Transcription.Engine != "whisper-http" {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
	if cfg.Transcription.WhisperHTTP.URL != "http://sidecar:9000" || cfg.Transcription.WhisperHTTP.MaxRetries != 3 {
		t.Errorf("whisper_http = %+v", cfg.Transcription.WhisperHTTP)
	}
	if cfg.YouTube.MaxDuration != 30*time.Minute || len(cfg.YouTube.AllowedHosts) != 1 {
		t.Errorf("youtube = %+v", cfg.YouTube)
	}
	if cfg.Email.Recipients["ana"].Address != "ana@example.com" {
		t.Errorf("recipients = %+v", cfg.Email.Recipients)
	}
	if cfg.FFmpeg.FFmpegPath != "ffmpeg" {
		t.Errorf("unset section lost its default: %+v", cfg.FFmpeg)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "audio: [", "failed to parse"},
		{"bad language", "transcription: {language: klingon}", "Language"},
		{"bad engine", "transcription: {engine: vosk}", "Engine"},
		{"bad recipient", "email: {recipients: {x: {name: X, address: nope}}}", "Address"},
		{"drive without folder", "storage: {backend: drive}", "artifacts_folder_id"},
		{"zero timeout", "ffmpeg: {timeout: 0s}", "Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TRANSCRIBER_TRANSCRIPTION_LANGUAGE":  "hi",
		"TRANSCRIBER_YOUTUBE_MAX_DURATION":    "45m",
		"TRANSCRIBER_YOUTUBE_ALLOWED_HOSTS":   "youtu.be, www.youtube.com",
		"TRANSCRIBER_SERVER_MAX_UPLOAD_BYTES": "1024",
		"LOG_LEVEL":                           "debug",
		"TRANSCRIBER_LOG_FORMAT":              "json",
		"LOG_FORMAT":                          "text",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Transcription.Language != "hi" {
		t.Errorf("language = %q", cfg.Transcription.Language)
	}
	if cfg.YouTube.MaxDuration != 45*time.Minute {
		t.Errorf("max_duration = %v", cfg.YouTube.MaxDuration)
	}
	if len(cfg.YouTube.AllowedHosts) != 2 || cfg.YouTube.AllowedHosts[1] != "www.youtube.com" {
		t.Errorf("allowed_hosts = %v", cfg.YouTube.AllowedHosts)
	}
	if cfg.Server.MaxUploadBytes != 1024 {
		t.Errorf("max_upload_bytes = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v, prefixed variable should win over alias", cfg.Log)
	}
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "TRANSCRIBER_AUDIO_SAMPLE_RATE" {
			return "fast", true
		}
		return "", false
	}
	err := ApplyEnv(Default(), lookup)
	if err == nil || !strings.Contains(err.Error(), "TRANSCRIBER_AUDIO_SAMPLE_RATE") {
		t.Errorf("ApplyEnv() error = %v", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "TRANSCRIBER_TEST_ONLY_VALUE=from-file\n")
	t.Setenv("TRANSCRIBER_TEST_ONLY_VALUE", "")
	os.Unsetenv("TRANSCRIBER_TEST_ONLY_VALUE")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("TRANSCRIBER_TEST_ONLY_VALUE"); got != "from-file" {
		t.Errorf("env value = %q, want from-file", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.YouTube.FetchTimeout = 90 * time.Second

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.YouTube.FetchTimeout != 90*time.Second {
		t.Errorf("fetch_timeout = %v after reload", reloaded.YouTube.FetchTimeout)
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}

func TestValidate_AllowedHosts(t *testing.T) {
	tests := []struct {
		name    string
		hosts   []string
		wantErr bool
	}{
		{name: "single-letter label", hosts: []string{"m.youtube.com"}},
		{name: "short domain", hosts: []string{"youtu.be"}},
		{name: "empty list", hosts: []string{}, wantErr: true},
		{name: "not a hostname", hosts: []string{"https://youtube.com/watch"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.YouTube.AllowedHosts = tt.hosts
			err := Validate(cfg)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "AllowedHosts") {
					t.Errorf("Validate() error = %v, want AllowedHosts failure", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
