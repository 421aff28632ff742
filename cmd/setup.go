package cmd

import (
	"fmt"
	"os"
	"strings"

	"speech-transcriber/domain/transcript"
	"speech-transcriber/infrastructure/config"
	"speech-transcriber/infrastructure/whisper"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through choosing a speech engine, where extracted
audio is kept, and who transcripts can be emailed to. Anything not asked
keeps its default and can be changed later with 'config set'.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to speech-transcriber setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	if err := promptTranscription(prompter, cfg); err != nil {
		return err
	}
	if err := promptStorage(prompter, cfg); err != nil {
		return err
	}
	if err := promptEmail(prompter, cfg); err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	fmt.Fprintln(out, "Run 'speech-transcriber doctor' to check ffmpeg, yt-dlp and the engine.")
	return nil
}

func promptTranscription(prompter Prompter, cfg *config.Config) error {
	t := &cfg.Transcription

	lang, err := prompter.Select("Default spoken language?", transcript.SupportedLanguages, t.Language)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	t.Language = lang

	engine, err := prompter.Select("Speech engine?", []string{whisper.CLIEngineName, whisper.HTTPEngineName}, t.Engine)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	t.Engine = engine

	switch engine {
	case whisper.CLIEngineName:
		binary, err := prompter.Input("Path to the whisper.cpp binary?", t.WhisperCLI.Binary)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		t.WhisperCLI.Binary = orDefault(binary, t.WhisperCLI.Binary)

		model, err := prompter.Input("Path to the ggml model file?", t.WhisperCLI.Model)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		t.WhisperCLI.Model = orDefault(model, t.WhisperCLI.Model)

	case whisper.HTTPEngineName:
		url, err := prompter.Input("Whisper sidecar URL?", t.WhisperHTTP.URL)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		t.WhisperHTTP.URL = orDefault(url, t.WhisperHTTP.URL)

		model, err := prompter.Select("Model size?", []string{"base", "small", "medium"}, t.WhisperHTTP.Model)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		t.WhisperHTTP.Model = model
	}

	return nil
}

func promptStorage(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Select("Where should extracted audio be kept?", []string{"local", "drive"}, cfg.Storage.Backend)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Storage.Backend = backend

	if backend == "local" {
		dir, err := prompter.Input("Artifact directory?", cfg.Storage.LocalDirectory)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.LocalDirectory = orDefault(dir, cfg.Storage.LocalDirectory)
		return nil
	}

	if err := promptGoogleCredentials(prompter, cfg); err != nil {
		return err
	}
	folder, err := prompter.Input("Google Drive folder ID for artifacts?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.ArtifactsFolderID = folder
	return nil
}

func promptGoogleCredentials(prompter Prompter, cfg *config.Config) error {
	credentials, err := prompter.Input("Path to Google credentials file?", cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Google.CredentialsFile = orDefault(credentials, cfg.Google.CredentialsFile)
	return nil
}

func promptEmail(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Email transcripts through Gmail?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	if cfg.Storage.Backend != "drive" {
		if err := promptGoogleCredentials(prompter, cfg); err != nil {
			return err
		}
	}

	fromName, err := prompter.Input("Display name for outgoing emails?", cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Email.FromName = orDefault(fromName, cfg.Email.FromName)

	fromAddress, err := prompter.Input("Gmail address to send from?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if fromAddress == "" {
		return fmt.Errorf("from address is required")
	}
	cfg.Email.FromAddress = fromAddress

	// Default CC recipients
	cfg.Email.DefaultCC = []config.RecipientConfig{}
	for {
		addCC, err := prompter.Confirm("Add a CC recipient for every transcript?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !addCC {
			break
		}

		recipient, err := promptRecipientWithPrompter(prompter)
		if err != nil {
			return err
		}
		cfg.Email.DefaultCC = append(cfg.Email.DefaultCC, recipient)
	}

	// Quick-lookup recipients
	cfg.Email.Recipients = make(map[string]config.RecipientConfig)
	for {
		addRecipient, err := prompter.Confirm("Add a quick-lookup recipient?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !addRecipient {
			break
		}

		nickname, err := prompter.Input("  Nickname:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		nickname = strings.ToLower(strings.TrimSpace(nickname))
		if nickname == "" {
			return fmt.Errorf("nickname is required")
		}

		recipient, err := promptRecipientWithPrompter(prompter)
		if err != nil {
			return err
		}
		cfg.Email.Recipients[nickname] = recipient
	}

	return nil
}

func promptRecipientWithPrompter(prompter Prompter) (config.RecipientConfig, error) {
	name, err := prompter.Input("  Full name:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}
	if name == "" {
		return config.RecipientConfig{}, fmt.Errorf("name is required")
	}

	address, err := prompter.Input("  Email:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}
	if address == "" {
		return config.RecipientConfig{}, fmt.Errorf("email is required")
	}

	return config.RecipientConfig{
		Name:    name,
		Address: address,
	}, nil
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}
