//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"speech-transcriber/cmd"
	"speech-transcriber/domain/media"
	"speech-transcriber/infrastructure/config"

	"github.com/cucumber/godog"
)

func registerConfigSteps(ctx *godog.ScenarioContext, w *world) {
	ctx.Step(`^a config file with default settings$`, w.aConfigFileWithDefaultSettings)
	ctx.Step(`^no config file exists$`, w.noConfigFileExists)

	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, w.iRunConfigSet)
	ctx.Step(`^I run config get "([^"]*)"$`, w.iRunConfigGet)
	ctx.Step(`^I run config recipient add with key "([^"]*)" name "([^"]*)" and email "([^"]*)"$`, w.iRunRecipientAdd)
	ctx.Step(`^I run config recipient update "([^"]*)" with email "([^"]*)"$`, w.iRunRecipientUpdateEmail)
	ctx.Step(`^I run config recipient list$`, w.iRunRecipientList)
	ctx.Step(`^I run config recipient remove "([^"]*)"$`, w.iRunRecipientRemove)
	ctx.Step(`^I transcribe with email to "([^"]*)"$`, w.iTranscribeWithEmailTo)
	ctx.Step(`^I run setup choosing engine "([^"]*)" and storage "([^"]*)"$`, w.iRunSetupChoosing)
	ctx.Step(`^I run setup and decline to overwrite$`, w.iRunSetupAndDecline)

	ctx.Step(`^the command should succeed$`, w.theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, w.theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, w.theOutputShouldContain)
	ctx.Step(`^the saved setting "([^"]*)" should be "([^"]*)"$`, w.theSavedSettingShouldBe)
	ctx.Step(`^the config should contain recipient "([^"]*)" with email "([^"]*)"$`, w.theConfigShouldContainRecipient)
	ctx.Step(`^the config should not contain recipient "([^"]*)"$`, w.theConfigShouldNotContainRecipient)
	ctx.Step(`^the config file should exist$`, w.theConfigFileShouldExist)
}

func (w *world) saved() (*config.Config, error) {
	return config.Load(w.configPath)
}

// --- Given ---

func (w *world) aConfigFileWithDefaultSettings() error {
	return config.Save(w.cfg, w.configPath)
}

func (w *world) noConfigFileExists() error {
	w.configPath = filepath.Join(w.dir, "config", "config.yaml")
	return nil
}

// --- When ---

func (w *world) iRunConfigSet(key, value string) error {
	w.err = cmd.RunConfigSetWithDependencies(w.cfg, w.configPath, key, value, w.output)
	return nil
}

func (w *world) iRunConfigGet(key string) error {
	w.err = cmd.RunConfigGetWithDependencies(w.cfg, w.configPath, key, w.output)
	return nil
}

func (w *world) iRunRecipientAdd(key, name, email string) error {
	w.err = cmd.RunRecipientAddWithDependencies(w.cfg, w.configPath, key, name, email, w.output)
	return nil
}

func (w *world) iRunRecipientUpdateEmail(key, email string) error {
	w.err = cmd.RunRecipientUpdateWithDependencies(w.cfg, w.configPath, key, "", email, w.output)
	return nil
}

func (w *world) iRunRecipientList() error {
	w.err = cmd.RunRecipientListWithDependencies(w.cfg, w.configPath, w.output)
	return nil
}

func (w *world) iRunRecipientRemove(key string) error {
	w.err = cmd.RunRecipientRemoveWithDependencies(w.cfg, w.configPath, key, w.output)
	return nil
}

func (w *world) iTranscribeWithEmailTo(query string) error {
	w.err = cmd.RunTranscribeWithDependencies(context.Background(), w.cfg, w.pipeline(), cmd.TranscribeOptions{
		Kind:   media.SourceYouTube,
		Target: "https://youtu.be/abc123",
		Email:  []string{query},
	}, w.output)
	return nil
}

func (w *world) iRunSetupChoosing(engine, storage string) error {
	selects := []string{"auto", engine}
	if engine == "whisper-http" {
		selects = append(selects, "small")
	}
	selects = append(selects, storage)

	prompter := &scriptedPrompter{selects: selects, confirms: []bool{false}}
	w.err = cmd.RunSetupWithPrompter(prompter, w.configPath, w.output)
	return nil
}

func (w *world) iRunSetupAndDecline() error {
	w.err = cmd.RunSetupWithPrompter(&scriptedPrompter{confirms: []bool{false}}, w.configPath, w.output)
	return nil
}

// --- Then ---

func (w *world) theCommandShouldSucceed() error {
	if w.err != nil {
		return fmt.Errorf("expected success, got: %v", w.err)
	}
	return nil
}

func (w *world) theCommandShouldFailWith(fragment string) error {
	if w.err == nil {
		return fmt.Errorf("expected an error containing %q, got success", fragment)
	}
	if !strings.Contains(w.err.Error(), fragment) {
		return fmt.Errorf("error %q does not contain %q", w.err.Error(), fragment)
	}
	return nil
}

func (w *world) theOutputShouldContain(fragment string) error {
	if !strings.Contains(w.output.String(), fragment) {
		return fmt.Errorf("output does not contain %q:\n%s", fragment, w.output.String())
	}
	return nil
}

func (w *world) theSavedSettingShouldBe(key, expected string) error {
	cfg, err := w.saved()
	if err != nil {
		return err
	}
	got, err := config.NewConfigManager(cfg, w.configPath).Get(key)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("%s = %q, want %q", key, got, expected)
	}
	return nil
}

func (w *world) theConfigShouldContainRecipient(key, email string) error {
	cfg, err := w.saved()
	if err != nil {
		return err
	}
	r, ok := cfg.Email.Recipients[key]
	if !ok {
		return fmt.Errorf("recipient %q not in config", key)
	}
	if r.Address != email {
		return fmt.Errorf("recipient %q has address %q, want %q", key, r.Address, email)
	}
	return nil
}

func (w *world) theConfigShouldNotContainRecipient(key string) error {
	cfg, err := w.saved()
	if err != nil {
		return err
	}
	if _, ok := cfg.Email.Recipients[key]; ok {
		return fmt.Errorf("recipient %q still in config", key)
	}
	return nil
}

func (w *world) theConfigFileShouldExist() error {
	if _, err := os.Stat(w.configPath); err != nil {
		return fmt.Errorf("config file not written: %v", err)
	}
	return nil
}

// scriptedPrompter answers setup prompts in order, falling back to defaults
type scriptedPrompter struct {
	inputs   []string
	confirms []bool
	selects  []string
}

func (p *scriptedPrompter) Input(message string, defaultValue string) (string, error) {
	if len(p.inputs) == 0 {
		return defaultValue, nil
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	return v, nil
}

func (p *scriptedPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if len(p.confirms) == 0 {
		return defaultValue, nil
	}
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func (p *scriptedPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if len(p.selects) == 0 {
		return defaultValue, nil
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	return v, nil
}

var _ cmd.Prompter = (*scriptedPrompter)(nil)
