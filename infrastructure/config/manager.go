package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors for config management
var (
	ErrUnknownKey        = errors.New("unknown config key")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrDuplicateKey      = errors.New("key already exists")
	ErrInvalidEmail      = errors.New("invalid email format")
)

// ConfigManager reads and edits a loaded config, saving after every change
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Setting is one key and its current value
type Setting struct {
	Key   string
	Value string
}

// Recipient represents a configured recipient entry
type Recipient struct {
	Key     string
	Name    string
	Address string
}

// Get returns the current value of a dotted key such as "youtube.max_duration"
func (m *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[normalizeKey(key)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f.get(m.config), nil
}

// Set parses and stores a value, rejecting it if the result does not validate
func (m *ConfigManager) Set(key, value string) error {
	key = normalizeKey(key)
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	previous := f.get(m.config)
	if err := f.set(m.config, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := Validate(m.config); err != nil {
		f.set(m.config, previous)
		return err
	}

	return Save(m.config, m.configPath)
}

// List returns every setting in key order
func (m *ConfigManager) List() []Setting {
	keys := Keys()
	result := make([]Setting, len(keys))
	for i, k := range keys {
		result[i] = Setting{Key: k, Value: fields[k].get(m.config)}
	}
	return result
}

// --- Recipient CRUD ---

// AddRecipient adds a new recipient to config
func (m *ConfigManager) AddRecipient(key, name, email string) error {
	key = normalizeKey(key)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if key == "" {
		return fmt.Errorf("recipient key is required")
	}
	if name == "" {
		return fmt.Errorf("recipient name is required")
	}
	if !isValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	if m.config.Email.Recipients == nil {
		m.config.Email.Recipients = make(map[string]RecipientConfig)
	}
	if _, exists := m.config.Email.Recipients[key]; exists {
		return fmt.Errorf("%w: recipient %q", ErrDuplicateKey, key)
	}

	m.config.Email.Recipients[key] = RecipientConfig{Name: name, Address: email}
	return Save(m.config, m.configPath)
}

// ListRecipients returns all recipients sorted by key
func (m *ConfigManager) ListRecipients() []Recipient {
	result := make([]Recipient, 0, len(m.config.Email.Recipients))
	for key, rc := range m.config.Email.Recipients {
		result = append(result, Recipient{Key: key, Name: rc.Name, Address: rc.Address})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// GetRecipient gets a recipient by key (case-insensitive)
func (m *ConfigManager) GetRecipient(key string) (Recipient, error) {
	key = normalizeKey(key)
	if rc, exists := m.config.Email.Recipients[key]; exists {
		return Recipient{Key: key, Name: rc.Name, Address: rc.Address}, nil
	}
	return Recipient{}, fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
}

// RemoveRecipient removes a recipient by key
func (m *ConfigManager) RemoveRecipient(key string) error {
	key = normalizeKey(key)
	if _, exists := m.config.Email.Recipients[key]; !exists {
		return fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
	}

	delete(m.config.Email.Recipients, key)
	return Save(m.config, m.configPath)
}

// UpdateRecipient updates a recipient's name and/or email; empty values are kept
func (m *ConfigManager) UpdateRecipient(key, name, email string) error {
	key = normalizeKey(key)

	rc, exists := m.config.Email.Recipients[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
	}

	if name = strings.TrimSpace(name); name != "" {
		rc.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		if !isValidEmail(email) {
			return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
		}
		rc.Address = email
	}

	m.config.Email.Recipients[key] = rc
	return Save(m.config, m.configPath)
}

// SuggestAddRecipientCommand returns the command that would add a missing recipient
func SuggestAddRecipientCommand(key string) string {
	return fmt.Sprintf(`speech-transcriber config recipient add --key %s --name "Recipient Name" --email "email@example.com"`, key)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func isValidEmail(email string) bool {
	return email != "" && validate.Var(email, "email") == nil
}
