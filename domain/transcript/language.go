package transcript

import (
	"fmt"
	"strings"
)

// AutoDetect asks the engine to detect the spoken language
const AutoDetect = "auto"

// SupportedLanguages lists the spoken-language codes that can be selected
var SupportedLanguages = []string{AutoDetect, "en", "hi", "es", "fr", "de", "ja", "zh"}

// NormalizeLanguage lower-cases a code and falls back to def when empty
func NormalizeLanguage(code, def string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = strings.ToLower(strings.TrimSpace(def))
	}
	if code == "" {
		code = AutoDetect
	}
	return code
}

// ValidateLanguage returns an error if code is not a supported language
func ValidateLanguage(code string) error {
	for _, l := range SupportedLanguages {
		if l == code {
			return nil
		}
	}
	return fmt.Errorf("unsupported language %q (supported: %s)", code, strings.Join(SupportedLanguages, ", "))
}

// EngineLanguage maps a hint to what the engine receives: empty for auto-detect
func EngineLanguage(code string) string {
	if code == AutoDetect {
		return ""
	}
	return code
}
