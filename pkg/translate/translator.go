package translate

import (
	"context"
	"strings"
)

// AutoLanguage is the source code callers pass when they want the source detected.
const AutoLanguage = "auto"

// UndeterminedLanguage is the sentinel code used when detection produced nothing.
const UndeterminedLanguage = "und"

// Translator defines the interface for machine translation backends.
// The pipeline tries backends in order, so every implementation must report
// failures through the returned error rather than an empty string alone.
type Translator interface {
	// Name identifies the backend in logs and metrics (e.g. "openai", "google").
	Name() string

	// Translate translates text from source language to target language.
	// sourceLang may be AutoLanguage; backends that cannot auto-detect must
	// reject it with an error.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// CheckHealth verifies that the translation backend is ready and operational.
	CheckHealth(ctx context.Context) error
}

// IsAuto reports whether a caller-supplied source code means "detect it".
func IsAuto(sourceLang string) bool {
	return sourceLang == "" || strings.EqualFold(sourceLang, AutoLanguage)
}

// uiCodes maps the codes offered by front-ends to the codes backends expect.
var uiCodes = map[string]string{
	"zh-cn": "zh",
	"zh-tw": "zh",
}

// LanguageMapper handles conversion between the language codes callers send
// and the codes translation backends accept. Callers use BCP 47 tags like
// "fr-CA" or UI codes like "zh-cn"; backends use ISO 639-1 codes.
type LanguageMapper struct{}

// NewLanguageMapper creates a new language mapper instance.
func NewLanguageMapper() *LanguageMapper {
	return &LanguageMapper{}
}

// ToBackendCode converts a caller language code to backend format.
// Examples:
//   - "EN" -> "en"
//   - "fr-CA" -> "fr"
//   - "zh-cn" -> "zh"
//   - "auto" -> "auto"
//
// Empty input stays empty so "absent" survives the conversion.
func (lm *LanguageMapper) ToBackendCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == AutoLanguage {
		return lang
	}
	if code, ok := uiCodes[lang]; ok {
		return code
	}

	// Extract base language (before any "-" or "_")
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}

	return lang
}
