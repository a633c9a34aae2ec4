package stt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLocale parses a BCP 47 locale tag ("en-US", "pt_BR", "ja") and
// returns the two-letter base language the recognizer expects.
func NormalizeLocale(locale string) (string, error) {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return "", fmt.Errorf("locale is empty")
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("parse locale %q: %w", trimmed, err)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("locale %q has no recognizable language", trimmed)
	}
	return base.String(), nil
}

// LocaleDisplayName returns a human-readable English name for a locale tag,
// falling back to the raw input when it cannot be parsed.
func LocaleDisplayName(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return locale
	}
	return display.English.Tags().Name(tag)
}
