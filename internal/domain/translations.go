package domain

import (
	"sort"
	"strings"
)

// Translations maps a language tag ("en", "uk", ...) to localized text.
type Translations map[string]string

// Get returns the text for locale, then fallback, then the first non-empty
// value by sorted language tag. Missing everything yields "".
func (t Translations) Get(locale, fallback string) string {
	if len(t) == 0 {
		return ""
	}

	for _, key := range []string{NormalizeLocale(locale), NormalizeLocale(fallback)} {
		if key == "" {
			continue
		}
		if text, ok := t[key]; ok && text != "" {
			return text
		}
	}

	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if t[key] != "" {
			return t[key]
		}
	}

	return ""
}

// NormalizeLocale reduces "en-US" or "EN_us" to "en".
func NormalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		locale = locale[:idx]
	}
	return locale
}
