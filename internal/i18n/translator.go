// Package i18n resolves message keys against YAML locale files.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"donation_bot/internal/domain"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Translator holds one flat key/value catalog per language.
type Translator struct {
	fallback string
	catalogs map[string]map[string]string
}

// Load reads the locale files bundled with the binary.
func Load(fallback string) (*Translator, error) {
	return New(localesFS, fallback)
}

// New reads every locales/<lang>.yaml file in fsys. The fallback language
// must be among them.
func New(fsys fs.FS, fallback string) (*Translator, error) {
	if fsys == nil {
		return nil, errors.New("locale filesystem is required")
	}

	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list locale files: %w", err)
	}

	catalogs := make(map[string]map[string]string, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", file, err)
		}

		messages, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", file, err)
		}

		lang := strings.TrimSuffix(path.Base(file), path.Ext(file))
		catalogs[domain.NormalizeLocale(lang)] = messages
	}

	fallback = domain.NormalizeLocale(fallback)
	if _, ok := catalogs[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q has no locale file", fallback)
	}

	return &Translator{fallback: fallback, catalogs: catalogs}, nil
}

func parseCatalog(data []byte) (map[string]string, error) {
	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = make(map[string]string)
	}
	return messages, nil
}

// T returns the message for key in lang, then in the fallback language, then
// the key itself. Each {name} placeholder is replaced from values.
func (t *Translator) T(lang, key string, values map[string]string) string {
	text := key
	if t != nil {
		if msg, ok := t.lookup(domain.NormalizeLocale(lang), key); ok {
			text = msg
		} else if msg, ok := t.lookup(t.fallback, key); ok {
			text = msg
		}
	}

	if len(values) == 0 {
		return text
	}

	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	messages, ok := t.catalogs[lang]
	if !ok {
		return "", false
	}
	msg, ok := messages[key]
	return msg, ok
}

// Languages lists the loaded languages.
func (t *Translator) Languages() []string {
	if t == nil {
		return nil
	}
	langs := make([]string, 0, len(t.catalogs))
	for lang := range t.catalogs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Fallback reports the language used when a key is missing.
func (t *Translator) Fallback() string {
	if t == nil {
		return ""
	}
	return t.fallback
}
