package i18n

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: Hello\nwelcome_user: \"Hello {name}, you have {count} stars\"\nonly_en: English\n")},
		"locales/uk.yaml": {Data: []byte("greeting: Привіт\nwelcome_user: \"Привіт {name}\"\n")},
	}
}

func TestTranslator(t *testing.T) {
	translator, err := New(testFS(), "en")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tests := []struct {
		name   string
		lang   string
		key    string
		values map[string]string
		want   string
	}{
		{name: "simple key", lang: "en", key: "greeting", want: "Hello"},
		{name: "other language", lang: "uk", key: "greeting", want: "Привіт"},
		{name: "region tag normalized", lang: "uk-UA", key: "greeting", want: "Привіт"},
		{name: "missing key falls back", lang: "uk", key: "only_en", want: "English"},
		{name: "unknown language falls back", lang: "ka", key: "greeting", want: "Hello"},
		{name: "empty language falls back", lang: "", key: "greeting", want: "Hello"},
		{name: "missing everywhere returns key", lang: "en", key: "nonexistent_key", want: "nonexistent_key"},
		{
			name:   "placeholders",
			lang:   "en",
			key:    "welcome_user",
			values: map[string]string{"name": "Ali", "count": "5"},
			want:   "Hello Ali, you have 5 stars",
		},
		{
			name:   "unused values ignored",
			lang:   "uk",
			key:    "welcome_user",
			values: map[string]string{"name": "Олена", "count": "5"},
			want:   "Привіт Олена",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translator.T(tt.lang, tt.key, tt.values); got != tt.want {
				t.Errorf("T(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}

	if langs := translator.Languages(); !reflect.DeepEqual(langs, []string{"en", "uk"}) {
		t.Fatalf("expected languages [en uk], got %v", langs)
	}
}

func TestNewRequiresFallbackLocale(t *testing.T) {
	if _, err := New(testFS(), "de"); err == nil {
		t.Fatalf("expected error for missing fallback locale")
	}
}

func TestNewRejectsMalformedYAML(t *testing.T) {
	fsys := fstest.MapFS{"locales/en.yaml": {Data: []byte("greeting: [unterminated\n")}}
	if _, err := New(fsys, "en"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNilTranslatorReturnsKey(t *testing.T) {
	var translator *Translator
	if got := translator.T("en", "donate.main", nil); got != "donate.main" {
		t.Fatalf("expected key, got %q", got)
	}
}

func TestBundledLocalesCoverDonationKeys(t *testing.T) {
	translator, err := Load("en")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	keys := []string{
		"donate.main",
		"donate.option_main",
		"donate.invalid",
		"donate.donation",
		"donate.support_by_donating",
		"donate.not_found",
		"donate.options.header",
		"donate.options.item",
		"donate.options.empty",
		"donate.thanks",
		"donate.payment_rejected",
	}

	for _, lang := range translator.Languages() {
		for _, key := range keys {
			if _, ok := translator.lookup(lang, key); !ok {
				t.Errorf("locale %s is missing %s", lang, key)
			}
		}
	}

	main := translator.T("en", "donate.main", nil)
	if !strings.Contains(main, "<a href=") {
		t.Fatalf("expected donate.main to carry a link, got %q", main)
	}
	if got := translator.T("en", "donate.thanks", map[string]string{"amount": "25"}); !strings.Contains(got, "25") {
		t.Fatalf("expected amount placeholder to be filled, got %q", got)
	}
}
