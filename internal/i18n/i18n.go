package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

//go:embed locales/*.json
var localeFS embed.FS

var localeFiles = []string{"locales/en.json", "locales/hi.json"}

// Translator resolves user-facing strings by language tag.
type Translator struct {
	bundle *goi18n.Bundle
}

// New loads the embedded locale files into a bundle.
func New(defaultLang string) (*Translator, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := goi18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return &Translator{bundle: bundle}, nil
}

// T returns the translation for key in the given language, falling back to
// the default language and finally to the key itself.
func (t *Translator) T(lang, key string, data map[string]interface{}) string {
	localizer := goi18n.NewLocalizer(t.bundle, lang)

	translation, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		utils.Zlog.Warn("Missing translation",
			zap.String("lang", lang),
			zap.String("key", key))
		return key
	}
	return translation
}
