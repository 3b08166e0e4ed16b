// Package i18n provides the localized reply templates of the bot.
package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"tg_rss_bot/internal/model"
)

// Template keys.
const (
	Help                      = "help"
	SubscribeSuccess          = "subscribe_success"
	SubscribeSuccessNoArticle = "subscribe_success_no_articles"
	SubscribeExists           = "subscribe_exists"
	SubscribeFailed           = "subscribe_failed"
	UnsubscribeSuccess        = "unsubscribe_success"
	UnsubscribeNotFound       = "unsubscribe_not_found"
	UnsubscribeFailed         = "unsubscribe_failed"
	UnsubscribeChoose         = "unsubscribe_choose"
	ListEmpty                 = "list_empty"
	ListHeader                = "list_header"
	URLRequired               = "url_required"
	InvalidURL                = "invalid_url"
	ErrorProcessing           = "error_processing"
	AccessDenied              = "access_denied"
	UnknownCommand            = "unknown_command"
	ChatNotFound              = "chat_not_found"
	BotNotAdmin               = "bot_not_admin"
	UserNotAdmin              = "user_not_admin"
	TargetInvalid             = "target_invalid"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var supported = []model.Locale{model.LocaleEnglish, model.LocaleChinese}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Chinese})

// Catalog holds the templates of every supported locale.
type Catalog struct {
	tables map[model.Locale]map[string]string
}

// Load decodes the embedded locale tables.
func Load() (*Catalog, error) {
	c := &Catalog{tables: make(map[model.Locale]map[string]string, len(supported))}
	for _, l := range supported {
		data, err := localeFS.ReadFile("locales/" + string(l) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", l, err)
		}
		table := map[string]string{}
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("decode locale %s: %w", l, err)
		}
		c.tables[l] = table
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(Load)

// Default returns the catalog built from the embedded tables. It panics if
// they cannot be decoded, which only a broken build can cause.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Text returns the template key of locale with its placeholders replaced.
// args are name/value pairs; values are inserted verbatim. Keys missing
// from a locale fall back to English.
func (c *Catalog) Text(locale model.Locale, key string, args ...string) string {
	tmpl, ok := c.tables[locale][key]
	if !ok {
		tmpl, ok = c.tables[model.LocaleEnglish][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Keys returns the template keys defined for locale.
func (c *Catalog) Keys(locale model.Locale) []string {
	keys := make([]string, 0, len(c.tables[locale]))
	for k := range c.tables[locale] {
		keys = append(keys, k)
	}
	return keys
}

// Match maps a Telegram language_code to a supported locale, or fallback
// when the code is empty or unrelated to any of them.
func Match(code string, fallback model.Locale) model.Locale {
	if code == "" {
		return fallback
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fallback
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}
