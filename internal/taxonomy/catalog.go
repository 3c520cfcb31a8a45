package taxonomy

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/nhle/advisor-tasks/internal/model"
)

// noCategorySuffix is appended to the tenant to form the sentinel key of
// the uncategorized bucket.
const noCategorySuffix = ".internal.task.category.no_category"

// MsgNoCategory is the catalog key of the localized "no category" label.
const MsgNoCategory = "task.category.no_category"

// NoCategoryKey returns the sentinel category key of tenant.
func NoCategoryKey(tenant string) string {
	return tenant + noCategorySuffix
}

// IsNoCategory reports whether key is a no-category sentinel of any tenant.
func IsNoCategory(key string) bool {
	return strings.HasSuffix(key, noCategorySuffix)
}

// Catalog holds translated labels per language. The first language is the
// fallback when no other one matches.
type Catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
}

// NewCatalog builds a catalog from per-language messages. fallback must be
// one of the keys of messages.
func NewCatalog(fallback language.Tag, messages map[language.Tag]map[string]string) *Catalog {
	tags := []language.Tag{fallback}
	for tag := range messages {
		if tag != fallback {
			tags = append(tags, tag)
		}
	}
	return &Catalog{
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		messages: messages,
	}
}

// DefaultCatalog carries the built-in labels.
func DefaultCatalog() *Catalog {
	return NewCatalog(language.English, map[language.Tag]map[string]string{
		language.English: {MsgNoCategory: "No category"},
		language.French:  {MsgNoCategory: "Sans catégorie"},
		language.German:  {MsgNoCategory: "Ohne Kategorie"},
		language.Spanish: {MsgNoCategory: "Sin categoría"},
		language.Italian: {MsgNoCategory: "Senza categoria"},
	})
}

// Lookup returns the message for key in the language best matching locale.
func (c *Catalog) Lookup(locale, key string) (string, bool) {
	_, idx, _ := c.matcher.Match(language.Make(locale))
	if msg, ok := c.messages[c.tags[idx]][key]; ok {
		return msg, true
	}
	msg, ok := c.messages[c.tags[0]][key]
	return msg, ok
}

// DisplayName renders a category for locale. Translations are looked up by
// key, then by name; without one the raw name (or key) is returned. The
// no-category sentinel always renders as the localized "no category" label.
func (c *Catalog) DisplayName(cat model.Category, locale string) string {
	if IsNoCategory(cat.Key) {
		msg, _ := c.Lookup(locale, MsgNoCategory)
		return msg
	}
	if msg, ok := c.Lookup(locale, cat.Key); ok {
		return msg
	}
	if cat.Name != "" {
		if msg, ok := c.Lookup(locale, cat.Name); ok {
			return msg
		}
		return cat.Name
	}
	return cat.Key
}

// LabelFor renders the category key of an aggregate bucket or task. The
// empty key is the uncategorized bucket and renders under the sentinel.
func (c *Catalog) LabelFor(tenant, key string, categories []model.Category, locale string) string {
	if key == "" {
		return c.DisplayName(model.Category{Key: NoCategoryKey(tenant)}, locale)
	}
	for _, cat := range categories {
		if cat.Key == key {
			return c.DisplayName(cat, locale)
		}
	}
	return c.DisplayName(model.Category{Key: key}, locale)
}
