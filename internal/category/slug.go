package category

import (
	"strings"
	"unicode"
)

// Slugify derives a stable slug from a category label: lowercase,
// non-alphanumeric runs collapsed to single hyphens, no leading or
// trailing hyphen. The same label always yields the same slug, which is
// what makes lazy race-tolerant creation safe.
func Slugify(label string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// LabelFromSlug reconstructs a display label from a slug for categories
// created through an explicit slug override
func LabelFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
