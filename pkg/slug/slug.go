package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given name. Accented Latin
// characters common in romanized product names are folded to ASCII; anything
// else non-alphanumeric becomes a hyphen.
//
// Examples:
//   - "Banarasi Silk Saree" → "banarasi-silk-saree"
//   - "Kanjivaram — Pure Zari" → "kanjivaram-pure-zari"
//   - "Chanderi  Cotton!" → "chanderi-cotton"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))

	replacer := strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ā", "a",
		"è", "e", "é", "e", "ê", "e", "ē", "e",
		"ì", "i", "í", "i", "î", "i", "ī", "i",
		"ò", "o", "ó", "o", "ô", "o", "ō", "o",
		"ù", "u", "ú", "u", "û", "u", "ū", "u",
		"ñ", "n", "ç", "c", "ś", "s", "ṣ", "s",
	)
	slug = replacer.Replace(slug)

	// Replace any non-alphanumeric runs with a single hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
