package langtag

import "strings"

// aliases maps full locale tags to the codes the translation backends
// understand. Tags outside the map fall back to their primary subtag.
var aliases = map[string]string{
	"en-US": "en",
	"ru-RU": "ru",
	"es-CO": "es",
}

// Normalize collapses a locale tag ("en-US") to a translation code ("en").
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if code, ok := aliases[tag]; ok {
		return code
	}
	return Primary(tag)
}

// Primary returns the lowercased primary subtag ("es-CO" -> "es").
func Primary(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Same reports whether two tags normalize to the same translation code.
func Same(a, b string) bool {
	return Normalize(a) != "" && Normalize(a) == Normalize(b)
}

// PairKey builds the cache key for a normalized language pair.
func PairKey(source, target string) string {
	return Normalize(source) + "->" + Normalize(target)
}
