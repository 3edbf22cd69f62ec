package configutil

import (
	"errors"
	"sort"
	"strings"
)

// Schema lists the keys a provider accepts in its settings map. Required
// keys must be present and non-blank; anything outside Required and
// Optional is rejected unless AllowUnknown is set.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// ValidateSettings checks input against the schema. Key comparison uses
// the same case/underscore/hyphen folding as DecodeSettings, so a
// literal "API-Key" satisfies a required "api_key".
func ValidateSettings(input map[string]any, schema Schema) error {
	byNorm := make(map[string]any, len(input))
	for k, v := range input {
		byNorm[normalizeKey(k)] = v
	}

	var missing []string
	for _, key := range schema.Required {
		v, ok := byNorm[normalizeKey(key)]
		if !ok || isBlank(v) {
			missing = append(missing, key)
		}
	}

	var unknown []string
	if !schema.AllowUnknown {
		allowed := make(map[string]struct{}, len(schema.Required)+len(schema.Optional))
		for _, key := range schema.Required {
			allowed[normalizeKey(key)] = struct{}{}
		}
		for _, key := range schema.Optional {
			allowed[normalizeKey(key)] = struct{}{}
		}
		for k := range input {
			if _, ok := allowed[normalizeKey(k)]; !ok {
				unknown = append(unknown, k)
			}
		}
	}

	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(unknown, ", "))
	}
	return errors.New(strings.Join(parts, "; "))
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
