package configutil

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

// DecodeSettings decodes a free-form settings map into a typed struct.
// Keys match struct fields case-insensitively and ignore underscores
// and hyphens, so YAML, JSON and env-shaped settings all land.
func DecodeSettings(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		MatchName:        matchKey,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// DecodeStrict validates input against schema and decodes it into out.
// Validation errors are prefixed with path so factories report the
// offending config section.
func DecodeStrict(path string, input map[string]any, schema Schema, out any) error {
	if err := ValidateSettings(input, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return DecodeSettings(input, out)
}

// RequireString ensures a value is present for a required config field.
func RequireString(value, path string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", path)
	}
	return nil
}

// BoolValue returns fallback when value is nil. Optional settings decode
// into pointer fields so absent and zero stay distinguishable.
func BoolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// IntValue returns fallback when value is nil.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// DurationMS interprets an optional millisecond count, with fallback.
func DurationMS(value *int, fallbackMS int) time.Duration {
	return time.Duration(IntValue(value, fallbackMS)) * time.Millisecond
}

func matchKey(mapKey, fieldName string) bool {
	return normalizeKey(mapKey) == normalizeKey(fieldName)
}

func normalizeKey(value string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, value)
}
