package dragoman

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/dragomanhq/dragoman/pkg/gateway"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Credentials   CredentialsConfig   `mapstructure:"credentials"`
	Platform      ProviderConfig      `mapstructure:"platform"`
	Segments      ProviderConfig      `mapstructure:"segments"`
	Translate     TranslateConfig     `mapstructure:"translate"`
	Synthesis     SynthesisConfig     `mapstructure:"synthesis"`
	Calls         CallsConfig         `mapstructure:"calls"`
	Gateway       gateway.Config      `mapstructure:"gateway"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

// ProviderConfig names a registered factory and carries its free-form
// settings.
type ProviderConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type CredentialsConfig struct {
	Provider      string         `mapstructure:"provider"`
	Settings      map[string]any `mapstructure:"settings"`
	MarginSeconds int            `mapstructure:"margin_seconds"`
}

// TranslateConfig lists the strategy ladder in fallback order.
type TranslateConfig struct {
	BudgetMS   int              `mapstructure:"budget_ms"`
	Strategies []ProviderConfig `mapstructure:"strategies"`
}

type VoiceConfig struct {
	ID       string `mapstructure:"id"`
	Language string `mapstructure:"language"`
	Name     string `mapstructure:"name"`
}

type SynthesisConfig struct {
	Provider      string         `mapstructure:"provider"`
	Settings      map[string]any `mapstructure:"settings"`
	Voices        []VoiceConfig  `mapstructure:"voices"`
	DefaultVoice  string         `mapstructure:"default_voice"`
	MinAudioBytes int            `mapstructure:"min_audio_bytes"`
}

type CallsConfig struct {
	DefaultSource string `mapstructure:"default_source"`
	DefaultTarget string `mapstructure:"default_target"`
	CycleBudgetMS int    `mapstructure:"cycle_budget_ms"`
	AudioDir      string `mapstructure:"audio_dir"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string  `mapstructure:"artifacts_dir"`
	RetentionDays int     `mapstructure:"retention_days"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	EventLogFile  string  `mapstructure:"event_log_file"`
}

type PrivacyConfig struct {
	RedactTranscripts bool `mapstructure:"redact_transcripts"`
}

// withDefaults fills the gaps for configs assembled in code rather than
// loaded from a file. LoadConfig applies the same values through viper.
func (c Config) withDefaults() Config {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Credentials.MarginSeconds <= 0 {
		c.Credentials.MarginSeconds = 300
	}
	if c.Translate.BudgetMS <= 0 {
		c.Translate.BudgetMS = 10000
	}
	if c.Synthesis.MinAudioBytes <= 0 {
		c.Synthesis.MinAudioBytes = 100
	}
	if c.Calls.DefaultSource == "" {
		c.Calls.DefaultSource = "en-US"
	}
	if c.Calls.DefaultTarget == "" {
		c.Calls.DefaultTarget = "es-CO"
	}
	if c.Calls.CycleBudgetMS <= 0 {
		c.Calls.CycleBudgetMS = 10000
	}
	if c.Observability.SampleRate <= 0 {
		c.Observability.SampleRate = 1
	}
	return c
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("credentials.margin_seconds", 300)
	v.SetDefault("translate.budget_ms", 10000)
	v.SetDefault("synthesis.min_audio_bytes", 100)
	v.SetDefault("calls.default_source", "en-US")
	v.SetDefault("calls.default_target", "es-CO")
	v.SetDefault("calls.cycle_budget_ms", 10000)
	v.SetDefault("gateway.addr", ":3978")
	v.SetDefault("gateway.bot_name", "Dragoman Interpreter Bot")
	v.SetDefault("gateway.supported_languages", []string{"en-US", "ru-RU", "es-CO"})
	v.SetDefault("gateway.message_language", "en-US")
	v.SetDefault("gateway.message_budget", "10s")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.event_log_file", "")
	v.SetDefault("privacy.redact_transcripts", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Credentials.Provider) == "" {
		return fmt.Errorf("credentials.provider is required")
	}
	if strings.TrimSpace(c.Platform.Provider) == "" {
		return fmt.Errorf("platform.provider is required")
	}
	if strings.TrimSpace(c.Segments.Provider) == "" {
		return fmt.Errorf("segments.provider is required")
	}
	if strings.TrimSpace(c.Synthesis.Provider) == "" {
		return fmt.Errorf("synthesis.provider is required")
	}
	if len(c.Translate.Strategies) == 0 {
		return fmt.Errorf("translate.strategies requires at least one entry")
	}
	for i, s := range c.Translate.Strategies {
		if strings.TrimSpace(s.Provider) == "" {
			return fmt.Errorf("translate.strategies[%d].provider is required", i)
		}
	}
	return nil
}

// applyEnv expands ${VAR} references after unmarshal: typed fields via
// reflection, free-form settings trees via a type-switch walk. Secrets
// therefore never need to appear literally in a config file.
func applyEnv(cfg *Config) {
	expandStrings(reflect.ValueOf(cfg).Elem())
	cfg.Credentials.Settings = expandMap(cfg.Credentials.Settings)
	cfg.Platform.Settings = expandMap(cfg.Platform.Settings)
	cfg.Segments.Settings = expandMap(cfg.Segments.Settings)
	cfg.Synthesis.Settings = expandMap(cfg.Synthesis.Settings)
	for i := range cfg.Translate.Strategies {
		cfg.Translate.Strategies[i].Settings = expandMap(cfg.Translate.Strategies[i].Settings)
	}
}

// expandMap deep-expands a settings tree. YAML decoding can nest slices
// and maps, including map[any]any from older parsers; those fold into
// map[string]any on the way through.
func expandMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = expandLeaf(v)
	}
	return out
}

func expandLeaf(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandLeaf(item)
		}
		return out
	case map[string]any:
		return expandMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if ks, ok := k.(string); ok {
				out[ks] = expandLeaf(item)
			}
		}
		return out
	default:
		return v
	}
}

// expandStrings rewrites every settable string below v in place. Map
// elements are not addressable, so string-valued maps are rewritten via
// SetMapIndex instead.
func expandStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandStrings(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandStrings(v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandStrings(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return
		}
		for _, key := range v.MapKeys() {
			v.SetMapIndex(key, reflect.ValueOf(os.ExpandEnv(v.MapIndex(key).String())))
		}
	}
}
