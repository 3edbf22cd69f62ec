package dragoman

import (
	"fmt"
	"strings"

	"github.com/dragomanhq/dragoman/pkg/credential"
	"github.com/dragomanhq/dragoman/pkg/platform"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/synthesis"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

type ExchangerFactory func(cfg Config, settings map[string]any) (credential.Exchanger, error)
type DriverFactory func(cfg Config, settings map[string]any) (platform.Driver, error)
type SourceFactory func(cfg Config, settings map[string]any) (segments.Factory, error)
type StrategyFactory func(cfg Config, settings map[string]any) (translate.Strategy, error)
type SynthEngineFactory func(cfg Config, settings map[string]any) (synthesis.Engine, error)

type ProviderRegistry struct {
	exchangers map[string]ExchangerFactory
	drivers    map[string]DriverFactory
	sources    map[string]SourceFactory
	strategies map[string]StrategyFactory
	engines    map[string]SynthEngineFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		exchangers: make(map[string]ExchangerFactory),
		drivers:    make(map[string]DriverFactory),
		sources:    make(map[string]SourceFactory),
		strategies: make(map[string]StrategyFactory),
		engines:    make(map[string]SynthEngineFactory),
	}
}

func (r *ProviderRegistry) RegisterExchanger(name string, factory ExchangerFactory) {
	r.exchangers[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterDriver(name string, factory DriverFactory) {
	r.drivers[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterSource(name string, factory SourceFactory) {
	r.sources[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterStrategy(name string, factory StrategyFactory) {
	r.strategies[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterSynthEngine(name string, factory SynthEngineFactory) {
	r.engines[providerKey(name)] = factory
}

func (r *ProviderRegistry) BuildExchanger(provider string, cfg Config, settings map[string]any) (credential.Exchanger, error) {
	fn := r.exchangers[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("credential provider not registered: %s", provider)
	}
	return fn(cfg, settings)
}

func (r *ProviderRegistry) BuildDriver(provider string, cfg Config, settings map[string]any) (platform.Driver, error) {
	fn := r.drivers[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("platform provider not registered: %s", provider)
	}
	return fn(cfg, settings)
}

func (r *ProviderRegistry) BuildSourceFactory(provider string, cfg Config, settings map[string]any) (segments.Factory, error) {
	fn := r.sources[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("segment provider not registered: %s", provider)
	}
	return fn(cfg, settings)
}

func (r *ProviderRegistry) BuildStrategy(provider string, cfg Config, settings map[string]any) (translate.Strategy, error) {
	fn := r.strategies[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("translate strategy not registered: %s", provider)
	}
	return fn(cfg, settings)
}

func (r *ProviderRegistry) BuildSynthEngine(provider string, cfg Config, settings map[string]any) (synthesis.Engine, error) {
	fn := r.engines[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("synthesis provider not registered: %s", provider)
	}
	return fn(cfg, settings)
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
