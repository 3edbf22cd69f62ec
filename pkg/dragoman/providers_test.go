package dragoman

import (
	"context"
	"strings"
	"testing"

	"github.com/dragomanhq/dragoman/pkg/credential"
	"github.com/dragomanhq/dragoman/pkg/segments"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

type fixedExchanger struct{}

func (fixedExchanger) Exchange(context.Context) (credential.Credential, error) {
	return credential.Credential{Token: "tok"}, nil
}

func TestProviderRegistryBuildsRegisteredFactories(t *testing.T) {
	reg := NewProviderRegistry()
	reg.RegisterExchanger("Static", func(Config, map[string]any) (credential.Exchanger, error) {
		return fixedExchanger{}, nil
	})
	reg.RegisterStrategy("tag", func(Config, map[string]any) (translate.Strategy, error) {
		return translate.TagStrategy{}, nil
	})
	reg.RegisterSource("script", func(cfg Config, settings map[string]any) (segments.Factory, error) {
		return func(callID string) (segments.Source, error) {
			return segments.NewScript(segments.ScriptConfig{Lines: []string{"hi"}}), nil
		}, nil
	})

	if _, err := reg.BuildExchanger("static", Config{}, nil); err != nil {
		t.Fatalf("build exchanger: %v", err)
	}
	if _, err := reg.BuildStrategy(" TAG ", Config{}, nil); err != nil {
		t.Fatalf("build strategy with unnormalized name: %v", err)
	}
	factory, err := reg.BuildSourceFactory("script", Config{}, nil)
	if err != nil {
		t.Fatalf("build source factory: %v", err)
	}
	src, err := factory("call-1")
	if err != nil || src == nil {
		t.Fatalf("factory = (%v, %v)", src, err)
	}
	_ = src.Close()
}

func TestProviderRegistryUnknownName(t *testing.T) {
	reg := NewProviderRegistry()

	if _, err := reg.BuildDriver("ghost", Config{}, nil); err == nil ||
		!strings.Contains(err.Error(), "platform provider not registered: ghost") {
		t.Fatalf("err = %v", err)
	}
	if _, err := reg.BuildSynthEngine("ghost", Config{}, nil); err == nil ||
		!strings.Contains(err.Error(), "synthesis provider not registered: ghost") {
		t.Fatalf("err = %v", err)
	}
	if _, err := reg.BuildStrategy("ghost", Config{}, nil); err == nil ||
		!strings.Contains(err.Error(), "translate strategy not registered: ghost") {
		t.Fatalf("err = %v", err)
	}
}
