package errorinjection

import (
	"math/rand"
	"testing"

	"github.com/llmsimlab/simcore/internal/config"
)

func TestSampleDisabledNeverInjects(t *testing.T) {
	inj := New(config.ErrorInjectionConfig{Enabled: false, Rate: 1.0})
	rng := rand.New(rand.NewSource(1))
	if err := inj.Sample(rng); err != nil {
		t.Fatalf("expected no injection when disabled, got %v", err)
	}
}

func TestSampleFullRateAlwaysInjects(t *testing.T) {
	inj := New(config.ErrorInjectionConfig{Enabled: true, Rate: 1.0, Types: []string{"server_error"}})
	rng := rand.New(rand.NewSource(1))
	err := inj.Sample(rng)
	if err == nil {
		t.Fatal("expected an injected error at rate=1.0")
	}
	if err.Kind != "server_error" {
		t.Fatalf("expected server_error kind, got %s", err.Kind)
	}
}

func TestSampleZeroRateNeverInjects(t *testing.T) {
	inj := New(config.ErrorInjectionConfig{Enabled: true, Rate: 0})
	rng := rand.New(rand.NewSource(1))
	if err := inj.Sample(rng); err != nil {
		t.Fatalf("expected no injection at rate=0, got %v", err)
	}
}
