// internal/scpi/registry_test.go
package scpi

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type stubAdapter struct {
	*Session
	name string
}

func stubFactory(name string) Factory {
	return func(addr Address, opts Options, logger *zap.Logger) (Instrument, error) {
		return &stubAdapter{Session: NewSession(addr, opts, logger), name: name}, nil
	}
}

func simOptions(model string) Options {
	return Options{
		Simulate: true,
		SimResponses: map[string]string{
			"*IDN?": "Acme," + model + ",SN001,1.0.0",
		},
	}
}

func TestResolveSelectsFirstClaimingAdapter(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("alpha", []string{"A", "B"}, stubFactory("alpha"))
	reg.Register("gamma", []string{"C"}, stubFactory("gamma"))

	inst, err := reg.Resolve(context.Background(), Address{Host: "bench.lab"}, simOptions("B"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	adapter, ok := inst.(*stubAdapter)
	if !ok {
		t.Fatalf("Resolve returned %T, want *stubAdapter", inst)
	}
	if adapter.name != "alpha" {
		t.Fatalf("resolved adapter = %q, want alpha", adapter.name)
	}
}

func TestResolveHonorsRegistrationOrder(t *testing.T) {
	// Overlapping claims: the first registration wins.
	reg := NewRegistry(nil)
	reg.Register("first", []string{"B"}, stubFactory("first"))
	reg.Register("second", []string{"B"}, stubFactory("second"))

	inst, err := reg.Resolve(context.Background(), Address{Host: "bench.lab"}, simOptions("B"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if inst.(*stubAdapter).name != "first" {
		t.Fatalf("resolved adapter = %q, want first", inst.(*stubAdapter).name)
	}
}

func TestResolveRejectsUnknownModel(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("alpha", []string{"A", "B"}, stubFactory("alpha"))
	reg.Register("gamma", []string{"C"}, stubFactory("gamma"))

	_, err := reg.Resolve(context.Background(), Address{Host: "bench.lab"}, simOptions("Z"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve error = %v, want *ConfigError", err)
	}
}

func TestLookupMissesWithEmptyRegistry(t *testing.T) {
	reg := NewRegistry(nil)
	if _, _, ok := reg.Lookup("NGP814"); ok {
		t.Fatalf("Lookup succeeded on empty registry")
	}
}

func TestAdaptersListedInRegistrationOrder(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("alpha", []string{"A"}, stubFactory("alpha"))
	reg.Register("beta", []string{"B"}, stubFactory("beta"))

	names := reg.Adapters()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("Adapters() = %v", names)
	}
}
