// internal/instrument/register_test.go
package instrument

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"instrument-service/internal/instrument/powersupply"
	"instrument-service/internal/instrument/signalgen"
	"instrument-service/internal/instrument/specan"
	"instrument-service/internal/scpi"
)

func resolveSim(t *testing.T, registry *scpi.Registry, model string) scpi.Instrument {
	t.Helper()

	opts := scpi.Options{
		Simulate: true,
		SimResponses: map[string]string{
			"*IDN?": "Vendor," + model + ",100001,1.0",
		},
	}
	inst, err := registry.Resolve(context.Background(), scpi.Address{Host: "bench.lab"}, opts)
	if err != nil {
		t.Fatalf("Resolve(%s) returned error: %v", model, err)
	}
	return inst
}

func TestRegisterDefaultsDispatch(t *testing.T) {
	registry := scpi.NewRegistry(zap.NewNop())
	RegisterDefaults(registry, zap.NewNop())

	if _, ok := resolveSim(t, registry, "NGP814").(*powersupply.NGP800); !ok {
		t.Fatalf("NGP814 did not resolve to the NGP800 adapter")
	}
	if _, ok := resolveSim(t, registry, "SMW200A").(*signalgen.SMW200A); !ok {
		t.Fatalf("SMW200A did not resolve to the SMW200A adapter")
	}
	if _, ok := resolveSim(t, registry, "E8257D").(*signalgen.PSG); !ok {
		t.Fatalf("E8257D did not resolve to the PSG adapter")
	}
	if _, ok := resolveSim(t, registry, "FSW26").(*specan.FSW); !ok {
		t.Fatalf("FSW26 did not resolve to the FSW adapter")
	}
}

func TestRegisterDefaultsAdapterOrder(t *testing.T) {
	registry := scpi.NewRegistry(zap.NewNop())
	RegisterDefaults(registry, zap.NewNop())

	names := registry.Adapters()
	want := []string{"NGP800", "SMW200A", "PSG", "FSW"}
	if len(names) != len(want) {
		t.Fatalf("Adapters() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Adapters() = %v, want %v", names, want)
		}
	}
}
