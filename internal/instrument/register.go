// internal/instrument/register.go
package instrument

import (
	"go.uber.org/zap"

	"instrument-service/internal/instrument/powersupply"
	"instrument-service/internal/instrument/signalgen"
	"instrument-service/internal/instrument/specan"
	"instrument-service/internal/scpi"
)

// RegisterDefaults registers every built-in adapter. Registration order is
// the dispatch order: the registry hands a probed model to the first
// adapter claiming it, so more specific adapters go first.
func RegisterDefaults(registry *scpi.Registry, logger *zap.Logger) {
	registerPowerSupplies(registry, logger)
	registerSignalGenerators(registry, logger)
	registerAnalyzers(registry, logger)
}

func registerPowerSupplies(registry *scpi.Registry, logger *zap.Logger) {
	registry.Register(
		"NGP800",
		[]string{"NGP802", "NGP804", "NGP814", "NGP822", "NGP824"},
		powersupply.New,
	)

	logger.Info("Power supply adapters registered", zap.Int("adapters", 1))
}

func registerSignalGenerators(registry *scpi.Registry, logger *zap.Logger) {
	registry.Register(
		"SMW200A",
		[]string{"SMW200A"},
		signalgen.NewSMW200A,
	)

	registry.Register(
		"PSG",
		[]string{"E8257D", "E8267D"},
		signalgen.NewPSG,
	)

	logger.Info("Signal generator adapters registered", zap.Int("adapters", 2))
}

func registerAnalyzers(registry *scpi.Registry, logger *zap.Logger) {
	registry.Register(
		"FSW",
		[]string{"FSW8", "FSW13", "FSW26", "FSW43", "FSW50", "FSW85"},
		specan.New,
	)

	logger.Info("Signal analyzer adapters registered", zap.Int("adapters", 1))
}
