// internal/service/bench_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/model"
	"instrument-service/internal/scpi"
	"instrument-service/internal/utils"
)

// EventPublisher receives bench events for fan-out to monitoring clients.
type EventPublisher interface {
	Publish(event model.BenchEvent)
}

// sessionInfo is the slice of session state the bench exposes over the API.
// Every adapter embeds a session, so the assertion always holds for
// registry-built instruments.
type sessionInfo interface {
	State() scpi.State
	Backend() scpi.Backend
	Identification() scpi.Identification
	Address() scpi.Address
}

type benchEntry struct {
	cfg     config.InstrumentConfig
	addr    scpi.Address
	adapter string

	mutex    sync.Mutex
	inst     scpi.Instrument
	lastSeen time.Time
}

// BenchService owns the configured bench instruments: it resolves each one
// to its adapter, tracks connection state, and hands instruments to the
// measurement services.
type BenchService struct {
	config   *config.Config
	registry *scpi.Registry
	logger   *utils.ServiceLogger
	events   EventPublisher

	mutex   sync.RWMutex
	entries map[string]*benchEntry
	order   []string
}

// NewBenchService creates a bench service from the configured instrument
// list. Addresses were validated at config load.
func NewBenchService(
	cfg *config.Config,
	registry *scpi.Registry,
	events EventPublisher,
	logger *zap.Logger,
) (*BenchService, error) {
	bs := &BenchService{
		config:   cfg,
		registry: registry,
		logger:   utils.NewServiceLogger(logger, "bench-service"),
		events:   events,
		entries:  make(map[string]*benchEntry, len(cfg.Bench.Instruments)),
	}

	for _, ic := range cfg.Bench.Instruments {
		addr, err := ic.Address()
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", ic.Name, err)
		}
		bs.entries[ic.Name] = &benchEntry{cfg: ic, addr: addr}
		bs.order = append(bs.order, ic.Name)
	}

	return bs, nil
}

// Connect resolves and connects a single instrument by name.
func (bs *BenchService) Connect(ctx context.Context, name string) error {
	entry, err := bs.entry(name)
	if err != nil {
		return err
	}

	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	if entry.inst != nil {
		if info, ok := entry.inst.(sessionInfo); ok && info.State() == scpi.StateReady {
			return nil
		}
		entry.inst.Close()
		entry.inst = nil
	}

	instLogger := utils.NewInstrumentLogger(bs.logger.Logger, name, "", entry.addr.String())

	opts := bs.config.Options(entry.cfg)
	inst, err := bs.registry.Resolve(ctx, entry.addr, opts)
	if err != nil {
		instLogger.LogConnection("resolve", false, err)
		bs.events.Publish(model.NewBenchEvent(model.EventInstrumentFaulted, name, model.JSONObject{
			"error": err.Error(),
		}))
		return fmt.Errorf("failed to resolve instrument %q: %w", name, err)
	}

	if err := inst.Connect(ctx); err != nil {
		instLogger.LogConnection("connect", false, err)
		bs.events.Publish(model.NewBenchEvent(model.EventInstrumentFaulted, name, model.JSONObject{
			"error": err.Error(),
		}))
		return fmt.Errorf("failed to connect instrument %q: %w", name, err)
	}

	entry.inst = inst
	entry.lastSeen = time.Now()
	if info, ok := inst.(sessionInfo); ok {
		instModel := info.Identification().Model
		if _, adapterName, ok := bs.registry.Lookup(instModel); ok {
			entry.adapter = adapterName
		}
		instLogger = utils.NewInstrumentLogger(bs.logger.Logger, name, instModel, entry.addr.String())
	}

	bs.events.Publish(model.NewBenchEvent(model.EventInstrumentConnected, name, nil))
	instLogger.LogConnection("connect", true, nil)
	return nil
}

// ConnectAll connects every configured instrument, stopping at the first
// failure so a misconfigured bench is caught before any measurement runs.
func (bs *BenchService) ConnectAll(ctx context.Context) error {
	for _, name := range bs.instrumentNames() {
		if err := bs.Connect(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect closes a single instrument by name.
func (bs *BenchService) Disconnect(name string) error {
	entry, err := bs.entry(name)
	if err != nil {
		return err
	}

	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	if entry.inst == nil {
		return nil
	}
	closeErr := entry.inst.Close()
	entry.inst = nil

	bs.events.Publish(model.NewBenchEvent(model.EventInstrumentDisconnected, name, nil))
	utils.NewInstrumentLogger(bs.logger.Logger, name, entry.adapter, entry.addr.String()).
		LogConnection("disconnect", closeErr == nil, closeErr)
	return closeErr
}

// CloseAll closes every connected instrument. Errors are logged, not
// returned: shutdown keeps going.
func (bs *BenchService) CloseAll() {
	for _, name := range bs.instrumentNames() {
		if err := bs.Disconnect(name); err != nil {
			bs.logger.Error("Failed to close instrument",
				zap.String("instrument", name),
				zap.Error(err),
			)
		}
	}
}

// Instrument returns a connected instrument by name.
func (bs *BenchService) Instrument(name string) (scpi.Instrument, error) {
	entry, err := bs.entry(name)
	if err != nil {
		return nil, err
	}

	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	if entry.inst == nil {
		return nil, fmt.Errorf("instrument %q is not connected", name)
	}
	return entry.inst, nil
}

// Identify runs a fresh identification query against a connected instrument.
func (bs *BenchService) Identify(name string) (scpi.Identification, error) {
	inst, err := bs.Instrument(name)
	if err != nil {
		return scpi.Identification{}, err
	}
	return inst.Identify()
}

// Status reports the API view of every configured instrument.
func (bs *BenchService) Status() []model.BenchInstrument {
	out := make([]model.BenchInstrument, 0, len(bs.entries))
	for _, name := range bs.instrumentNames() {
		entry, _ := bs.entry(name)

		entry.mutex.Lock()
		bi := model.BenchInstrument{
			Name:    name,
			Adapter: entry.adapter,
			Address: entry.addr.String(),
			State:   model.InstrumentDisconnected,
		}
		if !entry.lastSeen.IsZero() {
			seen := entry.lastSeen
			bi.LastSeen = &seen
		}
		if entry.inst != nil {
			if info, ok := entry.inst.(sessionInfo); ok {
				ident := info.Identification()
				bi.Manufacturer = ident.Manufacturer
				bi.Model = ident.Model
				bi.SerialNumber = ident.SerialNumber
				bi.Firmware = ident.Firmware
				bi.Backend = string(info.Backend())
				bi.State = model.InstrumentState(info.State())
			}
		}
		entry.mutex.Unlock()

		out = append(out, bi)
	}
	return out
}

// Adapters lists the registered adapter names in dispatch order.
func (bs *BenchService) Adapters() []string {
	return bs.registry.Adapters()
}

func (bs *BenchService) entry(name string) (*benchEntry, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	entry, ok := bs.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown bench instrument %q", name)
	}
	return entry, nil
}

func (bs *BenchService) instrumentNames() []string {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	names := make([]string, len(bs.order))
	copy(names, bs.order)
	return names
}
