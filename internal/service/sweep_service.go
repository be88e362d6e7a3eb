// internal/service/sweep_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/model"
	"instrument-service/internal/repository"
	"instrument-service/internal/utils"
)

// signalGenerator is the capability a sweep needs from its source side.
// Both the vector and analog generator adapters satisfy it.
type signalGenerator interface {
	SetFrequency(hz float64) error
	SetLevel(dbm float64) error
	SetRFOutput(on bool) error
	WaitComplete(poll time.Duration) error
}

// signalAnalyzer is the capability a sweep needs from its measurement side.
type signalAnalyzer interface {
	SetCenterFrequency(hz float64) error
	MeasureEVM() (float64, error)
	MeasurePower() (float64, error)
}

// SweepService runs EVM-versus-power sweeps across a generator and analyzer
// pair and persists every point.
type SweepService struct {
	bench           *BenchService
	sweepRepo       repository.SweepRepository
	measurementRepo repository.MeasurementRepository
	config          *config.Config
	logger          *utils.ServiceLogger
	events          EventPublisher
}

// NewSweepService creates a new sweep service instance
func NewSweepService(
	bench *BenchService,
	sweepRepo repository.SweepRepository,
	measurementRepo repository.MeasurementRepository,
	cfg *config.Config,
	events EventPublisher,
	logger *zap.Logger,
) *SweepService {
	return &SweepService{
		bench:           bench,
		sweepRepo:       sweepRepo,
		measurementRepo: measurementRepo,
		config:          cfg,
		logger:          utils.NewServiceLogger(logger, "sweep-service"),
		events:          events,
	}
}

// StartSweep validates the request against the connected bench, persists a
// pending run, and executes it on a background goroutine. The returned run
// is already stored; progress arrives over the event stream.
func (ss *SweepService) StartSweep(ctx context.Context, req model.SweepRequest) (*model.SweepRun, error) {
	gen, ana, err := ss.resolvePair(req.Generator, req.Analyzer)
	if err != nil {
		return nil, err
	}

	run := model.NewSweepRun(req)
	if len(run.Levels()) == 0 {
		return nil, fmt.Errorf("sweep %q has no levels: start %s exceeds stop %s",
			req.Name, run.StartDBM, run.StopDBM)
	}

	if err := ss.sweepRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	go ss.execute(context.Background(), run, gen, ana)

	return run, nil
}

// GetSweep returns a run with all of its stored points.
func (ss *SweepService) GetSweep(ctx context.Context, id uuid.UUID) (*model.SweepRun, []*model.Measurement, error) {
	run, err := ss.sweepRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	points, err := ss.measurementRepo.ListBySweep(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, points, nil
}

// ListSweeps returns runs matching the filter plus the unpaged total.
func (ss *SweepService) ListSweeps(ctx context.Context, filter *repository.SweepFilter) ([]*model.SweepRun, int, error) {
	return ss.sweepRepo.List(ctx, filter)
}

func (ss *SweepService) resolvePair(generator, analyzer string) (signalGenerator, signalAnalyzer, error) {
	genInst, err := ss.bench.Instrument(generator)
	if err != nil {
		return nil, nil, err
	}
	gen, ok := genInst.(signalGenerator)
	if !ok {
		return nil, nil, fmt.Errorf("instrument %q cannot act as a signal generator", generator)
	}

	anaInst, err := ss.bench.Instrument(analyzer)
	if err != nil {
		return nil, nil, err
	}
	ana, ok := anaInst.(signalAnalyzer)
	if !ok {
		return nil, nil, fmt.Errorf("instrument %q cannot act as a signal analyzer", analyzer)
	}

	return gen, ana, nil
}

func (ss *SweepService) execute(ctx context.Context, run *model.SweepRun, gen signalGenerator, ana signalAnalyzer) {
	opLogger := utils.NewOperationLogger(ss.logger.Logger, "sweep", run.ID.String())
	opLogger.Start(
		zap.String("name", run.Name),
		zap.String("generator", run.Generator),
		zap.String("analyzer", run.Analyzer),
	)

	if err := ss.sweepRepo.MarkStarted(ctx, run.ID, time.Now().UTC()); err != nil {
		ss.fail(ctx, run, opLogger, err)
		return
	}
	ss.events.Publish(ss.sweepEvent(model.EventSweepStarted, run, nil))

	freq, _ := run.FrequencyHz.Float64()
	if err := gen.SetFrequency(freq); err != nil {
		ss.fail(ctx, run, opLogger, err)
		return
	}
	if err := ana.SetCenterFrequency(freq); err != nil {
		ss.fail(ctx, run, opLogger, err)
		return
	}
	if err := gen.SetRFOutput(true); err != nil {
		ss.fail(ctx, run, opLogger, err)
		return
	}
	defer gen.SetRFOutput(false)

	levels := run.Levels()
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			ss.fail(ctx, run, opLogger, err)
			return
		}

		point, err := ss.measurePoint(ctx, run, gen, ana, i, level)
		if err != nil {
			ss.fail(ctx, run, opLogger, err)
			return
		}

		ss.events.Publish(ss.sweepEvent(model.EventSweepPoint, run, model.JSONObject{
			"point_index": point.PointIndex,
			"level_dbm":   point.LevelDBM.String(),
			"evm_percent": point.EVMPercent.String(),
			"power_dbm":   point.PowerDBM.String(),
		}))
		opLogger.Progress("Sweep point measured",
			float64(i+1)/float64(len(levels)),
			zap.Int("point_index", i),
		)
	}

	if err := ss.sweepRepo.MarkCompleted(ctx, run.ID, model.SweepCompleted, time.Now().UTC()); err != nil {
		ss.fail(ctx, run, opLogger, err)
		return
	}

	ss.events.Publish(ss.sweepEvent(model.EventSweepCompleted, run, model.JSONObject{
		"points": len(levels),
	}))
	opLogger.Success(zap.Int("points", len(levels)))
}

func (ss *SweepService) measurePoint(
	ctx context.Context,
	run *model.SweepRun,
	gen signalGenerator,
	ana signalAnalyzer,
	index int,
	level decimal.Decimal,
) (*model.Measurement, error) {
	dbm, _ := level.Float64()
	if err := gen.SetLevel(dbm); err != nil {
		return nil, fmt.Errorf("point %d: set level: %w", index, err)
	}
	if err := gen.WaitComplete(ss.config.Sweep.OPCPoll); err != nil {
		return nil, fmt.Errorf("point %d: wait level settled: %w", index, err)
	}

	// Let the loop and the DUT settle before fetching results.
	if ss.config.Sweep.SettleDelay > 0 {
		time.Sleep(ss.config.Sweep.SettleDelay)
	}

	evm, err := ana.MeasureEVM()
	if err != nil {
		return nil, fmt.Errorf("point %d: measure evm: %w", index, err)
	}
	power, err := ana.MeasurePower()
	if err != nil {
		return nil, fmt.Errorf("point %d: measure power: %w", index, err)
	}

	point := &model.Measurement{
		ID:         uuid.New(),
		SweepID:    run.ID,
		PointIndex: index,
		LevelDBM:   level,
		EVMPercent: decimal.NewFromFloat(evm),
		PowerDBM:   decimal.NewFromFloat(power),
		MeasuredAt: time.Now().UTC(),
	}
	if err := ss.measurementRepo.Create(ctx, point); err != nil {
		return nil, fmt.Errorf("point %d: store: %w", index, err)
	}
	return point, nil
}

func (ss *SweepService) fail(ctx context.Context, run *model.SweepRun, opLogger *utils.OperationLogger, cause error) {
	opLogger.Error(cause)

	errorInfo := model.JSONObject{"error": cause.Error()}
	if err := ss.sweepRepo.UpdateStatus(ctx, run.ID, model.SweepFailed, errorInfo); err != nil {
		ss.logger.Error("Failed to mark sweep failed",
			zap.String("sweep_id", run.ID.String()),
			zap.Error(err),
		)
	}
	if err := ss.sweepRepo.MarkCompleted(ctx, run.ID, model.SweepFailed, time.Now().UTC()); err != nil {
		ss.logger.Error("Failed to record sweep completion time",
			zap.String("sweep_id", run.ID.String()),
			zap.Error(err),
		)
	}

	ss.events.Publish(ss.sweepEvent(model.EventSweepFailed, run, errorInfo))
}

func (ss *SweepService) sweepEvent(eventType model.EventType, run *model.SweepRun, data model.JSONObject) model.BenchEvent {
	event := model.NewBenchEvent(eventType, "", data)
	id := run.ID
	event.SweepID = &id
	return event
}
