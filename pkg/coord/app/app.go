package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/config"
	"github.com/ib-77/rtcoord/pkg/coord/dispatch"
	"github.com/ib-77/rtcoord/pkg/coord/guard"
	"github.com/ib-77/rtcoord/pkg/coord/logging"
	"github.com/ib-77/rtcoord/pkg/coord/message"
	"github.com/ib-77/rtcoord/pkg/coord/queue"
	"github.com/ib-77/rtcoord/pkg/coord/readiness"
	"github.com/ib-77/rtcoord/pkg/coord/sim"
	"github.com/ib-77/rtcoord/pkg/coord/task"
)

const tag = "AppMain"

// Collaborators are the devices the tasks talk to. Nil fields are filled
// with simulations driven by the config.
type Collaborators struct {
	Sensors sim.SensorSource
	Network sim.NetworkLink
	Storage sim.StorageCard
	Heap    interface{ Stats() (free, minFree uint64) }
	Rand    *sim.Random
}

// System owns every shared object of the process. Tasks receive what they
// need from it at spawn time; nothing is global.
type System struct {
	cfg    config.Config
	logger *zap.Logger
	devs   Collaborators

	Events     *readiness.Group
	Data       *queue.Queue[message.Message]
	Samples    *queue.Queue[int]
	Bus        *guard.Mutex
	CounterMu  *guard.Mutex
	Counter    *guard.Counter
	Shared     *guard.Guarded
	Signal     *guard.Binary
	Clock      *message.Clock
	Dispatcher *dispatch.Dispatcher

	roster  *task.Roster
	traffic *traffic
}

// New creates the shared objects and registers the configured rosters.
// Any creation failure is reported as one joined error and the system must
// not be started.
func New(cfg config.Config, logger *zap.Logger, devs Collaborators) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &System{
		cfg:       cfg,
		logger:    logger,
		devs:      withSimulations(cfg, logger, devs),
		Events:    readiness.NewGroup(),
		Bus:       guard.NewMutex("i2c"),
		CounterMu: guard.NewMutex("counter"),
		Counter:   guard.NewCounter(0),
		Signal:    guard.NewBinary(),
		Clock:     message.NewClock(),
		roster:    task.NewRoster(task.LimitsFrom(cfg), logger),
		traffic:   &traffic{logger: logging.Tagged(logger, tag)},
	}
	s.Shared = s.Counter.Guard(s.CounterMu, cfg.Mutex.WriterDelay)
	s.Dispatcher = dispatch.NewDispatcher(logging.Tagged(logger, config.DataProcessor))

	var errs []error
	var err error
	if s.Data, err = queue.New[message.Message]("data", cfg.Queue.Capacity, s.traffic.options()...); err != nil {
		errs = append(errs, fmt.Errorf("failed to create data queue: %w", err))
	}
	if s.Samples, err = queue.New[int]("samples", cfg.ModelQueue.Capacity); err != nil {
		errs = append(errs, fmt.Errorf("failed to create sample queue: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.Runs(config.RosterFirmware) {
		s.registerFirmware()
	}
	if cfg.Runs(config.RosterModel) {
		s.registerModel()
	}
	return s, nil
}

func withSimulations(cfg config.Config, logger *zap.Logger, devs Collaborators) Collaborators {
	if devs.Rand == nil {
		devs.Rand = sim.NewRandom(cfg.Sim.Seed)
	}
	if devs.Sensors == nil {
		devs.Sensors = &sim.Sensors{InitDelay: cfg.Sim.SensorInit, Rand: devs.Rand}
	}
	if devs.Network == nil {
		devs.Network = &sim.Network{
			Steps:  cfg.Sim.NetworkSteps,
			Step:   cfg.Sim.NetworkStep,
			Logger: logging.Tagged(logger, config.NetworkManager),
		}
	}
	if devs.Storage == nil {
		devs.Storage = &sim.Card{MountDelay: cfg.Sim.StorageInit}
	}
	if devs.Heap == nil {
		devs.Heap = &sim.Heap{}
	}
	return devs
}

// add registers a task unless it is disabled in config.
func (s *System) add(name string, run func(ctx context.Context) error) {
	t, ok := s.cfg.Tasks[name]
	if !ok {
		s.roster.Add(task.Spec{Name: name})
		return
	}
	if t.Disabled {
		return
	}
	s.roster.Add(task.FromConfig(name, t, run))
}

// Start launches every registered task. It either starts all of them or
// none and reports why.
func (s *System) Start(ctx context.Context) error {
	log := logging.Tagged(s.logger, tag)
	if err := s.roster.Start(ctx); err != nil {
		failures := coord.GetErrors(errors.Unwrap(err))
		for _, f := range failures {
			log.Error("Task creation failed", zap.Error(f))
		}
		log.Error("Failed to initialize application tasks",
			zap.Int("failures", len(failures)), zap.Error(err))
		return err
	}
	log.Info("All tasks created successfully", zap.Int("tasks", s.roster.Len()))
	return nil
}

// Wait blocks until every task has returned, which happens only after
// the context given to Start is done. It reports the first task that
// ended with an error, such as a device that failed to initialize.
func (s *System) Wait() error {
	return s.roster.Wait()
}

func (s *System) Tasks() int {
	return s.roster.Len()
}

// Traffic returns data queue usage since the system was created.
func (s *System) Traffic() TrafficStats {
	return s.traffic.stats()
}

// missed logs r at level when it did not succeed while the task is still
// running, and reports whether it failed. Failures caused by stopping are
// not logged.
func missed[T any](ctx context.Context, log *zap.Logger, level zapcore.Level, msg string,
	r coord.WithTimeout[T]) bool {

	if r.IsSuccess() {
		return false
	}
	if ctx.Err() == nil {
		log.Log(level, msg,
			zap.Bool("timeout", r.IsTimeout()),
			zap.Stringer("attempt", r.Id()),
			zap.Time("at", r.CreatedAt()),
			zap.Error(r.Err()))
	}
	return true
}
