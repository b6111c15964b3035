package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/logging"
	"github.com/ib-77/rtcoord/pkg/coord/readiness"
)

// Task names of the firmware roster.
const (
	SystemMonitor  = "SystemMonitor"
	DataProcessor  = "DataProcessor"
	SensorReader   = "SensorReader"
	NetworkManager = "NetworkManager"
	StorageInit    = "StorageInit"
)

// Task names of the primitives model roster.
const (
	ModelProducer    = "Task A"
	ModelConsumer    = "Task B"
	ModelGiver       = "Task C"
	ModelTaker       = "Task D"
	ModelIncrementer = "Task E"
	ModelDecrementer = "Task F"
	ModelUnguarded   = "Task G"
	ModelGuarded     = "Task H"
	ModelNetworkInit = "Network"
	ModelSensorInit  = "Sensor"
	ModelSDCardInit  = "SD Card"
)

// Rosters that can be started.
const (
	RosterFirmware = "firmware"
	RosterModel    = "model"
	RosterAll      = "all"
)

// NoAffinity lets a task run on any core.
const NoAffinity = -1

type Task struct {
	Priority int           `yaml:"priority"`
	Core     int           `yaml:"core"`
	Stack    int           `yaml:"stack"`
	Period   time.Duration `yaml:"period"`
	Jitter   time.Duration `yaml:"jitter"`
	Disabled bool          `yaml:"disabled"`
}

type Queue struct {
	Capacity       int           `yaml:"capacity"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
}

type Mutex struct {
	ProcessorTimeout time.Duration `yaml:"processor_timeout"`
	SensorTimeout    time.Duration `yaml:"sensor_timeout"`
	ReaderTimeout    time.Duration `yaml:"reader_timeout"`
	WriterTimeout    time.Duration `yaml:"writer_timeout"`
	WriterDelay      time.Duration `yaml:"writer_delay"`
}

// Bits assigns a bit position to each subsystem.
type Bits struct {
	Network uint `yaml:"network"`
	Sensor  uint `yaml:"sensor"`
	Storage uint `yaml:"storage"`
}

func (b Bits) NetworkReady() readiness.Bits { return readiness.Bit(b.Network) }
func (b Bits) SensorReady() readiness.Bits  { return readiness.Bit(b.Sensor) }
func (b Bits) StorageReady() readiness.Bits { return readiness.Bit(b.Storage) }

// SystemReady is the mask the monitor needs before normal operation.
func (b Bits) SystemReady() readiness.Bits {
	return b.NetworkReady() | b.SensorReady()
}

func (b Bits) AllReady() readiness.Bits {
	return b.SystemReady() | b.StorageReady()
}

// Runs reports whether roster is part of the configured selection.
func (c Config) Runs(roster string) bool {
	return c.Roster == RosterAll || c.Roster == roster
}

// Sim parameterises the simulated collaborators.
type Sim struct {
	SensorInit   time.Duration `yaml:"sensor_init"`
	NetworkSteps int           `yaml:"network_steps"`
	NetworkStep  time.Duration `yaml:"network_step"`
	StorageInit  time.Duration `yaml:"storage_init"`
	Seed         uint64        `yaml:"seed"`
}

type Config struct {
	Roster      string          `yaml:"roster"`
	Cores       int             `yaml:"cores"`
	MaxPriority int             `yaml:"max_priority"`
	StackBudget int             `yaml:"stack_budget"`
	Queue       Queue           `yaml:"queue"`
	ModelQueue  Queue           `yaml:"model_queue"`
	Mutex       Mutex           `yaml:"mutex"`
	Bits        Bits            `yaml:"bits"`
	Sim         Sim             `yaml:"sim"`
	Logging     logging.Config  `yaml:"logging"`
	Tasks       map[string]Task `yaml:"-"`
}

// Default mirrors the firmware build constants.
func Default() Config {
	return Config{
		Roster:      RosterFirmware,
		Cores:       2,
		MaxPriority: 24,
		StackBudget: 64 * 1024,
		Queue: Queue{
			Capacity:       10,
			SendTimeout:    100 * time.Millisecond,
			ReceiveTimeout: coord.Forever,
		},
		ModelQueue: Queue{
			Capacity:       10,
			SendTimeout:    coord.Forever,
			ReceiveTimeout: coord.Forever,
		},
		Mutex: Mutex{
			ProcessorTimeout: 100 * time.Millisecond,
			SensorTimeout:    500 * time.Millisecond,
			ReaderTimeout:    500 * time.Millisecond,
			WriterTimeout:    coord.Forever,
			WriterDelay:      100 * time.Millisecond,
		},
		Bits: Bits{Network: 0, Sensor: 1, Storage: 2},
		Sim: Sim{
			SensorInit:   2 * time.Second,
			NetworkSteps: 3,
			NetworkStep:  time.Second,
			StorageInit:  time.Second,
		},
		Logging: logging.Config{Level: "info"},
		Tasks: map[string]Task{
			SystemMonitor:  {Priority: 3, Core: NoAffinity, Stack: 4096, Period: 10 * time.Second},
			DataProcessor:  {Priority: 2, Core: NoAffinity, Stack: 4096},
			SensorReader:   {Priority: 1, Core: NoAffinity, Stack: 4096, Period: 2 * time.Second},
			NetworkManager: {Priority: 1, Core: NoAffinity, Stack: 4096, Period: 5 * time.Second},
			StorageInit:    {Priority: 1, Core: NoAffinity, Stack: 2048},

			ModelProducer:    {Priority: 1, Core: 0, Stack: 2048, Period: time.Second},
			ModelConsumer:    {Priority: 1, Core: 1, Stack: 2048},
			ModelGiver:       {Priority: 1, Core: 0, Stack: 2048, Period: time.Second},
			ModelTaker:       {Priority: 1, Core: 1, Stack: 2048},
			ModelIncrementer: {Priority: 2, Core: 0, Stack: 2048, Period: 500 * time.Millisecond},
			ModelDecrementer: {Priority: 2, Core: 1, Stack: 2048, Period: time.Second},
			ModelUnguarded:   {Priority: 1, Core: 0, Stack: 2048, Period: 200 * time.Millisecond},
			ModelGuarded:     {Priority: 1, Core: 1, Stack: 2048, Period: 400 * time.Millisecond},
			ModelNetworkInit: {Priority: 1, Core: NoAffinity, Stack: 2048, Period: 2 * time.Second},
			ModelSensorInit:  {Priority: 1, Core: NoAffinity, Stack: 2048, Period: 1500 * time.Millisecond},
			ModelSDCardInit:  {Priority: 1, Core: NoAffinity, Stack: 2048, Period: time.Second},
		},
	}
}

// taskOverride lets a YAML file change single fields of a default task.
type taskOverride struct {
	Priority *int           `yaml:"priority"`
	Core     *int           `yaml:"core"`
	Stack    *int           `yaml:"stack"`
	Period   *time.Duration `yaml:"period"`
	Jitter   *time.Duration `yaml:"jitter"`
	Disabled *bool          `yaml:"disabled"`
}

type file struct {
	Config `yaml:",inline"`
	Tasks  map[string]taskOverride `yaml:"tasks"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse overlays a YAML document on Default and validates the result.
func Parse(data []byte) (Config, error) {
	f := file{Config: Default()}
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := f.Config
	for name, o := range f.Tasks {
		t, ok := cfg.Tasks[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown task %q", name)
		}
		cfg.Tasks[name] = o.apply(t)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (o taskOverride) apply(t Task) Task {
	if o.Priority != nil {
		t.Priority = *o.Priority
	}
	if o.Core != nil {
		t.Core = *o.Core
	}
	if o.Stack != nil {
		t.Stack = *o.Stack
	}
	if o.Period != nil {
		t.Period = *o.Period
	}
	if o.Jitter != nil {
		t.Jitter = *o.Jitter
	}
	if o.Disabled != nil {
		t.Disabled = *o.Disabled
	}
	return t
}

// Validate reports every problem at once. Per-task limits (priority, core,
// stack) are enforced when the roster is created.
func (c Config) Validate() error {
	var errs []error
	switch c.Roster {
	case RosterFirmware, RosterModel, RosterAll:
	default:
		errs = append(errs, fmt.Errorf("roster must be %s, %s or %s, got %q",
			RosterFirmware, RosterModel, RosterAll, c.Roster))
	}
	if c.Cores < 1 {
		errs = append(errs, fmt.Errorf("cores must be at least 1, got %d", c.Cores))
	}
	if c.MaxPriority < 0 {
		errs = append(errs, fmt.Errorf("max_priority must not be negative, got %d", c.MaxPriority))
	}
	if c.Queue.Capacity < 1 {
		errs = append(errs, fmt.Errorf("queue.capacity must be at least 1, got %d", c.Queue.Capacity))
	}
	if c.ModelQueue.Capacity < 1 {
		errs = append(errs, fmt.Errorf("model_queue.capacity must be at least 1, got %d", c.ModelQueue.Capacity))
	}

	positions := map[uint]string{}
	for _, b := range []struct {
		name string
		pos  uint
	}{{"network", c.Bits.Network}, {"sensor", c.Bits.Sensor}, {"storage", c.Bits.Storage}} {
		if b.pos >= readiness.MaxBits {
			errs = append(errs, fmt.Errorf("bits.%s: position %d out of range", b.name, b.pos))
		}
		if other, dup := positions[b.pos]; dup {
			errs = append(errs, fmt.Errorf("bits.%s: position %d already used by %s", b.name, b.pos, other))
		}
		positions[b.pos] = b.name
	}

	if c.Sim.NetworkSteps < 0 {
		errs = append(errs, fmt.Errorf("sim.network_steps must not be negative, got %d", c.Sim.NetworkSteps))
	}
	for _, name := range c.TaskNames() {
		if t := c.Tasks[name]; t.Period < 0 || t.Jitter < 0 {
			errs = append(errs, fmt.Errorf("task %q: period and jitter must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// TaskNames returns the configured task names in a stable order.
func (c Config) TaskNames() []string {
	names := make([]string, 0, len(c.Tasks))
	for name := range c.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
