package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ib-77/rtcoord/pkg/coord/config"
)

var (
	ErrStarted  = errors.New("roster already started")
	ErrNotReady = errors.New("roster not started")
)

// Spec describes one task before it is created.
type Spec struct {
	Name     string
	Priority int
	Core     int
	Stack    int
	// Run holds the task body. It returns only when ctx is done, right
	// after one-shot setup for initializer tasks, or with the error that
	// ended the task early.
	Run func(ctx context.Context) error
}

// FromConfig fills the scheduling fields of a spec from cfg.
func FromConfig(name string, t config.Task, run func(ctx context.Context) error) Spec {
	return Spec{
		Name:     name,
		Priority: t.Priority,
		Core:     t.Core,
		Stack:    t.Stack,
		Run:      run,
	}
}

// Limits bound what a roster accepts.
type Limits struct {
	Cores       int
	MaxPriority int
	StackBudget int
}

func LimitsFrom(cfg config.Config) Limits {
	return Limits{
		Cores:       cfg.Cores,
		MaxPriority: cfg.MaxPriority,
		StackBudget: cfg.StackBudget,
	}
}

// Roster is the fixed task set of a process. Tasks are added up front and
// started together; a roster with any invalid task starts nothing.
type Roster struct {
	limits Limits
	logger *zap.Logger

	mu      sync.Mutex
	specs   []Spec
	errs    []error
	stack   int
	started bool
	group   *errgroup.Group
}

func NewRoster(limits Limits, logger *zap.Logger) *Roster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roster{limits: limits, logger: logger}
}

// Add registers a task. Problems are collected and reported by Start.
func (r *Roster) Add(s Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.check(s); err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.stack += s.Stack
	r.specs = append(r.specs, s)
}

func (r *Roster) check(s Spec) error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("task without a name"))
	}
	for _, existing := range r.specs {
		if existing.Name == s.Name {
			errs = append(errs, fmt.Errorf("task %q: duplicate name", s.Name))
			break
		}
	}
	if s.Run == nil {
		errs = append(errs, fmt.Errorf("task %q: no entry function", s.Name))
	}
	if s.Priority < 0 || s.Priority > r.limits.MaxPriority {
		errs = append(errs, fmt.Errorf("task %q: priority %d outside [0, %d]",
			s.Name, s.Priority, r.limits.MaxPriority))
	}
	if s.Core < config.NoAffinity || s.Core >= r.limits.Cores {
		errs = append(errs, fmt.Errorf("task %q: core %d outside [%d, %d)",
			s.Name, s.Core, config.NoAffinity, r.limits.Cores))
	}
	if s.Stack <= 0 {
		errs = append(errs, fmt.Errorf("task %q: stack %d must be positive", s.Name, s.Stack))
	} else if r.limits.StackBudget > 0 && r.stack+s.Stack > r.limits.StackBudget {
		errs = append(errs, fmt.Errorf("task %q: stack %d exceeds remaining budget %d",
			s.Name, s.Stack, r.limits.StackBudget-r.stack))
	}
	return errors.Join(errs...)
}

// Len returns the number of accepted tasks.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.specs)
}

// Start launches every task, highest priority first. If any Add failed,
// nothing is launched and all failures are returned joined.
func (r *Roster) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrStarted
	}
	if err := errors.Join(r.errs...); err != nil {
		return fmt.Errorf("failed to create tasks: %w", err)
	}

	specs := make([]Spec, len(r.specs))
	copy(specs, r.specs)
	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Priority > specs[j].Priority
	})

	r.started = true
	r.group = &errgroup.Group{}
	for _, s := range specs {
		info := Info{Name: s.Name, Priority: s.Priority, Core: s.Core}
		taskCtx := WithInfo(ctx, info)
		r.logger.Debug("task created",
			zap.String("task", s.Name),
			zap.Int("priority", s.Priority),
			zap.Int("core", s.Core),
			zap.Int("stack", s.Stack))

		name, run := s.Name, s.Run
		r.group.Go(func() error {
			if err := run(taskCtx); err != nil {
				r.logger.Error("task ended with error", zap.String("task", name), zap.Error(err))
				return fmt.Errorf("task %q: %w", name, err)
			}
			return nil
		})
	}
	return nil
}

// Wait blocks until every started task has returned and reports the first
// task that ended with an error. A failing task does not stop the others.
func (r *Roster) Wait() error {
	r.mu.Lock()
	g := r.group
	r.mu.Unlock()

	if g == nil {
		return ErrNotReady
	}
	return g.Wait()
}
