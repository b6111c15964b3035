package sim

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/rtcoord/pkg/coord/message"
	"github.com/ib-77/rtcoord/pkg/coord/task"
)

// SensorSource acquires environment readings.
type SensorSource interface {
	Init(ctx context.Context) error
	Read(ctx context.Context) (message.SensorData, error)
}

// NetworkLink brings the uplink up. Establish returns once the link is
// usable.
type NetworkLink interface {
	Establish(ctx context.Context) error
}

// StorageCard prepares removable storage.
type StorageCard interface {
	Mount(ctx context.Context) error
}

// Random is a goroutine-safe source shared by the simulated devices.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds a source. Seed 0 picks a random seed.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a value in [0, n).
func (r *Random) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Sensors simulates the I2C sensor bank.
type Sensors struct {
	InitDelay time.Duration
	Rand      *Random
}

func (s *Sensors) Init(ctx context.Context) error {
	if !task.Delay(ctx, s.InitDelay) {
		return ctx.Err()
	}
	return nil
}

func (s *Sensors) Read(ctx context.Context) (message.SensorData, error) {
	if err := ctx.Err(); err != nil {
		return message.SensorData{}, err
	}
	return message.SensorData{
		Temperature: int16(25 + s.Rand.IntN(10)),
		Humidity:    int16(40 + s.Rand.IntN(30)),
		Pressure:    uint16(1000 + s.Rand.IntN(50)),
	}, nil
}

// Network simulates link establishment as a countdown.
type Network struct {
	Steps  int
	Step   time.Duration
	Logger *zap.Logger
}

func (n *Network) Establish(ctx context.Context) error {
	log := n.Logger
	if log == nil {
		log = zap.NewNop()
	}
	for i := n.Steps; i > 0; i-- {
		log.Info("Network connecting...", zap.Int("in", i))
		if !task.Delay(ctx, n.Step) {
			return ctx.Err()
		}
	}
	return nil
}

// Card simulates an SD card that becomes ready after a delay.
type Card struct {
	MountDelay time.Duration
}

func (c *Card) Mount(ctx context.Context) error {
	if !task.Delay(ctx, c.MountDelay) {
		return ctx.Err()
	}
	return nil
}

// Heap reports free heap and the lowest value seen so far, the figures
// the system monitor prints.
type Heap struct {
	mu      sync.Mutex
	minFree uint64
	sampled bool
}

func (h *Heap) Stats() (free, minFree uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	free = ms.HeapIdle - ms.HeapReleased

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.sampled || free < h.minFree {
		h.minFree = free
		h.sampled = true
	}
	return free, h.minFree
}
