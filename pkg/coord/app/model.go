package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/config"
	"github.com/ib-77/rtcoord/pkg/coord/readiness"
	"github.com/ib-77/rtcoord/pkg/coord/task"
)

// registerModel adds the primitives model: a producer/consumer pair, a
// semaphore pair, two counter writers and the two counter readers, plus
// one-shot initializers for each readiness bit.
func (s *System) registerModel() {
	s.add(config.ModelProducer, s.producer)
	s.add(config.ModelConsumer, s.consumer)
	s.add(config.ModelGiver, s.giver)
	s.add(config.ModelTaker, s.taker)
	s.add(config.ModelIncrementer, s.writer(config.ModelIncrementer, 1))
	s.add(config.ModelDecrementer, s.writer(config.ModelDecrementer, -1))
	s.add(config.ModelUnguarded, s.unguardedReader)
	s.add(config.ModelGuarded, s.guardedReader)

	bits := s.cfg.Bits
	s.add(config.ModelNetworkInit, s.initializer("Network connected!", bits.NetworkReady()))
	s.add(config.ModelSensorInit, s.initializer("Sensor ready!", bits.SensorReady()))
	s.add(config.ModelSDCardInit, s.initializer("SD card ready!", bits.StorageReady()))
}

func (s *System) producer(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	t := s.cfg.Tasks[config.ModelProducer]

	data := 0
	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		r := s.Samples.Send(ctx, data, s.cfg.ModelQueue.SendTimeout)
		if missed[int](ctx, log.With(zap.Int("data", data)), zapcore.ErrorLevel, "Failed to send data", r) {
			return
		}
		log.Info("Sending data", zap.Int("data", data))
		data++
	})
	return nil
}

func (s *System) consumer(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	t := s.cfg.Tasks[config.ModelConsumer]

	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		if r := s.Samples.Receive(ctx, s.cfg.ModelQueue.ReceiveTimeout); r.IsSuccess() {
			log.Info("Received data", zap.Int("data", r.Result()))
		}
	})
	return nil
}

func (s *System) giver(ctx context.Context) error {
	t := s.cfg.Tasks[config.ModelGiver]
	task.Loop(ctx, t.Period, t.Jitter, func(context.Context) {
		s.Signal.Give()
	})
	return nil
}

func (s *System) taker(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	t := s.cfg.Tasks[config.ModelTaker]

	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		if s.Signal.Take(ctx, coord.Forever).IsSuccess() {
			log.Info("Semaphore acquired!")
		}
	})
	return nil
}

// writer returns a task that applies delta to the shared counter in one
// read-delay-write critical section per period.
func (s *System) writer(name string, delta int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := task.Logger(ctx, s.logger)
		t := s.cfg.Tasks[name]

		task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
			r := s.Shared.Add(ctx, name, s.cfg.Mutex.WriterTimeout, delta)
			if !missed[int](ctx, log, zapcore.WarnLevel, "Failed to acquire mutex", r) {
				log.Info("Shared counter", zap.Int("value", r.Result()))
			}
		})
		return nil
	}
}

// unguardedReader reads the counter without the mutex. The value can be
// stale or mid-update; this task exists to show that.
func (s *System) unguardedReader(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	t := s.cfg.Tasks[config.ModelUnguarded]

	task.Loop(ctx, t.Period, t.Jitter, func(context.Context) {
		log.Info("Counter read (unguarded)", zap.Int("value", s.Counter.Unchecked()))
	})
	return nil
}

func (s *System) guardedReader(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	t := s.cfg.Tasks[config.ModelGuarded]

	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		r := s.Shared.Read(ctx, config.ModelGuarded, s.cfg.Mutex.ReaderTimeout)
		if !missed[int](ctx, log, zapcore.WarnLevel, "Failed to acquire mutex", r) {
			log.Info("Counter read (guarded)", zap.Int("value", r.Result()))
		}
	})
	return nil
}

// initializer returns a one-shot task that waits out its configured period,
// sets its bit and exits.
func (s *System) initializer(ready string, bit readiness.Bits) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		info, _ := task.FromContext(ctx)
		delay := time.Duration(0)
		if t, ok := s.cfg.Tasks[info.Name]; ok {
			delay = t.Period
		}

		if !task.Delay(ctx, delay) {
			return nil
		}
		task.Logger(ctx, s.logger).Info(ready, zap.Stringer("bits", s.Events.Set(bit)))
		return nil
	}
}
