package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/config"
	"github.com/ib-77/rtcoord/pkg/coord/dispatch"
	"github.com/ib-77/rtcoord/pkg/coord/message"
	"github.com/ib-77/rtcoord/pkg/coord/readiness"
	"github.com/ib-77/rtcoord/pkg/coord/task"
)

// EventStorageMounted is the SystemEvent id sent once the card is ready.
const EventStorageMounted uint32 = 1

func (s *System) registerFirmware() {
	s.Dispatcher.Handle(message.KindSensorData, s.processSensorData)
	s.Dispatcher.Handle(message.KindNetworkCommand, s.processNetworkCommand)
	s.Dispatcher.Handle(message.KindSystemEvent, s.processSystemEvent)

	s.add(config.SystemMonitor, s.systemMonitor)
	s.add(config.DataProcessor, s.dataProcessor)
	s.add(config.SensorReader, s.sensorReader)
	s.add(config.NetworkManager, s.networkManager)
	s.add(config.StorageInit, s.storageInit)
}

// systemMonitor waits for network and sensor, consuming those bits, then
// gives storage one period to join before reporting heap usage forever.
func (s *System) systemMonitor(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	log.Info("System monitor task started")

	bits := s.cfg.Bits
	period := s.cfg.Tasks[config.SystemMonitor].Period
	for {
		r := s.Events.Wait(ctx, bits.SystemReady(),
			readiness.WaitOptions{MatchAll: true, ClearOnExit: true}, coord.Forever)
		if !r.IsSuccess() {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if !readiness.Has(r.Result(), bits.SystemReady()) {
			continue
		}
		log.Info("System fully ready! Starting normal operation", zap.Stringer("bits", r.Result()))

		if st := s.Events.WaitAny(ctx, bits.StorageReady(), period); st.IsSuccess() {
			log.Info("Storage ready", zap.Stringer("bits", st.Result()))
		} else if ctx.Err() == nil {
			log.Warn("Storage not ready, continuing without it", zap.Stringer("bits", st.Result()))
		}

		task.Loop(ctx, period, s.cfg.Tasks[config.SystemMonitor].Jitter, func(ctx context.Context) {
			free, minFree := s.devs.Heap.Stats()
			log.Info("Heap",
				zap.Uint64("free", free),
				zap.Uint64("min_free", minFree),
				zap.Stringer("bits", s.Events.Get()),
				zap.Int("queued", s.Data.Len()))
			t := s.Traffic()
			log.Info("Data queue",
				zap.Uint64("enqueued", t.Enqueued),
				zap.Uint64("dequeued", t.Dequeued),
				zap.Int("high_water", t.HighWater),
				zap.Uint64("fulls", t.Fulls))
		})
		return nil
	}
}

func (s *System) dataProcessor(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	log.Info("Data processor task started")

	dispatch.Locomotive(ctx, s.Data, s.Dispatcher, dispatch.Options{
		Owner:          config.DataProcessor,
		ReceiveTimeout: s.cfg.Queue.ReceiveTimeout,
		Mutex:          s.Bus,
		MutexTimeout:   s.cfg.Mutex.ProcessorTimeout,
	}, dispatch.Handlers{}, log, nil)
	return nil
}

func (s *System) processSensorData(ctx context.Context, m message.Message) {
	d, ok := m.Payload.(message.SensorData)
	if !ok {
		s.mismatch(ctx, m)
		return
	}
	task.Logger(ctx, s.logger).Info("Processing sensor data",
		zap.Int16("temp", d.Temperature),
		zap.Int16("hum", d.Humidity),
		zap.Uint16("pressure", d.Pressure),
		zap.Uint64("timestamp", m.Timestamp))
}

func (s *System) processNetworkCommand(ctx context.Context, m message.Message) {
	c, ok := m.Payload.(message.NetworkCommand)
	if !ok {
		s.mismatch(ctx, m)
		return
	}
	task.Logger(ctx, s.logger).Info("Processing network command",
		zap.Uint8("cmd", c.Command),
		zap.Uint8("param", c.Parameter),
		zap.Uint64("timestamp", m.Timestamp))
}

func (s *System) processSystemEvent(ctx context.Context, m message.Message) {
	e, ok := m.Payload.(message.SystemEvent)
	if !ok {
		s.mismatch(ctx, m)
		return
	}
	task.Logger(ctx, s.logger).Info("Processing system event",
		zap.Uint32("event", e.EventID),
		zap.Any("data", e.Data),
		zap.Uint64("timestamp", m.Timestamp))
}

// mismatch drops a message whose payload is not the value type its handler
// expects.
func (s *System) mismatch(ctx context.Context, m message.Message) {
	task.Logger(ctx, s.logger).Warn("Unknown message type",
		zap.Stringer("type", m.Kind()),
		zap.String("payload", fmt.Sprintf("%T", m.Payload)),
		zap.Uint64("timestamp", m.Timestamp))
}

func (s *System) sensorReader(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	log.Info("Sensor reader task started")

	if err := s.devs.Sensors.Init(ctx); err != nil {
		return initFailed(ctx, log, "Sensor initialization failed", err)
	}
	log.Info("Sensors initialized")
	s.Events.Set(s.cfg.Bits.SensorReady())

	t := s.cfg.Tasks[config.SensorReader]
	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		err := s.Bus.WithLock(ctx, config.SensorReader, s.cfg.Mutex.SensorTimeout, func() {
			data, err := s.devs.Sensors.Read(ctx)
			if err != nil {
				log.Error("Failed to read sensors", zap.Error(err))
				return
			}
			s.send(ctx, log, message.New(s.Clock.Millis(), data), "Failed to send sensor data to queue")
		})
		if err != nil && ctx.Err() == nil {
			log.Warn("Failed to acquire bus mutex", zap.Error(err))
		}
	})
	return nil
}

func (s *System) networkManager(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)
	log.Info("Network manager task started")

	if err := s.devs.Network.Establish(ctx); err != nil {
		return initFailed(ctx, log, "Network connection failed", err)
	}
	log.Info("Network connected!")
	s.Events.Set(s.cfg.Bits.NetworkReady())

	var counter uint8
	t := s.cfg.Tasks[config.NetworkManager]
	task.Loop(ctx, t.Period, t.Jitter, func(ctx context.Context) {
		cmd := message.NetworkCommand{
			Command:   counter,
			Parameter: uint8(s.devs.Rand.IntN(100)),
		}
		counter++
		s.send(ctx, log, message.New(s.Clock.Millis(), cmd), "Failed to send network command to queue")
	})
	return nil
}

// storageInit mounts the card, raises the storage bit and announces it on
// the data queue. It runs once.
func (s *System) storageInit(ctx context.Context) error {
	log := task.Logger(ctx, s.logger)

	if err := s.devs.Storage.Mount(ctx); err != nil {
		return initFailed(ctx, log, "SD card mount failed", err)
	}
	log.Info("SD card ready!")
	s.Events.Set(s.cfg.Bits.StorageReady())

	ev := message.SystemEvent{EventID: EventStorageMounted, Data: "sdcard"}
	s.send(ctx, log, message.New(s.Clock.Millis(), ev), "Failed to send storage event to queue")
	return nil
}

// initFailed ends a task whose device did not come up. Stopping during
// initialization is not a failure.
func initFailed(ctx context.Context, log *zap.Logger, msg string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	log.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}

// send is best effort: a message that does not fit within the send
// timeout is logged and lost.
func (s *System) send(ctx context.Context, log *zap.Logger, m message.Message, failure string) {
	r := s.Data.Send(ctx, m, s.cfg.Queue.SendTimeout)
	missed[message.Message](ctx, log.With(zap.Stringer("type", m.Kind())), zapcore.ErrorLevel, failure, r)
}
