package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSensors_ReadingsInRange(t *testing.T) {
	s := &Sensors{Rand: NewRandom(42)}
	require.NoError(t, s.Init(context.Background()))

	for range 200 {
		d, err := s.Read(context.Background())
		require.NoError(t, err)
		assert.True(t, d.Temperature >= 25 && d.Temperature < 35, "temperature %d", d.Temperature)
		assert.True(t, d.Humidity >= 40 && d.Humidity < 70, "humidity %d", d.Humidity)
		assert.True(t, d.Pressure >= 1000 && d.Pressure < 1050, "pressure %d", d.Pressure)
	}
}

func TestSensors_SameSeedSameReadings(t *testing.T) {
	a := &Sensors{Rand: NewRandom(7)}
	b := &Sensors{Rand: NewRandom(7)}
	for range 10 {
		x, _ := a.Read(context.Background())
		y, _ := b.Read(context.Background())
		assert.Equal(t, x, y)
	}
}

func TestNetwork_Countdown(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := &Network{Steps: 3, Step: time.Millisecond, Logger: zap.New(core)}

	require.NoError(t, n.Establish(context.Background()))
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.EqualValues(t, 3, entries[0].ContextMap()["in"])
	assert.EqualValues(t, 1, entries[2].ContextMap()["in"])
}

func TestCollaborators_StopWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, (&Card{MountDelay: time.Hour}).Mount(ctx))
	assert.Error(t, (&Sensors{InitDelay: time.Hour}).Init(ctx))
	assert.Error(t, (&Network{Steps: 1, Step: time.Hour}).Establish(ctx))
}

func TestHeap_MinNeverAboveFree(t *testing.T) {
	var h Heap
	free, minFree := h.Stats()
	assert.LessOrEqual(t, minFree, free)
	_, minAgain := h.Stats()
	assert.LessOrEqual(t, minAgain, minFree)
}
