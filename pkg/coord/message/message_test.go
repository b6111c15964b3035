package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKind_DerivedFromPayload(t *testing.T) {
	cases := []struct {
		payload Payload
		kind    Kind
		name    string
	}{
		{SensorData{Temperature: 25, Humidity: 40, Pressure: 1000}, KindSensorData, "sensor-data"},
		{NetworkCommand{Command: 1, Parameter: 99}, KindNetworkCommand, "network-command"},
		{SystemEvent{EventID: 7}, KindSystemEvent, "system-event"},
		{UserInput{Code: 3}, KindUserInput, "user-input"},
	}
	for _, c := range cases {
		m := New(10, c.payload)
		assert.Equal(t, c.kind, m.Kind())
		assert.Equal(t, c.name, m.Kind().String())
	}
}

func TestMessage_EmptyPayloadIsUnknown(t *testing.T) {
	var m Message
	assert.Equal(t, "kind(255)", m.Kind().String())
}

func TestMessage_PointerPayloadIsUnknown(t *testing.T) {
	m := New(1, &SensorData{Temperature: 1})
	assert.Equal(t, "kind(255)", m.Kind().String())

	m = New(2, &SystemEvent{EventID: 1})
	assert.NotEqual(t, KindSystemEvent, m.Kind())
}

func TestMessage_ValueCopy(t *testing.T) {
	m := New(1, SensorData{Temperature: 20})
	sent := m
	m.Payload = SensorData{Temperature: 30}

	assert.Equal(t, int16(20), sent.Payload.(SensorData).Temperature)
	assert.Equal(t, m.ID, sent.ID)
}

func TestClock_NeverDecreases(t *testing.T) {
	epoch := time.Unix(0, 0)
	ticks := []time.Duration{5 * time.Millisecond, 12 * time.Millisecond, 3 * time.Millisecond, -time.Second}
	i := 0
	c := NewClockAt(epoch, func() time.Time {
		d := ticks[i]
		i++
		return epoch.Add(d)
	})

	assert.Equal(t, uint64(5), c.Millis())
	assert.Equal(t, uint64(12), c.Millis())
	assert.Equal(t, uint64(12), c.Millis())
	assert.Equal(t, uint64(12), c.Millis())
}

func TestClock_PastUint32Range(t *testing.T) {
	epoch := time.Unix(0, 0)
	now := epoch.Add((1<<32 - 5) * time.Millisecond)
	c := NewClockAt(epoch, func() time.Time { return now })

	before := c.Millis()
	assert.Equal(t, uint64(1<<32-5), before)

	now = now.Add(10 * time.Millisecond)
	assert.Equal(t, uint64(1<<32+5), c.Millis())

	now = now.Add(time.Hour)
	assert.Equal(t, uint64(1<<32+5)+uint64(time.Hour/time.Millisecond), c.Millis())
}
