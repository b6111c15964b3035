package message

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind uint8

const (
	KindSensorData Kind = iota
	KindNetworkCommand
	KindSystemEvent
	KindUserInput
)

// kindUnknown is reported for messages whose payload is missing or not one
// of the payload value types.
const kindUnknown = Kind(^uint8(0))

func (k Kind) String() string {
	switch k {
	case KindSensorData:
		return "sensor-data"
	case KindNetworkCommand:
		return "network-command"
	case KindSystemEvent:
		return "system-event"
	case KindUserInput:
		return "user-input"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Payload is implemented only by the payload types of this package, so a
// Message can never carry a payload that disagrees with its kind.
type Payload interface {
	Kind() Kind
	payload()
}

type SensorData struct {
	Temperature int16
	Humidity    int16
	Pressure    uint16
}

type NetworkCommand struct {
	Command   uint8
	Parameter uint8
}

// SystemEvent carries an event id and an opaque reference owned by the
// receiver once the message is delivered.
type SystemEvent struct {
	EventID uint32
	Data    any
}

type UserInput struct {
	Code uint16
}

func (SensorData) Kind() Kind     { return KindSensorData }
func (NetworkCommand) Kind() Kind { return KindNetworkCommand }
func (SystemEvent) Kind() Kind    { return KindSystemEvent }
func (UserInput) Kind() Kind      { return KindUserInput }

func (SensorData) payload()     {}
func (NetworkCommand) payload() {}
func (SystemEvent) payload()    {}
func (UserInput) payload()      {}

// Message is a value type. Copies share nothing except SystemEvent.Data.
// Timestamp is in milliseconds since the clock epoch.
type Message struct {
	ID        uuid.UUID
	Timestamp uint64
	Payload   Payload
}

func New(timestamp uint64, p Payload) Message {
	return Message{
		ID:        uuid.New(),
		Timestamp: timestamp,
		Payload:   p,
	}
}

// Kind returns the discriminant of the payload. A message without payload,
// or with a pointer to a payload type, reports an out-of-range kind so
// dispatchers treat it as unknown.
func (m Message) Kind() Kind {
	switch m.Payload.(type) {
	case SensorData, NetworkCommand, SystemEvent, UserInput:
		return m.Payload.Kind()
	default:
		return kindUnknown
	}
}

func (m Message) String() string {
	return fmt.Sprintf("%s@%dms %+v", m.Kind(), m.Timestamp, m.Payload)
}

// Clock hands out millisecond timestamps relative to its epoch. Values
// never decrease, even across goroutines.
type Clock struct {
	mu    sync.Mutex
	epoch time.Time
	last  uint64
	now   func() time.Time
}

func NewClock() *Clock {
	return NewClockAt(time.Now(), time.Now)
}

func NewClockAt(epoch time.Time, now func() time.Time) *Clock {
	return &Clock{epoch: epoch, now: now}
}

func (c *Clock) Millis() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().Sub(c.epoch).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	ts := uint64(ms)
	if ts < c.last {
		ts = c.last
	}
	c.last = ts
	return ts
}
