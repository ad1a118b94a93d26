package mqtt

import (
	"github.com/sweeney/heatmon/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains all zone events that were published.
	Events []logic.ZoneEvent

	// Payloads contains the payloads of published zone events.
	Payloads [][]byte

	// Heartbeats contains the published heartbeat counters.
	Heartbeats []uint64

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishEvent.
	PublishError error

	// HeartbeatError, if set, will be returned by PublishHeartbeat.
	HeartbeatError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishEvent records the zone event.
func (f *FakePublisher) PublishEvent(event logic.ZoneEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, FormatEventPayload(event))
	return nil
}

// PublishHeartbeat records the heartbeat counter.
func (f *FakePublisher) PublishHeartbeat(n uint64) error {
	if f.HeartbeatError != nil {
		return f.HeartbeatError
	}

	f.Heartbeats = append(f.Heartbeats, n)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Payloads = nil
	f.Heartbeats = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.HeartbeatError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
