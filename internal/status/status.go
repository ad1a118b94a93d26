// Package status provides a thread-safe status tracker for the heatmon daemon.
// It holds everything pollers may read: HTTP handlers, the variable exporter
// and MQTT system events all work from a Snapshot.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/heatmon/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	HeartbeatMs     int64
	SyncMs          int64
	Broker          string
	TopicPrefix     string
	HTTPAddr        string
	HistoryCapacity int
	BufferSize      int
}

// State is the part of the snapshot produced by the monitor on each tick.
// It is replaced as a whole, so readers see either the previous or the
// next tick, never a mix.
type State struct {
	Zones      []logic.ZoneState
	Events     string // encoded event history
	EventCount int    // events held in the log
	Encoded    int    // events present in Events
	Polls      logic.Counter
	LastPoll   time.Time
	LastEvent  time.Time
	LastSync   time.Time
	Heartbeats uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released. Zones is
// shared with the tracker and must not be modified.
type Snapshot struct {
	State
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every zone has settled on a known demand.
func (s Snapshot) Ready() bool {
	if len(s.Zones) == 0 {
		return false
	}
	for _, z := range s.Zones {
		if z.Demand == logic.DemandUnknown {
			return false
		}
	}
	return true
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     State{Events: "[]"},
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the monitor state. Called from the poll task after the
// tick has fully completed.
func (t *Tracker) Update(st State) {
	t.mu.Lock()
	t.snap.State = st
	t.mu.Unlock()
}

// UpdateWithMQTT replaces the monitor state and the MQTT connection status
// together, so no reader sees one without the other.
func (t *Tracker) UpdateWithMQTT(st State, connected bool) {
	t.mu.Lock()
	t.snap.State = st
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
