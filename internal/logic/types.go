// Package logic contains pure business logic for zone demand tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Demand is the debounced demand state of a zone.
// The integer values are what pollers see for the z<N>_demand variables.
type Demand int

const (
	DemandUnknown Demand = 0
	DemandOn      Demand = 1
	DemandOff     Demand = 2
)

func (d Demand) String() string {
	switch d {
	case DemandOn:
		return "ON"
	case DemandOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ZoneConfig identifies a zone and the input line it is sensed on.
type ZoneConfig struct {
	ID   int `yaml:"id"`
	Line int `yaml:"line"`
}

// ZoneState is the per-zone debounce state owned by a Registry.
type ZoneState struct {
	ID      int
	Line    int
	Counter int
	Demand  Demand
}

// ZoneEvent is an immutable record of a zone demand transition.
type ZoneEvent struct {
	ZoneID int
	On     bool
	// Time is in Unix seconds.
	Time int64
}

// NewZoneEvent builds the event for a zone that just moved to demand d.
func NewZoneEvent(zone int, d Demand, now time.Time) ZoneEvent {
	return ZoneEvent{
		ZoneID: zone,
		On:     d == DemandOn,
		Time:   now.Unix(),
	}
}

// Demand returns the demand value recorded by the event.
func (e ZoneEvent) Demand() Demand {
	if e.On {
		return DemandOn
	}
	return DemandOff
}
