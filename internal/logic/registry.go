package logic

import (
	"fmt"
	"sort"
	"time"
)

// Registry is the fixed, ordered set of monitored zones.
type Registry struct {
	hyst  Hysteresis
	zones []ZoneState
}

// NewRegistry creates a registry for the given zones. Zones are kept in
// ascending ID order; IDs must be unique and the set must not be empty.
func NewRegistry(zones []ZoneConfig, hyst Hysteresis) (*Registry, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("registry: no zones configured")
	}
	if err := hyst.Validate(); err != nil {
		return nil, err
	}

	states := make([]ZoneState, 0, len(zones))
	seen := make(map[int]bool, len(zones))
	for _, z := range zones {
		if seen[z.ID] {
			return nil, fmt.Errorf("registry: duplicate zone id %d", z.ID)
		}
		seen[z.ID] = true
		states = append(states, ZoneState{
			ID:      z.ID,
			Line:    z.Line,
			Counter: hyst.Initial,
			Demand:  DemandUnknown,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })

	return &Registry{hyst: hyst, zones: states}, nil
}

// Tick samples every zone once, in ascending ID order, and returns an event
// for each zone whose demand changed. sample reports whether the zone's line
// is logically active.
func (r *Registry) Tick(sample func(ZoneState) bool, now time.Time) []ZoneEvent {
	var events []ZoneEvent
	for i := range r.zones {
		z := &r.zones[i]
		prev := z.Demand
		z.Counter, z.Demand = r.hyst.Step(z.Counter, sample(*z), prev)

		if z.Demand != prev {
			events = append(events, NewZoneEvent(z.ID, z.Demand, now))
		}
	}
	return events
}

// Zones returns a copy of the current zone states.
func (r *Registry) Zones() []ZoneState {
	out := make([]ZoneState, len(r.zones))
	copy(out, r.zones)
	return out
}

// Len returns the number of zones.
func (r *Registry) Len() int {
	return len(r.zones)
}
