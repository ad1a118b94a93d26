package status

import (
	"fmt"
	"strconv"
	"time"
)

// Variable is a single named value exposed to pollers.
type Variable struct {
	Name  string
	Value any
}

// Variable names shared by every zone-independent value.
const (
	VarZoneEvents = "zone_events"
	VarPolls      = "polls"
	VarLastPoll   = "last_poll"
	VarLastEvent  = "last_event"
)

// DemandVar returns the variable name holding a zone's demand.
func DemandVar(zone int) string {
	return fmt.Sprintf("z%d_demand", zone)
}

// CountVar returns the variable name holding a zone's hysteresis counter.
func CountVar(zone int) string {
	return fmt.Sprintf("z%d_count", zone)
}

// Variables returns the exposed variables in a stable order: per-zone
// demand and counter, then history, poll count and timestamps.
func Variables(snap Snapshot) []Variable {
	vars := make([]Variable, 0, 2*len(snap.Zones)+4)
	for _, z := range snap.Zones {
		vars = append(vars,
			Variable{Name: DemandVar(z.ID), Value: int(z.Demand)},
			Variable{Name: CountVar(z.ID), Value: z.Counter},
		)
	}
	return append(vars,
		Variable{Name: VarZoneEvents, Value: snap.Events},
		Variable{Name: VarPolls, Value: int32(snap.Polls)},
		Variable{Name: VarLastPoll, Value: unixOrZero(snap.LastPoll)},
		Variable{Name: VarLastEvent, Value: unixOrZero(snap.LastEvent)},
	)
}

// Lookup finds a variable by name.
func Lookup(snap Snapshot, name string) (Variable, bool) {
	for _, v := range Variables(snap) {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// String renders a variable value as text, as stored by string-only backends.
func (v Variable) String() string {
	switch val := v.Value.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
