package logic

import "fmt"

// Hysteresis holds the parameters of the counter used to debounce a sense line.
//
// The line carries a 60Hz signal while a zone calls for heat and the chance of
// sampling it "high" in that state is low, so a counter that climbs fast on
// active samples and decays slowly on inactive ones gives a stable reading.
type Hysteresis struct {
	Min       int `yaml:"min"`
	Max       int `yaml:"max"`
	ThreshOn  int `yaml:"thresh_on"`
	ThreshOff int `yaml:"thresh_off"`
	StepUp    int `yaml:"step_up"`
	StepDown  int `yaml:"step_down"`
	Initial   int `yaml:"initial"`
}

// DefaultHysteresis returns the tuning that suits a 60Hz sense line sampled every 10ms.
func DefaultHysteresis() Hysteresis {
	return Hysteresis{
		Min:       0,
		Max:       500,
		ThreshOn:  400,
		ThreshOff: 100,
		StepUp:    5,
		StepDown:  1,
		Initial:   250,
	}
}

// Validate reports whether the parameters describe a usable counter.
func (h Hysteresis) Validate() error {
	if h.Min >= h.Max {
		return fmt.Errorf("hysteresis: min %d must be below max %d", h.Min, h.Max)
	}
	if h.ThreshOff > h.ThreshOn {
		return fmt.Errorf("hysteresis: off threshold %d above on threshold %d", h.ThreshOff, h.ThreshOn)
	}
	if h.ThreshOff < h.Min || h.ThreshOn > h.Max {
		return fmt.Errorf("hysteresis: thresholds [%d,%d] outside [%d,%d]", h.ThreshOff, h.ThreshOn, h.Min, h.Max)
	}
	if h.StepUp <= 0 || h.StepDown <= 0 {
		return fmt.Errorf("hysteresis: steps must be positive (up=%d down=%d)", h.StepUp, h.StepDown)
	}
	if h.Initial < h.Min || h.Initial > h.Max {
		return fmt.Errorf("hysteresis: initial %d outside [%d,%d]", h.Initial, h.Min, h.Max)
	}
	return nil
}

// Step applies one sample to a counter and returns the new counter and demand.
// active is the logical line state: true when the zone relay calls for heat.
// Demand only changes when the counter leaves the dead band
// [ThreshOff, ThreshOn]; inside it prev is returned unchanged.
func (h Hysteresis) Step(counter int, active bool, prev Demand) (int, Demand) {
	demand := prev
	if !active {
		counter -= h.StepDown
		if counter < h.Min {
			counter = h.Min
		}
		if counter < h.ThreshOff {
			demand = DemandOff
		}
		return counter, demand
	}

	counter += h.StepUp
	if counter > h.Max {
		counter = h.Max
	}
	if counter > h.ThreshOn {
		demand = DemandOn
	}
	return counter, demand
}
