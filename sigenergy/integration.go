package sigenergy

import (
	"math"
	"time"
)

// IntegratorPhase is the state machine driving one Integrator (§4.8):
// new -> bootstrapped -> accumulating <-> reset_pending -> accumulating.
type IntegratorPhase int

const (
	PhaseNew IntegratorPhase = iota
	PhaseBootstrapped
	PhaseAccumulating
	PhaseResetPending
)

// ResetPolicy selects when an Integrator's total resets to zero.
type ResetPolicy int

const (
	ResetNever ResetPolicy = iota
	ResetDailyLocalMidnight
)

// Integrator computes trapezoidal-rule time integration of a power reading
// into an energy total, with daily reset and state restoration. One
// Integrator exists per derived-energy sensor; the Integration Engine
// exclusively owns it (§3).
type Integrator struct {
	SourceSensorKey string
	Policy          ResetPolicy
	RoundDigits     int
	MaxGap          time.Duration

	Phase IntegratorPhase

	totalKWh        float64
	lastSampleValue *float64
	lastSampleTime  *time.Time
	lastResetDay    string // YYYY-MM-DD in local time, empty if never reset
}

// NewIntegrator constructs a fresh, unrestored Integrator in phase new.
func NewIntegrator(sourceSensorKey string, policy ResetPolicy, roundDigits int, maxGap time.Duration) *Integrator {
	return &Integrator{
		SourceSensorKey: sourceSensorKey,
		Policy:          policy,
		RoundDigits:     roundDigits,
		MaxGap:          maxGap,
		Phase:           PhaseNew,
	}
}

// Restore applies persisted state at construction time (§4.8 restore-on-
// start). A malformed (negative or non-finite) persisted total resets to
// zero. last_sample_value is always cleared so the next tick bootstraps
// afresh; last_sample_time is set to now so a stale persisted timestamp
// never produces a huge synthetic Δt.
func (i *Integrator) Restore(persistedKWh float64, lastResetAt time.Time, now time.Time) {
	if math.IsNaN(persistedKWh) || math.IsInf(persistedKWh, 0) || persistedKWh < 0 {
		i.totalKWh = 0
	} else {
		i.totalKWh = persistedKWh
	}
	i.lastSampleValue = nil
	i.lastSampleTime = &now

	if i.Policy == ResetDailyLocalMidnight && !lastResetAt.IsZero() {
		i.lastResetDay = lastResetAt.Local().Format("2006-01-02")
		// Missed-reset recovery: if the persisted reset predates today, a
		// reset is synthesized immediately, before the first sample.
		if i.lastResetDay != now.Local().Format("2006-01-02") {
			i.totalKWh = 0
			i.lastResetDay = now.Local().Format("2006-01-02")
		}
	}
	i.Phase = PhaseBootstrapped
}

// Step performs one integration update (§4.8 steps 1-7). valueKW is the
// source sensor's latest value in kilowatts, or nil/non-numeric to skip the
// step entirely (transient read failure or unsupported register).
func (i *Integrator) Step(valueKW any, tickTime time.Time) (emitted float64, ok bool) {
	v, numeric := asFloat(valueKW)
	if !numeric {
		return 0, false
	}
	vNewWatts := v * 1000

	if i.lastSampleTime == nil || i.lastSampleValue == nil {
		i.lastSampleValue = &vNewWatts
		i.lastSampleTime = &tickTime
		i.Phase = PhaseBootstrapped
		return i.rounded(), true
	}

	delta := tickTime.Sub(*i.lastSampleTime)
	if delta <= 0 {
		i.lastSampleValue = &vNewWatts
		i.lastSampleTime = &tickTime
		return i.rounded(), true
	}

	areaWattSeconds := delta.Seconds() * (*i.lastSampleValue + vNewWatts) / 2
	i.totalKWh += areaWattSeconds / 3_600_000
	i.lastSampleValue = &vNewWatts
	i.lastSampleTime = &tickTime
	i.Phase = PhaseAccumulating
	return i.rounded(), true
}

func (i *Integrator) rounded() float64 {
	mult := math.Pow(10, float64(i.RoundDigits))
	return math.Round(i.totalKWh*mult) / mult
}

// ResetIfMidnight fires the daily reset when `now` has crossed into a new
// local day since the last reset. total_kwh is zeroed; last_sample_* is left
// untouched so the next integration step integrates continuously across the
// boundary (§4.8).
func (i *Integrator) ResetIfMidnight(now time.Time) {
	if i.Policy != ResetDailyLocalMidnight {
		return
	}
	today := now.Local().Format("2006-01-02")
	if i.lastResetDay == today {
		return
	}
	i.Phase = PhaseResetPending
	i.totalKWh = 0
	i.lastResetDay = today
	i.Phase = PhaseAccumulating
}

// TotalKWh returns the current rounded total.
func (i *Integrator) TotalKWh() float64 {
	return i.rounded()
}
