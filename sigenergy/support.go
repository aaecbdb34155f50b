package sigenergy

import "math"

// unitBounds gives the absolute plausibility range for a unit hint. The
// bounds are deliberately loose: their job is to reject sentinel garbage
// read from an address range the device doesn't implement, not to validate
// user-observable state.
func unitBounds(u UnitHint) (lo, hi float64, ok bool) {
	switch u {
	case UnitVolt:
		return 0, 1000, true
	case UnitAmpere:
		return 0, 1000, true
	case UnitWatt, UnitKilowatt:
		return 0, 100, true
	case UnitWattHour, UnitKilowattHour:
		return 0, 100000, true
	case UnitTemperature:
		return -50, 100, true
	case UnitPercent:
		return 0, 120, true
	default:
		return 0, 0, false
	}
}

// isPlausible judges a decoded numeric value against the unit hint's bounds.
// Registers with no unit hint accept any finite value.
func isPlausible(u UnitHint, value float64) bool {
	lo, hi, bounded := unitBounds(u)
	if !bounded {
		return !math.IsNaN(value) && !math.IsInf(value, 0)
	}
	return value >= lo && value <= hi
}

// readOutcome is the raw result of one probe or read exchange, before the
// support validator judges it.
type readOutcome struct {
	registers  []uint16
	stringData []byte
	modbusErr  error
	noData     bool
}

// validateSupport applies §4.4.1: a register is supported iff the exchange
// succeeded, and (for STRING) at least one byte was non-zero, and (for
// numeric) the decoded value is plausible for its unit hint.
func validateSupport(desc RegisterDescriptor, outcome readOutcome, decoded any) bool {
	if outcome.modbusErr != nil || outcome.noData {
		return false
	}
	if desc.DataType == STRING {
		s, _ := decoded.(string)
		return s != ""
	}
	v, ok := decoded.(float64)
	if !ok {
		return false
	}
	return isPlausible(desc.Unit, v)
}
