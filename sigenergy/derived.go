package sigenergy

import "log"

// asFloat reports whether v is a numeric snapshot value and its float64
// form. Snapshot values are int64, float64, string, time.Time, or nil (§3);
// only the numeric cases satisfy a derived-value input.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// GridImportKW is max(0, grid_active_power); returns nil if the input is
// missing or non-numeric.
func GridImportKW(plant map[string]any) any {
	v, ok := asFloat(plant["grid_active_power"])
	if !ok {
		return nil
	}
	if v < 0 {
		return 0.0
	}
	return v
}

// GridExportKW is max(0, -grid_active_power).
func GridExportKW(plant map[string]any) any {
	v, ok := asFloat(plant["grid_active_power"])
	if !ok {
		return nil
	}
	if v > 0 {
		return 0.0
	}
	return -v
}

// ConsumedKW computes pv_power + grid_import - grid_export - battery_power
// (§4.7). Negative results and results above 50 kW are logged but retained
// rather than clamped.
func ConsumedKW(plant map[string]any, logger *log.Logger) any {
	pv, pvOK := asFloat(plant["pv_power"])
	battery, batOK := asFloat(plant["battery_power"])
	if !pvOK || !batOK {
		return nil
	}
	gi := GridImportKW(plant)
	ge := GridExportKW(plant)
	giVal, giOK := asFloat(gi)
	geVal, geOK := asFloat(ge)
	if !giOK || !geOK {
		return nil
	}

	consumed := pv + giVal - geVal - battery
	if logger != nil {
		if consumed < 0 {
			logger.Printf("derived: consumed_kw is negative (%.3f kW)", consumed)
		}
		if consumed > 50 {
			logger.Printf("derived: consumed_kw exceeds 50 kW (%.3f kW)", consumed)
		}
	}
	return consumed
}

// PVStringPowerKW computes (voltage * current) / 1000 for PV string i of an
// inverter's register map. Any missing input yields nil; a magnitude above
// 20000 W is logged but retained.
func PVStringPowerKW(inv map[string]any, voltageKey, currentKey string, logger *log.Logger) any {
	voltage, vOK := asFloat(inv[voltageKey])
	current, cOK := asFloat(inv[currentKey])
	if !vOK || !cOK {
		return nil
	}
	watts := voltage * current
	if logger != nil && (watts > 20000 || watts < -20000) {
		logger.Printf("derived: pv string power exceeds 20000 W (%.1f W) for %s/%s", watts, voltageKey, currentKey)
	}
	return watts / 1000
}
