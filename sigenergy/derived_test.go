package sigenergy

import "testing"

func TestGridImportExport_MutuallyExclusive(t *testing.T) {
	cases := []float64{-5, 0, 5, 1500.25}
	for _, gridActive := range cases {
		plant := map[string]any{"grid_active_power": gridActive}
		imp := GridImportKW(plant).(float64)
		exp := GridExportKW(plant).(float64)
		if imp < 0 || exp < 0 {
			t.Fatalf("grid_active_power=%v: import=%v export=%v must both be >= 0", gridActive, imp, exp)
		}
		if imp*exp != 0 {
			t.Fatalf("grid_active_power=%v: import=%v export=%v must have a zero product", gridActive, imp, exp)
		}
	}
}

func TestConsumedKW_E2Scenario(t *testing.T) {
	plant := map[string]any{
		"pv_power":          4.0,
		"grid_active_power": -1.5,
		"battery_power":     0.5,
	}
	imp := GridImportKW(plant)
	exp := GridExportKW(plant)
	if imp != 0.0 {
		t.Fatalf("grid_import_kw: got %v, want 0", imp)
	}
	if exp != 1.5 {
		t.Fatalf("grid_export_kw: got %v, want 1.5", exp)
	}
	consumed := ConsumedKW(plant, nil)
	if consumed != 2.0 {
		t.Fatalf("consumed_kw: got %v, want 2.0", consumed)
	}
}

func TestConsumedKW_MissingInputYieldsNil(t *testing.T) {
	plant := map[string]any{"pv_power": 1.0}
	if ConsumedKW(plant, nil) != nil {
		t.Fatal("consumed_kw with missing battery_power should be nil")
	}
}

func TestPVStringPowerKW(t *testing.T) {
	inv := map[string]any{"pv1_voltage": 400.0, "pv1_current": 5.0}
	got := PVStringPowerKW(inv, "pv1_voltage", "pv1_current", nil)
	if got != 2.0 {
		t.Fatalf("pv1_power_kw: got %v, want 2.0", got)
	}
}

func TestPVStringPowerKW_MissingInputYieldsNil(t *testing.T) {
	inv := map[string]any{"pv1_voltage": 400.0}
	if PVStringPowerKW(inv, "pv1_voltage", "pv1_current", nil) != nil {
		t.Fatal("pv1_power_kw with missing current should be nil")
	}
}
