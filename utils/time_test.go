package utils

import "testing"

func TestMinutesToGMT_NilYieldsNil(t *testing.T) {
	if got := MinutesToGMT(nil); got != nil {
		t.Fatalf("MinutesToGMT(nil): got %v, want nil", *got)
	}
}

func TestMinutesToGMT_Zero(t *testing.T) {
	zero := 0
	got := MinutesToGMT(&zero)
	if got == nil || *got != "GMT+0" {
		t.Fatalf("MinutesToGMT(0): got %v, want GMT+0", got)
	}
}

func TestMinutesToGMT_NegativeFloorsTowardNegativeInfinity(t *testing.T) {
	minutes := -330
	got := MinutesToGMT(&minutes)
	if got == nil || *got != "GMT-6" {
		t.Fatalf("MinutesToGMT(-330): got %v, want GMT-6 (floor division, matching Python's //)", got)
	}
}

func TestMinutesToGMT_PositiveNonMultipleOf60(t *testing.T) {
	minutes := 330
	got := MinutesToGMT(&minutes)
	if got == nil || *got != "GMT+5" {
		t.Fatalf("MinutesToGMT(330): got %v, want GMT+5", got)
	}
}

func TestMinutesToGMT_ExactNegativeMultiple(t *testing.T) {
	minutes := -300
	got := MinutesToGMT(&minutes)
	if got == nil || *got != "GMT-5" {
		t.Fatalf("MinutesToGMT(-300): got %v, want GMT-5", got)
	}
}

func TestEpochToLocal_ZeroYieldsNotOK(t *testing.T) {
	if _, ok := EpochToLocal(0); ok {
		t.Fatal("EpochToLocal(0) should not be ok")
	}
}

func TestEpochToLocal_NegativeYieldsNotOK(t *testing.T) {
	if _, ok := EpochToLocal(-1); ok {
		t.Fatal("EpochToLocal(negative) should not be ok")
	}
}

func TestEpochToLocal_BeyondMaxReasonableYieldsNotOK(t *testing.T) {
	if _, ok := EpochToLocal(maxReasonableEpoch + 1); ok {
		t.Fatal("EpochToLocal(>32_503_680_000) should not be ok")
	}
}

func TestEpochToLocal_AtMaxReasonableIsOK(t *testing.T) {
	if _, ok := EpochToLocal(maxReasonableEpoch); !ok {
		t.Fatal("EpochToLocal(32_503_680_000) should be ok, the boundary is inclusive")
	}
}

func TestEpochToLocal_OrdinaryTimestampIsOK(t *testing.T) {
	tm, ok := EpochToLocal(1_700_000_000)
	if !ok {
		t.Fatal("EpochToLocal(1_700_000_000) should be ok")
	}
	if tm.Unix() != 1_700_000_000 {
		t.Fatalf("round trip: got unix %d, want 1700000000", tm.Unix())
	}
}
