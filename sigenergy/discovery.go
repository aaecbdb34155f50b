package sigenergy

import (
	"net"
	"strconv"
	"time"

	"github.com/goburrow/modbus"
)

// probeTimeout is the short per-fingerprint-read timeout used during
// discovery (§4.10, §5): identification must resolve quickly even against an
// unreachable host.
const probeTimeout = 1 * time.Second

// Identification is the classification discovery assigns to a candidate
// endpoint.
type Identification string

const (
	IdentInverterWithDC Identification = "inverter_with_dc"
	IdentInverter        Identification = "inverter"
	IdentACCharger       Identification = "ac_charger"
	IdentUnknown         Identification = "unknown"
)

// Identify probes a candidate endpoint's fingerprint registers in the exact
// order required by §4.10: DC-charger current (31501), then inverter
// running state (30578), then AC-charger system state (32000). The first
// successful read wins; all three failing yields IdentUnknown.
func Identify(host string, port int, unitID byte) Identification {
	handler := modbus.NewTCPClientHandler(net.JoinHostPort(host, strconv.Itoa(port)))
	handler.Timeout = probeTimeout
	handler.SlaveId = unitID
	if err := handler.Connect(); err != nil {
		return IdentUnknown
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	if _, err := client.ReadInputRegisters(RegDCChargerFingerprint, 1); err == nil {
		return IdentInverterWithDC
	}
	if _, err := client.ReadInputRegisters(RegInverterFingerprint, 1); err == nil {
		return IdentInverter
	}
	if _, err := client.ReadInputRegisters(RegACChargerFingerprint, 1); err == nil {
		return IdentACCharger
	}
	return IdentUnknown
}
