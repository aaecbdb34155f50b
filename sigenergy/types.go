// Package sigenergy implements the Modbus/TCP device hub, register catalog,
// polling coordinator glue, and derived-value functions for a Sigenergy
// energy-storage plant: one or more inverters, optional AC chargers, and
// optional DC chargers attached to inverters.
package sigenergy

import "time"

// DataType is the wire encoding of a register's value.
type DataType int

const (
	U16 DataType = iota
	S16
	U32
	S32
	U64
	STRING
)

func (d DataType) String() string {
	switch d {
	case U16:
		return "U16"
	case S16:
		return "S16"
	case U32:
		return "U32"
	case S32:
		return "S32"
	case U64:
		return "U64"
	case STRING:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// WordCount returns the number of 16-bit registers the data type occupies.
// STRING registers carry an explicit count in the descriptor instead.
func (d DataType) WordCount() int {
	switch d {
	case U16, S16:
		return 1
	case U32, S32:
		return 2
	case U64:
		return 4
	default:
		return 0
	}
}

// AccessClass is the read/write direction a register supports.
type AccessClass int

const (
	ReadOnly AccessClass = iota
	ReadWrite
	WriteOnly
)

// RegisterKind selects the Modbus function code used to read a register:
// running-info registers are read as input registers, parameters as holding.
type RegisterKind int

const (
	InputRegister RegisterKind = iota
	HoldingRegister
)

// SupportState tracks whether a device has been observed to expose a register.
type SupportState int

const (
	SupportUnknown SupportState = iota
	SupportYes
	SupportNo
)

func (s SupportState) String() string {
	switch s {
	case SupportYes:
		return "yes"
	case SupportNo:
		return "no"
	default:
		return "unknown"
	}
}

// UnitHint classifies a register's physical unit for the support validator's
// plausibility bounds; it carries no conversion semantics of its own.
type UnitHint string

const (
	UnitNone        UnitHint = ""
	UnitVolt        UnitHint = "volt"
	UnitAmpere      UnitHint = "ampere"
	UnitWatt        UnitHint = "watt"
	UnitKilowatt    UnitHint = "kilowatt"
	UnitWattHour    UnitHint = "wh"
	UnitKilowattHour UnitHint = "kwh"
	UnitTemperature UnitHint = "temperature"
	UnitPercent     UnitHint = "percent"
)

// RegisterDescriptor is an immutable catalog entry. Address, Count, DataType,
// Gain, Unit and Access never change after static initialization; only a
// device's observed support state (tracked separately by the hub) changes.
type RegisterDescriptor struct {
	Name     string
	Address  uint16
	Count    uint16
	DataType DataType
	Gain     float64
	Unit     UnitHint
	Access   AccessClass
	Kind     RegisterKind
}

// DeviceKind enumerates the four device roles in a plant.
type DeviceKind int

const (
	DeviceKindPlant DeviceKind = iota
	DeviceKindInverter
	DeviceKindACCharger
	DeviceKindDCCharger
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceKindPlant:
		return "plant"
	case DeviceKindInverter:
		return "inverter"
	case DeviceKindACCharger:
		return "ac_charger"
	case DeviceKindDCCharger:
		return "dc_charger"
	default:
		return "unknown"
	}
}

// Endpoint addresses a Modbus/TCP server. Several DeviceRecords may share one
// Endpoint, e.g. an inverter and its DC charger, or several devices behind a
// single Modbus gateway.
type Endpoint struct {
	Host string
	Port int
}

// PlantUnitID is the reserved unit id for the plant; device unit ids run 1..246.
const (
	PlantUnitID    byte = 247
	MinDeviceUnitID byte = 1
	MaxDeviceUnitID byte = 246
)

// DeviceRecord describes one physical (plant, inverter, AC charger) or
// logical (DC charger) device in the installation.
type DeviceRecord struct {
	Kind         DeviceKind
	LogicalName  string
	Endpoint     Endpoint
	UnitID       byte
	HasDCCharger bool // inverter-only
}

// deviceKey identifies a device for the hub's per-device support map and for
// addressing reads; the plant has no LogicalName so its key is its kind alone.
func (d DeviceRecord) deviceKey() string {
	return DeviceKey(d)
}

// DeviceKey returns the string key used to identify a device for refresh
// requests and support-map lookups.
func DeviceKey(d DeviceRecord) string {
	if d.Kind == DeviceKindPlant {
		return "plant"
	}
	return d.Kind.String() + ":" + d.LogicalName
}

// Snapshot is the coordinator's current, atomically published view of all
// devices. Values are int64, float64, string, time.Time (the plant's
// system_time_local), or nil (nil = read attempted and failed, or the
// register is known unsupported). A Snapshot is immutable
// once published.
// DC-charger registers are merged into the parent inverter's map (§4.5), not
// published as a separate top-level group — DC chargers are not separately
// addressed on the wire.
type Snapshot struct {
	Plant      map[string]any
	Inverters  map[string]map[string]any
	ACChargers map[string]map[string]any
	FetchedAt  time.Time
	Partial    bool
}

// WriteRequest names a control parameter to change.
type WriteRequest struct {
	DeviceKind        DeviceKind
	DeviceLogicalName string // empty for plant
	RegisterName      string
	NewValue          any
}
