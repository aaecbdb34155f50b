package sigenergy

// Static register catalog. Entries never mutate after init; per-device
// observed support lives in the hub's supportMap, not here (§9 design note:
// "keep the catalog immutable").

// Fingerprint registers used by discovery (§4.10) and by probing.
const (
	RegDCChargerFingerprint uint16 = 31501 // DC-charger charging current
	RegInverterFingerprint  uint16 = 30578 // inverter running state block
	RegACChargerFingerprint uint16 = 32000 // AC-charger system state block
)

var plantRunningInfo = []RegisterDescriptor{
	{Name: "system_time", Address: 30000, Count: 2, DataType: U32, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "system_timezone", Address: 30002, Count: 1, DataType: S16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "ems_work_mode", Address: 30003, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "grid_sensor_status", Address: 30004, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "grid_connection_status", Address: 30005, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "running_state", Address: 30006, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "grid_active_power", Address: 30007, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "grid_reactive_power", Address: 30009, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv_power", Address: 30011, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "battery_power", Address: 30013, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "battery_soc", Address: 30015, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
	{Name: "battery_soh", Address: 30016, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
	{Name: "plant_active_power", Address: 30017, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "plant_reactive_power", Address: 30019, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "grid_frequency", Address: 30021, Count: 1, DataType: U16, Gain: 100, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_1", Address: 30022, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_2", Address: 30023, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_3", Address: 30024, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_4", Address: 30025, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "ess_rated_charging_power", Address: 30083, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "ess_rated_discharging_power", Address: 30085, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "ess_rated_capacity", Address: 30087, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowattHour, Kind: InputRegister, Access: ReadOnly},
	{Name: "ess_charge_cutoff_soc", Address: 30089, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
	{Name: "ess_discharge_cutoff_soc", Address: 30090, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
}

var plantParameters = []RegisterDescriptor{
	{Name: "plant_start_stop", Address: 40000, Count: 1, DataType: U16, Gain: 1, Kind: HoldingRegister, Access: WriteOnly},
	{Name: "plant_active_power_fixed", Address: 40001, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_reactive_power_fixed", Address: 40003, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_active_power_percent", Address: 40005, Count: 1, DataType: S16, Gain: 10, Unit: UnitPercent, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_power_factor", Address: 40007, Count: 1, DataType: S16, Gain: 1000, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_remote_ems_enable", Address: 40029, Count: 1, DataType: U16, Gain: 1, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_remote_ems_control_mode", Address: 40031, Count: 1, DataType: U16, Gain: 1, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_ess_max_charging_limit", Address: 40032, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_ess_max_discharging_limit", Address: 40034, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: HoldingRegister, Access: ReadWrite},
	{Name: "plant_pv_max_power_limit", Address: 40036, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: HoldingRegister, Access: ReadWrite},
}

var inverterRunningInfo = []RegisterDescriptor{
	{Name: "model", Address: 30540, Count: 10, DataType: STRING, Kind: InputRegister, Access: ReadOnly},
	{Name: "rated_power", Address: 30550, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "running_state", Address: 30578, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "active_power", Address: 30579, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "reactive_power", Address: 30581, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "battery_power", Address: 30583, Count: 2, DataType: S32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "battery_soc", Address: 30585, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
	{Name: "temperature", Address: 30586, Count: 1, DataType: S16, Gain: 10, Unit: UnitTemperature, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_1", Address: 30587, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_2", Address: 30588, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv1_voltage", Address: 31000, Count: 1, DataType: U16, Gain: 10, Unit: UnitVolt, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv1_current", Address: 31001, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv2_voltage", Address: 31002, Count: 1, DataType: U16, Gain: 10, Unit: UnitVolt, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv2_current", Address: 31003, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv3_voltage", Address: 31004, Count: 1, DataType: U16, Gain: 10, Unit: UnitVolt, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv3_current", Address: 31005, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv4_voltage", Address: 31006, Count: 1, DataType: U16, Gain: 10, Unit: UnitVolt, Kind: InputRegister, Access: ReadOnly},
	{Name: "pv4_current", Address: 31007, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
}

var inverterParameters = []RegisterDescriptor{
	{Name: "inverter_start_stop", Address: 40500, Count: 1, DataType: U16, Gain: 1, Kind: HoldingRegister, Access: WriteOnly},
}

// DC-charger descriptors reuse the parent inverter's endpoint and unit id
// (§3, device hierarchy); the fingerprint register doubles as charging
// current. Output power and vehicle SOC addresses follow the same
// sequential layout the other register blocks use immediately after their
// fingerprint (cf. 30578+n for inverter running info, 32000+n for AC
// charger), since the source pack's sigenergy/info.go references fields at
// this position that never shipped with a defined address in this snapshot
// of the catalog.
var dcChargerRunningInfo = []RegisterDescriptor{
	{Name: "dc_charger_charging_current", Address: RegDCChargerFingerprint, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
	{Name: "dc_charger_output_power", Address: 31502, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "dc_charger_vehicle_soc", Address: 31504, Count: 1, DataType: U16, Gain: 10, Unit: UnitPercent, Kind: InputRegister, Access: ReadOnly},
}

var acChargerRunningInfo = []RegisterDescriptor{
	{Name: "system_state", Address: RegACChargerFingerprint, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
	{Name: "output_voltage", Address: 32001, Count: 1, DataType: U16, Gain: 10, Unit: UnitVolt, Kind: InputRegister, Access: ReadOnly},
	{Name: "output_current", Address: 32002, Count: 1, DataType: U16, Gain: 10, Unit: UnitAmpere, Kind: InputRegister, Access: ReadOnly},
	{Name: "output_power", Address: 32003, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowatt, Kind: InputRegister, Access: ReadOnly},
	{Name: "total_energy", Address: 32005, Count: 2, DataType: U32, Gain: 1000, Unit: UnitKilowattHour, Kind: InputRegister, Access: ReadOnly},
	{Name: "temperature", Address: 32007, Count: 1, DataType: S16, Gain: 10, Unit: UnitTemperature, Kind: InputRegister, Access: ReadOnly},
	{Name: "alarm_1", Address: 32008, Count: 1, DataType: U16, Gain: 1, Kind: InputRegister, Access: ReadOnly},
}

var acChargerParameters = []RegisterDescriptor{
	{Name: "ac_charger_start_stop", Address: 42000, Count: 1, DataType: U16, Gain: 1, Kind: HoldingRegister, Access: WriteOnly},
	{Name: "ac_charger_output_current", Address: 42001, Count: 2, DataType: U32, Gain: 1000, Unit: UnitAmpere, Kind: HoldingRegister, Access: ReadWrite},
}

// runningInfoFor returns the read-only running-info descriptors for a device
// kind. DC charger descriptors are returned separately since they are merged
// into the parent inverter's read pass rather than addressed on their own.
func runningInfoFor(kind DeviceKind) []RegisterDescriptor {
	switch kind {
	case DeviceKindPlant:
		return plantRunningInfo
	case DeviceKindInverter:
		return inverterRunningInfo
	case DeviceKindACCharger:
		return acChargerRunningInfo
	case DeviceKindDCCharger:
		return dcChargerRunningInfo
	default:
		return nil
	}
}

// parametersFor returns the writable/readable parameter descriptors for a
// device kind.
func parametersFor(kind DeviceKind) []RegisterDescriptor {
	switch kind {
	case DeviceKindPlant:
		return plantParameters
	case DeviceKindInverter:
		return inverterParameters
	case DeviceKindACCharger:
		return acChargerParameters
	default:
		return nil
	}
}

// CapabilitySet is the union the catalog defines for a device kind: all
// running-info registers plus all parameter registers (§4.1).
func CapabilitySet(kind DeviceKind) []RegisterDescriptor {
	out := append([]RegisterDescriptor{}, runningInfoFor(kind)...)
	out = append(out, parametersFor(kind)...)
	return out
}

// findRegister looks up a descriptor by name within a device kind's
// capability set.
func findRegister(kind DeviceKind, name string) (RegisterDescriptor, bool) {
	for _, d := range CapabilitySet(kind) {
		if d.Name == name {
			return d, true
		}
	}
	return RegisterDescriptor{}, false
}
