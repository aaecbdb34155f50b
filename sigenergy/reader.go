package sigenergy

import "github.com/devskill-org/sigenergy-gateway/utils"

// Reader composes, for each device kind, the single read pass described in
// §4.5: ensure probed, then read readable descriptors, merging DC-charger
// registers into the parent inverter's map when present.
type Reader struct {
	hub *Hub
}

// NewReader builds a Device Reader over the given hub.
func NewReader(hub *Hub) *Reader {
	return &Reader{hub: hub}
}

// ReadPlant performs the plant's read pass. system_time and system_timezone
// are raw wire values (a Unix epoch and a minutes offset); ReadPlant adds the
// human-readable local-time and GMT-offset derivations alongside them.
func (r *Reader) ReadPlant(dev DeviceRecord) map[string]any {
	descs := append([]RegisterDescriptor{}, runningInfoFor(DeviceKindPlant)...)
	descs = append(descs, readableParams(parametersFor(DeviceKindPlant))...)
	r.hub.Probe(dev, descs)
	out := r.hub.ReadDevice(dev, descs)

	if epoch, ok := asEpoch(out["system_time"]); ok {
		if local, ok := utils.EpochToLocal(epoch); ok {
			out["system_time_local"] = local
		}
	}
	if minutes, ok := asMinutes(out["system_timezone"]); ok {
		if gmt := utils.MinutesToGMT(&minutes); gmt != nil {
			out["system_timezone_gmt"] = *gmt
		}
	}
	return out
}

func asEpoch(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func asMinutes(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// ReadInverter performs an inverter's read pass, merging the DC-charger
// register group on the same unit id when dev.HasDCCharger is set (§4.5.4).
func (r *Reader) ReadInverter(dev DeviceRecord) map[string]any {
	descs := append([]RegisterDescriptor{}, runningInfoFor(DeviceKindInverter)...)
	descs = append(descs, readableParams(parametersFor(DeviceKindInverter))...)
	r.hub.Probe(dev, descs)
	out := r.hub.ReadDevice(dev, descs)

	if dev.HasDCCharger {
		dcDescs := dcChargerRunningInfo
		dcDev := dev
		dcDev.Kind = DeviceKindDCCharger
		r.hub.Probe(dcDev, dcDescs)
		for k, v := range r.hub.ReadDevice(dcDev, dcDescs) {
			out[k] = v
		}
	}
	return out
}

// ReadACCharger performs an AC charger's read pass.
func (r *Reader) ReadACCharger(dev DeviceRecord) map[string]any {
	descs := append([]RegisterDescriptor{}, runningInfoFor(DeviceKindACCharger)...)
	descs = append(descs, readableParams(parametersFor(DeviceKindACCharger))...)
	r.hub.Probe(dev, descs)
	return r.hub.ReadDevice(dev, descs)
}

// readableParams filters a parameter descriptor list down to those that can
// be read back (read_write), excluding write_only registers.
func readableParams(params []RegisterDescriptor) []RegisterDescriptor {
	out := make([]RegisterDescriptor, 0, len(params))
	for _, p := range params {
		if p.Access == ReadWrite {
			out = append(out, p)
		}
	}
	return out
}
