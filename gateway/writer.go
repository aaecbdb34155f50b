package gateway

import (
	"context"
	"fmt"

	"github.com/devskill-org/sigenergy-gateway/sigenergy"
)

// WriteParameter resolves a WriteRequest to a device record, validates it
// against the catalog and the read-only guard (delegated to the hub), and
// on success requests an out-of-cycle refresh so the next snapshot reflects
// the change (§4.9).
func (c *Coordinator) WriteParameter(ctx context.Context, req sigenergy.WriteRequest) error {
	dev, err := c.resolveDevice(req.DeviceKind, req.DeviceLogicalName)
	if err != nil {
		return err
	}

	value, ok := toFloat(req.NewValue)
	if !ok {
		return fmt.Errorf("write_parameter: value %v is not numeric", req.NewValue)
	}

	if err := c.hub.WriteParameter(dev, req.RegisterName, value); err != nil {
		return err
	}

	c.ForceRefresh(ctx)
	return nil
}

func (c *Coordinator) resolveDevice(kind sigenergy.DeviceKind, logicalName string) (sigenergy.DeviceRecord, error) {
	switch kind {
	case sigenergy.DeviceKindPlant:
		return c.plant, nil
	case sigenergy.DeviceKindInverter:
		for _, inv := range c.inverters {
			if inv.LogicalName == logicalName {
				return inv, nil
			}
		}
	case sigenergy.DeviceKindACCharger:
		for _, ac := range c.acChargers {
			if ac.LogicalName == logicalName {
				return ac, nil
			}
		}
	default:
		return sigenergy.DeviceRecord{}, &sigenergy.HubError{
			Kind:    sigenergy.ErrUnknownDeviceKind,
			Message: fmt.Sprintf("write_parameter: unknown device kind %v", kind),
		}
	}
	return sigenergy.DeviceRecord{}, &sigenergy.HubError{
		Kind:    sigenergy.ErrUnknownDevice,
		Device:  fmt.Sprintf("%v:%s", kind, logicalName),
		Message: fmt.Sprintf("write_parameter: unknown device %v/%q", kind, logicalName),
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
