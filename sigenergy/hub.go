package sigenergy

import (
	"fmt"
	"log"
	"sync"

	"github.com/goburrow/modbus"
)

// supportKey identifies one (device, register) pair in the hub's support
// map. The catalog itself stays immutable (§9); only this map mutates.
type supportKey struct {
	device   string
	register string
}

// Hub is the Modbus Hub (§4.4): probing, reading, and writing against a
// connection pool, with a per-device register-support map it exclusively
// owns. ReadOnly, once set, rejects all writes.
type Hub struct {
	pool     *Pool
	logger   *log.Logger
	ReadOnly bool

	mu      sync.Mutex
	support map[supportKey]SupportState
	probed  map[string]bool
}

// NewHub builds a Modbus Hub over the given connection pool.
func NewHub(pool *Pool, logger *log.Logger, readOnly bool) *Hub {
	return &Hub{
		pool:     pool,
		logger:   logger,
		ReadOnly: readOnly,
		support:  make(map[supportKey]SupportState),
		probed:   make(map[string]bool),
	}
}

func (h *Hub) supportOf(device, register string) SupportState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.support[supportKey{device, register}]
}

func (h *Hub) setSupport(device, register string, s SupportState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.support[supportKey{device, register}] = s
}

// readRegisters performs one read of the correct Modbus function code for
// the descriptor's kind.
func (h *Hub) readRegisters(dev DeviceRecord, desc RegisterDescriptor) (readOutcome, any) {
	var data []byte
	err := func() error {
		var e error
		data, e = h.pool.exchange(dev.Endpoint, dev.UnitID, func(c modbus.Client) ([]byte, error) {
			if desc.Kind == InputRegister {
				return c.ReadInputRegisters(desc.Address, desc.Count)
			}
			return c.ReadHoldingRegisters(desc.Address, desc.Count)
		})
		return e
	}()

	if err != nil {
		return readOutcome{modbusErr: err}, nil
	}
	if len(data) == 0 {
		return readOutcome{noData: true}, nil
	}
	regs := bytesToRegisters(data)
	decoded := decode(desc, regs)
	return readOutcome{registers: regs}, decoded
}

// Probe attempts one read of each descriptor and classifies support via the
// Support Validator (§4.4.1). Write-only registers are skipped. Probing is
// idempotent per device: subsequent calls for an already-probed device are
// no-ops.
func (h *Hub) Probe(dev DeviceRecord, descriptors []RegisterDescriptor) {
	key := dev.deviceKey()
	h.mu.Lock()
	if h.probed[key] {
		h.mu.Unlock()
		return
	}
	h.probed[key] = true
	h.mu.Unlock()

	for _, desc := range descriptors {
		if desc.Access == WriteOnly {
			continue
		}
		outcome, decoded := h.readRegisters(dev, desc)
		supported := validateSupport(desc, outcome, decoded)
		if supported {
			h.setSupport(key, desc.Name, SupportYes)
		} else {
			h.setSupport(key, desc.Name, SupportNo)
		}
	}
}

// ReadDevice performs a single read pass over a device's readable
// descriptors, skipping those known unsupported. A descriptor still unknown
// (not classified by Probe) transitions to yes on a successful read and to
// no on an error. DC-charger descriptors belong to the caller to merge in
// when dev.HasDCCharger; ReadDevice itself reads exactly the descriptors
// passed in.
func (h *Hub) ReadDevice(dev DeviceRecord, descriptors []RegisterDescriptor) map[string]any {
	key := dev.deviceKey()
	out := make(map[string]any, len(descriptors))

	for _, desc := range descriptors {
		if desc.Access == WriteOnly {
			continue
		}
		if h.supportOf(key, desc.Name) == SupportNo {
			continue
		}

		outcome, decoded := h.readRegisters(dev, desc)
		if outcome.modbusErr != nil || outcome.noData {
			out[desc.Name] = nil
			if h.supportOf(key, desc.Name) == SupportUnknown {
				h.setSupport(key, desc.Name, SupportNo)
			}
			continue
		}

		out[desc.Name] = decoded
		if h.supportOf(key, desc.Name) == SupportUnknown {
			h.setSupport(key, desc.Name, SupportYes)
		}
	}
	return out
}

// WriteParameter resolves register_name against the device kind's capability
// set, encodes the value, and executes the write strategy (§4.4.2).
func (h *Hub) WriteParameter(dev DeviceRecord, registerName string, value float64) error {
	if h.ReadOnly {
		return newErr(ErrReadOnlyMode, dev.deviceKey(), "hub is read-only")
	}

	desc, ok := findRegister(dev.Kind, registerName)
	if !ok {
		return newErr(ErrUnknownRegister, dev.deviceKey(), "register %q not in catalog for %s", registerName, dev.Kind)
	}
	if desc.Access == ReadOnly {
		return newErr(ErrReadOnlyMode, dev.deviceKey(), "register %q is read-only", registerName)
	}

	words := encode(desc, value)
	err := h.writeStrategy(dev, desc, words)
	if err != nil {
		h.pool.MarkDisconnected(dev.Endpoint)
		return wrapErr(ErrWriteFailed, dev.deviceKey(), err, "all write strategies exhausted for %q", registerName)
	}
	return nil
}

// writeStrategy executes the ordered fallback chain from §4.4.2 and
// returns the first success, or the last error if every attempt fails.
func (h *Hub) writeStrategy(dev DeviceRecord, desc RegisterDescriptor, words []uint16) error {
	attempts := h.writeAttempts(dev, desc, words)

	var lastErr error
	for _, a := range attempts {
		_, err := h.pool.exchange(dev.Endpoint, dev.UnitID, func(c modbus.Client) ([]byte, error) {
			if a.multi {
				return c.WriteMultipleRegisters(a.address, uint16(len(words)), registersToBytes(words))
			}
			return c.WriteSingleRegister(a.address, words[0])
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no write attempts were eligible")
	}
	return lastErr
}

type writeAttempt struct {
	address uint16
	multi   bool
}

// writeAttempts enumerates the ordered candidate (address, function-code)
// pairs from §4.4.2: multi then single at the catalog address, multi then
// single at the 40001-relative offset, and — only for 32-bit plant
// parameters — two additional multi-register offsets.
func (h *Hub) writeAttempts(dev DeviceRecord, desc RegisterDescriptor, words []uint16) []writeAttempt {
	single := len(words) == 1

	var attempts []writeAttempt
	addAt := func(addr uint16) {
		attempts = append(attempts, writeAttempt{addr, true})
		if single {
			attempts = append(attempts, writeAttempt{addr, false})
		}
	}

	addAt(desc.Address)
	if desc.Address >= 40001 {
		addAt(desc.Address - 40001)
	}

	is32Bit := desc.DataType == U32 || desc.DataType == S32
	if dev.Kind == DeviceKindPlant && is32Bit {
		if desc.Address >= 40000 {
			attempts = append(attempts, writeAttempt{desc.Address - 40000, true})
		}
		attempts = append(attempts, writeAttempt{desc.Address % 10000, true})
	}
	return attempts
}
