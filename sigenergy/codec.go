package sigenergy

import (
	"encoding/binary"
	"strings"
)

// decode interprets a raw register vector (one uint16 per Modbus register)
// as the descriptor's declared type, applying big-endian byte order and
// big-endian word order for multi-register values, then the descriptor's
// gain. It never errors on out-of-range bits; implausible values are a
// matter for the support validator, not the codec.
func decode(desc RegisterDescriptor, registers []uint16) any {
	if desc.DataType == STRING {
		return decodeString(registers)
	}

	buf := make([]byte, len(registers)*2)
	for i, r := range registers {
		binary.BigEndian.PutUint16(buf[i*2:], r)
	}

	var raw float64
	switch desc.DataType {
	case U16:
		raw = float64(binary.BigEndian.Uint16(buf))
	case S16:
		raw = float64(int16(binary.BigEndian.Uint16(buf)))
	case U32:
		raw = float64(binary.BigEndian.Uint32(buf))
	case S32:
		raw = float64(int32(binary.BigEndian.Uint32(buf)))
	case U64:
		raw = float64(binary.BigEndian.Uint64(buf))
	}

	if desc.Gain != 0 && desc.Gain != 1 {
		return raw / desc.Gain
	}
	return raw
}

func decodeString(registers []uint16) string {
	buf := make([]byte, len(registers)*2)
	for i, r := range registers {
		binary.BigEndian.PutUint16(buf[i*2:], r)
	}
	return strings.TrimRight(string(buf), "\x00")
}

// encode turns a value into the register vector the wire expects, applying
// gain and byte/word order matching decode. For single-register U16 values
// in [0,255] it returns the value directly rather than routing through the
// general path, matching devices that mis-parse the builder's output for
// that narrow case.
func encode(desc RegisterDescriptor, value float64) []uint16 {
	scaled := value
	if desc.Gain != 0 && desc.Gain != 1 {
		scaled = value * desc.Gain
	}

	if desc.DataType == U16 && scaled >= 0 && scaled <= 255 {
		return []uint16{uint16(scaled)}
	}

	switch desc.DataType {
	case U16:
		return []uint16{uint16(int64(scaled))}
	case S16:
		return []uint16{uint16(int16(int64(scaled)))}
	case U32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int64(scaled)))
		return []uint16{binary.BigEndian.Uint16(buf[0:2]), binary.BigEndian.Uint16(buf[2:4])}
	case S32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(int64(scaled))))
		return []uint16{binary.BigEndian.Uint16(buf[0:2]), binary.BigEndian.Uint16(buf[2:4])}
	case U64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(int64(scaled)))
		return []uint16{
			binary.BigEndian.Uint16(buf[0:2]), binary.BigEndian.Uint16(buf[2:4]),
			binary.BigEndian.Uint16(buf[4:6]), binary.BigEndian.Uint16(buf[6:8]),
		}
	default:
		return nil
	}
}

// registersToBytes packs a uint16 register vector into the big-endian byte
// slice the goburrow/modbus client wants for WriteMultipleRegisters.
func registersToBytes(registers []uint16) []byte {
	buf := make([]byte, len(registers)*2)
	for i, r := range registers {
		binary.BigEndian.PutUint16(buf[i*2:], r)
	}
	return buf
}

// bytesToRegisters unpacks a raw big-endian response body from goburrow/modbus
// into a uint16-per-register vector.
func bytesToRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return out
}
