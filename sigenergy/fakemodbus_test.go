package sigenergy

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
)

// fakeResponse is one handler's answer to one Modbus PDU: either a raw
// response payload, or a Modbus exception code.
type fakeResponse struct {
	data      []byte
	exception byte // 0 = no exception
}

// startFakeModbus runs a minimal Modbus/TCP (MBAP) server for the duration
// of the test, dispatching every request to handler. It speaks exactly the
// ADU framing goburrow/modbus's TCP client expects: a 7-byte MBAP header
// (transaction id, protocol id, length, unit id) followed by the PDU.
func startFakeModbus(t *testing.T, handler func(unitID, funcCode byte, data []byte) fakeResponse) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fake modbus listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveFakeModbusConn(conn, handler)
		}
	}()
	return ln.Addr().String()
}

func serveFakeModbusConn(conn net.Conn, handler func(byte, byte, []byte) fakeResponse) {
	defer conn.Close()
	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		transactionID := header[0:2]
		length := binary.BigEndian.Uint16(header[4:6])
		unitID := header[6]
		if length < 1 {
			return
		}
		body := make([]byte, length-1)
		if len(body) > 0 {
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
		}
		funcCode := body[0]
		data := body[1:]

		resp := handler(unitID, funcCode, data)

		var pdu []byte
		if resp.exception != 0 {
			pdu = []byte{funcCode | 0x80, resp.exception}
		} else {
			pdu = append([]byte{funcCode}, resp.data...)
		}

		respHeader := make([]byte, 7)
		copy(respHeader[0:2], transactionID)
		binary.BigEndian.PutUint16(respHeader[4:6], uint16(len(pdu)+1))
		respHeader[6] = unitID

		if _, err := conn.Write(append(respHeader, pdu...)); err != nil {
			return
		}
	}
}

// readRegistersOK builds a successful read-input/holding-registers PDU
// payload for n zero-valued registers.
func readRegistersOK(n int) []byte {
	data := make([]byte, 1+n*2)
	data[0] = byte(n * 2)
	return data
}

// writeSingleOK echoes back address+value, as goburrow/modbus expects for a
// successful WriteSingleRegister.
func writeSingleOK(addr, value uint16) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], addr)
	binary.BigEndian.PutUint16(out[2:4], value)
	return out
}

// writeMultipleOK echoes back address+quantity, as goburrow/modbus expects
// for a successful WriteMultipleRegisters.
func writeMultipleOK(addr, quantity uint16) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], addr)
	binary.BigEndian.PutUint16(out[2:4], quantity)
	return out
}
