package gateway

import (
	"context"
	"encoding/binary"
	"io"
	"log"
	"net"
	"strconv"
	"testing"

	"github.com/devskill-org/sigenergy-gateway/sigenergy"
)

// startAlwaysOKModbus runs a minimal Modbus/TCP server that answers every
// read-registers request with zero-valued registers, for the duration of the
// test. It lets tick_test exercise a real, fully-supported device without a
// physical Sigenergy plant.
func startAlwaysOKModbus(t *testing.T) (string, int) {
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
			go serveAlwaysOK(conn)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}
	return host, port
}

func serveAlwaysOK(conn net.Conn) {
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

		var pdu []byte
		switch funcCode {
		case 0x03, 0x04: // read holding/input registers
			quantity := binary.BigEndian.Uint16(body[3:5])
			data := make([]byte, 1+int(quantity)*2)
			data[0] = byte(quantity * 2)
			pdu = append([]byte{funcCode}, data...)
		default:
			pdu = []byte{funcCode | 0x80, 0x01}
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

func newRawCoordinator(inverters []sigenergy.DeviceRecord, plant sigenergy.DeviceRecord) *Coordinator {
	pool := sigenergy.NewPool()
	hub := sigenergy.NewHub(pool, log.Default(), false)
	reader := sigenergy.NewReader(hub)
	c := &Coordinator{
		config:      DefaultConfig(),
		hub:         hub,
		reader:      reader,
		pool:        pool,
		logger:      log.Default(),
		integrators: make(map[string]*sigenergy.Integrator),
		plant:       plant,
		inverters:   inverters,
	}
	c.snapshot.Store(&sigenergy.Snapshot{
		Plant:      map[string]any{},
		Inverters:  map[string]map[string]any{},
		ACChargers: map[string]map[string]any{},
	})
	return c
}

// TestTick_UnreachableDeviceYieldsEmptyMapAndPartial mirrors spec.md's E6:
// an inverter that cannot be reached at all publishes as an empty map, and
// the tick is marked partial.
func TestTick_UnreachableDeviceYieldsEmptyMapAndPartial(t *testing.T) {
	unreachablePlant := sigenergy.DeviceRecord{
		Kind:     sigenergy.DeviceKindPlant,
		Endpoint: sigenergy.Endpoint{Host: "127.0.0.1", Port: 1},
		UnitID:   sigenergy.PlantUnitID,
	}
	inverters := []sigenergy.DeviceRecord{
		{Kind: sigenergy.DeviceKindInverter, LogicalName: "inv_b", Endpoint: sigenergy.Endpoint{Host: "127.0.0.1", Port: 1}, UnitID: 1},
	}
	c := newRawCoordinator(inverters, unreachablePlant)

	c.tick(context.Background())

	snap := c.Snapshot()
	if !snap.Partial {
		t.Fatal("expected Partial=true when every device is unreachable")
	}
	invB, ok := snap.Inverters["inv_b"]
	if !ok {
		t.Fatal("expected inv_b to be present in the snapshot")
	}
	if len(invB) != 0 {
		t.Fatalf("expected inv_b to be an empty map for an unreachable device, got %v", invB)
	}
}

// TestTick_StaleValuesNotCarriedForward asserts that a device's map is
// rebuilt from scratch every tick rather than merged with the previous
// snapshot — a later failure must not leave earlier readings behind.
func TestTick_StaleValuesNotCarriedForward(t *testing.T) {
	unreachablePlant := sigenergy.DeviceRecord{
		Kind:     sigenergy.DeviceKindPlant,
		Endpoint: sigenergy.Endpoint{Host: "127.0.0.1", Port: 1},
		UnitID:   sigenergy.PlantUnitID,
	}
	inverters := []sigenergy.DeviceRecord{
		{Kind: sigenergy.DeviceKindInverter, LogicalName: "inv_b", Endpoint: sigenergy.Endpoint{Host: "127.0.0.1", Port: 1}, UnitID: 1},
	}
	c := newRawCoordinator(inverters, unreachablePlant)

	c.snapshot.Store(&sigenergy.Snapshot{
		Plant:      map[string]any{},
		Inverters:  map[string]map[string]any{"inv_b": {"pv1_voltage": 400.0}},
		ACChargers: map[string]map[string]any{},
	})

	c.tick(context.Background())

	invB := c.Snapshot().Inverters["inv_b"]
	if _, stale := invB["pv1_voltage"]; stale {
		t.Fatalf("stale pv1_voltage value was carried forward into a fresh tick: %v", invB)
	}
}

// TestTick_AssemblesSuccessfulReadsFromFakeDevice drives a full tick against
// a fake Modbus server that answers every read successfully (E2: normal
// assembly with no read failures).
func TestTick_AssemblesSuccessfulReadsFromFakeDevice(t *testing.T) {
	host, port := startAlwaysOKModbus(t)

	plant := sigenergy.DeviceRecord{
		Kind:     sigenergy.DeviceKindPlant,
		Endpoint: sigenergy.Endpoint{Host: host, Port: port},
		UnitID:   sigenergy.PlantUnitID,
	}
	inverters := []sigenergy.DeviceRecord{
		{Kind: sigenergy.DeviceKindInverter, LogicalName: "inv_a", Endpoint: sigenergy.Endpoint{Host: host, Port: port}, UnitID: 1},
	}
	c := newRawCoordinator(inverters, plant)

	c.tick(context.Background())

	snap := c.Snapshot()
	if snap.Partial {
		t.Fatal("expected Partial=false when every device answers every read")
	}
	if len(snap.Plant) == 0 {
		t.Fatal("expected the plant map to be populated")
	}
	invA, ok := snap.Inverters["inv_a"]
	if !ok || len(invA) == 0 {
		t.Fatalf("expected inv_a to be populated, got %v", invA)
	}
	if snap.FetchedAt.IsZero() {
		t.Fatal("expected FetchedAt to be set")
	}
}
