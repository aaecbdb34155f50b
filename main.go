// Package main provides the Sigenergy Modbus gateway entry point and CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/devskill-org/sigenergy-gateway/gateway"
	"github.com/devskill-org/sigenergy-gateway/sigenergy"
)

func main() {
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		help       = flag.Bool("help", false, "Show help message")
		serverOnly = flag.Bool("serverOnly", false, "Run only the health/live servers, no polling loop")

		getSnapshot    = flag.Bool("get-snapshot", false, "Print the current snapshot as JSON and exit")
		listDevices    = flag.Bool("list-devices", false, "List configured devices and exit")
		listRegisters  = flag.String("list-registers", "", "List catalog registers for a device kind (plant|inverter|ac_charger) and exit")
		identifyHost   = flag.String("identify", "", "Probe host:port to classify a device and exit")
		identifyUnitID = flag.Int("identify-unit-id", 1, "Unit id to use with -identify")

		writeDevice = flag.String("write-device-kind", "", "Device kind for the parameter write (plant|inverter|ac_charger)")
		writeName   = flag.String("write-device-name", "", "Device logical name for the parameter write (empty for plant)")
		writeReg    = flag.String("write-register", "", "Register name to write; setting it performs a parameter write and exits")
		writeValue  = flag.String("write-value", "", "New value for the parameter write (numeric)")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if *identifyHost != "" {
		runIdentify(*identifyHost, *identifyUnitID)
		return
	}

	config, err := gateway.LoadConfig(*configFile)
	if err != nil {
		fmt.Println("Error loading configuration:", err)
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "[GATEWAY] ", log.LstdFlags)

	var store *gateway.Store
	if config.PostgresConnString != "" {
		store, err = gateway.OpenStore(context.Background(), config.PostgresConnString)
		if err != nil {
			logger.Printf("integrator persistence disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	coordinator := gateway.NewCoordinator(config, logger, store)

	if *listDevices {
		runListDevices(config)
		return
	}
	if *listRegisters != "" {
		runListRegisters(*listRegisters)
		return
	}
	if *writeReg != "" {
		runWriteParameter(coordinator, *writeDevice, *writeName, *writeReg, *writeValue)
		return
	}
	if *getSnapshot {
		runGetSnapshotOnce(coordinator)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	healthServer := gateway.NewHealthServer(coordinator, config.HealthCheckPort)
	if err := healthServer.Start(); err != nil {
		logger.Printf("failed to start health server: %v", err)
	}
	liveServer := gateway.NewLiveServer(coordinator, config.WebSocketPort)
	if err := liveServer.Start(); err != nil {
		logger.Printf("failed to start live server: %v", err)
	}

	if *serverOnly {
		logger.Printf("running in server-only mode; polling loop not started")
		<-sigChan
		return
	}

	go coordinator.Start(ctx)
	logger.Printf("gateway started. Press Ctrl+C to stop...")

	<-sigChan
	logger.Printf("shutdown signal received, stopping gateway...")
	cancel()
	coordinator.Stop()
	logger.Printf("gateway stopped")
}

func runIdentify(hostPort string, unitID int) {
	host, port, err := splitHostPort(hostPort)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	result := sigenergy.Identify(host, port, byte(unitID))
	fmt.Println(result)
}

func splitHostPort(hostPort string) (string, int, error) {
	for i := len(hostPort) - 1; i >= 0; i-- {
		if hostPort[i] == ':' {
			port, err := strconv.Atoi(hostPort[i+1:])
			if err != nil {
				return "", 0, fmt.Errorf("invalid port in %q: %w", hostPort, err)
			}
			return hostPort[:i], port, nil
		}
	}
	return "", 0, fmt.Errorf("expected host:port, got %q", hostPort)
}

func runListDevices(config *gateway.Config) {
	fmt.Printf("plant: %s:%d (unit %d)\n", config.PlantConnection.Host, config.PlantConnection.Port, config.PlantConnection.UnitID)
	for name, inv := range config.InverterConnections {
		fmt.Printf("inverter %q: %s:%d (unit %d, has_dc_charger=%v)\n", name, inv.Host, inv.Port, inv.UnitID, inv.HasDCCharger)
	}
	for name, ac := range config.ACChargerConnections {
		fmt.Printf("ac_charger %q: %s:%d (unit %d)\n", name, ac.Host, ac.Port, ac.UnitID)
	}
}

func runListRegisters(deviceKind string) {
	kind, err := parseDeviceKind(deviceKind)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	for _, desc := range sigenergy.CapabilitySet(kind) {
		fmt.Printf("%-36s addr=%-6d count=%-3d type=%-6s access=%-6s unit=%s\n",
			desc.Name, desc.Address, desc.Count, desc.DataType, accessString(desc.Access), desc.Unit)
	}
}

func accessString(a sigenergy.AccessClass) string {
	switch a {
	case sigenergy.ReadOnly:
		return "ro"
	case sigenergy.ReadWrite:
		return "rw"
	case sigenergy.WriteOnly:
		return "wo"
	default:
		return "?"
	}
}

func parseDeviceKind(s string) (sigenergy.DeviceKind, error) {
	switch s {
	case "plant":
		return sigenergy.DeviceKindPlant, nil
	case "inverter":
		return sigenergy.DeviceKindInverter, nil
	case "ac_charger":
		return sigenergy.DeviceKindACCharger, nil
	default:
		return 0, fmt.Errorf("unknown device kind %q (want plant|inverter|ac_charger)", s)
	}
}

func runWriteParameter(coordinator *gateway.Coordinator, deviceKindStr, deviceName, register, valueStr string) {
	kind, err := parseDeviceKind(deviceKindStr)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		fmt.Println("Error: -write-value must be numeric:", err)
		os.Exit(1)
	}

	req := sigenergy.WriteRequest{
		DeviceKind:        kind,
		DeviceLogicalName: deviceName,
		RegisterName:      register,
		NewValue:          value,
	}
	if err := coordinator.WriteParameter(context.Background(), req); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func runGetSnapshotOnce(coordinator *gateway.Coordinator) {
	coordinator.ForceRefresh(context.Background())
	data, err := json.MarshalIndent(coordinator.Snapshot(), "", "  ")
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func showHelp() {
	fmt.Println("Sigenergy Modbus Gateway - polling gateway and control plane for a Sigenergy plant")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gateway [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  gateway --config=config.json")
	fmt.Println("  gateway -get-snapshot")
	fmt.Println("  gateway -list-devices")
	fmt.Println("  gateway -list-registers=inverter")
	fmt.Println("  gateway -identify=10.0.0.5:502 -identify-unit-id=1")
	fmt.Println("  gateway -write-device-kind=plant -write-register=plant_remote_ems_enable -write-value=1")
}
