// Package gateway implements the polling coordinator, persistence, and
// operator-facing surface (health checks, live status streaming) around the
// sigenergy device hub.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ScanIntervals holds the four cadence tiers (§4.6). Medium and Low must be
// integer multiples of High; Alarm need only be at least High.
type ScanIntervals struct {
	High   time.Duration `json:"high"`
	Alarm  time.Duration `json:"alarm"`
	Medium time.Duration `json:"medium"`
	Low    time.Duration `json:"low"`
}

// ConnectionConfig addresses one Modbus/TCP endpoint.
type ConnectionConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	UnitID byte   `json:"unit_id"`
}

// PlantConnectionConfig is the plant's endpoint plus its scan cadence and
// read-only guard.
type PlantConnectionConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	UnitID        byte          `json:"unit_id"`
	ScanIntervals ScanIntervals `json:"scan_intervals"`
	ReadOnly      bool          `json:"read_only"`
}

// InverterConnectionConfig describes one inverter's endpoint and whether it
// has an attached DC charger.
type InverterConnectionConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	UnitID       byte   `json:"unit_id"`
	HasDCCharger bool   `json:"has_dc_charger"`
}

// IntegratorConfig declares one derived-energy sensor for the Integration
// Engine to track (§4.8). SourceSensorKey is a dotted snapshot path, e.g.
// "plant.consumed_kw" or "plant.grid_import_kw".
type IntegratorConfig struct {
	SourceSensorKey string `json:"source_sensor_key"`
	DailyReset      bool   `json:"daily_reset"`
	RoundDigits     int    `json:"round_digits"`
}

// Config is the persisted installation document (§6).
type Config struct {
	PlantConnection      PlantConnectionConfig               `json:"plant_connection"`
	InverterConnections  map[string]InverterConnectionConfig `json:"inverter_connections"`
	ACChargerConnections map[string]ConnectionConfig          `json:"ac_charger_connections"`
	Integrators          []IntegratorConfig                  `json:"integrators"`

	// Ambient settings, outside the wire-protocol contract of §6 but needed
	// to run the gateway as a standalone process.
	PostgresConnString string `json:"postgres_conn_string"`
	HealthCheckPort     int    `json:"health_check_port"`
	WebSocketPort       int    `json:"websocket_port"`
	LogLevel            string `json:"log_level"`
}

// DefaultConfig returns a configuration with conservative defaults; it is
// not itself valid (no plant host is set) and exists only as a base for
// LoadConfig to decode onto.
func DefaultConfig() *Config {
	return &Config{
		PlantConnection: PlantConnectionConfig{
			Port:   502,
			UnitID: 247,
			ScanIntervals: ScanIntervals{
				High:   5 * time.Second,
				Alarm:  5 * time.Second,
				Medium: 10 * time.Second,
				Low:    60 * time.Second,
			},
		},
		InverterConnections:  map[string]InverterConnectionConfig{},
		ACChargerConnections: map[string]ConnectionConfig{},
		Integrators: []IntegratorConfig{
			{SourceSensorKey: "plant.consumed_kw", DailyReset: true, RoundDigits: 3},
			{SourceSensorKey: "plant.grid_import_kw", DailyReset: true, RoundDigits: 3},
			{SourceSensorKey: "plant.grid_export_kw", DailyReset: true, RoundDigits: 3},
		},
		HealthCheckPort: 0,
		WebSocketPort:   0,
		LogLevel:        "info",
	}
}

// LoadConfig loads and validates configuration from a JSON file.
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads and validates configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file.
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	return c.SaveConfigToWriter(file)
}

// SaveConfigToWriter saves the configuration to an io.Writer.
func (c *Config) SaveConfigToWriter(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}
	return nil
}

// Validate checks the scan-interval tier rules from §4.6 and basic
// connection sanity.
func (c *Config) Validate() error {
	if c.PlantConnection.Host == "" {
		return fmt.Errorf("plant_connection.host cannot be empty")
	}
	if c.PlantConnection.UnitID != 247 {
		return fmt.Errorf("plant_connection.unit_id must be 247, got: %d", c.PlantConnection.UnitID)
	}

	si := c.PlantConnection.ScanIntervals
	if si.High < time.Second {
		return fmt.Errorf("scan_intervals.high must be >= 1s, got: %s", si.High)
	}
	if si.Alarm < si.High {
		return fmt.Errorf("scan_intervals.alarm must be >= high, got: %s < %s", si.Alarm, si.High)
	}
	if si.Medium < si.High || si.Medium%si.High != 0 {
		return fmt.Errorf("scan_intervals.medium must be >= high and a multiple of it, got: %s", si.Medium)
	}
	if si.Low < si.Medium || si.Low%si.High != 0 {
		return fmt.Errorf("scan_intervals.low must be >= medium and a multiple of high, got: %s", si.Low)
	}

	for name, inv := range c.InverterConnections {
		if inv.Host == "" {
			return fmt.Errorf("inverter_connections[%q].host cannot be empty", name)
		}
		if inv.UnitID < 1 || inv.UnitID > 246 {
			return fmt.Errorf("inverter_connections[%q].unit_id must be 1..246, got: %d", name, inv.UnitID)
		}
	}
	for name, ac := range c.ACChargerConnections {
		if ac.Host == "" {
			return fmt.Errorf("ac_charger_connections[%q].host cannot be empty", name)
		}
		if ac.UnitID < 1 || ac.UnitID > 246 {
			return fmt.Errorf("ac_charger_connections[%q].unit_id must be 1..246, got: %d", name, ac.UnitID)
		}
	}

	if c.HealthCheckPort < 0 || c.HealthCheckPort > 65535 {
		return fmt.Errorf("health_check_port must be between 0 and 65535, got: %d", c.HealthCheckPort)
	}
	if c.WebSocketPort < 0 || c.WebSocketPort > 65535 {
		return fmt.Errorf("websocket_port must be between 0 and 65535, got: %d", c.WebSocketPort)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling so scan_intervals fields
// round-trip as Go duration strings ("5s") rather than nanosecond integers.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	type intervalsAlias struct {
		High   string `json:"high"`
		Alarm  string `json:"alarm"`
		Medium string `json:"medium"`
		Low    string `json:"low"`
	}
	type plantAlias struct {
		Host          string         `json:"host"`
		Port          int            `json:"port"`
		UnitID        byte           `json:"unit_id"`
		ScanIntervals intervalsAlias `json:"scan_intervals"`
		ReadOnly      bool           `json:"read_only"`
	}
	return json.Marshal(&struct {
		*Alias
		PlantConnection plantAlias `json:"plant_connection"`
	}{
		Alias: (*Alias)(c),
		PlantConnection: plantAlias{
			Host:     c.PlantConnection.Host,
			Port:     c.PlantConnection.Port,
			UnitID:   c.PlantConnection.UnitID,
			ReadOnly: c.PlantConnection.ReadOnly,
			ScanIntervals: intervalsAlias{
				High:   c.PlantConnection.ScanIntervals.High.String(),
				Alarm:  c.PlantConnection.ScanIntervals.Alarm.String(),
				Medium: c.PlantConnection.ScanIntervals.Medium.String(),
				Low:    c.PlantConnection.ScanIntervals.Low.String(),
			},
		},
	})
}

// UnmarshalJSON implements custom JSON unmarshaling, accepting duration
// strings ("5s", "1m") for scan_intervals.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	type intervalsAlias struct {
		High   string `json:"high"`
		Alarm  string `json:"alarm"`
		Medium string `json:"medium"`
		Low    string `json:"low"`
	}
	type plantAlias struct {
		Host          string         `json:"host"`
		Port          int            `json:"port"`
		UnitID        byte           `json:"unit_id"`
		ScanIntervals intervalsAlias `json:"scan_intervals"`
		ReadOnly      bool           `json:"read_only"`
	}
	aux := &struct {
		*Alias
		PlantConnection plantAlias `json:"plant_connection"`
	}{
		Alias: (*Alias)(c),
		PlantConnection: plantAlias{
			Host:     c.PlantConnection.Host,
			Port:     c.PlantConnection.Port,
			UnitID:   c.PlantConnection.UnitID,
			ReadOnly: c.PlantConnection.ReadOnly,
		},
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	c.PlantConnection.Host = aux.PlantConnection.Host
	c.PlantConnection.Port = aux.PlantConnection.Port
	c.PlantConnection.UnitID = aux.PlantConnection.UnitID
	c.PlantConnection.ReadOnly = aux.PlantConnection.ReadOnly

	parse := func(field string, s string, dst *time.Duration) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
		*dst = d
		return nil
	}
	if err := parse("scan_intervals.high", aux.PlantConnection.ScanIntervals.High, &c.PlantConnection.ScanIntervals.High); err != nil {
		return err
	}
	if err := parse("scan_intervals.alarm", aux.PlantConnection.ScanIntervals.Alarm, &c.PlantConnection.ScanIntervals.Alarm); err != nil {
		return err
	}
	if err := parse("scan_intervals.medium", aux.PlantConnection.ScanIntervals.Medium, &c.PlantConnection.ScanIntervals.Medium); err != nil {
		return err
	}
	if err := parse("scan_intervals.low", aux.PlantConnection.ScanIntervals.Low, &c.PlantConnection.ScanIntervals.Low); err != nil {
		return err
	}

	return nil
}

// String returns an indented JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
