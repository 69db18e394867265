package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker   string
	MQTTClientID string

	// Topics
	TopicOpticalFlow    string
	TopicDistanceSensor string

	// Sensor bus. One controller instance is started per bus; all
	// instances share the same device address.
	I2CBuses   []string
	I2CAddress uint16

	// Polling
	PollIntervalMS int
	// FrameMode selects the register readout: "integral" or "combined".
	FrameMode string
	// SensorRotation is the yaw step (0-7, 45° each) applied to the
	// flow and delta-angle vectors.
	SensorRotation int

	// Observability
	MetricsAddr string
}

// Package-level unexported variables for the config singleton.
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config pre-filled with everything that has a
// sensible default; Load overrides from the file.
func defaults() *Config {
	return &Config{
		MQTTClientID:        "px4flow-producer",
		TopicOpticalFlow:    "px4flow/optical_flow",
		TopicDistanceSensor: "px4flow/distance_sensor",
		I2CAddress:          0x42,
		PollIntervalMS:      100,
		FrameMode:           "integral",
		MetricsAddr:         ":9102",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	// Topics
	case "TOPIC_OPTICAL_FLOW":
		c.TopicOpticalFlow = value
	case "TOPIC_DISTANCE_SENSOR":
		c.TopicDistanceSensor = value

	// Sensor bus
	case "I2C_BUSES":
		c.I2CBuses = c.I2CBuses[:0]
		for _, b := range strings.Split(value, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.I2CBuses = append(c.I2CBuses, b)
			}
		}
	case "I2C_ADDRESS":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid I2C_ADDRESS %q: %w", value, err)
		}
		if addr < 0x42 || addr > 0x49 {
			return fmt.Errorf("I2C_ADDRESS must be 0x42-0x49, got 0x%02x", addr)
		}
		c.I2CAddress = uint16(addr)

	// Polling
	case "POLL_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL_MS %q: %w", value, err)
		}
		if interval < 10 || interval > 1000 {
			return fmt.Errorf("POLL_INTERVAL_MS must be 10-1000, got %d", interval)
		}
		c.PollIntervalMS = interval
	case "FRAME_MODE":
		if value != "integral" && value != "combined" {
			return fmt.Errorf("FRAME_MODE must be \"integral\" or \"combined\", got %q", value)
		}
		c.FrameMode = value
	case "SENSOR_ROTATION":
		rot, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_ROTATION %q: %w", value, err)
		}
		if rot < 0 || rot > 7 {
			return fmt.Errorf("SENSOR_ROTATION must be 0-7 (45° yaw steps), got %d", rot)
		}
		c.SensorRotation = rot

	// Observability
	case "METRICS_ADDR":
		c.MetricsAddr = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if len(c.I2CBuses) == 0 {
		return fmt.Errorf("I2C_BUSES is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so only the first call loads; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
