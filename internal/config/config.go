package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	HTTP      HTTPConfig    `yaml:"http"`
	GPIO      GPIOConfig    `yaml:"gpio"`
	Latch     LatchConfig   `yaml:"latch"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	Journal   JournalConfig `yaml:"journal"`
	MDNS      MDNSConfig    `yaml:"mdns"`
	Console   ConsoleConfig `yaml:"console"`
	Web       WebConfig     `yaml:"web"`
	Logging   LoggingConfig `yaml:"logging"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig contains HTTP API server settings.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// GPIOConfig selects and configures the output line.
type GPIOConfig struct {
	Driver    string `yaml:"driver"` // cdev, rpio or fake
	Chip      string `yaml:"chip"`
	Pin       int    `yaml:"pin"` // BCM numbering
	ActiveLow bool   `yaml:"active_low"`
}

// LatchConfig contains the latch policy.
type LatchConfig struct {
	DefaultSeconds int           `yaml:"default_seconds"`
	Revert         string        `yaml:"revert"` // none or revert_to_prior
	Clamp          string        `yaml:"clamp"`  // zero_or_range or strict
	TestModeMarker string        `yaml:"test_mode_marker"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// MQTTConfig contains MQTT broker settings for event publishing.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// JournalConfig contains the CBOR event journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MDNSConfig contains service advertisement settings.
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Instance  string `yaml:"instance"`
	Interface string `yaml:"interface"`
}

// ConsoleConfig contains the diagnostic console settings.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prompt  string `yaml:"prompt"`
}

// WebConfig contains static asset settings.
type WebConfig struct {
	AssetDir string `yaml:"asset_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration from a YAML file.
//
// Values missing from the file keep their defaults. Environment variables
// are applied after the file, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:         ":80",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		GPIO: GPIOConfig{
			Driver: "cdev",
			Chip:   "gpiochip0",
			Pin:    5,
		},
		Latch: LatchConfig{
			DefaultSeconds: 5,
			Revert:         "none",
			Clamp:          "zero_or_range",
			PollInterval:   50 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "relay-latch",
			TopicPrefix: "relay/latch",
			BufferSize:  100,
		},
		Journal: JournalConfig{
			Path: "/var/lib/relay-latch/journal.cbor",
		},
		MDNS: MDNSConfig{
			Instance: "relay-latch",
		},
		Console: ConsoleConfig{
			Prompt: "relay> ",
		},
		Web: WebConfig{
			AssetDir: "/usr/share/relay-latch",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Heartbeat: 15 * time.Minute,
	}
}

// applyEnvOverrides applies RELAY_LATCH_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RELAY_LATCH_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("RELAY_LATCH_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}
	if v := os.Getenv("RELAY_LATCH_GPIO_PIN"); v != "" {
		pin, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAY_LATCH_GPIO_PIN: %w", err)
		}
		cfg.GPIO.Pin = pin
	}
	if v := os.Getenv("RELAY_LATCH_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("RELAY_LATCH_TEST_MODE_MARKER"); v != "" {
		cfg.Latch.TestModeMarker = v
	}
	if v := os.Getenv("RELAY_LATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks ranges and enumerated values.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}

	switch c.GPIO.Driver {
	case "cdev", "rpio", "fake":
	default:
		errs = append(errs, "gpio.driver must be cdev, rpio or fake")
	}
	if c.GPIO.Pin < 0 {
		errs = append(errs, "gpio.pin must not be negative")
	}

	if c.Latch.DefaultSeconds < 0 || c.Latch.DefaultSeconds > 3600 {
		errs = append(errs, "latch.default_seconds must be between 0 and 3600")
	}
	switch c.Latch.Revert {
	case "none", "revert_to_prior":
	default:
		errs = append(errs, "latch.revert must be none or revert_to_prior")
	}
	switch c.Latch.Clamp {
	case "zero_or_range", "strict":
	default:
		errs = append(errs, "latch.clamp must be zero_or_range or strict")
	}
	// The poll loop is the only thing that unlocks or reverts the output, so
	// it has to run well inside the minimum one-second latch.
	if c.Latch.PollInterval <= 0 || c.Latch.PollInterval > 500*time.Millisecond {
		errs = append(errs, "latch.poll_interval must be positive and at most 500ms")
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.BufferSize < 1 {
		errs = append(errs, "mqtt.buffer_size must be at least 1")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when the journal is enabled")
	}
	if c.MDNS.Enabled && c.MDNS.Instance == "" {
		errs = append(errs, "mdns.instance is required when mdns is enabled")
	}
	if c.Heartbeat < 0 {
		errs = append(errs, "heartbeat must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
