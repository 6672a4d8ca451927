package api

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/devicesim/internal/config"
	"github.com/larsks/devicesim/internal/devicecollection"
	"github.com/larsks/devicesim/internal/events"
	"github.com/larsks/devicesim/internal/policy"
)

// Config holds the configuration for the API server.
type Config struct {
	ListenAddress string                                   `mapstructure:"listen-address"`
	ListenPort    int                                      `mapstructure:"listen-port"`
	ConfigFile    string                                   `mapstructure:"config-file"`
	CORSOrigins   []string                                 `mapstructure:"cors-origins"`
	Devices       map[string]devicecollection.DeviceConfig `mapstructure:"devices"`
	MQTT          events.MQTTConfig                        `mapstructure:"mqtt"`
}

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress: "",
		ListenPort:    8080,
		CORSOrigins:   []string{"*"},
		MQTT: events.MQTTConfig{
			TopicPrefix: "devicesim",
		},
	}
}

// DefaultDevices is the device set used when the configuration names none.
func DefaultDevices() map[string]devicecollection.DeviceConfig {
	return map[string]devicecollection.DeviceConfig{
		"device": {Policy: policy.RandomName},
	}
}

func defaultConfigFile() string {
	return config.DefaultConfigFile("deviced.toml")
}

// AddFlags adds pflag flags for the configuration.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config-file", defaultConfigFile(), "Config file to use")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Listen address for http server")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "Listen port for http server")
	fs.StringSliceVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Allowed CORS origins")
	fs.StringVar(&c.MQTT.ServerURL, "mqtt.server-url", c.MQTT.ServerURL, "MQTT broker URL for state events (empty to disable)")
	fs.StringVar(&c.MQTT.TopicPrefix, "mqtt.topic-prefix", c.MQTT.TopicPrefix, "MQTT topic prefix")
}

// LoadConfig loads the configuration using the global flag set.
func (c *Config) LoadConfig() error {
	return c.LoadConfigWithFlagSet(pflag.CommandLine)
}

// LoadConfigWithFlagSet loads the configuration with precedence
// defaults < config file < explicit flags.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	// A missing default config file is not an error; a missing explicit one is
	if c.ConfigFile == defaultConfigFile() {
		if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
			c.ConfigFile = ""
		}
	}

	loader := config.NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)
	loader.SetStrictMode(true)
	loader.SetDefaults(map[string]any{
		"listen-address":    c.ListenAddress,
		"listen-port":       c.ListenPort,
		"cors-origins":      c.CORSOrigins,
		"mqtt.server-url":   c.MQTT.ServerURL,
		"mqtt.topic-prefix": c.MQTT.TopicPrefix,
	})

	if err := loader.LoadConfigWithFlagSet(c, fs); err != nil {
		return err
	}

	if len(c.Devices) == 0 {
		c.Devices = DefaultDevices()
	}

	return c.Validate()
}

// Validate checks the listen port and every device's policy configuration.
func (c *Config) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.ListenPort)
	}

	if len(c.Devices) == 0 {
		return ErrNoDevices
	}

	for name, dev := range c.Devices {
		if dev.Policy == "" {
			return fmt.Errorf("device %s: %w", name, devicecollection.ErrPolicyRequired)
		}
		if err := policy.ValidateConfig(dev.Policy, dev.Options); err != nil {
			return fmt.Errorf("device %s: %w", name, err)
		}
	}

	return nil
}

// ListenAddr returns the host:port the server listens on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}
