package devicectl

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/devicesim/internal/config"
)

const defaultServerURL = "http://localhost:8080"

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds the devicectl configuration
type Config struct {
	ServerURL          string `mapstructure:"server-url"`
	ConfigFile         string `mapstructure:"config-file"`
	Output             string `mapstructure:"output"`
	explicitConfigFile bool   // Track if config file was explicitly set
}

func getDefaultServerURL() string {
	if url := os.Getenv("DEVICESIM_SERVER_URL"); url != "" {
		return url
	}

	return defaultServerURL
}

func getDefaultConfigFile() string {
	return config.DefaultConfigFile("devicectl.toml")
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ServerURL: getDefaultServerURL(),
		Output:    OutputText,
	}
}

// AddFlags adds command-line flags for all configuration options
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", getDefaultConfigFile(), "Config file to use")
	fs.StringVar(&c.ServerURL, "server-url", c.ServerURL, "API server URL")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "Output format (text, json, yaml)")
}

// LoadConfigWithFlagSet loads configuration with precedence
// defaults < config file < flags explicitly set in fs.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	c.explicitConfigFile = c.ConfigFile != getDefaultConfigFile()

	if !c.explicitConfigFile {
		if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
			c.ConfigFile = ""
		}
	} else if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, c.ConfigFile)
	}

	loader := config.NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)
	loader.SetDefaults(map[string]any{
		"server-url": getDefaultServerURL(),
		"output":     OutputText,
	})

	if err := loader.LoadConfigWithFlagSet(c, fs); err != nil {
		return err
	}

	return c.Validate()
}

// Validate checks the output format
func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Output)
	}
}
