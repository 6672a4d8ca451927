package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsks/devicesim/internal/config"
	"github.com/larsks/devicesim/internal/devicecollection"
	"github.com/larsks/devicesim/internal/policy"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deviced.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadTestConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cfg, cfg.LoadConfigWithFlagSet(fs)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "", cfg.ListenAddress)
	assert.Equal(t, 8080, cfg.ListenPort)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "devicesim", cfg.MQTT.TopicPrefix)
	assert.Empty(t, cfg.Devices)
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen-address = "127.0.0.1"
listen-port = 9090

[devices.lamp]
policy = "never-failing"

[devices.flaky]
policy = "random"
options = { seed = 42 }

[devices.heater]
policy = "countdown"
options = { failures = 3 }

[mqtt]
server-url = "mqtt://broker:1883"
topic-prefix = "lab"
`)

	cfg, err := loadTestConfig(t, "--config-file", path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
	assert.Equal(t, "mqtt://broker:1883", cfg.MQTT.ServerURL)
	assert.Equal(t, "lab", cfg.MQTT.TopicPrefix)

	require.Len(t, cfg.Devices, 3)
	assert.Equal(t, policy.NeverFailingName, cfg.Devices["lamp"].Policy)
	assert.Equal(t, policy.RandomName, cfg.Devices["flaky"].Policy)
	assert.EqualValues(t, 42, cfg.Devices["flaky"].Options["seed"])
	assert.EqualValues(t, 3, cfg.Devices["heater"].Options["failures"])
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
listen-port = 9090

[devices.lamp]
policy = "never-failing"
`)

	cfg, err := loadTestConfig(t, "--config-file", path, "--listen-port", "7070", "--mqtt.topic-prefix", "override")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.ListenPort)
	assert.Equal(t, "override", cfg.MQTT.TopicPrefix)
}

func TestLoadConfigDefaultDevices(t *testing.T) {
	path := writeConfigFile(t, `listen-port = 9090`)

	cfg, err := loadTestConfig(t, "--config-file", path)
	require.NoError(t, err)

	assert.Equal(t, DefaultDevices(), cfg.Devices)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "unknown key",
			content: "bogus = true\n",
			wantErr: config.ErrConfigUnmarshal,
		},
		{
			name:    "invalid port",
			content: "listen-port = 70000\n",
			wantErr: ErrInvalidPort,
		},
		{
			name:    "unknown policy",
			content: "[devices.lamp]\npolicy = \"sometimes\"\n",
			wantErr: policy.ErrUnknownPolicy,
		},
		{
			name:    "missing policy",
			content: "[devices.lamp]\noptions = { seed = 1 }\n",
			wantErr: devicecollection.ErrPolicyRequired,
		},
		{
			name:    "invalid options",
			content: "[devices.lamp]\npolicy = \"countdown\"\noptions = { failures = -1 }\n",
			wantErr: policy.ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := loadTestConfig(t, "--config-file", path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadTestConfig(t, "--config-file", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigFileRead)
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrNoDevices)

	cfg.Devices = DefaultDevices()
	assert.NoError(t, cfg.Validate())

	cfg.ListenPort = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
}
