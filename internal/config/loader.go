// Package config loads configuration structs from defaults, config files and
// command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configurable represents a type that can be configured via flags and config files.
type Configurable interface {
	// AddFlags should add command-line flags to the provided FlagSet
	AddFlags(fs *pflag.FlagSet)
}

// ConfigLoader provides common configuration loading functionality.
type ConfigLoader struct {
	configFile   string
	defaults     map[string]any
	preserveFile bool
	strictMode   bool
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		defaults:     make(map[string]any),
		preserveFile: true,
		strictMode:   false,
	}
}

// DefaultConfigFile returns the default location of a program's config file
// under the XDG config directory.
func DefaultConfigFile(name string) string {
	return filepath.Join(xdg.ConfigHome, "devicesim", name)
}

// SetConfigFile sets the configuration file path.
func (cl *ConfigLoader) SetConfigFile(configFile string) {
	cl.configFile = configFile
}

// SetDefault sets a default value for a configuration key.
func (cl *ConfigLoader) SetDefault(key string, value any) {
	cl.defaults[key] = value
}

// SetDefaults sets multiple default values at once.
func (cl *ConfigLoader) SetDefaults(defaults map[string]any) {
	for key, value := range defaults {
		cl.defaults[key] = value
	}
}

// SetStrictMode enables or disables strict mode for configuration validation.
// In strict mode, unknown configuration fields will cause an error.
func (cl *ConfigLoader) SetStrictMode(strict bool) {
	cl.strictMode = strict
}

// LoadConfig loads configuration using the global pflag.CommandLine flag set.
func (cl *ConfigLoader) LoadConfig(config any) error {
	return cl.LoadConfigWithFlagSet(config, pflag.CommandLine)
}

// LoadConfigWithFlagSet loads configuration with proper precedence:
// defaults < config file < flags explicitly set in fs. The config parameter
// should be a pointer to the configuration struct to populate.
func (cl *ConfigLoader) LoadConfigWithFlagSet(config any, fs *pflag.FlagSet) error {
	v := viper.New()

	for key, value := range cl.defaults {
		v.SetDefault(key, value)
	}

	if cl.configFile != "" {
		v.SetConfigFile(cl.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w %s: %v", ErrConfigFileRead, cl.configFile, err)
		}
	}

	// Only flags that were explicitly set override the config file
	if fs != nil {
		fs.Visit(func(flag *pflag.Flag) {
			v.Set(flag.Name, flagValue(flag))
		})
	}

	settings := expandEnv(v.AllSettings()).(map[string]any)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		ErrorUnused:      cl.strictMode,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create decoder: %v", ErrConfigUnmarshal, err)
	}

	if err := decoder.Decode(settings); err != nil {
		errStr := err.Error()
		if cl.configFile != "" && strings.Contains(errStr, "has invalid keys:") {
			return fmt.Errorf("%w: %s: %s", ErrConfigUnmarshal, cl.configFile, errStr)
		}
		return fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
	}

	// Restore the config file path; it is not part of the file's own settings
	if cl.preserveFile && cl.configFile != "" {
		if err := cl.setConfigFileField(config, cl.configFile); err != nil {
			return err
		}
	}

	return nil
}

// flagValue converts a flag to a typed value so numeric and boolean flags
// decode cleanly.
func flagValue(flag *pflag.Flag) any {
	str := flag.Value.String()

	switch flag.Value.Type() {
	case "uint", "uint8", "uint16", "uint32", "uint64":
		if val, err := strconv.ParseUint(str, 10, 64); err == nil {
			return val
		}
	case "int", "int8", "int16", "int32", "int64":
		if val, err := strconv.ParseInt(str, 10, 64); err == nil {
			return val
		}
	case "bool":
		if val, err := strconv.ParseBool(str); err == nil {
			return val
		}
	case "float32", "float64":
		if val, err := strconv.ParseFloat(str, 64); err == nil {
			return val
		}
	case "stringSlice", "stringArray":
		if sliceFlag, ok := flag.Value.(pflag.SliceValue); ok {
			return sliceFlag.GetSlice()
		}
	}

	return str
}

// expandEnv replaces $VAR and ${VAR} references in string values with the
// value of the environment variable. References to unset variables are left
// untouched.
func expandEnv(value any) any {
	switch val := value.(type) {
	case string:
		return envPattern.ReplaceAllStringFunc(val, func(ref string) string {
			name := strings.Trim(ref, "${}")
			if expanded, ok := os.LookupEnv(name); ok {
				return expanded
			}
			return ref
		})
	case map[string]any:
		for k, item := range val {
			val[k] = expandEnv(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = expandEnv(item)
		}
		return val
	default:
		return value
	}
}

// setConfigFileField sets a ConfigFile field on the config struct, if it has one.
func (cl *ConfigLoader) setConfigFileField(config any, configFile string) error {
	v := reflect.ValueOf(config)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrConfigNotPointer, config)
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %s", ErrConfigNotStruct, v.Kind())
	}

	field := v.FieldByName("ConfigFile")
	if !field.IsValid() {
		return nil
	}

	if !field.CanSet() {
		return fmt.Errorf("%w: ConfigFile", ErrConfigFieldNotSet)
	}

	if field.Kind() != reflect.String {
		return fmt.Errorf("%w: ConfigFile is %s", ErrConfigFieldNotString, field.Kind())
	}

	field.SetString(configFile)
	return nil
}

// StandardConfigPattern loads config from configFile and the global flag set.
func StandardConfigPattern(config Configurable, configFile string, defaults map[string]any) error {
	loader := NewConfigLoader()
	loader.SetConfigFile(configFile)
	if defaults != nil {
		loader.SetDefaults(defaults)
	}

	return loader.LoadConfig(config)
}
