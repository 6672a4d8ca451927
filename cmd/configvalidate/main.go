package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/devicesim/internal/api"
	"github.com/larsks/devicesim/internal/devicecollection"
	"github.com/larsks/devicesim/internal/devicectl"
	_ "github.com/larsks/devicesim/internal/logsetup"
	"github.com/larsks/devicesim/internal/version"
)

var (
	ErrMissingFlag = errors.New("missing required flag")
	ErrUnknownType = errors.New("unknown configuration type")
	ErrNoFile      = errors.New("configuration file does not exist")
)

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("configvalidate", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		versionFlag = fs.Bool("version", false, "Show version and exit")
		configType  = fs.String("type", "", "Configuration type: deviced or devicectl")
		configFile  = fs.String("config", "", "Configuration file to validate")
		helpFlag    = fs.BoolP("help", "h", false, "Show help")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *versionFlag {
		version.WriteVersion(stdout)
		return nil
	}

	if *helpFlag {
		usage(fs, stdout)
		return nil
	}

	if *configFile == "" {
		return fmt.Errorf("%w: --config", ErrMissingFlag)
	}
	if *configType == "" {
		return fmt.Errorf("%w: --type", ErrMissingFlag)
	}

	if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNoFile, *configFile)
	}

	var err error
	switch *configType {
	case "deviced":
		err = validateDevicedConfig(*configFile)
	case "devicectl":
		err = validateDevicectlConfig(*configFile)
	default:
		return fmt.Errorf("%w: %q (must be 'deviced' or 'devicectl')", ErrUnknownType, *configType)
	}

	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Configuration file %s is valid for %s\n", *configFile, *configType) //nolint:errcheck
	return nil
}

func usage(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: configvalidate --type TYPE --config FILE\n\n")         //nolint:errcheck
	fmt.Fprintf(w, "A tool for validating devicesim configuration files.\n\n")    //nolint:errcheck
	fmt.Fprintf(w, "Options:\n%s\n", fs.FlagUsages())                             //nolint:errcheck
	fmt.Fprintf(w, "Examples:\n")                                                 //nolint:errcheck
	fmt.Fprintf(w, "  configvalidate --type deviced --config deviced.toml\n")     //nolint:errcheck
	fmt.Fprintf(w, "  configvalidate --type devicectl --config devicectl.toml\n") //nolint:errcheck
}

// validateDevicedConfig loads the server configuration and builds every
// configured device, so policy options are checked the same way the server
// checks them.
func validateDevicedConfig(configFile string) error {
	cfg := api.NewConfig()
	fs := pflag.NewFlagSet("deviced", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	cfg.ConfigFile = configFile

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return fmt.Errorf("failed to load deviced configuration: %w", err)
	}

	if _, err := devicecollection.FromConfig(cfg.Devices, nil); err != nil {
		return fmt.Errorf("failed to create devices: %w", err)
	}

	return nil
}

func validateDevicectlConfig(configFile string) error {
	cfg := devicectl.NewConfig()
	fs := pflag.NewFlagSet("devicectl", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	cfg.ConfigFile = configFile

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return fmt.Errorf("failed to load devicectl configuration: %w", err)
	}

	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
