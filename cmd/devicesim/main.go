package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/devicesim/internal/device"
	_ "github.com/larsks/devicesim/internal/logsetup"
	"github.com/larsks/devicesim/internal/policy"
	"github.com/larsks/devicesim/internal/version"
)

// options holds the simulator's command line settings
type options struct {
	policy       string
	seed         int64
	failures     int
	attempts     int
	listPolicies bool
	showVersion  bool
	seedSet      bool
}

// summary counts the outcome of a simulation run
type summary struct {
	Attempts int
	On       int
	Denied   int
}

func parseArgs(args []string, fs *pflag.FlagSet) (*options, error) {
	opts := &options{}
	fs.StringVarP(&opts.policy, "policy", "p", policy.RandomName, "Failing policy to simulate")
	fs.Int64Var(&opts.seed, "seed", 0, "Seed for the random policy (default: time-seeded)")
	fs.IntVar(&opts.failures, "failures", 1, "Number of denied attempts for the countdown policy")
	fs.IntVarP(&opts.attempts, "attempts", "n", 10, "Number of on/off cycles to run")
	fs.BoolVar(&opts.listPolicies, "list-policies", false, "List available policies and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	opts.seedSet = fs.Changed("seed")

	if opts.attempts < 0 {
		return nil, fmt.Errorf("attempts must not be negative: %d", opts.attempts)
	}

	return opts, nil
}

// policyOptions builds the registry options for the selected policy
func (o *options) policyOptions() map[string]any {
	switch o.policy {
	case policy.RandomName:
		if o.seedSet {
			return map[string]any{"seed": o.seed}
		}
	case policy.CountdownName:
		return map[string]any{"failures": o.failures}
	}
	return nil
}

// simulate runs on/off cycles against a single device and writes each
// rendering to w.
func simulate(dev *device.StandardDevice, attempts int, w io.Writer) summary {
	result := summary{Attempts: attempts}

	fmt.Fprintf(w, "initial: %s\n", dev) //nolint:errcheck
	for i := 1; i <= attempts; i++ {
		if err := dev.On(); err != nil {
			if !errors.Is(err, device.ErrIllegalState) {
				log.Printf("unexpected error from device: %v", err)
			}
			result.Denied++
			fmt.Fprintf(w, "attempt %d: denied: %s\n", i, dev) //nolint:errcheck
			continue
		}

		result.On++
		fmt.Fprintf(w, "attempt %d: on: %s\n", i, dev) //nolint:errcheck
		dev.Off()
	}

	return result
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("devicesim", pflag.ContinueOnError)
	opts, err := parseArgs(args, fs)
	if err != nil {
		return err
	}

	if opts.showVersion {
		version.WriteVersion(stdout)
		return nil
	}

	if opts.listPolicies {
		for _, name := range policy.ListPolicies() {
			fmt.Fprintln(stdout, name) //nolint:errcheck
		}
		return nil
	}

	p, err := policy.Create(opts.policy, opts.policyOptions())
	if err != nil {
		return err
	}

	dev, err := device.NewStandardDevice(p)
	if err != nil {
		return err
	}

	result := simulate(dev, opts.attempts, stdout)
	fmt.Fprintf(stdout, "%d attempts: %d on, %d denied\n", result.Attempts, result.On, result.Denied) //nolint:errcheck
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
