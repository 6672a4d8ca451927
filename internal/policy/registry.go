package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Factory creates a failing policy from configuration options
type Factory interface {
	CreatePolicy(options map[string]any) (FailingPolicy, error)
	ValidateConfig(options map[string]any) error
}

// Registry manages policy factories
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new, empty policy registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a policy factory to the registry
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrPolicyExists, name)
	}

	r.factories[name] = factory
	return nil
}

// Create creates a failing policy using the named factory
func (r *Registry) Create(name string, options map[string]any) (FailingPolicy, error) {
	factory, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return factory.CreatePolicy(options)
}

// ValidateConfig validates options for the named policy
func (r *Registry) ValidateConfig(name string, options map[string]any) error {
	factory, err := r.lookup(name)
	if err != nil {
		return err
	}
	return factory.ValidateConfig(options)
}

// ListPolicies returns the sorted names of all registered policies
func (r *Registry) ListPolicies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	return factory, nil
}

// decodeOptions decodes an options map into target, rejecting unknown keys.
func decodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// RandomConfig represents random policy options
type RandomConfig struct {
	Seed *int64 `mapstructure:"seed"`
}

// RandomFactory implements Factory for the random policy
type RandomFactory struct{}

// CreatePolicy creates a random policy, seeded if a seed is configured
func (f *RandomFactory) CreatePolicy(options map[string]any) (FailingPolicy, error) {
	var cfg RandomConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return nil, err
	}

	if cfg.Seed != nil {
		return NewSeededRandomFailing(uint64(*cfg.Seed)), nil
	}
	return NewRandomFailing(nil), nil
}

// ValidateConfig validates random policy options
func (f *RandomFactory) ValidateConfig(options map[string]any) error {
	var cfg RandomConfig
	return decodeOptions(options, &cfg)
}

// CountdownConfig represents countdown policy options
type CountdownConfig struct {
	Failures *int `mapstructure:"failures"`
}

// CountdownFactory implements Factory for the countdown policy
type CountdownFactory struct{}

// CreatePolicy creates a countdown policy
func (f *CountdownFactory) CreatePolicy(options map[string]any) (FailingPolicy, error) {
	failures, err := f.parseConfig(options)
	if err != nil {
		return nil, err
	}
	return NewCountdownFailing(failures), nil
}

// ValidateConfig validates countdown policy options
func (f *CountdownFactory) ValidateConfig(options map[string]any) error {
	_, err := f.parseConfig(options)
	return err
}

func (f *CountdownFactory) parseConfig(options map[string]any) (uint, error) {
	var cfg CountdownConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return 0, err
	}

	if cfg.Failures == nil {
		return 1, nil // Default value
	}
	if *cfg.Failures < 0 {
		return 0, fmt.Errorf("%w: failures must be non-negative", ErrInvalidOptions)
	}
	return uint(*cfg.Failures), nil
}

// staticFactory implements Factory for policies without options
type staticFactory struct {
	create func() FailingPolicy
}

func (f *staticFactory) CreatePolicy(options map[string]any) (FailingPolicy, error) {
	if err := f.ValidateConfig(options); err != nil {
		return nil, err
	}
	return f.create(), nil
}

func (f *staticFactory) ValidateConfig(options map[string]any) error {
	var cfg struct{}
	return decodeOptions(options, &cfg)
}

// Default registry instance
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry holding the built-in policies
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a policy factory to the default registry
func Register(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// Create creates a policy using the default registry
func Create(name string, options map[string]any) (FailingPolicy, error) {
	return defaultRegistry.Create(name, options)
}

// ValidateConfig validates policy options using the default registry
func ValidateConfig(name string, options map[string]any) error {
	return defaultRegistry.ValidateConfig(name, options)
}

// ListPolicies returns the names of all policies in the default registry
func ListPolicies() []string {
	return defaultRegistry.ListPolicies()
}

func init() {
	Register(RandomName, &RandomFactory{})
	Register(CountdownName, &CountdownFactory{})
	Register(NeverFailingName, &staticFactory{create: func() FailingPolicy { return NewNeverFailing() }})
	Register(AlwaysFailingName, &staticFactory{create: func() FailingPolicy { return NewAlwaysFailing() }})
}
