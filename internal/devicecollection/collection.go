// Package devicecollection manages a set of named devices and serializes
// access to them.
package devicecollection

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/larsks/devicesim/internal/device"
	"github.com/larsks/devicesim/internal/policy"
)

// Operation names passed to an Observer.
const (
	OpOn    = "on"
	OpOff   = "off"
	OpReset = "reset"
)

// Observer is notified after every device operation. err is non-nil only
// when a turn-on attempt was denied.
type Observer func(name string, op string, on bool, err error)

// DeviceConfig describes one device in a configuration file.
type DeviceConfig struct {
	Policy  string         `mapstructure:"policy"`
	Options map[string]any `mapstructure:"options"`
}

// DeviceStatus is a snapshot of a single device.
type DeviceStatus struct {
	Name        string `json:"name" yaml:"name"`
	ID          string `json:"id" yaml:"id"`
	Policy      string `json:"policy" yaml:"policy"`
	On          bool   `json:"on" yaml:"on"`
	Description string `json:"description" yaml:"description"`
}

type entry struct {
	id     uuid.UUID
	device device.Device
	policy string
}

// Collection holds named devices.
type Collection struct {
	devices  map[string]*entry
	observer Observer
	mutex    sync.RWMutex
}

// New creates an empty collection.
func New() *Collection {
	return &Collection{
		devices: make(map[string]*entry),
	}
}

// FromConfig builds a collection from device configurations, creating each
// device's policy through the registry.
func FromConfig(devices map[string]DeviceConfig, registry *policy.Registry) (*Collection, error) {
	if registry == nil {
		registry = policy.DefaultRegistry()
	}

	c := New()
	for _, name := range sortedKeys(devices) {
		cfg := devices[name]
		if cfg.Policy == "" {
			return nil, fmt.Errorf("%w: device %s", ErrPolicyRequired, name)
		}

		p, err := registry.Create(cfg.Policy, cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to create policy for device %s: %w", name, err)
		}

		dev, err := device.NewStandardDevice(p)
		if err != nil {
			return nil, fmt.Errorf("failed to create device %s: %w", name, err)
		}

		if err := c.Add(name, dev); err != nil {
			return nil, err
		}
	}

	log.Printf("created device collection with %d devices", c.Count())
	return c, nil
}

// SetObserver installs a function that is called after every operation.
func (c *Collection) SetObserver(obs Observer) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.observer = obs
}

// Add registers a device under the given name.
func (c *Collection) Add(name string, dev device.Device) error {
	if name == "" || name == "all" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.devices[name]; exists {
		return fmt.Errorf("%w: %s", ErrDeviceExists, name)
	}

	e := &entry{
		id:     uuid.New(),
		device: dev,
	}
	if sd, ok := dev.(*device.StandardDevice); ok {
		e.policy = sd.Policy().PolicyName()
	}

	c.devices[name] = e
	return nil
}

// Get returns the named device.
func (c *Collection) Get(name string) (device.Device, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.device, nil
}

// Has reports whether a device with the given name exists.
func (c *Collection) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, exists := c.devices[name]
	return exists
}

// Names returns the sorted device names.
func (c *Collection) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return sortedKeys(c.devices)
}

// Count returns the number of devices.
func (c *Collection) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.devices)
}

// TurnOn attempts to turn on the named device.
func (c *Collection) TurnOn(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	return c.turnOn(name, e)
}

// TurnOff turns off the named device.
func (c *Collection) TurnOff(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	c.turnOff(name, e)
	return nil
}

// ResetDevice resets the named device and its policy.
func (c *Collection) ResetDevice(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	c.reset(name, e)
	return nil
}

// TurnOnAll attempts to turn on every device. A denied device does not stop
// the remaining attempts; the returned error wraps every denial.
func (c *Collection) TurnOnAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	log.Printf("turning on all devices")
	collector := NewErrorCollector()
	for _, name := range sortedKeys(c.devices) {
		collector.Add(name, c.turnOn(name, c.devices[name]))
	}
	return collector.Result("failed to turn on devices")
}

// TurnOffAll turns off every device.
func (c *Collection) TurnOffAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	log.Printf("turning off all devices")
	for _, name := range sortedKeys(c.devices) {
		c.turnOff(name, c.devices[name])
	}
}

// ResetAll resets every device.
func (c *Collection) ResetAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	log.Printf("resetting all devices")
	for _, name := range sortedKeys(c.devices) {
		c.reset(name, c.devices[name])
	}
}

// Status returns a snapshot of the named device.
func (c *Collection) Status(name string) (DeviceStatus, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, err := c.lookup(name)
	if err != nil {
		return DeviceStatus{}, err
	}
	return e.status(name), nil
}

// StatusAll returns snapshots of every device, sorted by name.
func (c *Collection) StatusAll() []DeviceStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	statuses := make([]DeviceStatus, 0, len(c.devices))
	for _, name := range sortedKeys(c.devices) {
		statuses = append(statuses, c.devices[name].status(name))
	}
	return statuses
}

// AllOn returns true if every device is on.
func (c *Collection) AllOn() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, e := range c.devices {
		if !e.device.IsOn() {
			return false
		}
	}
	return len(c.devices) > 0
}

func (c *Collection) String() string {
	return fmt.Sprintf("device collection with %d devices", c.Count())
}

func (c *Collection) lookup(name string) (*entry, error) {
	e, exists := c.devices[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return e, nil
}

func (c *Collection) turnOn(name string, e *entry) error {
	log.Printf("turning on device %s", name)
	err := e.device.On()
	if err != nil {
		log.Printf("device %s did not turn on: %v", name, err)
	}
	c.notify(name, OpOn, e, err)
	return err
}

func (c *Collection) turnOff(name string, e *entry) {
	log.Printf("turning off device %s", name)
	e.device.Off()
	c.notify(name, OpOff, e, nil)
}

func (c *Collection) reset(name string, e *entry) {
	log.Printf("resetting device %s", name)
	e.device.Reset()
	c.notify(name, OpReset, e, nil)
}

func (c *Collection) notify(name, op string, e *entry, err error) {
	if c.observer != nil {
		c.observer(name, op, e.device.IsOn(), err)
	}
}

func (e *entry) status(name string) DeviceStatus {
	return DeviceStatus{
		Name:        name,
		ID:          e.id.String(),
		Policy:      e.policy,
		On:          e.device.IsOn(),
		Description: e.device.String(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
