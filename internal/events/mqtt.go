package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT errors
var (
	ErrInvalidServerURL = errors.New("invalid MQTT server URL")
	ErrNotConnected     = errors.New("MQTT client is not connected")
)

// MQTTConfig holds MQTT publisher configuration
type MQTTConfig struct {
	ServerURL         string        `mapstructure:"server-url"`
	ClientID          string        `mapstructure:"client-id"`
	TopicPrefix       string        `mapstructure:"topic-prefix"`
	MaxRetries        int           `mapstructure:"max-retries"` // 0 = infinite
	InitialRetryDelay time.Duration `mapstructure:"initial-retry-delay"`
	MaxRetryDelay     time.Duration `mapstructure:"max-retry-delay"`
}

// MQTTPublisher publishes state events to an MQTT broker
type MQTTPublisher struct {
	client mqtt.Client
	prefix string

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewMQTTPublisher creates a publisher and starts connecting in the
// background, retrying with exponential backoff if the broker is unavailable.
func NewMQTTPublisher(config MQTTConfig) (*MQTTPublisher, error) {
	parsedURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
	}

	if parsedURL.Scheme != "mqtt" {
		return nil, fmt.Errorf("%w: must use mqtt:// scheme", ErrInvalidServerURL)
	}

	initialDelay := config.InitialRetryDelay
	if initialDelay == 0 {
		initialDelay = time.Second
	}
	maxDelay := config.MaxRetryDelay
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = "devicesim"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.ServerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxDelay)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("connected to MQTT broker at %s", config.ServerURL)
	})

	client := mqtt.NewClient(opts)

	p := newMQTTPublisherWithClient(client, config.TopicPrefix)
	p.startConnecting(initialDelay, maxDelay, config.MaxRetries)
	return p, nil
}

func newMQTTPublisherWithClient(client mqtt.Client, prefix string) *MQTTPublisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "devicesim"
	}
	return &MQTTPublisher{
		client: client,
		prefix: prefix,
		done:   make(chan struct{}),
	}
}

// startConnecting runs the connect loop in the background until it
// succeeds, runs out of retries, or the publisher is closed.
func (p *MQTTPublisher) startConnecting(initialDelay, maxDelay time.Duration, maxRetries int) {
	p.stopped = make(chan struct{})
	go func() {
		defer close(p.stopped)
		p.connect(initialDelay, maxDelay, maxRetries)
	}()
}

func (p *MQTTPublisher) connect(initialDelay, maxDelay time.Duration, maxRetries int) {
	delay := initialDelay
	attempt := 0
	for {
		token := p.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			attempt++
			if maxRetries > 0 && attempt >= maxRetries {
				log.Printf("failed to connect to MQTT broker after %d attempts, giving up: %v", attempt, err)
				return
			}

			log.Printf("failed to connect to MQTT broker (attempt %d): %v; retrying in %v", attempt, err, delay)
			select {
			case <-p.done:
				return
			case <-time.After(delay):
			}

			delay = delay * 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		// Close may have run while the connection attempt was in flight
		select {
		case <-p.done:
			p.client.Disconnect(250)
		default:
		}
		return
	}
}

// Topic returns the topic state events for the named device are published to
func (p *MQTTPublisher) Topic(name string) string {
	return fmt.Sprintf("%s/%s/state", p.prefix, name)
}

// Publish sends a state event with QoS 0, not retained
func (p *MQTTPublisher) Publish(event StateEvent) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	if token := p.client.Publish(p.Topic(event.Device), 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish MQTT message: %w", token.Error())
	}

	return nil
}

// Close stops any pending connection attempts and disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Printf("disconnected from MQTT broker")
	}
	return nil
}
