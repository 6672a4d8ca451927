package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/larsks/devicesim/internal/devicecollection"
	"github.com/larsks/devicesim/internal/events"
	"github.com/larsks/devicesim/internal/httpserver"
	"github.com/larsks/devicesim/internal/metrics"
	"github.com/larsks/devicesim/internal/policy"
)

// Server represents the API server.
type Server struct {
	listenAddr string
	devices    *devicecollection.Collection
	registry   *policy.Registry
	metrics    *metrics.Metrics
	publisher  events.Publisher
	timers     map[string]*time.Timer
	mutex      sync.Mutex
	router     *chi.Mux
}

// NewServer creates a new Server instance from configuration.
func NewServer(cfg *Config) (*Server, error) {
	registry := policy.DefaultRegistry()

	devices, err := devicecollection.FromConfig(cfg.Devices, registry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceSetupFailed, err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.MQTT.ServerURL != "" {
		mqttPublisher, err := events.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPublisherSetupFailed, err)
		}
		publisher = mqttPublisher
	}

	return newServerWithDevices(devices, registry, publisher, cfg.ListenAddr(), cfg.CORSOrigins, true), nil
}

// newServerWithDevices wires up a server around an existing collection. Tests
// use it with production set to false to skip request logging.
func newServerWithDevices(devices *devicecollection.Collection, registry *policy.Registry, publisher events.Publisher, listenAddr string, corsOrigins []string, production bool) *Server {
	if registry == nil {
		registry = policy.DefaultRegistry()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &Server{
		listenAddr: listenAddr,
		devices:    devices,
		registry:   registry,
		metrics:    metrics.NewMetrics(),
		publisher:  publisher,
		timers:     make(map[string]*time.Timer),
		router:     chi.NewRouter(),
	}

	for _, status := range devices.StatusAll() {
		s.metrics.SetState(status.Name, status.On)
	}

	publish := events.Observer(publisher)
	devices.SetObserver(func(name, op string, on bool, err error) {
		s.metrics.Observe(name, op, on, err)
		publish(name, op, on, err)
	})

	if production {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/devices", s.listDevicesHandler)
	s.router.Get("/policies", s.listPoliciesHandler)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/device/{name}", func(r chi.Router) {
		r.Use(s.validateDeviceName)
		r.Get("/", s.deviceStatusHandler)
		r.With(s.validateJSONRequest, s.validateDeviceRequest).Post("/", s.deviceHandler)
	})
}

// Router returns the HTTP handler for the server.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the API server and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := httpserver.SignalContext()
	defer stop()

	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve turns every device off and serves requests on listener until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.devices.TurnOffAll()
	return httpserver.Serve(ctx, listener, s.router)
}

// Close stops pending timers and closes the event publisher.
func (s *Server) Close() error {
	s.mutex.Lock()
	for name, timer := range s.timers {
		timer.Stop()
		delete(s.timers, name)
	}
	s.mutex.Unlock()

	return s.publisher.Close()
}
