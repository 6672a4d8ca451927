package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/larsks/devicesim/internal/device"
	"github.com/larsks/devicesim/internal/devicecollection"
)

const allDevices = "all"

const (
	deviceStateOn    = "on"
	deviceStateOff   = "off"
	deviceStateReset = "reset"
)

type deviceRequest struct {
	State    string `json:"state"`
	Duration *int   `json:"duration,omitempty"`
}

// APIResponse is the envelope for every API response
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// DeviceListResponse describes all devices
type DeviceListResponse struct {
	Count   int                             `json:"count"`
	AllOn   bool                            `json:"allOn"`
	Devices []devicecollection.DeviceStatus `json:"devices"`
}

func (s *Server) sendResponse(w http.ResponseWriter, resp APIResponse, httpCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, httpCode int) {
	s.sendResponse(w, APIResponse{Status: "error", Message: message}, httpCode)
}

func (s *Server) sendOK(w http.ResponseWriter, data interface{}) {
	s.sendResponse(w, APIResponse{Status: "ok", Data: data}, http.StatusOK)
}

func (s *Server) deviceList() DeviceListResponse {
	statuses := s.devices.StatusAll()
	return DeviceListResponse{
		Count:   len(statuses),
		AllOn:   s.devices.AllOn(),
		Devices: statuses,
	}
}

// statusData returns the status payload for a device name or "all"
func (s *Server) statusData(name string) (interface{}, error) {
	if name == allDevices {
		return s.deviceList(), nil
	}
	return s.devices.Status(name)
}

func (s *Server) listDevicesHandler(w http.ResponseWriter, r *http.Request) {
	s.sendOK(w, s.deviceList())
}

func (s *Server) listPoliciesHandler(w http.ResponseWriter, r *http.Request) {
	s.sendOK(w, s.registry.ListPolicies())
}

func (s *Server) deviceStatusHandler(w http.ResponseWriter, r *http.Request) {
	data, err := s.statusData(chi.URLParam(r, "name"))
	if err != nil {
		s.sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.sendOK(w, data)
}

func (s *Server) deviceHandler(w http.ResponseWriter, r *http.Request) {
	req := r.Context().Value(deviceRequestKey).(deviceRequest)
	name := chi.URLParam(r, "name")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	targets := []string{name}
	if name == allDevices {
		targets = s.devices.Names()
	}

	// Any explicit request supersedes a pending automatic turn-off
	for _, target := range targets {
		s.cancelTimer(target)
	}

	var opErr error
	switch req.State {
	case deviceStateOn:
		if name == allDevices {
			opErr = s.devices.TurnOnAll()
		} else {
			opErr = s.devices.TurnOn(name)
		}

		if req.Duration != nil {
			duration := time.Duration(*req.Duration) * time.Second
			for _, target := range targets {
				if status, err := s.devices.Status(target); err == nil && status.On {
					s.scheduleOff(target, duration)
				}
			}
		}
	case deviceStateOff:
		if name == allDevices {
			s.devices.TurnOffAll()
		} else {
			opErr = s.devices.TurnOff(name)
		}
	case deviceStateReset:
		if name == allDevices {
			s.devices.ResetAll()
		} else {
			opErr = s.devices.ResetDevice(name)
		}
	}

	data, err := s.statusData(name)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusNotFound)
		return
	}

	if opErr != nil {
		httpCode := http.StatusInternalServerError
		switch {
		case errors.Is(opErr, device.ErrIllegalState):
			httpCode = http.StatusConflict
		case errors.Is(opErr, devicecollection.ErrUnknownDevice):
			httpCode = http.StatusNotFound
		}
		s.sendResponse(w, APIResponse{Status: "error", Message: opErr.Error(), Data: data}, httpCode)
		return
	}

	s.sendOK(w, data)
}

// cancelTimer stops a pending automatic turn-off. Caller holds s.mutex.
func (s *Server) cancelTimer(name string) {
	if timer, ok := s.timers[name]; ok {
		timer.Stop()
		delete(s.timers, name)
	}
}

// scheduleOff turns a device off after duration. Caller holds s.mutex.
func (s *Server) scheduleOff(name string, duration time.Duration) {
	var timer *time.Timer
	timer = time.AfterFunc(duration, func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		// Superseded by a later request
		if s.timers[name] != timer {
			return
		}
		delete(s.timers, name)

		if err := s.devices.TurnOff(name); err != nil {
			log.Printf("failed to automatically turn off device %s: %v", name, err)
			return
		}
		log.Printf("automatically turned off device %s after %s", name, duration)
	})
	s.timers[name] = timer
}

// pendingTimers returns the number of scheduled automatic turn-offs.
func (s *Server) pendingTimers() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.timers)
}
