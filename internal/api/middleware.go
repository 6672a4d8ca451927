package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type (
	contextKey string
)

const deviceRequestKey contextKey = "deviceRequest"

// maxDurationSeconds is the longest auto-off delay that fits in a time.Duration
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// validateDeviceName checks that the {name} parameter is "all" or a known device
func (s *Server) validateDeviceName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if name == "" {
			s.sendError(w, "Device name is required", http.StatusBadRequest)
			return
		}

		if name != allDevices && !s.devices.Has(name) {
			s.sendError(w, fmt.Sprintf("Unknown device name: %s", name), http.StatusNotFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validateJSONRequest validates that the request has a JSON content type, if any
func (s *Server) validateJSONRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType := r.Header.Get("Content-Type"); contentType != "" {
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || mediaType != "application/json" {
				s.sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// validateDeviceRequest parses and validates the device request body
func (s *Server) validateDeviceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}

		switch req.State {
		case deviceStateOn, deviceStateOff, deviceStateReset:
		default:
			s.sendError(w, "State must be 'on', 'off', or 'reset'", http.StatusBadRequest)
			return
		}

		if req.Duration != nil {
			if *req.Duration <= 0 {
				s.sendError(w, "Duration must be positive", http.StatusBadRequest)
				return
			}
			if int64(*req.Duration) > maxDurationSeconds {
				s.sendError(w, "Duration too large", http.StatusBadRequest)
				return
			}
			if req.State != deviceStateOn {
				s.sendError(w, "Duration is only valid with state 'on'", http.StatusBadRequest)
				return
			}
		}

		ctx := context.WithValue(r.Context(), deviceRequestKey, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
