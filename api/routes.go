package api

import (
	"net/http"

	"github.com/nroccia/go-bluez-api/backend"
	"github.com/nroccia/go-bluez-api/backend/bluetooth"
	"github.com/nroccia/go-bluez-api/logger"
)

func (s *Server) registerServerRoutes(b *backend.Backend) {
	s.mux.HandleFunc(
		"GET /server",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.GetServerDeviceInfo()
		}),
	)

	// SSE event stream
	if s.broadcaster != nil {
		s.mux.HandleFunc("GET /events", sseHandler(s.broadcaster))
		logger.Info("[api] SSE route registered at /events")
	}
}

func (s *Server) registerBluetoothRoutes(b *bluetooth.BluetoothBackend) {
	s.mux.HandleFunc(
		"GET /bluetooth",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.Status(), nil
		}),
	)
	s.mux.HandleFunc(
		"GET /bluetooth/devices",
		JSONHandler(func(w http.ResponseWriter, r *http.Request) (any, error) {
			return b.Devices(), nil
		}),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/power",
		withFlagRequest(b, bluetooth.RequestSetEnabled, decodeEnabled),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/discovery",
		withFlagRequest(b, bluetooth.RequestSetDiscovery, decodeEnabled),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/devices/{addr}/connect",
		withDeviceRequest(b, bluetooth.RequestConnectDevice),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/devices/{addr}/disconnect",
		withDeviceRequest(b, bluetooth.RequestDisconnectDevice),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/devices/{addr}/cancel",
		withDeviceRequest(b, bluetooth.RequestCancelConnect),
	)
	s.mux.HandleFunc(
		"POST /bluetooth/devices/{addr}/confirm",
		confirmCodeHandler(b),
	)
}
