package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/nroccia/go-bluez-api/backend/bluetooth"
)

// submitTimeout bounds how long a handler waits for room in the
// coordinator's request channel before reporting overload.
const submitTimeout = time.Second

var addressPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type acceptRequest struct {
	Accept bool `json:"accept"`
}

// submitRequest hands one command to the coordinator without blocking the
// HTTP goroutine indefinitely.
func submitRequest(w http.ResponseWriter, requests chan<- bluetooth.Request, request bluetooth.Request) {
	timer := time.NewTimer(submitTimeout)
	defer timer.Stop()

	select {
	case requests <- request:
		w.WriteHeader(http.StatusAccepted)
	case <-timer.C:
		http.Error(w, "coordinator busy", http.StatusServiceUnavailable)
	}
}

// withDeviceRequest builds a handler for per-device commands addressed by
// the {addr} path segment.
func withDeviceRequest(b *bluetooth.BluetoothBackend, kind bluetooth.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := r.PathValue("addr")
		if !addressPattern.MatchString(addr) {
			http.Error(w, "invalid device address", http.StatusBadRequest)
			return
		}
		submitRequest(w, b.Requests(), bluetooth.Request{
			Kind: kind,
			Addr: bluetooth.Address(addr),
		})
	}
}

// withFlagRequest builds a handler for commands carrying a single bool,
// decoded from the named JSON field.
func withFlagRequest(b *bluetooth.BluetoothBackend, kind bluetooth.RequestKind, decode func(*http.Request) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flag, err := decode(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		submitRequest(w, b.Requests(), bluetooth.Request{
			Kind: kind,
			Flag: flag,
		})
	}
}

func confirmCodeHandler(b *bluetooth.BluetoothBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := r.PathValue("addr")
		if !addressPattern.MatchString(addr) {
			http.Error(w, "invalid device address", http.StatusBadRequest)
			return
		}

		var body acceptRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		submitRequest(w, b.Requests(), bluetooth.Request{
			Kind: bluetooth.RequestConfirmCode,
			Addr: bluetooth.Address(addr),
			Flag: body.Accept,
		})
	}
}

func decodeEnabled(r *http.Request) (bool, error) {
	var body enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return false, errors.New("invalid request body")
	}
	return body.Enabled, nil
}
