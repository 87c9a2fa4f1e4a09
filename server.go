package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// version is reported by GET /.
const version = "0.2.0"

// Server holds the shared pieces every handler needs: configuration, the
// persisted switch state and the expander driving the physical lines.
type Server struct {
	cfg      Config
	logger   *Logger
	state    *StateManager
	expander *Expander
}

// NewServer constructs a new Server.
func NewServer(cfg Config, logger *Logger, state *StateManager, expander *Expander) *Server {
	return &Server{cfg: cfg, logger: logger, state: state, expander: expander}
}

// Start launches the HTTP server.  It blocks until the server shuts down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerHost, s.cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: s.routes()}
	s.logger.Infof("Control API running on %s", addr)
	return srv.ListenAndServe()
}

// routes builds the handler.  Kept separate from Start so tests can drive it
// through httptest without binding a socket.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/input/", s.handleInput)
	mux.HandleFunc("/power/soft/", s.handlePowerSoft)
	mux.HandleFunc("/power/hard/", s.handlePowerHard)
	mux.HandleFunc("/", s.handleRoot)
	return s.logRequests(mux)
}

// logRequests emits a debug line for every incoming request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debugf("received request -> method: %s, url: %s", r.Method, r.URL)
		next.ServeHTTP(w, r)
	})
}

// handleRoot greets on GET /.  Any path that did not match a registered
// route also lands here and is rejected.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		notFound(w)
		return
	}
	fmt.Fprintf(w, "Hello from Control API %s", version)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w)
		return
	}
	fmt.Fprint(w, "OK")
}

// handleStatus returns the current input selection and hard power state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.state.Get().Status())
}

// handleInput selects an input on POST/PUT /input/{id}: the configured line
// is pressed like a momentary button, and the selection is persisted.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		notFound(w)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		notFound(w)
		return
	}
	id, ok := parseID(parts[1])
	if !ok {
		http.Error(w, "ID must be integer 1-4", http.StatusBadRequest)
		return
	}
	pin, ok := s.cfg.Inputs[id]
	if !ok {
		s.logger.Errorf("Input ID %d not found in USB input config", id)
		http.Error(w, fmt.Sprintf("Input ID %d not configured", id), http.StatusBadRequest)
		return
	}
	if err := s.state.SetCurrentInput(id); err != nil {
		s.logger.Errorf("Failed to update state: %v", err)
		internalError(w)
		return
	}
	if !s.pressPin(w, pin, s.cfg.ButtonPressDelay) {
		return
	}
	s.logger.Infof("Setting input to %d", id)
	fmt.Fprintf(w, "Input %d selected", id)
}

// handlePowerSoft presses a machine's soft power button on
// POST/PUT /power/soft/{id}?action=on|off|toggle.  "off" holds the button
// for the long (force-off) duration; "on" and "toggle" use the short press.
// Soft presses do not change the persisted hard power state, since the
// machine's resulting state is not observable from here.
func (s *Server) handlePowerSoft(w http.ResponseWriter, r *http.Request) {
	action, id, ok := s.powerRequest(w, r, "soft")
	if !ok {
		return
	}
	pin, ok := s.cfg.PowerSoft[id]
	if !ok {
		s.logger.Errorf("Power ID %d not found in power soft config", id)
		http.Error(w, fmt.Sprintf("Power ID %d not configured", id), http.StatusBadRequest)
		return
	}
	hold := s.cfg.SoftPowerShortPress
	if action == "off" {
		hold = s.cfg.SoftPowerLongPress
	}
	if !s.pressPin(w, pin, hold) {
		return
	}
	s.logger.Infof("Soft power action %s triggered for %d", action, id)
	fmt.Fprintf(w, "Soft power action %s triggered for %d", action, id)
}

// handlePowerHard drives a machine's mains relay on
// POST/PUT /power/hard/{id}?action=on|off|toggle.  "toggle" drops the relay,
// waits out the hard power delay and raises it again.
func (s *Server) handlePowerHard(w http.ResponseWriter, r *http.Request) {
	action, id, ok := s.powerRequest(w, r, "hard")
	if !ok {
		return
	}
	pin, ok := s.cfg.PowerHard[id]
	if !ok {
		s.logger.Errorf("Power ID %d not found in power hard config", id)
		http.Error(w, fmt.Sprintf("Power ID %d not configured", id), http.StatusBadRequest)
		return
	}
	if pin.Pin >= expanderPins {
		s.logger.Errorf("Invalid pin number: %d", pin.Pin)
		http.Error(w, fmt.Sprintf("Invalid pin number: %d", pin.Pin), http.StatusInternalServerError)
		return
	}
	onLevel := pin.Level == 1

	switch action {
	case "on":
		if !s.setPowerPin(w, pin.Pin, onLevel, "on") {
			return
		}
		if !s.persistHardPower(w, id, 1) {
			return
		}
	case "off":
		if !s.setPowerPin(w, pin.Pin, !onLevel, "off") {
			return
		}
		if !s.persistHardPower(w, id, 0) {
			return
		}
	case "toggle":
		if !s.setPowerPin(w, pin.Pin, !onLevel, "off") {
			return
		}
		time.Sleep(s.cfg.HardPowerDelay)
		if !s.setPowerPin(w, pin.Pin, onLevel, "on") {
			return
		}
		if !s.persistHardPower(w, id, 1) {
			return
		}
	}
	s.logger.Infof("Power hard %s triggered for %d", action, id)
	fmt.Fprintf(w, "Power hard %s triggered for %d", action, id)
}

// powerRequest performs the validation shared by both power endpoints:
// method, path shape, required action query parameter and machine id.  The
// action is checked before the id, matching the order clients see errors in.
func (s *Server) powerRequest(w http.ResponseWriter, r *http.Request, kind string) (action string, id uint8, ok bool) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		notFound(w)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != kind {
		notFound(w)
		return
	}
	action = strings.ToLower(r.URL.Query().Get("action"))
	if action == "" {
		http.Error(w, "Missing required 'action' query parameter", http.StatusBadRequest)
		return
	}
	if action != "on" && action != "off" && action != "toggle" {
		http.Error(w, "Action must be 'on', 'off', or 'toggle'", http.StatusBadRequest)
		return
	}
	id, ok = parseID(parts[2])
	if !ok {
		http.Error(w, "ID must be integer 1-4", http.StatusBadRequest)
		return "", 0, false
	}
	return action, id, true
}

// pressPin emulates a momentary button press: the line goes to its pushed
// level, stays there for hold, then returns to the released level.  The
// expander lock is not held during the sleep, so concurrent requests are
// only serialized around the individual register writes.  On failure an
// error response has already been written and false is returned.
func (s *Server) pressPin(w http.ResponseWriter, pin PinAssignment, hold time.Duration) bool {
	if pin.Pin >= expanderPins {
		s.logger.Errorf("Invalid pin number: %d", pin.Pin)
		http.Error(w, fmt.Sprintf("Invalid pin number: %d", pin.Pin), http.StatusInternalServerError)
		return false
	}
	pushed := pin.Level == 1
	if err := s.expander.SetPin(pin.Pin, pushed); err != nil {
		s.logger.Errorf("Failed to set pin %d to pushed state: %v", pin.Pin, err)
		internalError(w)
		return false
	}
	time.Sleep(hold)
	if err := s.expander.SetPin(pin.Pin, !pushed); err != nil {
		s.logger.Errorf("Failed to set pin %d to released state: %v", pin.Pin, err)
		internalError(w)
		return false
	}
	return true
}

func (s *Server) setPowerPin(w http.ResponseWriter, pin uint8, level bool, name string) bool {
	if err := s.expander.SetPin(pin, level); err != nil {
		s.logger.Errorf("Failed to set pin %d to %s state: %v", pin, name, err)
		internalError(w)
		return false
	}
	return true
}

func (s *Server) persistHardPower(w http.ResponseWriter, id, value uint8) bool {
	if err := s.state.SetHardPower(id, value); err != nil {
		s.logger.Errorf("Failed to update state: %v", err)
		internalError(w)
		return false
	}
	return true
}

// parseID validates a machine id path segment against validIDs.
func parseID(s string) (uint8, bool) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	for _, id := range validIDs {
		if id == uint8(n) {
			return id, true
		}
	}
	return 0, false
}

func notFound(w http.ResponseWriter) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

func internalError(w http.ResponseWriter) {
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
