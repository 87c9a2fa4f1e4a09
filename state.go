package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// validIDs are the machine numbers the KVM can address.
var validIDs = [4]uint8{1, 2, 3, 4}

// State is the persisted view of the switch: which input is currently
// selected and the last commanded hard power state per machine (0 = off,
// 1 = on).  It is serialized to the state file on every change.
type State struct {
	CurrentInput   *uint8          `json:"current_input"`
	HardPowerState map[uint8]uint8 `json:"hard_power_state"`
}

func defaultState() State {
	hp := make(map[uint8]uint8, len(validIDs))
	for _, id := range validIDs {
		hp[id] = 0
	}
	return State{HardPowerState: hp}
}

func (s State) clone() State {
	out := State{HardPowerState: make(map[uint8]uint8, len(s.HardPowerState))}
	for id, v := range s.HardPowerState {
		out.HardPowerState[id] = v
	}
	if s.CurrentInput != nil {
		v := *s.CurrentInput
		out.CurrentInput = &v
	}
	return out
}

// StatusResponse is the wire form returned by GET /status.  Hard power is
// rendered as "on"/"off" strings keyed by machine id; the current input is
// omitted when none has been selected yet.
type StatusResponse struct {
	CurrentInput *uint8            `json:"current_input,omitempty"`
	HardPower    map[string]string `json:"hard_power"`
}

// Status renders the state for clients.
func (s State) Status() StatusResponse {
	hp := make(map[string]string, len(validIDs))
	for _, id := range validIDs {
		status := "off"
		if s.HardPowerState[id] == 1 {
			status = "on"
		}
		hp[strconv.Itoa(int(id))] = status
	}
	return StatusResponse{CurrentInput: s.CurrentInput, HardPower: hp}
}

// StateManager wraps the current State and a mutex for concurrent access.
// Every mutation is persisted to disk before the call returns.  The lock is
// released before file I/O so a slow disk never blocks readers.
type StateManager struct {
	mu   sync.Mutex
	st   State
	path string
}

// NewStateManager loads state from path.  If the file does not exist, a
// default state is created and persisted so the file is present from the
// first run.
func NewStateManager(path string) (*StateManager, error) {
	sm := &StateManager{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			sm.st = defaultState()
			if err := writeState(path, sm.st); err != nil {
				return nil, err
			}
			return sm, nil
		}
		return nil, fmt.Errorf("unable to read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", path, err)
	}
	if st.HardPowerState == nil {
		st.HardPowerState = defaultState().HardPowerState
	}
	sm.st = st
	return sm, nil
}

// Get returns a copy of the current state.
func (sm *StateManager) Get() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.st.clone()
}

// SetCurrentInput records the selected input and persists the state.
func (sm *StateManager) SetCurrentInput(id uint8) error {
	sm.mu.Lock()
	v := id
	sm.st.CurrentInput = &v
	snap := sm.st.clone()
	sm.mu.Unlock()
	return writeState(sm.path, snap)
}

// SetHardPower records the commanded hard power state for a machine and
// persists the state.
func (sm *StateManager) SetHardPower(id, value uint8) error {
	sm.mu.Lock()
	sm.st.HardPowerState[id] = value
	snap := sm.st.clone()
	sm.mu.Unlock()
	return writeState(sm.path, snap)
}

// writeState persists a state snapshot atomically: write to a temp file in
// the same directory, then rename over the target.
func writeState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
