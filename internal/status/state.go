package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/classchat/classchat/internal/bus"
)

// State represents the push-channel connection state.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	Online       State = "ONLINE"
	Reconnecting State = "RECONNECTING"
	Offline      State = "OFFLINE"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions. Offline is terminal
// until a fresh Connect; Error only recovers through a full restart. A
// dial that exhausts its retry budget gives up straight from Connecting.
var validTransitions = map[State][]State{
	Booting:      {Connecting, Error},
	Connecting:   {Online, Reconnecting, Offline, Error},
	Online:       {Reconnecting, Offline, Error},
	Reconnecting: {Connecting, Offline, Error},
	Offline:      {Connecting},
	Error:        {Booting},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is not in the table.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for connection status change events.
type StatusChange struct {
	From State
	To   State
}
