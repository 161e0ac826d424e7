package status

import (
	"testing"
	"time"

	"github.com/classchat/classchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

// walkTo drives the machine from Booting to the target state via valid hops.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:      {},
		Connecting:   {Connecting},
		Online:       {Connecting, Online},
		Reconnecting: {Connecting, Online, Reconnecting},
		Offline:      {Connecting, Online, Offline},
		Error:        {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walk to %s via %s: %v", target, s, err)
		}
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Connecting},
		{Booting, Error},
		{Connecting, Online},
		{Connecting, Reconnecting},
		{Connecting, Offline},
		{Online, Reconnecting},
		{Online, Offline},
		{Reconnecting, Connecting},
		{Reconnecting, Offline},
		{Offline, Connecting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

// A dial loop that never gets a connection up gives up from Connecting
// without ever passing through Online.
func TestGiveUpFromConnecting(t *testing.T) {
	m := NewMachine(nil)
	for _, s := range []State{Connecting, Offline} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}
	if m.Current() != Offline {
		t.Errorf("state = %s, want OFFLINE", m.Current())
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Online); err == nil {
		t.Error("Transition(BOOTING -> ONLINE) should fail")
	}
	if err := m.Transition(Offline); err == nil {
		t.Error("Transition(BOOTING -> OFFLINE) should fail")
	}
}

func TestTransitionPublishesStatusChange(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)

	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type %T, want StatusChange", evt.Payload)
		}
		if change.From != Booting || change.To != Connecting {
			t.Errorf("change = %+v, want BOOTING->CONNECTING", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status change event")
	}
}
