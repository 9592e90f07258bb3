// Package lifecycle models the shared provider/device state machine:
//
//	created -> initialized -> active <-> standby -> deactivated -> destroyed
//
// Transitions only move forward except the active/standby cycle, and destroy
// is reachable from every state, including created (an object abandoned
// before activation). A failed init or activate fires no event at all, so
// the object stays in created exactly as the host expects.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// States.
const (
	StateCreated     = "created"
	StateInitialized = "initialized"
	StateActive      = "active"
	StateStandby     = "standby"
	StateDeactivated = "deactivated"
	StateDestroyed   = "destroyed"
)

// Events.
const (
	// EventInit marks a successful provider Init.
	EventInit = "event_init"
	// EventActivate marks a successful device Activate (index assigned).
	EventActivate = "event_activate"
	// EventEnterStandby / EventLeaveStandby cycle active and standby.
	EventEnterStandby = "event_enter_standby"
	EventLeaveStandby = "event_leave_standby"
	// EventDeactivate retires the object from the host's active set.
	EventDeactivate = "event_deactivate"
	// EventDestroy releases the object; legal from any live state.
	EventDestroy = "event_destroy"
)

// ErrTransition wraps any transition the machine refuses.
var ErrTransition = errors.New("lifecycle: invalid transition")

// Machine is the per-object lifecycle tracker. It is not goroutine-safe on
// its own; callers hold the object lock around Fire.
type Machine struct {
	f *fsm.FSM
}

// New returns a machine in StateCreated.
func New() *Machine {
	return NewWithTransition(nil)
}

// NewWithTransition returns a machine that runs fn after every completed
// transition. An error from fn surfaces from Fire; the transition itself
// stands.
func NewWithTransition(fn func(ctx context.Context, event *fsm.Event) error) *Machine {
	callbacks := fsm.Callbacks{}
	if fn != nil {
		callbacks["enter_state"] = WrapEvent(fn)
	}
	events := fsm.Events{
		{Name: EventInit, Src: []string{StateCreated}, Dst: StateInitialized},

		// Devices are activated straight out of created; a provider that has
		// been initialized also counts as activatable for symmetry.
		{Name: EventActivate, Src: []string{StateCreated, StateInitialized}, Dst: StateActive},

		{Name: EventEnterStandby, Src: []string{StateActive}, Dst: StateStandby},
		{Name: EventLeaveStandby, Src: []string{StateStandby}, Dst: StateActive},

		{Name: EventDeactivate, Src: []string{StateInitialized, StateActive, StateStandby}, Dst: StateDeactivated},

		{Name: EventDestroy, Src: []string{
			StateCreated, StateInitialized, StateActive, StateStandby, StateDeactivated,
		}, Dst: StateDestroyed},
	}

	return &Machine{f: fsm.NewFSM(StateCreated, events, callbacks)}
}

// Current returns the current state name.
func (m *Machine) Current() string {
	return m.f.Current()
}

// Is reports whether the machine is in the given state.
func (m *Machine) Is(state string) bool {
	return m.f.Is(state)
}

// Can reports whether event is legal from the current state.
func (m *Machine) Can(event string) bool {
	return m.f.Can(event)
}

// Fire applies an event, or reports why it is illegal.
func (m *Machine) Fire(event string) error {
	if err := m.f.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %s from %s: %v", ErrTransition, event, m.f.Current(), err)
	}
	return nil
}

// WrapEvent adapts an error-returning callback into a looplab/fsm callback,
// surfacing the error through the event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}
