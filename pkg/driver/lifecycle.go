// Package driver holds the pieces shared by every hypervisor and guest driver:
// the constructor arguments and the instance lifecycle.
package driver

import (
	"fmt"
	"sync"

	"github.com/usestring/baselib/pkg/errors"
)

// State is the lifecycle state of a driver instance.
type State int

const (
	// StateUninitialized is the state before construction completed.
	StateUninitialized State = iota
	// StateReady accepts operations.
	StateReady
	// StateClosed is terminal.
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Lifecycle tracks Uninitialized -> Ready -> Closed for one driver instance.
// The zero value is Uninitialized.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// MarkReady moves an uninitialized instance to Ready.
func (l *Lifecycle) MarkReady() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateUninitialized {
		return invalidState("initialize", l.state)
	}
	l.state = StateReady
	return nil
}

// Require fails unless the instance is Ready.
func (l *Lifecycle) Require(operation string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateReady {
		return invalidState(operation, l.state)
	}
	return nil
}

// Close moves the instance to Closed. Closing twice is an error.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return invalidState("close", l.state)
	}
	l.state = StateClosed
	return nil
}

func invalidState(operation string, state State) error {
	return errors.NewWithContext(errors.ErrCodeInvalidState,
		fmt.Sprintf("cannot %s driver in state %s", operation, state),
		map[string]any{"operation": operation, "state": state.String()})
}

// NotImplemented returns the error reported by operations a driver does not
// provide.
func NotImplemented(kind, operation string) error {
	return errors.NewWithContext(errors.ErrCodeNotImplemented,
		fmt.Sprintf("%s operation %q is not implemented", kind, operation),
		map[string]any{"operation": operation})
}
