package app

import "sync"

// RegistrationState tracks the one-time binding of gateway listeners.
type RegistrationState int

const (
	Uninitialized RegistrationState = iota
	Registering
	Registered
)

func (s RegistrationState) String() string {
	switch s {
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	default:
		return "uninitialized"
	}
}

// Registration runs a setup function at most once successfully. A failed
// attempt returns to Uninitialized so a later call can retry.
type Registration struct {
	mu    sync.Mutex
	state RegistrationState
}

// Do runs register if nothing has been registered and no attempt is in
// flight. It reports whether register ran.
func (r *Registration) Do(register func() error) (bool, error) {
	r.mu.Lock()
	if r.state != Uninitialized {
		r.mu.Unlock()
		return false, nil
	}
	r.state = Registering
	r.mu.Unlock()

	err := register()

	r.mu.Lock()
	if err != nil {
		r.state = Uninitialized
	} else {
		r.state = Registered
	}
	r.mu.Unlock()
	return true, err
}

// State returns the current registration state.
func (r *Registration) State() RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
