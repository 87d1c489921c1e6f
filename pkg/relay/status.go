package relay

import (
	"sync"
	"time"
)

// Status is a snapshot of what the relay has been doing since it started.
type Status struct {
	Authenticated   bool      `json:"authenticated"`
	TimerArmed      bool      `json:"timerArmed"`
	Logins          int       `json:"logins"`
	LoginFailures   int       `json:"loginFailures"`
	Polls           int       `json:"polls"`
	PollFailures    int       `json:"pollFailures"`
	PublishFailures int       `json:"publishFailures"`
	TimerArms       int       `json:"timerArms"`
	LastPoll        time.Time `json:"lastPoll,omitzero"`
	// LastUpdate is the portal timestamp of the last published reading.
	LastUpdate string `json:"lastUpdate,omitempty"`
	LastError  string `json:"lastError,omitempty"`
}

type statusTracker struct {
	mu sync.Mutex
	s  Status
}

func (t *statusTracker) update(fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.s)
}

func (t *statusTracker) get() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

// Status returns a copy of the relay's current status. It is safe to call
// from any goroutine.
func (r *Relay) Status() Status {
	return r.status.get()
}
