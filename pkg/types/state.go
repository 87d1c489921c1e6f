package types

import "time"

// StateType is the value type advertised on a state object.
type StateType string

const (
	StateTypeNumber StateType = "number"
	StateTypeString StateType = "string"
)

// StateRoleState is the generic role for read-only values.
const StateRoleState = "state"

// StateObject is the metadata registered for a state before any value is
// written to it.
type StateObject struct {
	ID string `json:"id"`
	// Name is the human readable description shown by the host.
	Name  string    `json:"name"`
	Type  StateType `json:"type"`
	Role  string    `json:"role"`
	Read  bool      `json:"read"`
	Write bool      `json:"write"`
}

// State is the current value of a state. Ack marks the value as confirmed by
// the device side rather than a command waiting to be executed.
type State struct {
	Val any       `json:"val"`
	Ack bool      `json:"ack"`
	TS  time.Time `json:"ts"`
}

// StateEntry is a State together with its ID, used when listing.
type StateEntry struct {
	ID string `json:"id"`
	State
}
