package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

var (
	ErrStateNotFound = errors.New("state not found")
)

// Database is the host state store that published values end up in.
type Database interface {
	// EnsureObject registers the state's metadata if it doesn't exist yet. An
	// existing object is left untouched.
	EnsureObject(ctx context.Context, obj types.StateObject) error
	// SetState sets the current value of a state.
	SetState(ctx context.Context, id string, state types.State) error
	// GetState returns ErrStateNotFound if the state was never set.
	GetState(ctx context.Context, id string) (types.State, error)
	// ListStates returns every state whose ID starts with prefix, ordered by ID.
	ListStates(ctx context.Context, prefix string) ([]types.StateEntry, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: memory, redis, firestore)")

	var p struct{ Database }

	fs := configuredFirestore()
	rs := configuredRedis()

	lflag.Do(func() {
		switch *provider {
		case "memory":
			p.Database = NewMemory()
		case "redis":
			if err := rs.Validate(); err != nil {
				panic(fmt.Sprintf("redis validation failed: %v", err))
			}
			if err := rs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("redis init failed: %v", err))
			}
			p.Database = rs
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
