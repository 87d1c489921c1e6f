package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// Objects and states live in the "objects" and "states" collections keyed by
// state ID.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project ID is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// EnsureObject creates the object document unless it already exists.
func (f *FirestoreProvider) EnsureObject(ctx context.Context, obj types.StateObject) error {
	jsonBytes, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	_, err = f.client.Collection("objects").Doc(obj.ID).Create(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create object %s: %w", obj.ID, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "created state object", slog.String("id", obj.ID))
	return nil
}

// SetState stores the state as a JSON blob so any value type round-trips.
func (f *FirestoreProvider) SetState(ctx context.Context, id string, state types.State) error {
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = f.client.Collection("states").Doc(id).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"ack":  state.Ack,
		"ts":   state.TS,
	})
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", id, err)
	}
	return nil
}

// GetState implements Database.
func (f *FirestoreProvider) GetState(ctx context.Context, id string) (types.State, error) {
	doc, err := f.client.Collection("states").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.State{}, ErrStateNotFound
		}
		return types.State{}, fmt.Errorf("failed to fetch state doc: %w", err)
	}
	return stateFromDoc(ctx, doc)
}

// ListStates uses a document ID range query so only states under prefix are read.
func (f *FirestoreProvider) ListStates(ctx context.Context, prefix string) ([]types.StateEntry, error) {
	coll := f.client.Collection("states")
	q := coll.OrderBy(firestore.DocumentID, firestore.Asc)
	if prefix != "" {
		q = q.
			Where(firestore.DocumentID, ">=", coll.Doc(prefix)).
			Where(firestore.DocumentID, "<", coll.Doc(prefix+"\uf8ff"))
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var entries []types.StateEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating states: %w", err)
		}
		s, err := stateFromDoc(ctx, doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.StateEntry{ID: doc.Ref.ID, State: s})
	}
	return entries, nil
}

func stateFromDoc(ctx context.Context, doc *firestore.DocumentSnapshot) (types.State, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "state doc missing json", slog.String("id", doc.Ref.ID), slog.Any("err", err))
		return types.State{}, fmt.Errorf("state document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "state doc json not string", slog.String("id", doc.Ref.ID))
		return types.State{}, fmt.Errorf("state document %s 'json' field is not a string", doc.Ref.ID)
	}

	var s types.State
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal state json", slog.String("id", doc.Ref.ID), slog.Any("err", err))
		return types.State{}, fmt.Errorf("failed to unmarshal state (id=%s): %w", doc.Ref.ID, err)
	}
	return s, nil
}
