package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store using Google Cloud Firestore, one document
// per thread id. The state record is stored as a JSON blob so the wire shape
// stays identical across backends.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// FirestoreConfig holds Firestore connection configuration.
type FirestoreConfig struct {
	// ProjectID is the GCP project (required).
	ProjectID string
	// CredentialsFile is an optional service account key path; Application
	// Default Credentials are used when empty.
	CredentialsFile string
	// Collection is the Firestore collection name (default: "formflow-sessions").
	Collection string
}

type firestoreDoc struct {
	ThreadID  string    `firestore:"thread_id"`
	Data      []byte    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "formflow-sessions"
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (s *FirestoreStore) doc(threadID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(threadID)
}

// Save creates or replaces a state record.
func (s *FirestoreStore) Save(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = s.doc(state.ThreadID).Set(ctx, firestoreDoc{
		ThreadID:  state.ThreadID,
		Data:      data,
		UpdatedAt: state.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load retrieves a state record by thread id.
func (s *FirestoreStore) Load(ctx context.Context, threadID string) (*State, error) {
	snap, err := s.doc(threadID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	var state State
	if err := json.Unmarshal(doc.Data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes a state record.
func (s *FirestoreStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.doc(threadID).Delete(ctx); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// List returns stored thread ids, sorted.
func (s *FirestoreStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate sessions: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	sort.Strings(ids)
	return paginate(ids, opts), nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
