package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDocumentNotFound is returned when a document key has no stored payload.
var ErrDocumentNotFound = errors.New("catalog document not found")

// Store provides access to catalog documents keyed by name.
type Store interface {
	Document(ctx context.Context, key string) (json.RawMessage, error)
	PutDocument(ctx context.Context, key string, payload json.RawMessage) error
}

// PGStore keeps catalog documents in a single keyed JSONB table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Document loads the JSON payload stored under key.
func (s *PGStore) Document(ctx context.Context, key string) (json.RawMessage, error) {
	var payload []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT payload FROM catalog_documents WHERE key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return json.RawMessage(payload), nil
}

// PutDocument upserts the payload stored under key.
func (s *PGStore) PutDocument(ctx context.Context, key string, payload json.RawMessage) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO catalog_documents (key, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		key, []byte(payload),
	)
	return err
}

// MemoryStore is an in-memory Store for tests and seeding.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Document(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.docs[key]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	out := make(json.RawMessage, len(payload))
	copy(out, payload)
	return out, nil
}

func (s *MemoryStore) PutDocument(_ context.Context, key string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)
	s.docs[key] = stored
	return nil
}
