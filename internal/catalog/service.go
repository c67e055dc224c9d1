package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
)

// Document keys served by the catalog API.
const (
	DocBlanketCategories = "blanket_categories"
	DocBlankets          = "blankets"
	DocThickness         = "thickness"
	DocBars              = "bars"
	DocMpacks            = "mpacks"
	DocMachines          = "machines"
)

var knownDocs = map[string]struct{}{
	DocBlanketCategories: {},
	DocBlankets:          {},
	DocThickness:         {},
	DocBars:              {},
	DocMpacks:            {},
	DocMachines:          {},
}

// Service serves catalog documents, preferring the Redis cache over the store.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a Service.
func NewService(store Store, cache *Cache) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: store, cache: cache}, nil
}

// Document returns the payload for a known document key. Unknown keys are
// rejected before any lookup.
func (s *Service) Document(ctx context.Context, key string) (json.RawMessage, error) {
	if _, ok := knownDocs[key]; !ok {
		return nil, &common.AppError{
			Code:       "NOT_FOUND",
			Message:    "unknown catalog document",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"key": key},
		}
	}
	cacheKey := docCacheKey(key)
	if s.cache != nil {
		var cached json.RawMessage
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	payload, err := s.store.Document(ctx, key)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "catalog document not available",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return nil, fmt.Errorf("load catalog document %s: %w", key, err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, payload)
	}
	return payload, nil
}

// Machines returns the machine list document.
func (s *Service) Machines(ctx context.Context) (json.RawMessage, error) {
	return s.Document(ctx, DocMachines)
}

// UpdateDocument upserts a document and invalidates its cache entry.
func (s *Service) UpdateDocument(ctx context.Context, key string, payload json.RawMessage) error {
	if _, ok := knownDocs[key]; !ok {
		return &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "unknown catalog document",
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"key": key},
		}
	}
	if !json.Valid(payload) {
		return &common.AppError{
			Code:       "VALIDATION",
			Message:    "payload must be valid JSON",
			HTTPStatus: http.StatusBadRequest,
		}
	}
	if err := s.store.PutDocument(ctx, key, payload); err != nil {
		return fmt.Errorf("store catalog document %s: %w", key, err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, docCacheKey(key))
	}
	return nil
}

func docCacheKey(key string) string {
	return "catalog:doc:" + key
}
