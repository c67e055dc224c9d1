package company

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
)

const searchLimit = 10

// Service orchestrates company lookups, mutations, and recipient resolution.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("company: store is required")
	}
	return &Service{store: store}, nil
}

// List returns all companies ordered by name.
func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.store.List(ctx)
}

// Search matches companies by name or address. Queries shorter than two
// characters return an empty result without hitting the store.
func (s *Service) Search(ctx context.Context, query string) ([]Company, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []Company{}, nil
	}
	return s.store.Search(ctx, query, searchLimit)
}

// Create validates and stores a new company contact.
func (s *Service) Create(ctx context.Context, c Company) (Company, error) {
	if err := validate(c); err != nil {
		return Company{}, err
	}
	created, err := s.store.Create(ctx, c)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	return created, nil
}

// Update replaces the stored contact for c.ID.
func (s *Service) Update(ctx context.Context, c Company) (Company, error) {
	if strings.TrimSpace(c.ID) == "" {
		return Company{}, badRequest("id", "company id is required")
	}
	if err := validate(c); err != nil {
		return Company{}, err
	}
	updated, err := s.store.Update(ctx, c)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Company{}, notFound(err)
		}
		return Company{}, fmt.Errorf("update company: %w", err)
	}
	return updated, nil
}

// Select persists the user's working company.
func (s *Service) Select(ctx context.Context, userID, companyID string) (Company, error) {
	c, err := s.store.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Company{}, notFound(err)
		}
		return Company{}, fmt.Errorf("lookup company: %w", err)
	}
	if err := s.store.SetSelection(ctx, userID, companyID); err != nil {
		return Company{}, fmt.Errorf("persist selection: %w", err)
	}
	return c, nil
}

// Selected returns the user's stored company selection.
func (s *Service) Selected(ctx context.Context, userID string) (Company, error) {
	c, err := s.store.Selection(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Company{}, &common.AppError{
				Code:       "NO_COMPANY_SELECTED",
				Message:    "no company selected",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return Company{}, fmt.Errorf("load selection: %w", err)
	}
	return c, nil
}

// ResolveRecipient picks the quotation customer contact: an explicit
// companyID wins, otherwise the user's stored selection is used.
func (s *Service) ResolveRecipient(ctx context.Context, userID, companyID string) (Company, error) {
	if strings.TrimSpace(companyID) != "" {
		c, err := s.store.GetByID(ctx, companyID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Company{}, notFound(err)
			}
			return Company{}, fmt.Errorf("lookup company: %w", err)
		}
		return c, nil
	}
	return s.Selected(ctx, userID)
}

func validate(c Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return badRequest("name", "company name is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return badRequest("email", "a valid company email is required")
	}
	return nil
}

func badRequest(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "VALIDATION",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

func notFound(err error) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    "company not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}
