package company

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a company id has no row.
var ErrNotFound = errors.New("company not found")

// Company is a customer contact record.
type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
}

// Store provides company persistence and per-user selection.
type Store interface {
	List(ctx context.Context) ([]Company, error)
	Search(ctx context.Context, query string, limit int) ([]Company, error)
	GetByID(ctx context.Context, id string) (Company, error)
	Create(ctx context.Context, c Company) (Company, error)
	Update(ctx context.Context, c Company) (Company, error)
	SetSelection(ctx context.Context, userID, companyID string) error
	Selection(ctx context.Context, userID string) (Company, error)
}

// PGStore implements Store on Postgres. The per-user selection lives on the
// users row so it survives sessions.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) List(ctx context.Context) ([]Company, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, email, COALESCE(address, '') FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func (s *PGStore) Search(ctx context.Context, query string, limit int) ([]Company, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, email, COALESCE(address, '')
		 FROM companies
		 WHERE name ILIKE '%' || $1 || '%' OR COALESCE(address, '') ILIKE '%' || $1 || '%'
		 ORDER BY name
		 LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func (s *PGStore) GetByID(ctx context.Context, id string) (Company, error) {
	var c Company
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, email, COALESCE(address, '') FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

func (s *PGStore) Create(ctx context.Context, c Company) (Company, error) {
	c.ID = uuid.NewString()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO companies (id, name, email, address, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), now())`,
		c.ID, c.Name, c.Email, c.Address)
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *PGStore) Update(ctx context.Context, c Company) (Company, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE companies SET name = $2, email = $3, address = NULLIF($4, '') WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Address)
	if err != nil {
		return Company{}, err
	}
	if tag.RowsAffected() == 0 {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (s *PGStore) SetSelection(ctx context.Context, userID, companyID string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE users SET company_id = $2 WHERE id = $1`, userID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("user not found")
	}
	return nil
}

func (s *PGStore) Selection(ctx context.Context, userID string) (Company, error) {
	var c Company
	err := s.Pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.email, COALESCE(c.address, '')
		 FROM users u JOIN companies c ON c.id = u.company_id
		 WHERE u.id = $1`, userID,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

func scanCompanies(rows pgx.Rows) ([]Company, error) {
	result := make([]Company, 0, 16)
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Address); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu         sync.RWMutex
	companies  []Company
	selections map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{selections: make(map[string]string)}
}

func (s *MemoryStore) List(_ context.Context) ([]Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Company, len(s.companies))
	copy(out, s.companies)
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, limit int) ([]Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	out := make([]Company, 0, limit)
	for _, c := range s.companies {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Address), needle) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return Company{}, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, c Company) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	s.companies = append(s.companies, c)
	return c, nil
}

func (s *MemoryStore) Update(_ context.Context, c Company) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.companies {
		if s.companies[i].ID == c.ID {
			s.companies[i] = c
			return c, nil
		}
	}
	return Company{}, ErrNotFound
}

func (s *MemoryStore) SetSelection(_ context.Context, userID, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[userID] = companyID
	return nil
}

func (s *MemoryStore) Selection(ctx context.Context, userID string) (Company, error) {
	s.mu.RLock()
	companyID, ok := s.selections[userID]
	s.mu.RUnlock()
	if !ok {
		return Company{}, ErrNotFound
	}
	return s.GetByID(ctx, companyID)
}
