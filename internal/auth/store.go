package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned for lookups that match no user.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already registered")

// UserRecord is the persisted user row, password hash included.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CompanyID    string
	CreatedAt    time.Time
}

// Store provides user persistence.
type Store interface {
	Create(ctx context.Context, u UserRecord) (UserRecord, error)
	ByUsername(ctx context.Context, username string) (UserRecord, error)
	ByEmail(ctx context.Context, email string) (UserRecord, error)
	ByID(ctx context.Context, id string) (UserRecord, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PGStore implements Store on Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const userColumns = `id, username, email, password_hash, COALESCE(company_id::text, ''), created_at`

func (s *PGStore) Create(ctx context.Context, u UserRecord) (UserRecord, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO users (id, username, username_lower, email, password_hash, created_at)
		 VALUES ($1, $2, lower($2), lower($3), $4, $5)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserRecord{}, ErrDuplicateUser
		}
		return UserRecord{}, err
	}
	u.Email = strings.ToLower(u.Email)
	return u, nil
}

func (s *PGStore) ByUsername(ctx context.Context, username string) (UserRecord, error) {
	return s.scanOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username_lower = lower($1)`, username)
}

func (s *PGStore) ByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.scanOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (s *PGStore) ByID(ctx context.Context, id string) (UserRecord, error) {
	return s.scanOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PGStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PGStore) scanOne(ctx context.Context, query string, arg any) (UserRecord, error) {
	var u UserRecord
	err := s.Pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CompanyID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, err
	}
	return u, nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users []UserRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, u UserRecord) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return UserRecord{}, ErrDuplicateUser
		}
	}
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now().UTC()
	s.users = append(s.users, u)
	return u, nil
}

func (s *MemoryStore) ByUsername(_ context.Context, username string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *MemoryStore) ByID(_ context.Context, id string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].PasswordHash = passwordHash
			return nil
		}
	}
	return ErrUserNotFound
}
