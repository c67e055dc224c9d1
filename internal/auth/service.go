package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

// User is the safe subset of the user model returned to clients.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CompanyID string    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResult bundles the token material returned after a successful login.
type LoginResult struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// Config configures the auth service.
type Config struct {
	Store          Store
	OTP            *OTPStore
	Sender         common.EmailSender
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

// Service coordinates registration, login, tokens, and password reset.
type Service struct {
	store     Store
	otp       *OTPStore
	sender    common.EmailSender
	secret    []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
}

// NewService constructs a Service with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "cgi-quotation"
	}
	return &Service{
		store:     cfg.Store,
		otp:       cfg.OTP,
		sender:    cfg.Sender,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    issuer,
		now:       time.Now,
		signer:    jwa.HS256,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates a new user with the supplied credentials.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return User{}, common.NewAppError("VALIDATION", "username must be at least 3 characters", http.StatusBadRequest, nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, common.NewAppError("VALIDATION", "a valid email is required", http.StatusBadRequest, nil)
	}
	if len(password) < 8 {
		return User{}, common.NewAppError("VALIDATION", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.Create(ctx, UserRecord{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return User{}, common.NewAppError("ALREADY_REGISTERED", "username or email already registered", http.StatusConflict, err)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return publicUser(created), nil
}

// Login verifies username/password credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, invalidCredentials(nil)
	}
	record, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, invalidCredentials(err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, record.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials(err)
	}

	token, expiry, err := s.signAccessToken(record.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{
		User:         publicUser(record),
		AccessToken:  token,
		AccessExpiry: expiry,
	}, nil
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, nil)
	}
	record, err := s.store.ByID(ctx, userID)
	if err != nil {
		return User{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	return publicUser(record), nil
}

// Forgot issues a reset code to the account email. Unknown emails are
// silently ignored so the endpoint does not disclose registrations.
func (s *Service) Forgot(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}
	user, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return nil
	}
	if s.otp == nil {
		return errors.New("auth: otp store not configured")
	}
	code, err := s.otp.Issue(ctx, user.Email)
	if err != nil {
		return err
	}
	if s.sender == nil {
		return nil
	}
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your password reset code is <strong>%s</strong>. It expires shortly.</p>",
		user.Username, code)
	if err := s.sender.Send([]string{user.Email}, "Password Reset Code", body); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// Reset verifies the emailed code and replaces the account password.
func (s *Service) Reset(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(newPassword) < 8 {
		return common.NewAppError("VALIDATION", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}
	if s.otp == nil {
		return errors.New("auth: otp store not configured")
	}
	ok, err := s.otp.Verify(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		return common.NewAppError("INVALID_OTP", "invalid or expired code", http.StatusBadRequest, nil)
	}
	user, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return common.NewAppError("INVALID_OTP", "invalid or expired code", http.StatusBadRequest, err)
	}
	hash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ParseAccessToken validates a signed token and returns the subject user id.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.signer {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(algorithm, s.secret),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

// extractTokenAlgorithm rejects tokens that are unsigned or mix algorithms
// before the key is ever applied.
func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func publicUser(r UserRecord) User {
	return User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		CompanyID: r.CompanyID,
		CreatedAt: r.CreatedAt,
	}
}

func invalidCredentials(err error) *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, err)
}
