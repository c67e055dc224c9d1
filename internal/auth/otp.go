package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "auth:otp:"

// OTPStore keeps short-lived password reset codes in Redis.
type OTPStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// Issue generates a six digit code for the email and stores it with the
// configured expiry, replacing any previous code.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	if s == nil || s.Client == nil {
		return "", fmt.Errorf("otp store not configured")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := s.Client.Set(ctx, otpKeyPrefix+email, code, ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks the code for the email and consumes it on success.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	if s == nil || s.Client == nil {
		return false, fmt.Errorf("otp store not configured")
	}
	stored, err := s.Client.Get(ctx, otpKeyPrefix+email).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.Client.Del(ctx, otpKeyPrefix+email).Err(); err != nil {
		return false, err
	}
	return true, nil
}
