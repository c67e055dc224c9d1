package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:          NewMemoryStore(),
		Secret:         "test-secret-test-secret",
		AccessTokenTTL: time.Hour,
		Issuer:         "cgi-quotation",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" || user.Email != "ravi@example.com" {
		t.Fatalf("user = %+v", user)
	}

	result, err := svc.Login(ctx, "RAVI", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("empty access token")
	}

	subject, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("subject = %q, want %q", subject, user.ID)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Login(ctx, "ravi", "wrongpass")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("error = %v", err)
	}
	_, err = svc.Login(ctx, "ghost", "s3cretpass")
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unknown user error = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "a@example.com", "s3cretpass"},
		{"bad email", "ravi", "not-an-email", "s3cretpass"},
		{"short password", "ravi", "ravi@example.com", "short"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.username, tc.email, tc.password); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	if _, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, "Ravi", "other@example.com", "s3cretpass")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "ALREADY_REGISTERED" {
		t.Fatalf("duplicate error = %v", err)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	result, err := svc.Login(ctx, "ravi", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other, err := NewService(Config{Store: NewMemoryStore(), Secret: "another-secret-value"})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := other.ParseAccessToken(result.AccessToken); err == nil {
		t.Fatalf("expected rejection with wrong secret")
	}
	if _, err := svc.ParseAccessToken("not.a.token"); err == nil {
		t.Fatalf("expected rejection of malformed token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	result, err := svc.Login(ctx, "ravi", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.WithNow(time.Now)
	if _, err := svc.ParseAccessToken(result.AccessToken); err == nil {
		t.Fatalf("expected expiry rejection")
	}
}

func TestForgotResetRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	outbox := &common.InMemoryEmail{}
	svc, err := NewService(Config{
		Store:  NewMemoryStore(),
		OTP:    &OTPStore{Client: client, TTL: 5 * time.Minute},
		Sender: outbox,
		Secret: "test-secret-test-secret",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ravi", "ravi@example.com", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Forgot(ctx, "Ravi@Example.com"); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	if len(outbox.Outbox) != 1 {
		t.Fatalf("outbox size = %d", len(outbox.Outbox))
	}
	code := extractCode(t, outbox.Outbox[0].HTML)

	if err := svc.Reset(ctx, "ravi@example.com", "000000", "newpassword"); err == nil {
		t.Fatalf("wrong code accepted")
	}
	if err := svc.Reset(ctx, "ravi@example.com", code, "newpassword"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	// Codes are single use.
	if err := svc.Reset(ctx, "ravi@example.com", code, "anotherpass1"); err == nil {
		t.Fatalf("code reuse accepted")
	}

	if _, err := svc.Login(ctx, "ravi", "s3cretpass"); err == nil {
		t.Fatalf("old password still valid")
	}
	if _, err := svc.Login(ctx, "ravi", "newpassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Unknown email reports success without sending anything.
	if err := svc.Forgot(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("Forgot unknown: %v", err)
	}
	if len(outbox.Outbox) != 1 {
		t.Fatalf("unexpected email for unknown address")
	}
}

func TestOTPExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := &OTPStore{Client: client, TTL: 5 * time.Minute}
	code, err := store.Issue(context.Background(), "ravi@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code = %q", code)
	}

	mr.FastForward(6 * time.Minute)
	ok, err := store.Verify(context.Background(), "ravi@example.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expired code accepted")
	}
}

func extractCode(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "<strong>")
	end := strings.Index(body, "</strong>")
	if start < 0 || end < 0 {
		t.Fatalf("no code in body: %s", body)
	}
	return body[start+len("<strong>") : end]
}
