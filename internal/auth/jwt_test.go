package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/assetnexus/internal/model"
)

var admin = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret-key", 0)

	token, issued, err := tokens.Issue(admin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || issued.ID == "" {
		t.Fatal("expected a token with a JTI")
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 1 || claims.Username != "admin" || claims.Role != model.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID != issued.ID {
		t.Errorf("expected JTI %q, got %q", issued.ID, claims.ID)
	}
}

func TestJTIsAreUnique(t *testing.T) {
	tokens := NewTokens("secret", 0)
	_, a, _ := tokens.Issue(admin)
	_, b, _ := tokens.Issue(admin)
	if a.ID == b.ID {
		t.Error("expected distinct JTIs")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _ := NewTokens("secret1", 0).Issue(admin)

	_, err := NewTokens("secret2", 0).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewTokens("secret", 0).Verify("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, _, _ := tokens.Issue(admin)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokens("secret", 0).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for HS512, got %v", err)
	}
}

func TestTokenTTL(t *testing.T) {
	tokens := NewTokens("test", 0)
	_, claims, _ := tokens.Issue(admin)

	diff := time.Until(claims.ExpiresAt.Time) - DefaultTokenTTL
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswords(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected short password to be rejected")
	}

	hash, err := HashPassword("long enough")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "long enough") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "something else") {
		t.Error("expected wrong password not to match")
	}
}
