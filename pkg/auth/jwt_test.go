package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifeline-health/platform/pkg/common/models"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret-at-least-16-chars", "lifeline-platform", "lifeline-clients", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func testUser() models.User {
	return models.User{
		ID:       uuid.New(),
		Email:    "demo@patient.com",
		UserType: models.UserTypePatient,
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	m := newTestManager(t)
	user := testUser()

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if claims.UserType != models.UserTypePatient {
		t.Fatalf("expected user type %q, got %q", models.UserTypePatient, claims.UserType)
	}
	if claims.Email != user.Email {
		t.Fatalf("expected email %q, got %q", user.Email, claims.Email)
	}
}

func TestValidateTokenRejectsTamperedSignature(t *testing.T) {
	m := newTestManager(t)

	token, err := m.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := m.ValidateToken(context.Background(), tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewJWTManager("another-secret-with-16-chars", "lifeline-platform", "lifeline-clients", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := m.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected token signed with different secret to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	user := testUser()

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	m.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	m := newTestManager(t)
	other, err := NewJWTManager("test-secret-at-least-16-chars", "someone-else", "lifeline-clients", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := other.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected token from wrong issuer to be rejected")
	}
}

func TestFallbackTriesValidatorsInOrder(t *testing.T) {
	primary := newTestManager(t)
	secondary, err := NewJWTManager("secondary-secret-16-chars!", "lifeline-platform", "lifeline-clients", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := secondary.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	chain := Fallback(primary, secondary)
	claims, err := chain.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("expected fallback validator to accept token: %v", err)
	}
	if claims.UserType != models.UserTypePatient {
		t.Fatalf("unexpected user type %q", claims.UserType)
	}

	if _, err := chain.ValidateToken(context.Background(), "not-a-token"); err == nil {
		t.Fatal("expected fallback validator to reject garbage")
	}
}
