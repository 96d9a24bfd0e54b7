package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestAccount_DefaultZeroValues(t *testing.T) {
	var a Account

	if a.EmailVerified {
		t.Fatalf("expected EmailVerified=false")
	}
	if a.HasPendingVerification() {
		t.Fatalf("expected no pending verification")
	}
}

func TestAccount_TokenValid(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exp := now.Add(2 * time.Minute)
	a := Account{VerificationToken: strPtr("tok"), TokenExpires: &exp}

	if !a.TokenValid("tok", now) {
		t.Fatalf("expected valid token")
	}
	if a.TokenValid("other", now) {
		t.Fatalf("expected mismatch to be invalid")
	}
	if a.TokenValid("", now) {
		t.Fatalf("expected empty token to be invalid")
	}
	if a.TokenValid("tok", exp) {
		t.Fatalf("expected token to be expired at expiry instant")
	}
	if a.TokenValid("tok", exp.Add(time.Second)) {
		t.Fatalf("expected token to be expired after expiry")
	}
}

func TestAccount_TokenValid_HalfPairIsNotPending(t *testing.T) {
	a := Account{VerificationToken: strPtr("tok")}
	if a.HasPendingVerification() {
		t.Fatalf("token without expiry must not count as pending")
	}
	if a.TokenValid("tok", time.Now()) {
		t.Fatalf("token without expiry must not validate")
	}
}

func TestAccountChanges_Empty(t *testing.T) {
	if !(AccountChanges{}).Empty() {
		t.Fatalf("expected empty changes")
	}
	if (AccountChanges{LastName: strPtr("B")}).Empty() {
		t.Fatalf("expected non-empty changes")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalized username %q", got)
	}
}
