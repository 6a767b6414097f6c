package token

import (
	"testing"
	"time"
)

func TestIssueAndParse_Session(t *testing.T) {
	t.Parallel()

	e := New("super-secret")

	tok, err := e.Issue(42, PurposeSession, time.Hour, true)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := e.Parse(tok, PurposeSession)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id mismatch: got %d want 42", claims.UserID)
	}
	if !claims.Verified {
		t.Fatalf("verified snapshot lost")
	}
	if claims.Purpose != PurposeSession {
		t.Fatalf("purpose mismatch: got %q", claims.Purpose)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	e := New("secret")

	tok, err := e.Issue(1, PurposeEmailVerify, -time.Second, false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = e.Parse(tok, PurposeEmailVerify)
	if err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := New("right-secret").Issue(1, PurposeSession, time.Hour, false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = New("wrong-secret").Parse(tok, PurposeSession)
	if err != ErrTokenMalformed {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := New("k").Parse("not.a.jwt", PurposeSession)
	if err != ErrTokenMalformed {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParse_PurposeMismatch(t *testing.T) {
	t.Parallel()

	e := New("secret")

	tok, err := e.Issue(7, PurposePasswordReset, time.Hour, false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := e.Parse(tok, PurposeSession); err != ErrWrongPurpose {
		t.Fatalf("reset token accepted as session token: %v", err)
	}
	if _, err := e.Parse(tok, PurposeEmailVerify); err != ErrWrongPurpose {
		t.Fatalf("reset token accepted as verification token: %v", err)
	}
	if _, err := e.Parse(tok, PurposePasswordReset); err != nil {
		t.Fatalf("reset token rejected for its own purpose: %v", err)
	}
}

func TestTTLRemaining(t *testing.T) {
	t.Parallel()

	e := New("secret")

	tok, err := e.Issue(1, PurposePasswordReset, time.Hour, false)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := e.Parse(tok, PurposePasswordReset)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	left := claims.TTLRemaining()
	if left <= 0 || left > time.Hour {
		t.Fatalf("unexpected remaining ttl: %v", left)
	}
}
