package auth

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-key-at-least-32-bytes")

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})

	token, err := codec.Issue("user123", map[string]any{"tier": "premium"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	payload, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if payload.Subject != "user123" {
		t.Errorf("Subject = %q, want user123", payload.Subject)
	}
	if tier, _ := payload.Claims["tier"].(string); tier != "premium" {
		t.Errorf("tier claim = %v, want premium", payload.Claims["tier"])
	}
	if payload.ExpiresAt.Sub(payload.IssuedAt) != time.Hour {
		t.Errorf("token lifetime = %v, want 1h", payload.ExpiresAt.Sub(payload.IssuedAt))
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	// Issue with a clock two hours in the past so the default 1h TTL has
	// already elapsed at verification time.
	past := time.Now().Add(-2 * time.Hour)
	codec := NewTokenCodec(TokenCodecConfig{
		Secret: testSecret,
		Now:    func() time.Time { return past },
	})

	token, err := codec.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	verifier := NewTokenCodec(TokenCodecConfig{Secret: testSecret})
	if _, err := verifier.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})

	token, err := codec.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip the last byte of the signature segment.
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	if _, err := codec.Verify(string(tampered)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_ExpiredAndWrongSecret(t *testing.T) {
	// An expired token signed with the wrong secret fails both checks;
	// it must be reported as invalid, not merely expired.
	past := time.Now().Add(-2 * time.Hour)
	forger := NewTokenCodec(TokenCodecConfig{
		Secret: []byte("a-completely-different-secret!!!"),
		Now:    func() time.Time { return past },
	})

	token, err := forger.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})
	other := NewTokenCodec(TokenCodecConfig{Secret: []byte("a-completely-different-secret!!!")})

	token, err := codec.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_Garbage(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})

	tests := []string{"", "not-a-token", "a.b.c"}
	for _, tt := range tests {
		if _, err := codec.Verify(tt); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tt, err)
		}
	}
}

func TestTokenCodec_ReservedClaimsNotOverridable(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})

	token, err := codec.Issue("user123", map[string]any{
		"sub": "attacker",
		"exp": 0,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	payload, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if payload.Subject != "user123" {
		t.Errorf("Subject = %q, want user123", payload.Subject)
	}
}

func TestTokenCodec_EmptySubject(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret})
	if _, err := codec.Issue("", nil); err == nil {
		t.Fatal("Issue(\"\") error = nil, want error")
	}
}

func TestTokenCodec_CustomTTL(t *testing.T) {
	codec := NewTokenCodec(TokenCodecConfig{Secret: testSecret, TTL: 30 * time.Minute})

	token, err := codec.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	payload, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if payload.ExpiresAt.Sub(payload.IssuedAt) != 30*time.Minute {
		t.Errorf("token lifetime = %v, want 30m", payload.ExpiresAt.Sub(payload.IssuedAt))
	}
}
