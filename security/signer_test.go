package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTimestampSigner_SignUnsignRoundTrip(t *testing.T) {
	signer, err := NewTimestampSigner([]byte("signing-secret"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signed := signer.Sign("3f0e6b52-3c5e-4a8e-9f43-9c0f7e1f6a11")
	if strings.Count(signed, ":") != 2 {
		t.Fatalf("expected value:timestamp:signature, got %q", signed)
	}
	value, err := signer.Unsign(signed, time.Minute)
	if err != nil {
		t.Fatalf("unsign: %v", err)
	}
	if value != "3f0e6b52-3c5e-4a8e-9f43-9c0f7e1f6a11" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestTimestampSigner_RejectsTampering(t *testing.T) {
	signer, err := NewTimestampSigner([]byte("signing-secret"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signed := signer.Sign("txn-1")
	tampered := "txn-2" + strings.TrimPrefix(signed, "txn-1")
	for _, candidate := range []string{tampered, "txn-1", "", signed + "x"} {
		if _, err := signer.Unsign(candidate, 0); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected bad signature for %q, got %v", candidate, err)
		}
	}

	other, err := NewTimestampSigner([]byte("signing-secret"), WithSalt("other.purpose"))
	if err != nil {
		t.Fatalf("new salted signer: %v", err)
	}
	if _, err := other.Unsign(signed, 0); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected salt to separate signatures, got %v", err)
	}
}

func TestTimestampSigner_EnforcesMaxAge(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	signer, err := NewTimestampSigner([]byte("signing-secret"), WithSignerClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signed := signer.Sign("txn-1")

	now = now.Add(4 * time.Minute)
	if _, err := signer.Unsign(signed, 5*time.Minute); err != nil {
		t.Fatalf("expected signature within max age, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := signer.Unsign(signed, 5*time.Minute); !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected expired signature, got %v", err)
	}
	if _, err := signer.Unsign(signed, 0); err != nil {
		t.Fatalf("expected zero max age to skip the age check, got %v", err)
	}
}

func TestNewTimestampSigner_RequiresSecret(t *testing.T) {
	if _, err := NewTimestampSigner(nil); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
