package iam_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/iam"
)

func TestGenerateCredentialSecret_Length(t *testing.T) {
	secret := iam.GenerateCredentialSecret(iam.DefaultSecretLength, nil)

	if len(secret.Secret) != iam.DefaultSecretLength {
		t.Fatalf("expected secret of length %d, got %d", iam.DefaultSecretLength, len(secret.Secret))
	}
	for _, r := range secret.Secret {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum {
			t.Fatalf("secret contains non-alphanumeric character %q", r)
		}
	}
}

func TestGenerateCredentialSecret_DefaultExpiry(t *testing.T) {
	secret := iam.GenerateCredentialSecret(16, nil)

	expected := secret.IssuedAt.AddDate(0, 1, 0)
	if !secret.ExpiresAt.Equal(expected) {
		t.Fatalf("expected expiry one month after issue (%v), got %v", expected, secret.ExpiresAt)
	}
}

func TestGenerateCredentialSecret_ExplicitExpiry(t *testing.T) {
	at := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	secret := iam.GenerateCredentialSecret(16, &at)

	if !secret.ExpiresAt.Equal(at) {
		t.Fatalf("expected expiry %v, got %v", at, secret.ExpiresAt)
	}
	if secret.IsExpired() {
		t.Fatal("fresh secret must not be expired")
	}
}

func TestCredentialSecret_ExpireIsIdempotent(t *testing.T) {
	secret := iam.GenerateCredentialSecret(16, nil)

	secret.Expire()
	if !secret.IsExpired() {
		t.Fatal("expected secret to be expired")
	}

	first := secret.ExpiresAt
	secret.Expire()
	if !secret.ExpiresAt.Equal(first) {
		t.Fatalf("second expire moved the expiry from %v to %v", first, secret.ExpiresAt)
	}
}

func TestCredentialSecret_IsZero(t *testing.T) {
	var empty iam.CredentialSecret
	if !empty.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
	if iam.GenerateCredentialSecret(8, nil).IsZero() {
		t.Fatal("generated secret must not report IsZero")
	}
}
