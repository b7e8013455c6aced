package iam_test

import (
	"encoding/json"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/iam"
)

func TestParseGender(t *testing.T) {
	if got := iam.ParseGender("male"); got != iam.GenderMale {
		t.Fatalf("expected MALE, got %q", got)
	}
	if got := iam.ParseGender("Female"); got != iam.GenderFemale {
		t.Fatalf("expected FEMALE, got %q", got)
	}
	if got := iam.ParseGender("other"); got != iam.GenderNone {
		t.Fatalf("unrecognized value must fall back to NONE, got %q", got)
	}
	if got := iam.ParseGender(""); got != iam.GenderNone {
		t.Fatalf("empty value must fall back to NONE, got %q", got)
	}
}

func TestGender_UnmarshalFallback(t *testing.T) {
	var profile iam.UserProfile
	if err := json.Unmarshal([]byte(`{"gender":"robot"}`), &profile); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if profile.Gender != iam.GenderNone {
		t.Fatalf("unknown gender must deserialize as NONE, got %q", profile.Gender)
	}
}

func TestUserProfile_Equal(t *testing.T) {
	a := iam.UserProfile{FirstName: "Jane", MobilePhoneNo: "555-0100"}
	b := a
	if !a.Equal(b) {
		t.Fatal("identical profiles must compare equal")
	}
	b.Country = "PE"
	if a.Equal(b) {
		t.Fatal("differing profiles must not compare equal")
	}
}
