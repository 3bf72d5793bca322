package service

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	userID := uuid.New()
	token, err := GenerateJWT(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %s, got %s", userID, got)
	}
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")

	if _, err := ParseJWT("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := ParseJWT(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	InitJWT("secret-one")
	token, err := GenerateJWT(uuid.New())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	InitJWT("secret-two")
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}
