package services

import "testing"

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewSessionService("test-secret")

	token, err := svc.IssueToken("cust-1", "asha@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	customerID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if customerID != "cust-1" {
		t.Fatalf("expected cust-1, got %q", customerID)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := NewSessionService("secret-a").IssueToken("cust-1", "asha@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewSessionService("secret-b").ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestSessionTokenGarbage(t *testing.T) {
	if _, err := NewSessionService("secret").ParseToken("not-a-token"); err == nil {
		t.Fatal("garbage must not parse")
	}
}
