package app

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, ttl time.Duration) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("team-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	auth, err := NewAuthenticator("test-secret-0123456789", ttl,
		Credential{Username: "boss", Password: "admin-pass", Role: RoleAdmin},
		Credential{Username: "team", PasswordHash: string(hash), Role: RoleWorkmate},
	)
	if err != nil {
		t.Fatal(err)
	}
	return auth
}

func TestAuthenticatorLogin(t *testing.T) {
	auth := newTestAuth(t, time.Hour)

	tests := []struct {
		name     string
		username string
		password string
		want     Role
		wantErr  bool
	}{
		{"admin", "boss", "admin-pass", RoleAdmin, false},
		{"workmate with prehashed password", "team", "team-pass", RoleWorkmate, false},
		{"wrong password", "boss", "team-pass", RoleAnonymous, true},
		{"unknown user", "ghost", "admin-pass", RoleAnonymous, true},
		{"empty", "", "", RoleAnonymous, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := auth.Login(tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("expected invalid credentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if actor.Role != tt.want || actor.Username != tt.username {
				t.Errorf("unexpected actor %+v", actor)
			}
		})
	}
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	if _, err := NewAuthenticator("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	auth := newTestAuth(t, time.Hour)
	token, err := auth.Issue(Actor{Role: RoleAdmin, Username: "boss"})
	if err != nil {
		t.Fatal(err)
	}
	actor, err := auth.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if actor.Role != RoleAdmin || actor.Username != "boss" {
		t.Errorf("unexpected actor %+v", actor)
	}
	if !actor.CanDelete() || !actor.CanBook() {
		t.Errorf("admin should book and delete")
	}
}

func TestSessionExpiry(t *testing.T) {
	auth := newTestAuth(t, time.Hour)
	issued := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	token, err := auth.Issue(workmate)
	if err != nil {
		t.Fatal(err)
	}

	auth.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := auth.Parse(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	auth.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := auth.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSessionWithoutTTLNeverExpires(t *testing.T) {
	auth := newTestAuth(t, 0)
	issued := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	token, err := auth.Issue(workmate)
	if err != nil {
		t.Fatal(err)
	}
	auth.now = func() time.Time { return issued.AddDate(5, 0, 0) }
	if _, err := auth.Parse(token); err != nil {
		t.Fatalf("token without ttl should not expire: %v", err)
	}
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	auth := newTestAuth(t, time.Hour)
	other, err := NewAuthenticator("another-secret-0123456", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := other.Issue(Actor{Role: RoleAdmin, Username: "mallory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Parse(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
	if _, err := auth.Parse("not-a-token"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestSessionRejectsAnonymousRole(t *testing.T) {
	auth := newTestAuth(t, time.Hour)
	token, err := auth.Issue(nobody)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Parse(token); err == nil {
		t.Fatal("expected anonymous role claim to be rejected")
	}
}

func TestActorPermissions(t *testing.T) {
	if nobody.CanBook() || nobody.CanDelete() {
		t.Error("anonymous must not book or delete")
	}
	if !workmate.CanBook() || workmate.CanDelete() {
		t.Error("workmate books but does not delete")
	}
}
