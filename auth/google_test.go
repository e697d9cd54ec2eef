package auth

import (
	"context"
	"errors"
	"testing"

	"chatlink/store"
)

func TestGoogleAccountMatchesExistingEmailCaseInsensitively(t *testing.T) {
	tree := store.NewMemoryTree()
	svc := NewService(tree)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret123", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := svc.googleAccount(ctx, googleUserInfo{
		ID:    "google-123",
		Email: "Alice@Example.COM",
		Name:  "Alice G",
	})
	if err != nil {
		t.Fatalf("googleAccount: %v", err)
	}
	if got.ID != registered.ID {
		t.Errorf("signed in as %q; want existing account %q", got.ID, registered.ID)
	}

	// The index must not have grown a second entry for the same address.
	var indexed string
	if err := tree.Get(ctx, "/emailIndex/"+EncodeEmail("alice@example.com"), &indexed); err != nil {
		t.Fatalf("read index: %v", err)
	}
	if indexed != registered.ID {
		t.Errorf("index = %q; want %q", indexed, registered.ID)
	}
}

func TestGoogleAccountProvisionsNewUser(t *testing.T) {
	tree := store.NewMemoryTree()
	svc := NewService(tree)
	ctx := context.Background()

	profile, err := svc.googleAccount(ctx, googleUserInfo{
		ID:      "google-456",
		Email:   "Bob@Example.com",
		Name:    "Bob",
		Picture: "https://example.com/bob.png",
	})
	if err != nil {
		t.Fatalf("googleAccount: %v", err)
	}
	if profile.ID != "g-google-456" {
		t.Errorf("provisioned id = %q; want g-google-456", profile.ID)
	}
	if profile.Email != "bob@example.com" {
		t.Errorf("email = %q; want lowercased", profile.Email)
	}

	// A later email sign-in attempt hits the provider-only branch.
	if _, err := svc.SignIn(ctx, "bob@example.com", "whatever"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("SignIn err = %v; want ErrWrongPassword for provider-only account", err)
	}
}

func TestGoogleAccountRejectsEmptyEmail(t *testing.T) {
	svc := NewService(store.NewMemoryTree())

	if _, err := svc.googleAccount(context.Background(), googleUserInfo{ID: "x"}); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("err = %v; want ErrInvalidEmail", err)
	}
}
