package application

import (
	"context"
	"errors"
	"testing"
)

func TestProfileServiceSaveProfile(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.profiles.SaveProfile(context.Background(), SaveProfileInput{DisplayName: "Ann"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	_, err := env.profiles.SaveProfile(asUser("ann", ""), SaveProfileInput{DisplayName: "  ", Username: "no spaces!"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.FieldErrors["displayName"] == "" || vErr.FieldErrors["username"] == "" {
		t.Fatalf("expected displayName and username errors, got %v", vErr.FieldErrors)
	}

	profile, err := env.profiles.SaveProfile(asUser("ann", ""), SaveProfileInput{DisplayName: " Ann ", Username: " Ann_Lee "})
	if err != nil {
		t.Fatalf("SaveProfile returned error: %v", err)
	}
	if profile.DisplayName != "Ann" || profile.Username != "ann_lee" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if _, err := env.profiles.SaveProfile(asUser("bob", ""), SaveProfileInput{DisplayName: "Bob", Username: "ann_lee"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := env.profiles.SaveProfile(asUser("ann", ""), SaveProfileInput{DisplayName: "Annie", Username: "ann_lee"}); err != nil {
		t.Fatalf("expected owner to keep username, got %v", err)
	}

	got, err := env.profiles.GetProfile(asUser("ann", ""))
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if got.DisplayName != "Annie" {
		t.Fatalf("expected updated display name, got %q", got.DisplayName)
	}
}

func TestProfileServiceGetProfileFallsBackToIdentity(t *testing.T) {
	env := newTestEnv(t)

	profile, err := env.profiles.GetProfile(asUser("carl", "Carl"))
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if profile.UserID != "carl" || profile.DisplayName != "Carl" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
