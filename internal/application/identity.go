package application

import (
	"context"
	"strings"

	"github.com/example/jio-scheduler/internal/domain"
)

// User is the identity asserted by the upstream identity provider.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// IdentityProvider reports the signed-in user, if any.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (User, bool)
}

// UsernameDirectory resolves human-readable handles.
type UsernameDirectory interface {
	Resolve(ctx context.Context, username string) (domain.Participant, error)
}

type userContextKey struct{}

// ContextWithUser attaches the signed-in user to ctx.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// ContextIdentity reads the user placed on the context by ContextWithUser.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	if !ok || strings.TrimSpace(user.ID) == "" {
		return User{}, false
	}
	return user, true
}

// actor resolves the preconditions shared by every operation.
type actor struct {
	identity IdentityProvider
}

// user requires a signed-in user.
func (a actor) user(ctx context.Context) (User, error) {
	if a.identity == nil {
		return User{}, ErrUnauthenticated
	}
	user, ok := a.identity.CurrentUser(ctx)
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return user, nil
}

// participant requires a signed-in user with a display name and returns
// their snapshot.
func (a actor) participant(ctx context.Context, profiles *Repository) (domain.Participant, error) {
	user, err := a.user(ctx)
	if err != nil {
		return domain.Participant{}, err
	}
	p := domain.Participant{UserID: user.ID, DisplayName: strings.TrimSpace(user.DisplayName)}
	if profiles != nil {
		if profile, err := profiles.GetProfile(ctx, user.ID); err == nil {
			if name := strings.TrimSpace(profile.DisplayName); name != "" {
				p.DisplayName = name
			}
			p.Username = profile.Username
		}
	}
	if p.DisplayName == "" {
		return domain.Participant{}, ErrDisplayNameRequired
	}
	return p, nil
}
