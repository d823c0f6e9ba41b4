// Package identity turns an external OAuth profile into exactly one local
// user record: find by provider identity, link by email, or create.
package identity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/domain"
)

// Profile is the provider-verified identity coming back from the OAuth
// exchange. Email must be usable for deduplication.
type Profile struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Avatar     string
}

// UserStore is the slice of the credential store the resolver needs.
type UserStore interface {
	FindUserByOAuth(ctx context.Context, provider, oauthID string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	CreateGoogleUser(ctx context.Context, oauthID, email, name, avatar string) (*domain.User, error)
	LinkGoogleAccount(ctx context.Context, userID primitive.ObjectID, oauthID, avatar string) error
}

type Resolver struct {
	Store UserStore
	// IsDup recognizes unique-constraint violations; wired to repo.IsDup.
	IsDup func(error) bool
}

func NewResolver(store UserStore, isDup func(error) bool) *Resolver {
	return &Resolver{Store: store, IsDup: isDup}
}

// Resolve never answers "not found": every usable profile maps to a user.
//
// An existing account with a matching email is linked silently — the provider
// already verified ownership of that address, there is no second confirmation
// step.
func (r *Resolver) Resolve(ctx context.Context, p Profile) (*domain.User, bool, error) {
	u, linked, err := r.resolve(ctx, p)
	if err != nil && r.IsDup != nil && r.IsDup(err) {
		// lost a first-login race; the winner's row exists now
		u, linked, err = r.resolve(ctx, p)
		if err != nil && r.IsDup(err) {
			err = apperr.Wrap(apperr.KindConflict, "conflicting oauth identity", err)
		}
	}
	return u, linked, err
}

func (r *Resolver) resolve(ctx context.Context, p Profile) (*domain.User, bool, error) {
	if p.Email == "" {
		return nil, false, apperr.New(apperr.KindProfileIncomplete, "oauth profile has no email")
	}

	u, err := r.Store.FindUserByOAuth(ctx, p.Provider, p.ProviderID)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	if u != nil {
		return u, false, nil
	}

	existing, err := r.Store.FindUserByEmail(ctx, p.Email)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	if existing != nil {
		if err := r.Store.LinkGoogleAccount(ctx, existing.ID, p.ProviderID, p.Avatar); err != nil {
			if r.IsDup != nil && r.IsDup(err) {
				return nil, false, err
			}
			return nil, false, apperr.Internal(err)
		}
		updated, err := r.Store.FindUserByID(ctx, existing.ID)
		if err != nil || updated == nil {
			return nil, false, apperr.Internal(err)
		}
		return updated, true, nil
	}

	created, err := r.Store.CreateGoogleUser(ctx, p.ProviderID, p.Email, p.Name, p.Avatar)
	if err != nil {
		if r.IsDup != nil && r.IsDup(err) {
			return nil, false, err
		}
		return nil, false, apperr.Internal(err)
	}
	return created, false, nil
}
