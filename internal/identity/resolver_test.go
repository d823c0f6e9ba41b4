package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/domain"
	"github.com/tazhibayda/edu-auth/internal/identity"
)

var errDup = errors.New("duplicate key")

// memStore mimics the Mongo credential store, including its unique
// constraints on email and (provider, oauth_id).
type memStore struct {
	users []*domain.User
}

func (m *memStore) FindUserByOAuth(_ context.Context, provider, oauthID string) (*domain.User, error) {
	for _, u := range m.users {
		if u.OAuthProvider == provider && u.OAuthID == oauthID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateGoogleUser(_ context.Context, oauthID, email, name, avatar string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email || (u.OAuthProvider == domain.ProviderGoogle && u.OAuthID == oauthID) {
			return nil, errDup
		}
	}
	u := &domain.User{
		ID: primitive.NewObjectID(), Email: email, Name: name, Avatar: avatar,
		OAuthProvider: domain.ProviderGoogle, OAuthID: oauthID,
		Role: domain.RoleStudent, IsActive: true,
	}
	m.users = append(m.users, u)
	cp := *u
	return &cp, nil
}

func (m *memStore) LinkGoogleAccount(_ context.Context, userID primitive.ObjectID, oauthID, avatar string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.OAuthProvider = domain.ProviderGoogle
			u.OAuthID = oauthID
			if u.Avatar == "" {
				u.Avatar = avatar
			}
			return nil
		}
	}
	return errors.New("no such user")
}

func isDup(err error) bool { return errors.Is(err, errDup) }

func profile() identity.Profile {
	return identity.Profile{
		Provider:   domain.ProviderGoogle,
		ProviderID: "sub-1",
		Email:      "a@x.com",
		Name:       "A",
		Avatar:     "http://img/a.png",
	}
}

func TestResolveCreatesNewUser(t *testing.T) {
	m := &memStore{}
	r := identity.NewResolver(m, isDup)

	u, linked, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "sub-1", u.OAuthID)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, domain.RoleStudent, u.Role)
	assert.True(t, u.IsActive)
	assert.Len(t, m.users, 1)
}

func TestResolveFastPathByProviderID(t *testing.T) {
	m := &memStore{}
	r := identity.NewResolver(m, isDup)

	first, _, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)

	again, linked, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, m.users, 1)
}

func TestResolveLinksExistingLocalAccount(t *testing.T) {
	local := &domain.User{
		ID: primitive.NewObjectID(), Email: "a@x.com", Name: "A",
		PasswordHash: "$2a$12$hash", Role: domain.RoleInstructor, IsActive: true,
	}
	m := &memStore{users: []*domain.User{local}}
	r := identity.NewResolver(m, isDup)

	u, linked, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, local.ID, u.ID)
	assert.Equal(t, "sub-1", u.OAuthID)
	assert.Equal(t, domain.ProviderGoogle, u.OAuthProvider)
	assert.Equal(t, "$2a$12$hash", u.PasswordHash, "local password survives linking")
	assert.Equal(t, domain.RoleInstructor, u.Role, "role is untouched by linking")
	assert.Equal(t, "http://img/a.png", u.Avatar, "empty avatar is filled in")
	assert.Len(t, m.users, 1, "linking must not create a second row")
}

func TestResolveKeepsExistingAvatar(t *testing.T) {
	local := &domain.User{
		ID: primitive.NewObjectID(), Email: "a@x.com",
		PasswordHash: "h", Avatar: "http://img/own.png", IsActive: true,
	}
	m := &memStore{users: []*domain.User{local}}
	r := identity.NewResolver(m, isDup)

	u, _, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)
	assert.Equal(t, "http://img/own.png", u.Avatar)
}

func TestResolveMissingEmail(t *testing.T) {
	r := identity.NewResolver(&memStore{}, isDup)

	p := profile()
	p.Email = ""
	_, _, err := r.Resolve(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, apperr.KindProfileIncomplete, apperr.KindOf(err))
}

// raceStore loses the create race once: the first CreateGoogleUser fails with
// a duplicate error after inserting the winner's row, as if another request
// got there first.
type raceStore struct {
	memStore
	raced bool
}

func (r *raceStore) CreateGoogleUser(ctx context.Context, oauthID, email, name, avatar string) (*domain.User, error) {
	if !r.raced {
		r.raced = true
		_, _ = r.memStore.CreateGoogleUser(ctx, oauthID, email, name, avatar)
		return nil, errDup
	}
	return r.memStore.CreateGoogleUser(ctx, oauthID, email, name, avatar)
}

func TestResolveRetriesAfterLostRace(t *testing.T) {
	rs := &raceStore{}
	r := identity.NewResolver(rs, isDup)

	u, linked, err := r.Resolve(context.Background(), profile())
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, "sub-1", u.OAuthID)
	assert.Len(t, rs.users, 1, "loser re-resolves to the winner's row")
}
