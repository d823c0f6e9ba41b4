package oauth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tazhibayda/edu-auth/internal/oauth"
)

func TestStateRoundTrip(t *testing.T) {
	g := oauth.NewGoogle("id", "secret", "http://localhost/cb", "state_secret")

	st := g.MakeState("nonce-1")
	assert.True(t, g.VerifyState(st))
}

func TestStateTamperRejected(t *testing.T) {
	g := oauth.NewGoogle("id", "secret", "http://localhost/cb", "state_secret")

	st := g.MakeState("nonce-1")
	assert.False(t, g.VerifyState("nonce-2"+st[strings.IndexByte(st, '.'):]))
	assert.False(t, g.VerifyState("no-signature"))
	assert.False(t, g.VerifyState(""))
}

func TestStateOtherKeyRejected(t *testing.T) {
	a := oauth.NewGoogle("id", "secret", "http://localhost/cb", "key_a")
	b := oauth.NewGoogle("id", "secret", "http://localhost/cb", "key_b")

	assert.False(t, b.VerifyState(a.MakeState("nonce")))
}

func TestAuthURLCarriesState(t *testing.T) {
	g := oauth.NewGoogle("client-123", "secret", "http://localhost/cb", "state_secret")
	u := g.AuthURL("mystate.sig")
	assert.Contains(t, u, "client-123")
	assert.Contains(t, u, "mystate.sig")
}
