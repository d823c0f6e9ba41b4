package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tazhibayda/edu-auth/internal/apperr"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindProfileIncomplete, http.StatusBadRequest},
		{apperr.KindInvalidCredentials, http.StatusUnauthorized},
		{apperr.KindMissingToken, http.StatusUnauthorized},
		{apperr.KindTokenInvalid, http.StatusUnauthorized},
		{apperr.KindTokenExpired, http.StatusUnauthorized},
		{apperr.KindUserNotFound, http.StatusUnauthorized},
		{apperr.KindAccountInactive, http.StatusForbidden},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindOAuthOnlyAccount, http.StatusForbidden},
		{apperr.KindDuplicateEmail, http.StatusConflict},
		{apperr.KindPasswordAlreadySet, http.StatusConflict},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, apperr.Status(apperr.New(tc.kind, "x")), "kind %d", tc.kind)
	}
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("mongo: connection reset")
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
	assert.Equal(t, "internal server error", apperr.Message(err))
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := apperr.Internal(errors.New("dsn=mongodb://secret@host"))
	assert.Equal(t, "internal server error", apperr.Message(err))
	// the cause stays reachable for logging
	assert.Contains(t, err.Error(), "dsn=")
}

func TestWrapPreservesKindThroughLayers(t *testing.T) {
	inner := apperr.New(apperr.KindTokenExpired, "token expired")
	outer := fmt.Errorf("guard: %w", inner)
	assert.Equal(t, apperr.KindTokenExpired, apperr.KindOf(outer))
	assert.Equal(t, "token expired", apperr.Message(outer))
}
