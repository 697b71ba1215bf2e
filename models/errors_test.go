package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorsWrapSentinels(t *testing.T) {
	assert.True(t, errors.Is(ErrStatsNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrQuestAlreadyCompleted, ErrConflict))
	assert.True(t, errors.Is(ErrReservedSubject, ErrForbidden))
	assert.True(t, errors.Is(ErrNotFriends, ErrForbidden))
	assert.True(t, errors.Is(ErrNotGroupMember, ErrForbidden))
	assert.True(t, errors.Is(ErrChallengeClosed, ErrConflict))
	assert.True(t, errors.Is(ErrInvalidCredentials, ErrUnauthorized))
	assert.True(t, errors.Is(ErrExportDisabled, ErrUnavailable))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("amount", "must not be negative")
	assert.Equal(t, "amount: must not be negative", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))

	bare := &ValidationError{Message: "bad request"}
	assert.Equal(t, "bad request", bare.Error())
}
