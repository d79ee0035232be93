package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewConflict("slug taken", nil), CodeConflict, http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("create: %w", NewValidationError("title required", nil)), CodeValidation, http.StatusBadRequest},
		{"no rows maps to not found", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"anything else is internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewAlreadyResolved(nil), CodeAlreadyResolved))
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", NewForbidden("restricted")), CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
	assert.False(t, HasCode(NewNotFound("question", nil), CodeConflict))
}

func TestInternalErrorHidesCause(t *testing.T) {
	err := NewInternalError(errors.New("dial tcp: refused"))
	de := ToDomainError(err)
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorContains(t, err, "dial tcp")
}
