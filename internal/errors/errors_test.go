package errors

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

// The sentinel marks ride on the cockroachdb error chain, so matching must
// go through the package predicates rather than the standard library.
func TestPredicatesMatchMarkedErrors(t *testing.T) {
	validationErr := NewError("bad input").
		WithHint("fix the payload").
		Mark(ErrValidation)
	assert.True(t, IsValidation(validationErr))
	assert.False(t, IsSystem(validationErr))

	opErr := WithError(errors.New("corrupt blob")).
		Mark(ErrInvalidOperation)
	assert.True(t, IsInvalidOperation(opErr))

	systemErr := NewError("compiler crashed").Mark(ErrSystem)
	assert.True(t, IsSystem(systemErr))
	assert.False(t, IsValidation(systemErr))
}

func TestHTTPStatusFromErr(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		HTTPStatusFromErr(NewError("bad input").Mark(ErrValidation)))
	assert.Equal(t, http.StatusTooManyRequests,
		HTTPStatusFromErr(NewError("slow down").Mark(ErrRateLimit)))
	assert.Equal(t, http.StatusNotFound,
		HTTPStatusFromErr(NewError("gone").Mark(ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError,
		HTTPStatusFromErr(errors.New("unmarked")))
}

func TestCodeFromErr(t *testing.T) {
	assert.Equal(t, ErrCodeValidation,
		CodeFromErr(NewError("bad input").Mark(ErrValidation)))
	assert.Equal(t, ErrCodeAIProcessing,
		CodeFromErr(NewError("model failed").Mark(ErrAIProcessing)))
	assert.Equal(t, ErrCodeSystemError,
		CodeFromErr(errors.New("unmarked")))
}
