package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	err := fmt.Errorf("booking: %w", Clone(ErrInFlight, "booking already submitted"))
	assert.True(t, errors.Is(err, ErrInFlight))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestRemoteUsesDetail(t *testing.T) {
	cause := errors.New("status 503")
	assert.Equal(t, "institution offline", Remote(cause, "institution offline").Message)
	assert.Equal(t, ErrRemote.Message, Remote(cause, "").Message)
	assert.ErrorIs(t, Remote(cause, ""), cause)
}
