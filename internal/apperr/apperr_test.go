package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := New(Conflict, "room %s changed", "r1")
	wrapped := fmt.Errorf("commit: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrCapacityFull))
	assert.Equal(t, Conflict, CodeOf(wrapped))
	assert.Equal(t, "CONFLICT: room r1 changed", err.Error())
}

func TestHeldCarriesRemaining(t *testing.T) {
	err := Held(90 * time.Second)
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 90*time.Second, e.Remaining)

	assert.Equal(t, time.Duration(0), Held(-time.Second).Remaining)
}

func TestCodeOfUncoded(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, Unavailable, CodeOf(errors.New("dial tcp: refused")))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(Unavailable, cause, "store")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatus(t *testing.T) {
	cases := map[Code]int{
		Conflict:            http.StatusConflict,
		CapacityFull:        http.StatusConflict,
		ConstraintViolation: http.StatusUnprocessableEntity,
		AlreadyHeld:         http.StatusLocked,
		NotFound:            http.StatusNotFound,
		IdentityMismatch:    http.StatusNotFound,
		AlreadyAssigned:     http.StatusConflict,
		Forbidden:           http.StatusForbidden,
		Invalid:             http.StatusBadRequest,
		Unavailable:         http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, Status(code))
		})
	}
}
