package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    *Error
		typ    ErrorType
		status int
		code   codes.Code
	}{
		{InvalidArg("bad level"), ErrInvalidArg, http.StatusBadRequest, codes.InvalidArgument},
		{NotFound("no domain"), ErrNotFound, http.StatusNotFound, codes.NotFound},
		{Closed("registry closed"), ErrClosed, http.StatusServiceUnavailable, codes.Unavailable},
		{WriteFailed("disk full", errors.New("ENOSPC")), ErrWrite, http.StatusInternalServerError, codes.DataLoss},
		{Internal("boom", nil), ErrInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.typ, tc.err.Type, tc.err.Message)
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Message)
		assert.Equal(t, tc.code, tc.err.GRPCCode(), tc.err.Message)
		assert.NotEmpty(t, tc.err.Stack)
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[NotFound] 404: no domain", NotFound("no domain").Error())
	err := WriteFailed("disk full", errors.New("ENOSPC"))
	assert.Equal(t, "[Write] 500: disk full (Cause: ENOSPC)", err.Error())
	assert.Equal(t, "Unknown", ErrorType(99).String())
}

func TestChainedAPI(t *testing.T) {
	err := InvalidArg("invalid log level").WithDetail("level=%d", 9).WithContext("domain", "core")
	assert.Equal(t, "level=9", err.Detail)
	assert.Equal(t, "core", err.Context["domain"])
}

func TestWrapAndFromError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "x"))

	cause := errors.New("permission denied")
	wrapped := fmt.Errorf("open handler: %w", Wrap(cause, ErrInternal, "cannot open log file"))

	xe, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrInternal, xe.Type)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestIsWalksJoinedErrors(t *testing.T) {
	joined := errors.Join(
		errors.New("plain"),
		fmt.Errorf("handler 2: %w", WriteFailed("short write", nil)),
	)
	assert.True(t, Is(joined, ErrWrite))
	assert.False(t, Is(joined, ErrClosed))
	assert.False(t, Is(nil, ErrWrite))
}
