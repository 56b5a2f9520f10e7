package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendError(t *testing.T) {
	t.Run("nil base error", func(t *testing.T) {
		err1 := errors.New("first error")
		result := AppendError(nil, err1)
		require.Equal(t, err1, result)
	})

	t.Run("nil new error", func(t *testing.T) {
		err1 := errors.New("first error")
		result := AppendError(err1, nil)
		require.Equal(t, err1, result)
	})

	t.Run("both nil", func(t *testing.T) {
		result := AppendError(nil, nil)
		require.Nil(t, result)
	})

	t.Run("both non-nil", func(t *testing.T) {
		err1 := errors.New("first error")
		err2 := errors.New("second error")
		result := AppendError(err1, err2)
		
		require.NotNil(t, result)
		errorStr := result.Error()
		require.True(t, strings.Contains(errorStr, "first error"))
		require.True(t, strings.Contains(errorStr, "second error"))
	})

	t.Run("multiple appends", func(t *testing.T) {
		var err error
		err = AppendError(err, errors.New("error 1"))
		err = AppendError(err, errors.New("error 2"))
		err = AppendError(err, errors.New("error 3"))
		
		require.NotNil(t, err)
		errorStr := err.Error()
		require.True(t, strings.Contains(errorStr, "error 1"))
		require.True(t, strings.Contains(errorStr, "error 2"))
		require.True(t, strings.Contains(errorStr, "error 3"))
	})
}

func TestAppendErrorf(t *testing.T) {
	t.Run("nil base error", func(t *testing.T) {
		result := AppendErrorf(nil, "error %d", 42)
		require.Equal(t, "error 42", result.Error())
	})

	t.Run("non-nil base error", func(t *testing.T) {
		baseErr := errors.New("base error")
		result := AppendErrorf(baseErr, "formatted error %s", "test")

		require.NotNil(t, result)
		errorStr := result.Error()
		require.True(t, strings.Contains(errorStr, "base error"))
		require.True(t, strings.Contains(errorStr, "formatted error test"))
	})
}

func TestErrorKindConstructors(t *testing.T) {
	t.Run("unsupported wraps sentinel", func(t *testing.T) {
		err := NewUnsupportedError("select_codec")
		require.ErrorIs(t, err, ErrUnsupported)
		require.Contains(t, err.Error(), "select_codec")
	})

	t.Run("io wraps sentinel and cause", func(t *testing.T) {
		cause := errors.New("service unknown")
		err := NewIOError("acquire", cause)
		require.ErrorIs(t, err, ErrIO)
		require.ErrorIs(t, err, cause)
	})

	t.Run("io without cause", func(t *testing.T) {
		err := NewIOError("acquire", nil)
		require.ErrorIs(t, err, ErrIO)
	})

	t.Run("no such thread wraps sentinel", func(t *testing.T) {
		err := NewNoSuchThreadError("enc")
		require.ErrorIs(t, err, ErrNoSuchThread)
		require.Contains(t, err.Error(), "enc")
	})

	t.Run("invalid argument wraps sentinel", func(t *testing.T) {
		err := NewInvalidArgumentError("profile")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("resource exhaustion wraps sentinel", func(t *testing.T) {
		err := NewResourceExhaustionError("signal pipe", errors.New("too many open files"))
		require.ErrorIs(t, err, ErrResourceExhaustion)
	})
}