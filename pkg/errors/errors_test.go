package errors

import (
	stderr "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrap(t *testing.T) {
	sentinel := New("resource gone")
	cause := stderr.New("disk on fire")

	wrapped := sentinel.Wrap(cause)
	require.True(t, Is(wrapped, sentinel))
	require.True(t, Is(wrapped, cause))
	require.Contains(t, wrapped.Error(), "resource gone")
	require.Contains(t, wrapped.Error(), "disk on fire")

	// wrapping does not mutate the sentinel
	require.Nil(t, sentinel.Unwrap())
}

func TestErrorWrapMessage(t *testing.T) {
	sentinel := New("bad input")
	wrapped := sentinel.WrapMessage("field %q out of range", "size")
	require.True(t, Is(wrapped, sentinel))
	require.Contains(t, wrapped.Error(), `field "size" out of range`)
}

func TestErrorChains(t *testing.T) {
	inner := New("inner")
	outer := New("outer")
	err := outer.Wrap(inner.Wrap(fmt.Errorf("root cause")))

	require.True(t, Is(err, outer))
	require.True(t, Is(err, inner))

	var asErr *Error
	require.True(t, As(err, &asErr))
	require.Equal(t, "outer: inner: root cause", err.Error())
}
