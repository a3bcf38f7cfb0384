package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	s, err := String(16, "abc")
	require.NoError(t, err)
	assert.Len(t, s, 16)
	for _, r := range s {
		assert.Contains(t, "abc", string(r))
	}

	empty, err := String(0, "abc")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDigits(t *testing.T) {
	s := Digits(8)
	assert.Len(t, s, 8)
	for _, r := range s {
		assert.Contains(t, CharsetDigits, string(r))
	}
}

func TestInt(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := Int(10)
		assert.GreaterOrEqual(t, n, int64(0))
		assert.Less(t, n, int64(10))
	}

	assert.Equal(t, int64(0), Int(0))
	assert.Equal(t, int64(0), Int(-5))
}
