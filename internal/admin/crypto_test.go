package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s, err := NewSealer("unit-test-secret")
		require.NoError(t, err)

		sealed, err := s.Seal("sk-test-1234567890")
		require.NoError(t, err)
		assert.NotContains(t, string(sealed), "sk-test")

		opened, err := s.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "sk-test-1234567890", opened)
	})

	t.Run("wrong secret fails to open", func(t *testing.T) {
		a, err := NewSealer("secret-a")
		require.NoError(t, err)
		b, err := NewSealer("secret-b")
		require.NoError(t, err)

		sealed, err := a.Seal("credential")
		require.NoError(t, err)

		_, err = b.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("truncated ciphertext rejected", func(t *testing.T) {
		s, err := NewSealer("secret")
		require.NoError(t, err)

		_, err = s.Open([]byte{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := NewSealer("")
		assert.Error(t, err)
	})
}
