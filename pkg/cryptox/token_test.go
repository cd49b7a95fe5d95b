package cryptox_test

import (
	"testing"

	"github.com/OpenConext/OpenConext-teams/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-8)
		require.Error(t, err)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
			require.NoError(t, err)
			_, dup := seen[tok]
			require.False(t, dup)
			seen[tok] = struct{}{}
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	a := cryptox.FingerprintToken("invitation-token")
	b := cryptox.FingerprintToken("invitation-token")
	c := cryptox.FingerprintToken("other-token")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 43) // raw base64url of 32 bytes
}

func TestTokensEqual(t *testing.T) {
	require.True(t, cryptox.TokensEqual("abc", "abc"))
	require.False(t, cryptox.TokensEqual("abc", "abd"))
	require.False(t, cryptox.TokensEqual("abc", ""))
}
