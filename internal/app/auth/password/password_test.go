package password

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
)

var cheap = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher("pepper", cheap)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	ok, err := h.Compare("secret1", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Compare("secret2", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_SaltedAndPeppered(t *testing.T) {
	h := NewHasher("pepper", cheap)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	ok, err := NewHasher("other", cheap).Compare("secret1", a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_MalformedHash(t *testing.T) {
	_, err := NewHasher("", cheap).Compare("x", "not-a-hash")
	require.Error(t, err)
}
