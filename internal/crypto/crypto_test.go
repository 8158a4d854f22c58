package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	a, err := New(make([]byte, 32))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte(`{"token":"x"}`), []byte("credentials"))
	require.NoError(t, err)

	again, err := a.Seal([]byte(`{"token":"x"}`), []byte("credentials"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	pt, err := a.Open(sealed, []byte("credentials"))
	require.NoError(t, err)
	assert.Equal(t, `{"token":"x"}`, string(pt))

	_, err = a.Open(sealed, []byte("other"))
	assert.Error(t, err)
}

func TestOpenRejectsGarbage(t *testing.T) {
	a, err := New(make([]byte, 32))
	require.NoError(t, err)

	_, err = a.Open("AAAA", nil)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = a.Open("not base64!", nil)
	assert.Error(t, err)
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
