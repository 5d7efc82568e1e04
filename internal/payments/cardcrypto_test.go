package payments

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCardKey = "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f"

func TestCardCipherRoundTrip(t *testing.T) {
	c, err := NewCardCipher(testCardKey)
	require.NoError(t, err)
	require.NotNil(t, c)

	sealed, err := c.Encrypt("4111111111111111")
	require.NoError(t, err)
	require.NotContains(t, sealed, "4111")

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "4111111111111111", opened)
}

func TestCardCipherNonceIsFresh(t *testing.T) {
	c, err := NewCardCipher(testCardKey)
	require.NoError(t, err)

	a, err := c.Encrypt("123")
	require.NoError(t, err)
	b, err := c.Encrypt("123")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCardCipherRejectsTampering(t *testing.T) {
	c, err := NewCardCipher(testCardKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("4111111111111111")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	require.Error(t, err)
}

func TestNewCardCipherKeyHandling(t *testing.T) {
	c, err := NewCardCipher("")
	require.NoError(t, err)
	require.Nil(t, c, "empty key disables encryption")

	_, err = NewCardCipher("not-hex")
	require.Error(t, err)

	_, err = NewCardCipher(strings.Repeat("ab", 16)) // 16 bytes, too short
	require.Error(t, err)
}
