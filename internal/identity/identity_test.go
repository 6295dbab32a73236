package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndSignVerify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("eve payload")
	sig := key.Sign(msg)
	require.True(t, key.PublicKey().Verify(msg, sig))
	require.False(t, key.PublicKey().Verify([]byte("tampered"), sig))
}

func TestPrivateKeyFromSeedIsDeterministic(t *testing.T) {
	original, err := GenerateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromSeed(original.Seed())
	require.NoError(t, err)
	require.Equal(t, original.PublicKey(), restored.PublicKey())
}

func TestPrivateKeyFromSeedRejectsWrongSize(t *testing.T) {
	_, err := PrivateKeyFromSeed([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	pk := key.PublicKey()
	parsed, err := PublicKeyFromHex(pk.String())
	require.NoError(t, err)
	require.Equal(t, pk, parsed)
}

func TestPublicKeyFromHexRejectsBadLength(t *testing.T) {
	_, err := PublicKeyFromHex("abcd")
	require.Error(t, err)
}

func TestPeerIDIsDeterministic(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	id1, err := key.PublicKey().PeerID()
	require.NoError(t, err)
	id2, err := key.PublicKey().PeerID()
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}
