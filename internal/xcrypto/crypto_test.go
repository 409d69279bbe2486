package xcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecryptRegulationRoundTrip(t *testing.T) {
	key := RegulationKey[:]
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	iv := make([]byte, aes.BlockSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext := []byte("0123456789ABCDEF0123456789ABCDEF") // 32 bytes: two whole blocks, so the loop below adds no padding
	padded := make([]byte, len(plaintext))
	copy(padded, plaintext)
	for len(padded)%aes.BlockSize != 0 {
		padded = append(padded, 0)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	blob := append(append([]byte{}, iv...), ciphertext...)
	out, err := DecryptRegulation(blob, key)
	require.NoError(t, err)
	require.Equal(t, padded, out)
}

func TestDecryptRegulationRejectsShortInput(t *testing.T) {
	_, err := DecryptRegulation([]byte{1, 2, 3}, RegulationKey[:])
	require.Error(t, err)
}

// TestDecryptBHD5RoundTrip simulates the shipped format's RSA_private_encrypt
// step by computing c = m^d mod n directly (no padding), then verifies
// DecryptBHD5 recovers m via the public exponent: c^e mod n == m.
func TestDecryptBHD5RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	pub := &priv.PublicKey
	keySize := pub.Size()

	payload := make([]byte, keySize-1)
	copy(payload, []byte("decrypted-bhd5-header-bytes"))

	full := append([]byte{0x00}, payload...)
	m := new(big.Int).SetBytes(full)
	require.True(t, m.Cmp(priv.N) < 0)

	c := new(big.Int).Exp(m, priv.D, priv.N)
	cBytes := make([]byte, keySize)
	c.FillBytes(cBytes)

	out, err := DecryptBHD5(cBytes, pub)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecryptBHD5RejectsNonMultipleLength(t *testing.T) {
	pub := &rsa.PublicKey{N: big.NewInt(1000000007), E: 65537}
	_, err := DecryptBHD5([]byte{1, 2, 3}, pub)
	require.Error(t, err)
}

func TestLookupKeyResolvesKnownStems(t *testing.T) {
	for _, name := range []string{"Data0", "Data1", "Data2", "Data3"} {
		key, err := LookupKey(name + ".bhd")
		require.NoError(t, err)
		require.NotZero(t, key.N)
	}
}

func TestLookupKeyMissStem(t *testing.T) {
	_, err := LookupKey("NotARealArchive.bhd")
	require.Error(t, err)
}
