package xcrypto

import (
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// DecryptBHD5 decrypts a BHD5 header using the archive's RSA public key. The
// input is processed in blocks of key.Size() bytes; each block is decrypted
// with the raw, unpadded RSA public-key operation (the header was encrypted
// with the matching private key using no padding scheme). The first byte of
// every decrypted block is a format marker and is discarded; the remaining
// key.Size()-1 bytes of each block are concatenated to form the plaintext
// header.
//
// Go's crypto/rsa has no public-decrypt primitive (only Encrypt/Verify), so
// the raw modular exponentiation (c^E mod N) is done directly, mirroring
// what OpenSSL's RSA_public_decrypt(..., RSA_NO_PADDING) computes.
func DecryptBHD5(data []byte, key *rsa.PublicKey) ([]byte, error) {
	const op = "xcrypto.DecryptBHD5"

	keySize := key.Size()
	if keySize == 0 {
		return nil, errcode.New(errcode.Crypto, op, fmt.Errorf("invalid RSA key: zero size"))
	}
	if len(data)%keySize != 0 {
		return nil, errcode.New(errcode.Crypto, op, fmt.Errorf("input length %d is not a multiple of the RSA block size %d", len(data), keySize))
	}

	n := key.N
	e := big.NewInt(int64(key.E))

	out := make([]byte, 0, len(data)/keySize*(keySize-1))
	block := make([]byte, keySize)
	for off := 0; off < len(data); off += keySize {
		c := new(big.Int).SetBytes(data[off : off+keySize])
		if c.Cmp(n) >= 0 {
			return nil, errcode.New(errcode.Crypto, op, fmt.Errorf("ciphertext block at offset %d is not smaller than the modulus", off))
		}
		m := new(big.Int).Exp(c, e, n)
		m.FillBytes(block)
		out = append(out, block[1:]...)
	}

	return out, nil
}
