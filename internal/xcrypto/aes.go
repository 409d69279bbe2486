package xcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// RegulationKeySize is the length, in bytes, of the AES-256 key used to
// decrypt a regulation blob.
const RegulationKeySize = 32

// RegulationKey is the literal AES-256 key every known regulation.bin uses.
// It is bundled in the binary: it is a symmetric key baked into the shipped
// game executable, not a secret the user supplies.
var RegulationKey = [RegulationKeySize]byte{
	0x99, 0xBF, 0xFC, 0x36, 0x6A, 0x6B, 0xC8, 0xC6, 0xF5,
	0x82, 0x7D, 0x09, 0x36, 0x02, 0xD6, 0x76, 0xC4, 0x28, 0x92, 0xA0, 0x1C, 0x20, 0x7F, 0xB0, 0x24,
	0xD3, 0xAF, 0x4E, 0x49, 0x3F, 0xEF, 0x99,
}

// DecryptRegulation performs AES-256-CBC, no-padding decryption of a
// regulation blob. The first 16 bytes of data are the IV; the remainder is
// the ciphertext. The caller is responsible for discarding any trailing
// padding from the plaintext (the decompressor's own length field does that
// implicitly once the plaintext is handed to the DCX parser).
func DecryptRegulation(data []byte, key []byte) ([]byte, error) {
	const op = "xcrypto.DecryptRegulation"
	if len(data) < aes.BlockSize {
		return nil, errcode.New(errcode.Crypto, op, fmt.Errorf("input shorter than IV (%d bytes)", len(data)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errcode.New(errcode.Crypto, op, err)
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errcode.New(errcode.Crypto, op, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext)))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}
