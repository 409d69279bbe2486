package xcrypto

import (
	"crypto/rsa"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// keyPEMs maps an archive base name (file stem, as produced by
// strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))) to the
// PKCS#1 RSA public key PEM used to decrypt its BHD5 header. These are
// public keys bundled with the shipped game binary; they are not secrets.
var keyPEMs = map[string]string{
	"Data0": `-----BEGIN RSA PUBLIC KEY-----
MIIBCwKCAQEA9Rju2whruXDVQZpfylVEPeNxm7XgMHcDyaaRUIpXQE0qEo+6Y36L
P0xpFvL0H0kKxHwpuISsdgrnMHJ/yj4S61MWzhO8y4BQbw/zJehhDSRCecFJmFBz
3I2JC5FCjoK+82xd9xM5XXdfsdBzRiSghuIHL4qk2WZ/0f/nK5VygeWXn/oLeYBL
jX1S8wSSASza64JXjt0bP/i6mpV2SLZqKRxo7x2bIQrR1yHNekSF2jBhZIgcbtMB
xjCywn+7p954wjcfjxB5VWaZ4hGbKhi1bhYPccht4XnGhcUTWO3NmJWslwccjQ4k
sutLq3uRjLMM0IeTkQO6Pv8/R7UNFtdCWwIERzH8IQ==
-----END RSA PUBLIC KEY-----`,
	"Data1": `-----BEGIN RSA PUBLIC KEY-----
MIIBCwKCAQEAxaBCHQJrtLJiJNdG9nq3deA9sY4YCZ4dbTOHO+v+YgWRMcE6iK6o
ZIJq+nBMUNBbGPmbRrEjkkH9M7LAypAFOPKC6wMHzqIMBsUMuYffulBuOqtEBD11
CAwfx37rjwJ+/1tnEqtJjYkrK9yyrIN6Y+jy4ftymQtjk83+L89pvMMmkNeZaPON
4O9q5M9PnFoKvK8eY45ZV/Jyk+Pe+xc6+e4h4cx8ML5U2kMM3VDAJush4z/05hS3
/bC4B6K9+7dPwgqZgKx1J7DBtLdHSAgwRPpijPeOjKcAa2BDaNp9Cfon70oC+ZCB
+HkQ7FjJcF7KaHsH5oHvuI7EZAl2XTsLEQIENa/2JQ==
-----END RSA PUBLIC KEY-----`,
	"Data2": `-----BEGIN RSA PUBLIC KEY-----
MIIBDAKCAQEA0iDVVQ230RgrkIHJNDgxE7I/2AaH6Li1Eu9mtpfrrfhfoK2e7y4O
WU+lj7AGI4GIgkWpPw8JHaV970Cr6+sTG4Tr5eMQPxrCIH7BJAPCloypxcs2BNfT
GXzm6veUfrGzLIDp7wy24lIA8r9ZwUvpKlN28kxBDGeCbGCkYeSVNuF+R9rN4OAM
RYh0r1Q950xc2qSNloNsjpDoSKoYN0T7u5rnMn/4mtclnWPVRWU940zr1rymv4Jc
3umNf6cT1XqrS1gSaK1JWZfsSeD6Dwk3uvquvfY6YlGRygIlVEMAvKrDRMHylsLt
qqhYkZNXMdy0NXopf1rEHKy9poaHEmJldwIFAP////8=
-----END RSA PUBLIC KEY-----`,
	"Data3": `-----BEGIN RSA PUBLIC KEY-----
MIIBCwKCAQEAvRRNBnVq3WknCNHrJRelcEA2v/OzKlQkxZw1yKll0Y2Kn6G9ts94
SfgZYbdFCnIXy5NEuyHRKrxXz5vurjhrcuoYAI2ZUhXPXZJdgHywac/i3S/IY0V/
eDbqepyJWHpP6I565ySqlol1p/BScVjbEsVyvZGtWIXLPDbx4EYFKA5B52uK6Gdz
4qcyVFtVEhNoMvg+EoWnyLD7EUzuB2Khl46CuNictyWrLlIHgpKJr1QD8a0ld0PD
PHDZn03q6QDvZd23UW2d9J+/HeBt52j08+qoBXPwhndZsmPMWngQDaik6FM7EVRQ
etKPi6h5uprVmMAS5wR/jQIVTMpTj/zJdwIEXszeQw==
-----END RSA PUBLIC KEY-----`,
	`sd\sd`: `-----BEGIN RSA PUBLIC KEY-----
MIIBCwKCAQEAmYJ/5GJU4boJSvZ81BFOHYTGdBWPHnWYly3yWo01BYjGRnz8NTkz
DHUxsbjIgtG5XqsQfZstZILQ97hgSI5AaAoCGrT8sn0PeXg2i0mKwL21gRjRUdvP
Dp1Y+7hgrGwuTkjycqqsQ/qILm4NvJHvGRd7xLOJ9rs2zwYhceRVrq9XU2AXbdY4
pdCQ3+HuoaFiJ0dW0ly5qdEXjbSv2QEYe36nWCtsd6hEY9LjbBX8D1fK3D2c6C0g
NdHJGH2iEONUN6DMK9t0v2JBnwCOZQ7W+Gt7SpNNrkx8xKEM8gH9na10g9ne11Mi
O1FnLm8i4zOxVdPHQBKICkKcGS1o3C2dfwIEXw/f3w==
-----END RSA PUBLIC KEY-----`,
}

var (
	keysOnce   sync.Once
	keysParsed map[string]*rsa.PublicKey
	keysErr    error
)

func parseKeys() (map[string]*rsa.PublicKey, error) {
	keysOnce.Do(func() {
		parsed := make(map[string]*rsa.PublicKey, len(keyPEMs))
		for name, literal := range keyPEMs {
			block, _ := pem.Decode([]byte(literal))
			if block == nil {
				keysErr = fmt.Errorf("xcrypto: malformed PEM literal for key %q", name)
				return
			}
			// The PKCS#1 sequence is decoded directly: x509.ParsePKCS1PublicKey
			// rejects exponents above 2^31-1, and the Data2 key's is 0xFFFFFFFF.
			var pub struct {
				N *big.Int
				E int
			}
			if _, err := asn1.Unmarshal(block.Bytes, &pub); err != nil {
				keysErr = fmt.Errorf("xcrypto: parsing PKCS#1 public key %q: %w", name, err)
				return
			}
			parsed[name] = &rsa.PublicKey{N: pub.N, E: pub.E}
		}
		keysParsed = parsed
	})
	return keysParsed, keysErr
}

// LookupKey resolves the RSA public key for the archive at path, keyed by
// its file stem (base name with extension removed), e.g. "Data0.bhd" and
// "Data0" both resolve the "Data0" entry.
func LookupKey(path string) (*rsa.PublicKey, error) {
	const op = "xcrypto.LookupKey"
	keys, err := parseKeys()
	if err != nil {
		return nil, errcode.New(errcode.Crypto, op, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	key, ok := keys[stem]
	if !ok {
		return nil, errcode.NotFound(errcode.Crypto, op, fmt.Sprintf("no RSA key registered for %q", stem))
	}
	return key, nil
}
