package seal

import "cryptosocket/internal/crypto"

// Cipher is the capability shared by the RSA and symmetric variants.
type Cipher interface {
	Mode() Mode
	Encrypt(plaintext []byte, key crypto.Key) (CipherBlock, error)
	Decrypt(block CipherBlock, key crypto.Key) ([]byte, error)
}

var (
	_ Cipher = RSA{}
	_ Cipher = Symmetric{}
)
