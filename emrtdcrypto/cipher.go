// Package emrtdcrypto implements the block ciphers, MACs, hashes, key
// derivation function, and key-agreement primitives shared by BAC,
// PACE-GM, Chip Authentication, and Secure Messaging.
package emrtdcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// CipherSuite names one of the four symmetric algorithm bundles a protocol
// OID selects: the block cipher and the hash used by the KDF.
type CipherSuite int

const (
	Cipher3DESEDE2 CipherSuite = iota
	CipherAES128
	CipherAES192
	CipherAES256
)

// BlockSize returns the cipher's block size in bytes (8 for 3DES, 16 for
// AES), which also determines the Send-Sequence-Counter width.
func (c CipherSuite) BlockSize() int {
	if c == Cipher3DESEDE2 {
		return 8
	}
	return 16
}

// KeyLen returns the derived session key length in bytes.
func (c CipherSuite) KeyLen() int {
	switch c {
	case Cipher3DESEDE2:
		return 16
	case CipherAES128:
		return 16
	case CipherAES192:
		return 24
	case CipherAES256:
		return 32
	default:
		return 0
	}
}

// KDFHash returns the hash function the KDF uses for this suite: SHA-1 for
// 3DES and AES-128, SHA-256 for AES-192/256.
func (c CipherSuite) KDFHash() func() hash.Hash {
	if c == CipherAES192 || c == CipherAES256 {
		return sha256.New
	}
	return sha1.New
}

func (c CipherSuite) String() string {
	switch c {
	case Cipher3DESEDE2:
		return "3DES-EDE2"
	case CipherAES128:
		return "AES-128"
	case CipherAES192:
		return "AES-192"
	case CipherAES256:
		return "AES-256"
	default:
		return "unknown"
	}
}

// NewBlockCipher builds the cipher.Block for a derived session key: a
// 24-byte two-key 3DES key (K1‖K2‖K1) for Cipher3DESEDE2, or an AES block
// cipher sized to key for the AES suites.
func (c CipherSuite) NewBlockCipher(key []byte) (cipher.Block, error) {
	switch c {
	case Cipher3DESEDE2:
		if len(key) != 16 {
			return nil, fmt.Errorf("emrtdcrypto: 3DES-EDE2 key must be 16 bytes, got %d", len(key))
		}
		expanded := make([]byte, 24)
		copy(expanded[0:16], key)
		copy(expanded[16:24], key[0:8])
		return des.NewTripleDESCipher(expanded)
	case CipherAES128, CipherAES192, CipherAES256:
		if len(key) != c.KeyLen() {
			return nil, fmt.Errorf("emrtdcrypto: %s key must be %d bytes, got %d", c, c.KeyLen(), len(key))
		}
		return aes.NewCipher(key)
	default:
		return nil, fmt.Errorf("emrtdcrypto: unknown cipher suite %d", c)
	}
}

// CBCEncrypt encrypts data (which must already be a multiple of the
// cipher's block size) under key, with the given IV.
func (c CipherSuite) CBCEncrypt(key, iv, data []byte) ([]byte, error) {
	block, err := c.NewBlockCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("emrtdcrypto: data length %d is not a multiple of block size %d", len(data), block.BlockSize())
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// CBCDecrypt decrypts data under key with the given IV.
func (c CipherSuite) CBCDecrypt(key, iv, data []byte) ([]byte, error) {
	block, err := c.NewBlockCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("emrtdcrypto: data length %d is not a multiple of block size %d", len(data), block.BlockSize())
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// ECBEncryptBlock encrypts exactly one block under key — used to derive
// the Secure Messaging IV (E(KSenc, SSC)) for the AES path.
func (c CipherSuite) ECBEncryptBlock(key, block []byte) ([]byte, error) {
	b, err := c.NewBlockCipher(key)
	if err != nil {
		return nil, err
	}
	if len(block) != b.BlockSize() {
		return nil, fmt.Errorf("emrtdcrypto: block must be %d bytes, got %d", b.BlockSize(), len(block))
	}
	out := make([]byte, len(block))
	b.Encrypt(out, block)
	return out, nil
}
