package emrtdcrypto

import (
	"encoding/binary"
	"math/bits"
)

// KDF counter values selecting the derivation mode (ICAO 9303 Part 11
// §9.7.1 / BSI TR-03110).
const (
	KDFEncMode  uint32 = 1
	KDFMacMode  uint32 = 2
	KDFPaceMode uint32 = 3
)

// KDF computes H(K ‖ N ‖ c) for the hash the cipher suite's KDF uses, then
// truncates/expands the digest to the suite's session-key length:
//   - 3DES-EDE2: first 16 bytes of a SHA-1 digest (interpreted as K1‖K2;
//     the third DES key equals K1, applied by CipherSuite.NewBlockCipher),
//     with each byte's least significant bit set for DES odd parity.
//   - AES-128:   first 16 bytes of a SHA-1 digest.
//   - AES-192:   first 24 bytes of a SHA-256 digest.
//   - AES-256:   first 32 bytes of a SHA-256 digest.
//
// N may be nil (BAC's and PACE's session-key derivation has no nonce; the
// shared secret already incorporates it).
func KDF(suite CipherSuite, k, n []byte, counter uint32) []byte {
	h := suite.KDFHash()()
	h.Write(k)
	h.Write(n)
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], counter)
	h.Write(c[:])
	digest := h.Sum(nil)
	key := digest[:suite.KeyLen()]
	if suite == Cipher3DESEDE2 {
		key = append([]byte(nil), key...)
		for i, b := range key {
			if bits.OnesCount8(b)%2 == 0 {
				key[i] = b ^ 1
			}
		}
	}
	return key
}
