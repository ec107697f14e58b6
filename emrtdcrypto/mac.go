package emrtdcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
)

// RetailMAC computes ISO/IEC 9797-1 MAC algorithm 3 ("Retail MAC") over
// data, using a zero initial ICV: split the 16-byte key into K1‖K2;
// CBC-MAC the padding-method-2-padded input under single DES with K1;
// DES-ECB-decrypt the last block under K2, then DES-ECB-encrypt it again
// under K1; the result is the 8-byte MAC.
func RetailMAC(key16 []byte, data []byte) ([]byte, error) {
	if len(key16) != 16 {
		return nil, fmt.Errorf("emrtdcrypto: RetailMAC key must be 16 bytes, got %d", len(key16))
	}
	k1, k2 := key16[0:8], key16[8:16]

	padded := Pad(data, 8)

	cK1, err := des.NewCipher(k1)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, 8)
	block := make([]byte, 8)
	for i := 0; i < len(padded); i += 8 {
		xor8(block, padded[i:i+8], iv)
		cK1.Encrypt(iv, block)
	}

	cK2, err := des.NewCipher(k2)
	if err != nil {
		return nil, err
	}
	final := make([]byte, 8)
	cK2.Decrypt(final, iv)
	out := make([]byte, 8)
	cK1.Encrypt(out, final)
	return out, nil
}

// MAC computes the truncated 8-byte MAC that ICAO Secure Messaging, BAC,
// and PACE all use, dispatched by cipher suite: 3DES-EDE2 calls the raw
// Retail MAC directly, which pads internally; AES calls CMAC over data
// explicitly pre-padded with padding method 2, so a message that is
// already block-aligned still receives a full extra padding block. That
// forces CMAC's K1-subkey branch deterministically rather than leaving it
// to NIST SP 800-38B's own complete/incomplete auto-detection, which is
// the convention BSI TR-03110 specifies for this protocol stack.
func MAC(suite CipherSuite, key, data []byte) ([]byte, error) {
	if suite == Cipher3DESEDE2 {
		return RetailMAC(key, data)
	}
	full, err := AESCMAC(key, Pad(data, 16))
	if err != nil {
		return nil, err
	}
	return full[:8], nil
}

func xor8(dst, a, b []byte) {
	for i := 0; i < 8; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func leftShiftOneBit(in []byte) []byte {
	out := make([]byte, len(in))
	var carry byte
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = (in[i] << 1) | carry
		carry = (in[i] >> 7) & 0x01
	}
	return out
}

// AESCMAC computes full 16-byte AES-CMAC (NIST SP 800-38B) of msg under
// key (16, 24, or 32 bytes).
func AESCMAC(key, msg []byte) ([]byte, error) {
	k, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	zero := make([]byte, 16)
	l := make([]byte, 16)
	k.Encrypt(l, zero)

	const rb = 0x87
	k1 := leftShiftOneBit(l)
	if l[0]&0x80 != 0 {
		k1[15] ^= rb
	}
	k2 := leftShiftOneBit(k1)
	if k1[0]&0x80 != 0 {
		k2[15] ^= rb
	}

	var n int
	if len(msg) == 0 {
		n = 1
	} else {
		n = (len(msg) + 15) / 16
	}
	complete := len(msg) != 0 && len(msg)%16 == 0

	var last []byte
	if complete {
		start := (n - 1) * 16
		last = xorBytes(msg[start:start+16], k1)
	} else {
		padded := Pad(msg, 16)
		start := (n - 1) * 16
		last = xorBytes(padded[start:start+16], k2)
	}

	buf := make([]byte, n*16)
	if len(msg) >= 16 {
		copy(buf, msg[:(n-1)*16])
	}
	copy(buf[(n-1)*16:], last)

	iv := make([]byte, 16)
	cipher.NewCBCEncrypter(k, iv).CryptBlocks(buf, buf)
	return buf[len(buf)-16:], nil
}
