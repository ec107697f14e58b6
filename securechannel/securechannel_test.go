package securechannel

import (
	"testing"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/emrtdcrypto"

	"github.com/stretchr/testify/require"
)

func mustChannel(t *testing.T, suite emrtdcrypto.CipherSuite) *Channel {
	t.Helper()
	keyLen := suite.KeyLen()
	ksenc := make([]byte, keyLen)
	ksmac := make([]byte, keyLen)
	for i := range ksenc {
		ksenc[i] = byte(i + 1)
		ksmac[i] = byte(i + 0x40)
	}
	ch, err := New(suite, ksenc, ksmac, nil)
	require.NoError(t, err)
	return ch
}

func incrementedCopy(ssc []byte) []byte {
	out := append([]byte(nil), ssc...)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}

// cardChannelAt builds a Channel pinned at an explicit SSC value, standing
// in for the chip's independent view of the same session: ICAO Secure
// Messaging never transmits the counter, so both sides must derive it by
// incrementing in lockstep rather than by exchanging it.
func cardChannelAt(suite emrtdcrypto.CipherSuite, ksenc, ksmac, ssc []byte) *Channel {
	return &Channel{Suite: suite, KSenc: ksenc, KSmac: ksmac, ssc: append([]byte(nil), ssc...)}
}

// synthesizeResponse builds a protected response as the chip would, at the
// SSC value the chip reaches after incrementing once for the command it
// just received and once more before answering.
func synthesizeResponse(t *testing.T, suite emrtdcrypto.CipherSuite, ksenc, ksmac, sscAfterCommand, plaintext []byte, sw uint16) apdu.Response {
	t.Helper()
	card := cardChannelAt(suite, ksenc, ksmac, incrementedCopy(sscAfterCommand))

	blockSize := card.Suite.BlockSize()
	iv, err := card.encIV()
	require.NoError(t, err)
	padded := emrtdcrypto.Pad(plaintext, blockSize)
	ct, err := card.Suite.CBCEncrypt(card.KSenc, iv, padded)
	require.NoError(t, err)

	do87 := asn1.Encode(tagDO87, append([]byte{0x01}, ct...))
	do99 := asn1.Encode(tagDO99, []byte{byte(sw >> 8), byte(sw)})

	m := append(append([]byte(nil), do87...), do99...)
	n := append(append([]byte(nil), card.ssc...), m...)
	cc, err := card.computeMAC(n)
	require.NoError(t, err)
	do8E := asn1.Encode(tagDO8E, cc)

	data := append(append(append([]byte(nil), do87...), do99...), do8E...)
	return apdu.Response{Data: data, SW1: byte(sw >> 8), SW2: byte(sw)}
}

// TestProtectUnprotectRoundTrip3DES covers invariant 1: unprotect(protect(M))
// recovers M, and the SSC advances by exactly 2 (one increment for Protect,
// one for the matching Unprotect) across one command/response exchange.
func TestProtectUnprotectRoundTrip3DES(t *testing.T) {
	suite := emrtdcrypto.Cipher3DESEDE2
	ch := mustChannel(t, suite)
	startSSC := ch.SSC()

	le := 256
	cmd := apdu.Command{INS: 0xB0, P1: 0x00, P2: 0x04, Le: &le}
	protected, err := ch.Protect(cmd)
	require.NoError(t, err)
	require.Equal(t, byte(0x0C), protected.CLA)
	require.Equal(t, incrementedCopy(startSSC), ch.SSC())

	plaintext := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}
	resp := synthesizeResponse(t, suite, ch.KSenc, ch.KSmac, ch.SSC(), plaintext, 0x9000)

	out, sw, err := ch.Unprotect(resp)
	require.NoError(t, err)
	require.Equal(t, uint16(0x9000), sw)
	require.Equal(t, plaintext, out)

	require.Equal(t, incrementedCopy(incrementedCopy(startSSC)), ch.SSC())
}

func TestProtectUnprotectRoundTripAES(t *testing.T) {
	suite := emrtdcrypto.CipherAES128
	ch := mustChannel(t, suite)

	cmd := apdu.Command{INS: 0xA4, P1: 0x02, P2: 0x0C, Data: []byte{0x01, 0x1E}}
	protected, err := ch.Protect(cmd)
	require.NoError(t, err)
	require.Equal(t, byte(0x0C), protected.CLA)
	require.NotNil(t, protected.Data)

	plaintext := []byte{0x90, 0x00}
	resp := synthesizeResponse(t, suite, ch.KSenc, ch.KSmac, ch.SSC(), plaintext, 0x9000)

	out, sw, err := ch.Unprotect(resp)
	require.NoError(t, err)
	require.Equal(t, uint16(0x9000), sw)
	require.Equal(t, plaintext, out)
}

// TestSSCMonotonicAcrossCycles covers invariant 6: the SSC strictly
// increases across repeated protect calls and never repeats.
func TestSSCMonotonicAcrossCycles(t *testing.T) {
	ch := mustChannel(t, emrtdcrypto.CipherAES128)
	seen := map[string]bool{string(ch.SSC()): true}
	prev := ch.SSC()

	for i := 0; i < 5; i++ {
		le := 8
		_, err := ch.Protect(apdu.Command{INS: 0x84, Le: &le})
		require.NoError(t, err)
		cur := ch.SSC()
		require.NotEqual(t, prev, cur)
		require.False(t, seen[string(cur)], "SSC value repeated")
		seen[string(cur)] = true
		prev = cur
	}
}

func TestUnprotectReturnsRawSWWithoutDecodingOnFailure(t *testing.T) {
	ch := mustChannel(t, emrtdcrypto.Cipher3DESEDE2)
	_, sw, err := ch.Unprotect(apdu.Response{SW1: 0x6A, SW2: 0x82})
	require.NoError(t, err)
	require.Equal(t, uint16(0x6A82), sw)
}

func TestUnprotectRejectsTamperedMAC(t *testing.T) {
	suite := emrtdcrypto.Cipher3DESEDE2
	ch := mustChannel(t, suite)

	le := 8
	_, err := ch.Protect(apdu.Command{INS: 0x84, Le: &le})
	require.NoError(t, err)

	resp := synthesizeResponse(t, suite, ch.KSenc, ch.KSmac, ch.SSC(), []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x01, 0x02, 0x03, 0x04}, 0x9000)
	tampered := append([]byte(nil), resp.Data...)
	tampered[len(tampered)-1] ^= 0xFF
	resp.Data = tampered

	_, _, err = ch.Unprotect(resp)
	require.Error(t, err)
	require.ErrorIs(t, err, apdu.ErrMACMismatch)
}
