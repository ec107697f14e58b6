// Package accesscontrol implements the two access-control protocols that
// establish a chip's first secure channel: BAC, the fallback protocol
// keyed directly off the MRZ, and PACE-GM, the preferred protocol that
// additionally maps a chip-supplied nonce into the session's ephemeral
// domain before the real key exchange.
package accesscontrol

import (
	"crypto/rand"
	"crypto/sha1"
	"fmt"

	"emrtdcore/apdu"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/securechannel"
)

// BACResult carries the established secure channel after a successful run.
type BACResult struct {
	Channel *securechannel.Channel
}

// RunBAC executes the full BAC handshake (spec §4.4) over an as-yet
// unprotected transport and returns the resulting secure channel.
func RunBAC(t apdu.Transport, mrzKey string) (*BACResult, error) {
	suite := emrtdcrypto.Cipher3DESEDE2
	seed := sha1.Sum([]byte(mrzKey))
	kseed := seed[:16]
	kenc := emrtdcrypto.KDF(suite, kseed, nil, emrtdcrypto.KDFEncMode)
	kmac := emrtdcrypto.KDF(suite, kseed, nil, emrtdcrypto.KDFMacMode)

	challengeResp, err := apdu.Send(t, apdu.GetChallenge())
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(challengeResp.SW1, challengeResp.SW2); err != nil {
		return nil, err
	}
	rndIC := challengeResp.Data
	if len(rndIC) != 8 {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("accesscontrol: GET CHALLENGE returned %d bytes, want 8", len(rndIC)))
	}

	rndIFD := make([]byte, 8)
	kIFD := make([]byte, 16)
	if _, err := rand.Read(rndIFD); err != nil {
		return nil, err
	}
	if _, err := rand.Read(kIFD); err != nil {
		return nil, err
	}

	s := append(append(append([]byte(nil), rndIFD...), rndIC...), kIFD...)
	eIFD, err := suite.CBCEncrypt(kenc, make([]byte, 8), s)
	if err != nil {
		return nil, err
	}
	mIFD, err := emrtdcrypto.MAC(suite, kmac, eIFD)
	if err != nil {
		return nil, err
	}

	authResp, err := apdu.Send(t, apdu.ExternalAuthenticate(append(append([]byte(nil), eIFD...), mIFD...)))
	if err != nil {
		return nil, err
	}
	if len(authResp.Data) == 0 {
		return nil, apdu.ErrInvalidMRZKey
	}
	if err := apdu.DecodeStatusWord(authResp.SW1, authResp.SW2); err != nil {
		return nil, err
	}
	if len(authResp.Data) != 40 {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("accesscontrol: EXTERNAL AUTHENTICATE returned %d bytes, want 40", len(authResp.Data)))
	}
	eIC := authResp.Data[:32]
	mIC := authResp.Data[32:40]

	expectedMIC, err := emrtdcrypto.MAC(suite, kmac, eIC)
	if err != nil {
		return nil, err
	}
	if !constantTimeEqual(expectedMIC, mIC) {
		return nil, apdu.ErrMACMismatch
	}

	plain, err := suite.CBCDecrypt(kenc, make([]byte, 8), eIC)
	if err != nil {
		return nil, err
	}
	rndICEcho := plain[0:8]
	rndIFDEcho := plain[8:16]
	kIC := plain[16:32]
	if !constantTimeEqual(rndICEcho, rndIC) || !constantTimeEqual(rndIFDEcho, rndIFD) {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "pace-token-mismatch", fmt.Errorf("accesscontrol: BAC nonce echo mismatch"))
	}

	k := xorBytes(kIFD, kIC)
	ksenc := emrtdcrypto.KDF(suite, k, nil, emrtdcrypto.KDFEncMode)
	ksmac := emrtdcrypto.KDF(suite, k, nil, emrtdcrypto.KDFMacMode)

	initialSSC := append(append([]byte(nil), rndIC[4:8]...), rndIFD[4:8]...)
	ch, err := securechannel.New(suite, ksenc, ksmac, initialSSC)
	if err != nil {
		return nil, err
	}
	return &BACResult{Channel: ch}, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
