// Package securechannel implements ICAO 9303 Part 11 Secure Messaging:
// encrypt-then-MAC APDU protection keyed by a monotonically incrementing
// Send-Sequence-Counter, re-established (never mutated in place) every
// time BAC, PACE, or Chip Authentication produces a fresh pair of session
// keys.
package securechannel

import (
	"crypto/subtle"
	"fmt"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/emrtdcrypto"
)

var (
	tagDO87 = asn1.Tag{Class: asn1.ClassContextSpecific, Constructed: false, Number: 7}
	tagDO97 = asn1.Tag{Class: asn1.ClassContextSpecific, Constructed: false, Number: 0x17}
	tagDO99 = asn1.Tag{Class: asn1.ClassContextSpecific, Constructed: false, Number: 0x19}
	tagDO8E = asn1.Tag{Class: asn1.ClassContextSpecific, Constructed: false, Number: 0x0E}
)

// Channel holds the session keys and Send-Sequence-Counter for one
// established secure channel. It is never mutated across a re-key: BAC,
// PACE and Chip Authentication each produce a new *Channel which replaces
// the orchestrator's reference to the old one.
type Channel struct {
	Suite emrtdcrypto.CipherSuite
	KSenc []byte
	KSmac []byte
	ssc   []byte
}

// New creates a channel with the given session keys. initialSSC may be
// nil (starts at zero, the PACE/CA case) or a BlockSize()-length value
// (the BAC case: RND.IC[4:8] ‖ RND.IFD[4:8]).
func New(suite emrtdcrypto.CipherSuite, ksenc, ksmac, initialSSC []byte) (*Channel, error) {
	width := suite.BlockSize()
	ssc := make([]byte, width)
	if initialSSC != nil {
		if len(initialSSC) != width {
			return nil, fmt.Errorf("securechannel: initial SSC must be %d bytes, got %d", width, len(initialSSC))
		}
		copy(ssc, initialSSC)
	}
	return &Channel{Suite: suite, KSenc: ksenc, KSmac: ksmac, ssc: ssc}, nil
}

// SSC returns a copy of the current Send-Sequence-Counter value.
func (c *Channel) SSC() []byte { return append([]byte(nil), c.ssc...) }

func (c *Channel) incrementSSC() {
	for i := len(c.ssc) - 1; i >= 0; i-- {
		c.ssc[i]++
		if c.ssc[i] != 0 {
			return
		}
	}
}

func (c *Channel) encIV() ([]byte, error) {
	if c.Suite == emrtdcrypto.Cipher3DESEDE2 {
		return make([]byte, 8), nil
	}
	return c.Suite.ECBEncryptBlock(c.KSenc, c.ssc)
}

// computeMAC applies the cipher-specific MAC-over-N rule of §4.3 step 7.
func (c *Channel) computeMAC(n []byte) ([]byte, error) {
	return emrtdcrypto.MAC(c.Suite, c.KSmac, n)
}

func encodeLe(le int) []byte {
	if le <= 0 || le > 256 {
		return []byte{0x00}
	}
	if le == 256 {
		return []byte{0x00}
	}
	return []byte{byte(le)}
}

// Protect wraps a clear command APDU as a protected Secure Messaging
// APDU: masked header, DO'87' ciphertext (if the command carries data),
// DO'97' expected length (if Le is set), DO'8E' MAC.
func (c *Channel) Protect(cmd apdu.Command) (apdu.Command, error) {
	c.incrementSSC()
	blockSize := c.Suite.BlockSize()

	maskedHeader := []byte{0x0C, cmd.INS, cmd.P1, cmd.P2}
	paddedHeader := emrtdcrypto.Pad(maskedHeader, blockSize)

	var do87, do97 []byte
	if len(cmd.Data) > 0 {
		iv, err := c.encIV()
		if err != nil {
			return apdu.Command{}, err
		}
		padded := emrtdcrypto.Pad(cmd.Data, blockSize)
		ct, err := c.Suite.CBCEncrypt(c.KSenc, iv, padded)
		if err != nil {
			return apdu.Command{}, err
		}
		content := append([]byte{0x01}, ct...)
		do87 = asn1.Encode(tagDO87, content)
	}
	if cmd.Le != nil {
		do97 = asn1.Encode(tagDO97, encodeLe(*cmd.Le))
	}

	m := append(append([]byte(nil), paddedHeader...), do87...)
	m = append(m, do97...)
	n := append(append([]byte(nil), c.ssc...), m...)

	cc, err := c.computeMAC(n)
	if err != nil {
		return apdu.Command{}, err
	}
	do8E := asn1.Encode(tagDO8E, cc)

	body := append(append(append([]byte(nil), do87...), do97...), do8E...)

	// Bit 0x10 is the ISO/IEC 7816-4 command-chaining flag (Chip
	// Authentication's AES path sends the ephemeral key across a chained
	// General Authenticate sequence); it rides alongside the SM class
	// 0x0C rather than being overwritten by it.
	protected := apdu.Command{CLA: 0x0C | (cmd.CLA & 0x10), INS: cmd.INS, P1: cmd.P1, P2: cmd.P2, Data: body}
	if cmd.Le != nil {
		zero := 0
		protected.Le = &zero
	}
	return protected, nil
}

// Unprotect verifies and decrypts a protected response APDU, returning
// the plaintext response data and status word. If the response's status
// word is not 9000, it is returned as-is: a transport-level/APDU-level
// error, not a Secure Messaging failure.
func (c *Channel) Unprotect(resp apdu.Response) ([]byte, uint16, error) {
	c.incrementSSC()

	if resp.SW() != 0x9000 {
		return nil, resp.SW(), nil
	}

	tr, roots, err := asn1.ParseAll(resp.Data)
	if err != nil {
		return nil, 0, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}

	var do87Node, do99Node, do8ENode *asn1.Node
	for _, idx := range roots {
		n := tr.Node(idx)
		switch n.Tag {
		case tagDO87:
			do87Node = n
		case tagDO99:
			do99Node = n
		case tagDO8E:
			do8ENode = n
		}
	}
	if do99Node == nil || do8ENode == nil {
		return nil, 0, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("securechannel: response missing mandatory DO'99'/DO'8E'"))
	}

	m := []byte{}
	if do87Node != nil {
		m = append(m, do87Node.Raw...)
	}
	m = append(m, do99Node.Raw...)
	n := append(append([]byte(nil), c.ssc...), m...)

	expectedCC, err := c.computeMAC(n)
	if err != nil {
		return nil, 0, err
	}
	if subtle.ConstantTimeCompare(expectedCC, do8ENode.Content) != 1 {
		return nil, 0, apdu.ErrMACMismatch
	}

	if len(do99Node.Content) != 2 {
		return nil, 0, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("securechannel: DO'99' content must be 2 bytes"))
	}
	sw := uint16(do99Node.Content[0])<<8 | uint16(do99Node.Content[1])

	if do87Node == nil {
		return nil, sw, nil
	}
	if len(do87Node.Content) < 1 || do87Node.Content[0] != 0x01 {
		return nil, 0, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("securechannel: DO'87' missing padding-content indicator"))
	}
	iv, err := c.encIV()
	if err != nil {
		return nil, 0, err
	}
	plainPadded, err := c.Suite.CBCDecrypt(c.KSenc, iv, do87Node.Content[1:])
	if err != nil {
		return nil, 0, apdu.WrapErr(apdu.KindCryptographic, "decryption-failure", err)
	}
	return emrtdcrypto.Unpad(plainPadded), sw, nil
}

// Send protects cmd, transmits it over t, and unprotects the reply,
// presenting callers with the same Command-in/Response-out shape as
// apdu.Send so every reader above BAC/PACE/CA can stop caring whether the
// channel underneath is plaintext or Secure-Messaging-protected.
func (c *Channel) Send(t apdu.Transport, cmd apdu.Command) (apdu.Response, error) {
	protected, err := c.Protect(cmd)
	if err != nil {
		return apdu.Response{}, err
	}
	resp, err := apdu.Send(t, protected)
	if err != nil {
		return apdu.Response{}, err
	}
	data, sw, err := c.Unprotect(resp)
	if err != nil {
		return apdu.Response{}, err
	}
	return apdu.Response{Data: data, SW1: byte(sw >> 8), SW2: byte(sw)}, nil
}
