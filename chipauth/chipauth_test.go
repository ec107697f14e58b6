package chipauth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"testing"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/oid"
	"emrtdcore/params"
	"emrtdcore/securechannel"

	"github.com/stretchr/testify/require"
)

var (
	tagDO87  = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 7}
	tagDO99  = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 0x19}
	tagDO8E  = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 0x0E}
)

// smPeer mirrors securechannel.Channel's wire format from the opposite
// side, so a test can play the chip's half of Secure Messaging without
// reaching into securechannel's unexported fields.
type smPeer struct {
	suite        emrtdcrypto.CipherSuite
	ksenc, ksmac []byte
	ssc          []byte
}

func newSMPeer(suite emrtdcrypto.CipherSuite, ksenc, ksmac []byte) *smPeer {
	return &smPeer{suite: suite, ksenc: ksenc, ksmac: ksmac, ssc: make([]byte, suite.BlockSize())}
}

func (p *smPeer) increment() {
	for i := len(p.ssc) - 1; i >= 0; i-- {
		p.ssc[i]++
		if p.ssc[i] != 0 {
			return
		}
	}
}

func (p *smPeer) encIV() ([]byte, error) {
	if p.suite == emrtdcrypto.Cipher3DESEDE2 {
		return make([]byte, 8), nil
	}
	return p.suite.ECBEncryptBlock(p.ksenc, p.ssc)
}

// unprotectCommand verifies and decrypts one protected command APDU,
// returning its class byte (so callers can tell a chained General
// Authenticate fragment from the final one), INS/P1/P2, and plaintext data.
func (p *smPeer) unprotectCommand(cmd []byte) (cla, ins, p1, p2 byte, data []byte, err error) {
	p.increment()
	cla, ins, p1, p2 = cmd[0], cmd[1], cmd[2], cmd[3]
	lc := int(cmd[4])
	body := cmd[5 : 5+lc]

	tr, roots, err := asn1.ParseAll(body)
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	var do87, do97, do8e *asn1.Node
	for _, idx := range roots {
		n := tr.Node(idx)
		switch n.Tag {
		case tagDO87:
			do87 = n
		case tagDO8E:
			do8e = n
		default:
			do97 = n
		}
	}

	maskedHeader := []byte{0x0C, ins, p1, p2}
	paddedHeader := emrtdcrypto.Pad(maskedHeader, p.suite.BlockSize())
	m := append([]byte{}, paddedHeader...)
	if do87 != nil {
		m = append(m, do87.Raw...)
	}
	if do97 != nil {
		m = append(m, do97.Raw...)
	}
	n := append(append([]byte(nil), p.ssc...), m...)
	expected, err := emrtdcrypto.MAC(p.suite, p.ksmac, n)
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	if do8e == nil || subtle.ConstantTimeCompare(expected, do8e.Content) != 1 {
		return 0, 0, 0, 0, nil, fmt.Errorf("smPeer: MAC mismatch on command")
	}
	if do87 == nil {
		return cla, ins, p1, p2, nil, nil
	}
	iv, err := p.encIV()
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	plainPadded, err := p.suite.CBCDecrypt(p.ksenc, iv, do87.Content[1:])
	if err != nil {
		return 0, 0, 0, 0, nil, err
	}
	return cla, ins, p1, p2, emrtdcrypto.Unpad(plainPadded), nil
}

func (p *smPeer) protectResponse(sw uint16, plainData []byte) ([]byte, byte, byte, error) {
	p.increment()
	var do87 []byte
	if len(plainData) > 0 {
		iv, err := p.encIV()
		if err != nil {
			return nil, 0, 0, err
		}
		padded := emrtdcrypto.Pad(plainData, p.suite.BlockSize())
		ct, err := p.suite.CBCEncrypt(p.ksenc, iv, padded)
		if err != nil {
			return nil, 0, 0, err
		}
		do87 = asn1.Encode(tagDO87, append([]byte{0x01}, ct...))
	}
	do99 := asn1.Encode(tagDO99, []byte{byte(sw >> 8), byte(sw)})
	m := append(append([]byte{}, do87...), do99...)
	n := append(append([]byte(nil), p.ssc...), m...)
	mac, err := emrtdcrypto.MAC(p.suite, p.ksmac, n)
	if err != nil {
		return nil, 0, 0, err
	}
	do8e := asn1.Encode(tagDO8E, mac)
	body := append(append(append([]byte{}, do87...), do99...), do8e...)
	return body, 0x90, 0x00, nil
}

// fakeDHCard plays the chip's side of Chip Authentication over the
// 3DES/DH path: a single MSE:Set KAT carrying the ephemeral public key,
// verified and answered inside the same Secure Messaging wrapper the real
// channel uses, so the two sides are checked for genuine key agreement
// rather than asserted by construction.
type fakeDHCard struct {
	peer      *smPeer
	group     *params.DHGroup
	skChip    *big.Int
	pkChip    *big.Int
	lastPKIFD *big.Int
}

func newFakeDHCard(t *testing.T, group *params.DHGroup, suite emrtdcrypto.CipherSuite, ksenc, ksmac []byte) *fakeDHCard {
	skChip, pkChip, err := emrtdcrypto.DHGenerateKeyPair(group)
	require.NoError(t, err)
	return &fakeDHCard{peer: newSMPeer(suite, ksenc, ksmac), group: group, skChip: skChip, pkChip: pkChip}
}

func (c *fakeDHCard) Transmit(cmd []byte) ([]byte, byte, byte, error) {
	_, ins, _, _, data, err := c.peer.unprotectCommand(cmd)
	if err != nil {
		return nil, 0, 0, err
	}
	if ins != 0x22 {
		return nil, 0, 0, fmt.Errorf("fakeDHCard: unexpected INS %02X", ins)
	}

	tr, roots, err := asn1.ParseAll(data)
	if err != nil {
		return nil, 0, 0, err
	}
	var n *asn1.Node
	for _, idx := range roots {
		if tr.Node(idx).Tag == tag91 {
			n = tr.Node(idx)
		}
	}
	if n == nil {
		return nil, 0, 0, fmt.Errorf("fakeDHCard: missing tag 91")
	}
	c.lastPKIFD = new(big.Int).SetBytes(n.Content)

	return c.peer.protectResponse(0x9000, nil)
}

func TestRunChipAuthDH3DESInteroperatesWithSimulatedChip(t *testing.T) {
	group := mustLookupDHGroup(t, params.ParamGFP1024160)
	suite := emrtdcrypto.Cipher3DESEDE2
	ksenc := mustKey(t, 16)
	ksmac := mustKey(t, 16)

	ifdChannel, err := securechannel.New(suite, ksenc, ksmac, nil)
	require.NoError(t, err)

	card := newFakeDHCard(t, group, suite, ksenc, ksmac)
	proto := Protocol{OID: oid.IDCADH3DESCBCCBC, Suite: suite}
	key := StaticKey{ParamID: params.ParamGFP1024160, PublicKey: card.pkChip.Bytes()}

	result, err := Run(card, ifdChannel, proto, key)
	require.NoError(t, err)
	require.NotNil(t, result.Channel)
	require.Equal(t, make([]byte, 8), result.Channel.SSC())
	require.NotNil(t, card.lastPKIFD)

	// The chip independently derives K from its own static private key
	// and the ephemeral public key the MSE:Set KAT carried; if both sides
	// agree, re-deriving KSenc'/KSmac' the same way must match what Run
	// installed in result.Channel.
	k, err := emrtdcrypto.DHSharedSecret(group, card.skChip, card.lastPKIFD)
	require.NoError(t, err)
	wantKSenc := emrtdcrypto.KDF(suite, k, nil, emrtdcrypto.KDFEncMode)
	wantKSmac := emrtdcrypto.KDF(suite, k, nil, emrtdcrypto.KDFMacMode)
	require.Equal(t, wantKSenc, result.Channel.KSenc)
	require.Equal(t, wantKSmac, result.Channel.KSmac)
}

func TestDefaultProtocolPicksECDH3DESForECCategory(t *testing.T) {
	domain, err := params.Lookup(params.ParamSECP256R1)
	require.NoError(t, err)
	proto := DefaultProtocol(domain)
	require.True(t, proto.OID.Equal(oid.IDCAECDH3DESCBCCBC))
	require.Equal(t, emrtdcrypto.Cipher3DESEDE2, proto.Suite)
}

func TestDefaultProtocolPicksDH3DESForGFPCategory(t *testing.T) {
	domain, err := params.Lookup(params.ParamGFP1024160)
	require.NoError(t, err)
	proto := DefaultProtocol(domain)
	require.True(t, proto.OID.Equal(oid.IDCADH3DESCBCCBC))
}

func mustLookupDHGroup(t *testing.T, id params.ParameterID) *params.DHGroup {
	domain, err := params.Lookup(id)
	require.NoError(t, err)
	group, ok := domain.(*params.DHGroup)
	require.True(t, ok)
	return group
}

func mustKey(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

var _ apdu.Transport = (*fakeDHCard)(nil)
