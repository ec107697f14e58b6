// Package chipauth implements ICAO 9303 Part 11 §6.2 Chip Authentication:
// an ephemeral key agreement against the chip's static DG14 public key,
// run inside an already-established secure channel, that re-keys the
// channel and authenticates the chip as holding the matching private key.
package chipauth

import (
	"fmt"
	"math/big"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/oid"
	"emrtdcore/params"
	"emrtdcore/securechannel"
)

// chunkSize is the per-APDU fragment size for the AES path's chained
// General Authenticate sequence (spec §4.6, §8 scenario 5).
const chunkSize = 224

var (
	tag80    = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 0}    // '80'
	tag91    = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 0x11} // '91'
	tagKeyID = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 4}    // '84'
)

// StaticKey is the chip's Chip Authentication public key, as decoded from
// DG14's ChipAuthenticationPublicKeyInfo.
type StaticKey struct {
	ParamID   params.ParameterID
	PublicKey []byte // DH: big-endian integer; ECDH: uncompressed point
	KeyID     *int   // set when DG14 disambiguates more than one CA key
}

// Protocol names the Chip Authentication OID and the cipher suite it
// selects.
type Protocol struct {
	OID   oid.OID
	Suite emrtdcrypto.CipherSuite
}

// DefaultProtocol picks the 3DES Chip Authentication OID matching the
// static key's algebra, the fallback the spec names for when DG14 carries
// a ChipAuthenticationPublicKeyInfo with no matching ChipAuthenticationInfo
// (§4.6, §9).
func DefaultProtocol(domain params.DomainParameters) Protocol {
	if domain.Category() == params.CategoryECP {
		return Protocol{OID: oid.IDCAECDH3DESCBCCBC, Suite: emrtdcrypto.Cipher3DESEDE2}
	}
	return Protocol{OID: oid.IDCADH3DESCBCCBC, Suite: emrtdcrypto.Cipher3DESEDE2}
}

// Result carries the replacement secure channel established under the
// freshly derived Chip Authentication session keys.
type Result struct {
	Channel *securechannel.Channel
}

// Run executes Chip Authentication (spec §4.6) over the secure channel ch
// and returns the channel that replaces it. ch keeps its session keys, but
// the MSE and General Authenticate commands are sent through ch.Send and
// advance its send sequence counter; on success the orchestrator discards
// its reference to ch in favor of Result.Channel.
func Run(t apdu.Transport, ch *securechannel.Channel, proto Protocol, key StaticKey) (*Result, error) {
	domain, err := params.Lookup(key.ParamID)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", err)
	}

	var pkIFDBytes []byte
	var sharedSecret func() ([]byte, error)

	switch d := domain.(type) {
	case *params.ECGroup:
		skIFD, pkIFD, err := emrtdcrypto.ECGenerateKeyPair(d.Curve)
		if err != nil {
			return nil, err
		}
		pkIFDBytes = pkIFD
		sharedSecret = func() ([]byte, error) {
			return emrtdcrypto.ECSharedSecretX(d.Curve, skIFD, key.PublicKey)
		}
	case *params.DHGroup:
		skIFD, pkIFD, err := emrtdcrypto.DHGenerateKeyPair(d)
		if err != nil {
			return nil, err
		}
		width := (d.P.BitLen() + 7) / 8
		pkIFDBytes = dhFixedWidth(pkIFD, width)
		sharedSecret = func() ([]byte, error) {
			pkChip := new(big.Int).SetBytes(key.PublicKey)
			return emrtdcrypto.DHSharedSecret(d, skIFD, pkChip)
		}
	default:
		return nil, fmt.Errorf("chipauth: unsupported domain parameters %T", domain)
	}

	if err := sendEphemeralKey(t, ch, proto, pkIFDBytes, key.KeyID); err != nil {
		return nil, err
	}

	k, err := sharedSecret()
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}

	ksenc := emrtdcrypto.KDF(proto.Suite, k, nil, emrtdcrypto.KDFEncMode)
	ksmac := emrtdcrypto.KDF(proto.Suite, k, nil, emrtdcrypto.KDFMacMode)
	newCh, err := securechannel.New(proto.Suite, ksenc, ksmac, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Channel: newCh}, nil
}

// sendEphemeralKey transmits PK_IFD to the chip, dispatching on the
// protocol's cipher: 3DES uses a single MSE:Set KAT, AES uses MSE:Set AT
// followed by a chained General Authenticate sequence (spec §4.6).
func sendEphemeralKey(t apdu.Transport, ch *securechannel.Channel, proto Protocol, pkIFD []byte, keyID *int) error {
	if proto.Suite == emrtdcrypto.Cipher3DESEDE2 {
		data := asn1.Encode(tag91, pkIFD)
		if keyID != nil {
			data = append(data, asn1.Encode(tagKeyID, keyIDBytes(*keyID))...)
		}
		resp, err := ch.Send(t, apdu.MSESetKAT(data))
		if err != nil {
			return err
		}
		return apdu.DecodeStatusWord(resp.SW1, resp.SW2)
	}

	oidBytes, err := proto.OID.Bytes()
	if err != nil {
		return err
	}
	mseData := asn1.Encode(tag80, oidBytes)
	if keyID != nil {
		mseData = append(mseData, asn1.Encode(tagKeyID, keyIDBytes(*keyID))...)
	}
	resp, err := ch.Send(t, apdu.MSESetATInternal(mseData))
	if err != nil {
		return err
	}
	if err := apdu.DecodeStatusWord(resp.SW1, resp.SW2); err != nil {
		return err
	}

	body := asn1.Encode(tag80, pkIFD)
	for offset := 0; offset < len(body); offset += chunkSize {
		end := offset + chunkSize
		cla := byte(0x10)
		if end >= len(body) {
			end = len(body)
			cla = 0x00
		}
		gaResp, err := ch.Send(t, apdu.GeneralAuthenticate(cla, body[offset:end], 256))
		if err != nil {
			return err
		}
		if err := apdu.DecodeStatusWord(gaResp.SW1, gaResp.SW2); err != nil {
			return err
		}
	}
	return nil
}

func dhFixedWidth(n *big.Int, width int) []byte {
	b := n.Bytes()
	if len(b) >= width {
		return b[len(b)-width:]
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

func keyIDBytes(id int) []byte {
	if id == 0 {
		return []byte{0}
	}
	n := big.NewInt(int64(id))
	return n.Bytes()
}
