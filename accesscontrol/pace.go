package accesscontrol

import (
	"crypto/elliptic"
	"crypto/sha1"
	"fmt"
	"math/big"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/oid"
	"emrtdcore/params"
	"emrtdcore/securechannel"
)

// Dynamic Authentication Data template and its context-specific component
// tags, ICAO 9303 Part 11 §4.
var (
	tagDynamicAuthData = asn1.Tag{Class: asn1.ClassApplication, Constructed: true, Number: 0x1C} // '7C'
	tag80            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 0}
	tag81            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 1}
	tag82            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 2}
	tag83            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 3}
	tag84            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 4}
	tag85            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 5}
	tag86            = asn1.Tag{Class: asn1.ClassContextSpecific, Number: 6}
	tagPublicKeyInfo = asn1.Tag{Class: asn1.ClassApplication, Constructed: true, Number: 0x49} // '7F49'
)

// Protocol names the cipher suite, key-agreement algebra, and standardized
// domain parameters a PACEInfo's OID and parameter-id select (ICAO 9303
// Part 11 Table 11).
type Protocol struct {
	OID     oid.OID
	Suite   emrtdcrypto.CipherSuite
	ParamID params.ParameterID
}

// PACEResult carries the established secure channel after a successful
// PACE-GM run.
type PACEResult struct {
	Channel *securechannel.Channel
}

// RunPACEGM executes the PACE-Generic-Mapping handshake (spec §4.5) and
// returns the resulting secure channel.
func RunPACEGM(t apdu.Transport, proto Protocol, mrzKey string) (*PACEResult, error) {
	domain, err := params.Lookup(proto.ParamID)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", err)
	}

	seed := sha1.Sum([]byte(mrzKey))
	kseed := seed[:16]
	kpace := emrtdcrypto.KDF(proto.Suite, kseed, nil, emrtdcrypto.KDFPaceMode)

	oidBytes, err := proto.OID.Bytes()
	if err != nil {
		return nil, err
	}
	mseData := append(asn1.Encode(tag80, oidBytes), []byte{0x83, 0x01, 0x01}...)
	if resp, err := apdu.Send(t, apdu.MSESetATMutual(mseData)); err != nil {
		return nil, err
	} else if err := apdu.DecodeStatusWord(resp.SW1, resp.SW2); err != nil {
		return nil, err
	}

	encNonceResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, nil), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(encNonceResp.SW1, encNonceResp.SW2); err != nil {
		return nil, err
	}
	encNonce, err := extractTag(encNonceResp.Data, tag80)
	if err != nil {
		return nil, err
	}
	s, err := proto.Suite.CBCDecrypt(kpace, make([]byte, proto.Suite.BlockSize()), encNonce)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "decryption-failure", err)
	}

	if domain.Category() == params.CategoryECP {
		return runPACEGMECDH(t, proto, domain.(*params.ECGroup).Curve, s)
	}
	return runPACEGMDH(t, proto, domain.(*params.DHGroup), s)
}

func extractTag(data []byte, tag asn1.Tag) ([]byte, error) {
	tr, err := asn1.Parse(data)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}
	n, ok := tr.FirstChildWithTag(tr.Root(), tag)
	if !ok {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("accesscontrol: expected tag %v not found", tag))
	}
	return n.Content, nil
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

// buildPublicKeyInfoTLV builds the '7F49' SubjectPublicKeyInfo-shaped
// structure the token computation MACs: OID ‖ TLV(pkTag, pk).
func buildPublicKeyInfoTLV(o oid.OID, pkTag asn1.Tag, pk []byte) ([]byte, error) {
	oidBytes, err := o.Bytes()
	if err != nil {
		return nil, err
	}
	content := append(asn1.Encode(asn1.UniversalOID, oidBytes), asn1.Encode(pkTag, pk)...)
	return asn1.Encode(tagPublicKeyInfo, content), nil
}

// finishPACE runs the shared tail of PACE-GM common to both DH and ECDH:
// session-key derivation, mutual token exchange, and secure-channel setup.
func finishPACE(t apdu.Transport, proto Protocol, k []byte, chipPKInfo, ownPKInfo []byte) (*PACEResult, error) {
	ksenc := emrtdcrypto.KDF(proto.Suite, k, nil, emrtdcrypto.KDFEncMode)
	ksmac := emrtdcrypto.KDF(proto.Suite, k, nil, emrtdcrypto.KDFMacMode)

	tIFD, err := emrtdcrypto.MAC(proto.Suite, ksmac, chipPKInfo)
	if err != nil {
		return nil, err
	}
	tokenResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, asn1.Encode(tag85, tIFD)), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(tokenResp.SW1, tokenResp.SW2); err != nil {
		return nil, err
	}
	tIC, err := extractTag(tokenResp.Data, tag86)
	if err != nil {
		return nil, err
	}

	expectedTIC, err := emrtdcrypto.MAC(proto.Suite, ksmac, ownPKInfo)
	if err != nil {
		return nil, err
	}
	if !constantTimeEqual(tIC, expectedTIC) {
		return nil, apdu.ErrPACETokenMismatch
	}

	ch, err := securechannel.New(proto.Suite, ksenc, ksmac, nil)
	if err != nil {
		return nil, err
	}
	return &PACEResult{Channel: ch}, nil
}

func runPACEGMDH(t apdu.Transport, proto Protocol, group *params.DHGroup, s []byte) (*PACEResult, error) {
	width := (group.P.BitLen() + 7) / 8

	skMap, pkMap, err := emrtdcrypto.DHGenerateKeyPair(group)
	if err != nil {
		return nil, err
	}
	mapResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, asn1.Encode(tag81, dhFixedWidth(pkMap, width))), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(mapResp.SW1, mapResp.SW2); err != nil {
		return nil, err
	}
	pkChipMapBytes, err := extractTag(mapResp.Data, tag82)
	if err != nil {
		return nil, err
	}
	pkChipMap := new(big.Int).SetBytes(pkChipMapBytes)
	mappingShared, err := emrtdcrypto.DHSharedSecret(group, skMap, pkChipMap)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}
	gPrime := emrtdcrypto.DHMappedGenerator(group, new(big.Int).SetBytes(s), mappingShared)
	mapped := &params.DHGroup{GroupName: group.GroupName + "-mapped", P: group.P, G: gPrime, Q: group.Q}

	skEph, pkEph, err := emrtdcrypto.DHGenerateKeyPair(mapped)
	if err != nil {
		return nil, err
	}
	ephResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, asn1.Encode(tag83, dhFixedWidth(pkEph, width))), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(ephResp.SW1, ephResp.SW2); err != nil {
		return nil, err
	}
	pkChipEphBytes, err := extractTag(ephResp.Data, tag84)
	if err != nil {
		return nil, err
	}
	pkChipEph := new(big.Int).SetBytes(pkChipEphBytes)
	k, err := emrtdcrypto.DHSharedSecret(mapped, skEph, pkChipEph)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}

	chipPKInfo, err := buildPublicKeyInfoTLV(proto.OID, tag84, dhFixedWidth(pkChipEph, width))
	if err != nil {
		return nil, err
	}
	ownPKInfo, err := buildPublicKeyInfoTLV(proto.OID, tag84, dhFixedWidth(pkEph, width))
	if err != nil {
		return nil, err
	}
	return finishPACE(t, proto, k, chipPKInfo, ownPKInfo)
}

func runPACEGMECDH(t apdu.Transport, proto Protocol, curve elliptic.Curve, s []byte) (*PACEResult, error) {
	skMap, pkMap, err := emrtdcrypto.ECGenerateKeyPair(curve)
	if err != nil {
		return nil, err
	}
	mapResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, asn1.Encode(tag81, pkMap)), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(mapResp.SW1, mapResp.SW2); err != nil {
		return nil, err
	}
	pkChipMap, err := extractTag(mapResp.Data, tag82)
	if err != nil {
		return nil, err
	}
	hx, hy, err := emrtdcrypto.ECSharedSecretPoint(curve, skMap, pkChipMap)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}
	hUncompressed := elliptic.Marshal(curve, hx, hy)

	gx, gy, err := emrtdcrypto.ECMappedPoint(curve, new(big.Int).SetBytes(s), hUncompressed)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}
	orig := curve.Params()
	mapped := &elliptic.CurveParams{P: orig.P, N: orig.N, B: orig.B, Gx: gx, Gy: gy, BitSize: orig.BitSize, Name: orig.Name + "-mapped"}

	skEph, pkEph, err := emrtdcrypto.ECGenerateKeyPair(mapped)
	if err != nil {
		return nil, err
	}
	ephResp, err := apdu.Send(t, apdu.GeneralAuthenticate(0x00, asn1.Encode(tagDynamicAuthData, asn1.Encode(tag83, pkEph)), 256))
	if err != nil {
		return nil, err
	}
	if err := apdu.DecodeStatusWord(ephResp.SW1, ephResp.SW2); err != nil {
		return nil, err
	}
	pkChipEph, err := extractTag(ephResp.Data, tag84)
	if err != nil {
		return nil, err
	}
	k, err := emrtdcrypto.ECSharedSecretX(mapped, skEph, pkChipEph)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindCryptographic, "key-agreement-failure", err)
	}

	chipPKInfo, err := buildPublicKeyInfoTLV(proto.OID, tag86, pkChipEph)
	if err != nil {
		return nil, err
	}
	ownPKInfo, err := buildPublicKeyInfoTLV(proto.OID, tag86, pkEph)
	if err != nil {
		return nil, err
	}
	return finishPACE(t, proto, k, chipPKInfo, ownPKInfo)
}
