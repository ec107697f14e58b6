// Package sod decodes EF.SOD (spec §4.8) and implements the Passive
// Authentication verifier (spec §4.9): a CMS SignedData parse and
// signature check that does not build a certificate chain, followed by
// recomputing and comparing each read Data Group's hash against the
// digest the signed LDSSecurityObject declares for it.
package sod

import (
	"crypto/subtle"
	"fmt"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
	"emrtdcore/dg"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/oid"

	"github.com/smallstep/pkcs7"
)

// SecurityObject is the decoded EF.SOD: the CMS envelope plus the
// LDSSecurityObject digest table extracted from its signed content.
type SecurityObject struct {
	p7       *pkcs7.PKCS7
	HashOID  oid.OID
	hashByDG map[int][]byte
}

// Decode parses raw EF.SOD bytes: a CMS SignedData structure whose
// encapContentInfo content is the DER-encoded LDSSecurityObject, a
// SEQUENCE of (version, digestAlgorithm, SEQUENCE OF (INTEGER dgNumber,
// OCTET STRING hash)) (spec §4.8).
func Decode(raw []byte) (*SecurityObject, error) {
	p7, err := pkcs7.Parse(raw)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("sod: parsing CMS structure: %w", err))
	}

	tr, err := asn1.Parse(p7.Content)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", fmt.Errorf("sod: parsing LDSSecurityObject: %w", err))
	}
	root := tr.Root()
	if root.Tag != asn1.UniversalSequence || len(root.Children) < 3 {
		return nil, apdu.ErrUnexpectedASN1
	}
	children := tr.Children(root)

	algSeq := children[1]
	if algSeq.Tag != asn1.UniversalSequence || len(algSeq.Children) < 1 {
		return nil, apdu.ErrUnexpectedASN1
	}
	algOIDNode := tr.Children(algSeq)[0]
	if algOIDNode.Tag != asn1.UniversalOID {
		return nil, apdu.ErrUnexpectedASN1
	}
	hashOID, err := oid.Decode(algOIDNode.Content)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}

	digestsSeq := children[2]
	if digestsSeq.Tag != asn1.UniversalSequence {
		return nil, apdu.ErrUnexpectedASN1
	}
	hashByDG := make(map[int][]byte)
	for _, entry := range tr.Children(digestsSeq) {
		if entry.Tag != asn1.UniversalSequence || len(entry.Children) != 2 {
			return nil, apdu.ErrUnexpectedASN1
		}
		parts := tr.Children(entry)
		numNode, hashNode := parts[0], parts[1]
		if numNode.Tag != asn1.UniversalInteger || hashNode.Tag != asn1.UniversalOctetString {
			return nil, apdu.ErrUnexpectedASN1
		}
		n := decodeSmallInt(numNode.Content)
		hashByDG[n] = append([]byte(nil), hashNode.Content...)
	}

	return &SecurityObject{p7: p7, HashOID: hashOID, hashByDG: hashByDG}, nil
}

func decodeSmallInt(b []byte) int {
	n := 0
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n
}

// VerifySignature checks the CMS signature against the embedded signer
// certificate without validating that certificate against any trust
// anchor (spec §4.9 step 1: Trust-Anchor validation is out of scope).
func (s *SecurityObject) VerifySignature() error {
	if err := s.p7.Verify(); err != nil {
		return apdu.WrapErr(apdu.KindCryptographic, "cms-verification-failure", err)
	}
	return nil
}

// ExpectedHash returns the digest the SOD declares for the given DG
// number (the LDSSecurityObject's dgShortId is the plain DG number
// 1-16, not its BER application tag).
func (s *SecurityObject) ExpectedHash(n dg.Number) ([]byte, bool) {
	h, ok := s.hashByDG[int(n)]
	return h, ok
}

// VerifyDataGroup recomputes the hash of a Data Group's raw BER bytes
// using the SOD-declared digest algorithm and compares it, in constant
// time, against the digest the SOD signed for that DG (spec §4.9 steps
// 2-3).
func (s *SecurityObject) VerifyDataGroup(n dg.Number, raw []byte) error {
	expected, ok := s.ExpectedHash(n)
	if !ok {
		return apdu.WrapErr(apdu.KindCryptographic, "pa-hash-mismatch", fmt.Errorf("sod: hash not found in SOD for data group %d", n))
	}
	newHash, err := emrtdcrypto.HashByOID(s.HashOID)
	if err != nil {
		return apdu.WrapErr(apdu.KindConfiguration, "security-protocol-not-decodable", err)
	}
	h := newHash()
	h.Write(raw)
	got := h.Sum(nil)
	if subtle.ConstantTimeCompare(got, expected) != 1 {
		return apdu.WrapErr(apdu.KindCryptographic, "pa-hash-mismatch", fmt.Errorf("sod: data group %d hash mismatch", n))
	}
	return nil
}

// Verify runs the full Passive Authentication check (spec §4.9) over the
// Data Groups actually read: the CMS signature first, then every DG's
// hash in turn. It returns the first failure encountered; callers that
// need to know about every mismatch should call VerifyDataGroup directly
// per DG instead.
func (s *SecurityObject) Verify(dataGroups map[dg.Number][]byte) error {
	if err := s.VerifySignature(); err != nil {
		return err
	}
	for n, raw := range dataGroups {
		if n == dg.NumberCOM || n == dg.NumberSOD {
			continue
		}
		if err := s.VerifyDataGroup(n, raw); err != nil {
			return err
		}
	}
	return nil
}
