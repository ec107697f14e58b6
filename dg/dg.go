// Package dg implements the ICAO 9303 LDS1 Data Group tag taxonomy and the
// structural decoders spec.md §4.8 calls for: EF.COM, DG14's SecurityInfo
// SET, and (as an additive, informational-only supplement) DG15's public
// key. Every other Data Group is carried as an opaque byte buffer — the
// tagged-variant idiom the teacher applies to its own CHOICE-like outer
// tags, keyed here by DG number instead of a profile-element tag.
package dg

import (
	"fmt"
	"math/big"

	"emrtdcore/asn1"
	"emrtdcore/oid"
	"emrtdcore/params"
)

// Number identifies a file by its LDS1 outer application tag number.
// EF.COM and EF.SOD aren't Data Groups in the strict ICAO sense but share
// the same tag taxonomy, so they get reserved numbers here too.
type Number int

const (
	NumberCOM  Number = 0
	NumberDG1  Number = 1
	NumberDG2  Number = 2
	NumberDG3  Number = 3
	NumberDG4  Number = 4
	NumberDG5  Number = 5
	NumberDG6  Number = 6
	NumberDG7  Number = 7
	NumberDG8  Number = 8
	NumberDG9  Number = 9
	NumberDG10 Number = 10
	NumberDG11 Number = 11
	NumberDG12 Number = 12
	NumberDG13 Number = 13
	NumberDG14 Number = 14
	NumberDG15 Number = 15
	NumberDG16 Number = 16
	NumberSOD  Number = 23
)

// efIDs maps each Number to its 2-byte LDS1 short elementary-file
// identifier (ICAO 9303 Part 10 Table 4411).
var efIDs = map[Number][2]byte{
	NumberCOM:  {0x01, 0x1E},
	NumberDG1:  {0x01, 0x01},
	NumberDG2:  {0x01, 0x02},
	NumberDG3:  {0x01, 0x03},
	NumberDG4:  {0x01, 0x04},
	NumberDG5:  {0x01, 0x05},
	NumberDG6:  {0x01, 0x06},
	NumberDG7:  {0x01, 0x07},
	NumberDG8:  {0x01, 0x08},
	NumberDG9:  {0x01, 0x09},
	NumberDG10: {0x01, 0x0A},
	NumberDG11: {0x01, 0x0B},
	NumberDG12: {0x01, 0x0C},
	NumberDG13: {0x01, 0x0D},
	NumberDG14: {0x01, 0x0E},
	NumberDG15: {0x01, 0x0F},
	NumberDG16: {0x01, 0x10},
	NumberSOD:  {0x01, 0x1D},
}

// tagNumbers maps each Number to its BER tag number (the low 5 bits of
// its application-class tag byte). DG2 and DG4 are the well-known ICAO
// 9303 exceptions to "tag number == DG number" (0x75 and 0x76, not 0x62
// and 0x64), a historical quirk carried over from earlier CBEFF-based
// drafts, so this is a table rather than arithmetic.
var tagNumbers = map[Number]uint32{
	NumberCOM:  0x00,
	NumberDG1:  0x01,
	NumberDG2:  0x15,
	NumberDG3:  0x03,
	NumberDG4:  0x16,
	NumberDG5:  0x05,
	NumberDG6:  0x06,
	NumberDG7:  0x07,
	NumberDG8:  0x08,
	NumberDG9:  0x09,
	NumberDG10: 0x0A,
	NumberDG11: 0x0B,
	NumberDG12: 0x0C,
	NumberDG13: 0x0D,
	NumberDG14: 0x0E,
	NumberDG15: 0x0F,
	NumberDG16: 0x10,
	NumberSOD:  0x17,
}

var numbersByTag = func() map[uint32]Number {
	m := make(map[uint32]Number, len(tagNumbers))
	for n, tagNum := range tagNumbers {
		m[tagNum] = n
	}
	return m
}()

// TagFor returns the outer BER application tag that identifies n on the
// wire (e.g. 0x60 for EF.COM, 0x6E for DG14, 0x77 for EF.SOD).
func TagFor(n Number) asn1.Tag {
	return asn1.Tag{Class: asn1.ClassApplication, Constructed: true, Number: tagNumbers[n]}
}

// EFID returns n's 2-byte short elementary-file identifier.
func EFID(n Number) ([2]byte, bool) {
	id, ok := efIDs[n]
	return id, ok
}

// NumberForTag inverts TagFor, reporting false for any tag outside the
// LDS1 application-class taxonomy.
func NumberForTag(tag asn1.Tag) (Number, bool) {
	if tag.Class != asn1.ClassApplication || !tag.Constructed {
		return 0, false
	}
	n, ok := numbersByTag[tag.Number]
	return n, ok
}

// NumberForShortTag inverts the single-byte application tag carried
// inside EF.COM's tag list (5C) — the same tag taxonomy, addressed
// without going through a Tag struct.
func NumberForShortTag(b byte) (Number, bool) {
	return NumberForTag(asn1.Tag{Class: asn1.ClassApplication, Constructed: true, Number: uint32(b & 0x1F)})
}

var (
	tag5F01 = asn1.Tag{Class: asn1.ClassApplication, Number: 0x01} // LDS version
	tag5F36 = asn1.Tag{Class: asn1.ClassApplication, Number: 0x36} // Unicode version
	tag5C   = asn1.Tag{Class: asn1.ClassApplication, Number: 0x1C} // tag list
)

// COM decodes EF.COM (spec §4.8): the LDS and Unicode versions, and the
// list of Data Groups the chip declares present.
type COM struct {
	LDSVersion     string
	UnicodeVersion string
	Present        []Number
}

// DecodeCOM parses raw as EF.COM.
func DecodeCOM(raw []byte) (*COM, error) {
	tr, err := asn1.Parse(raw)
	if err != nil {
		return nil, err
	}
	root := tr.Root()
	if root.Tag != TagFor(NumberCOM) {
		return nil, fmt.Errorf("dg: not EF.COM (tag %+v)", root.Tag)
	}

	com := &COM{}
	if n, ok := tr.FirstChildWithTag(root, tag5F01); ok {
		com.LDSVersion = string(n.Content)
	}
	if n, ok := tr.FirstChildWithTag(root, tag5F36); ok {
		com.UnicodeVersion = string(n.Content)
	}
	n, ok := tr.FirstChildWithTag(root, tag5C)
	if !ok {
		return nil, fmt.Errorf("dg: EF.COM missing tag list (5C)")
	}
	for _, b := range n.Content {
		if num, ok := NumberForShortTag(b); ok {
			com.Present = append(com.Present, num)
		}
	}
	return com, nil
}

// SecurityInfo is one element of DG14's SecurityInfo SET, kept even when
// its protocol OID isn't one of the three recognized prefixes (spec
// §4.8: "unrecognized prefixes are ignored" means ignored for structural
// decode, not dropped from the record).
type SecurityInfo struct {
	OID oid.OID
	Raw []byte
}

// PACEInfo is a SecurityInfo recognized under the id-PACE prefix.
type PACEInfo struct {
	OID         oid.OID
	Version     int
	ParameterID *params.ParameterID
}

// ChipAuthenticationInfo is a SecurityInfo recognized under the id-CA
// prefix, naming the protocol to run and optionally which static key.
type ChipAuthenticationInfo struct {
	OID     oid.OID
	Version int
	KeyID   *int
}

// ChipAuthenticationPublicKey is a SecurityInfo recognized under the
// id-PK prefix, carrying the chip's static Chip Authentication key.
type ChipAuthenticationPublicKey struct {
	OID         oid.OID
	ParameterID *params.ParameterID
	PublicKey   []byte // DH: big-endian integer; EC: uncompressed point
	KeyID       *int
}

// DG14 decodes EF.DG14: the SET of SecurityInfo, sorted into the
// protocol-specific shapes the Chip Authentication phase needs.
type DG14 struct {
	All        []SecurityInfo
	PACE       []PACEInfo
	ChipAuth   []ChipAuthenticationInfo
	PublicKeys []ChipAuthenticationPublicKey
}

// DecodeDG14 parses raw as EF.DG14.
func DecodeDG14(raw []byte) (*DG14, error) {
	tr, err := asn1.Parse(raw)
	if err != nil {
		return nil, err
	}
	root := tr.Root()
	if root.Tag != TagFor(NumberDG14) {
		return nil, fmt.Errorf("dg: not EF.DG14 (tag %+v)", root.Tag)
	}
	outer := tr.Children(root)
	if len(outer) != 1 || outer[0].Tag != asn1.UniversalSet {
		return nil, fmt.Errorf("dg: EF.DG14 does not wrap a SET")
	}

	dg14 := &DG14{}
	for _, si := range tr.Children(outer[0]) {
		if err := decodeSecurityInfo(tr, si, dg14); err != nil {
			return nil, err
		}
	}
	return dg14, nil
}

// DecodeCardAccess parses raw EF.CardAccess bytes: a bare SET OF
// SecurityInfo (unlike DG14, not wrapped in an LDS1 application tag,
// since it lives outside the eMRTD application and is read before any
// access-control protocol runs). The result is sorted the same way
// DecodeDG14 sorts DG14's SecurityInfo SET, since EF.CardAccess's
// PACEInfo entries are what the orchestrator needs to select a PACE
// protocol before PACE or BAC have even started.
func DecodeCardAccess(raw []byte) (*DG14, error) {
	tr, err := asn1.Parse(raw)
	if err != nil {
		return nil, err
	}
	root := tr.Root()
	if root.Tag != asn1.UniversalSet {
		return nil, fmt.Errorf("dg: EF.CardAccess is not a SET")
	}
	info := &DG14{}
	for _, si := range tr.Children(root) {
		if err := decodeSecurityInfo(tr, si, info); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func decodeSecurityInfo(tr *asn1.Tree, n *asn1.Node, dg14 *DG14) error {
	children := tr.Children(n)
	if len(children) == 0 {
		return fmt.Errorf("dg: empty SecurityInfo")
	}
	protocolOID, err := oid.Decode(children[0].Content)
	if err != nil {
		return fmt.Errorf("dg: SecurityInfo protocol OID: %w", err)
	}
	dg14.All = append(dg14.All, SecurityInfo{OID: protocolOID, Raw: n.Raw})

	switch {
	case protocolOID.HasPrefix(oid.IDPACE):
		info := PACEInfo{OID: protocolOID}
		if len(children) > 1 {
			info.Version = decodeIntContent(children[1].Content)
		}
		if len(children) > 2 {
			pid := params.ParameterID(decodeIntContent(children[2].Content))
			info.ParameterID = &pid
		}
		dg14.PACE = append(dg14.PACE, info)

	case protocolOID.HasPrefix(oid.IDPK):
		if len(children) < 2 {
			return fmt.Errorf("dg: ChipAuthenticationPublicKeyInfo missing SubjectPublicKeyInfo")
		}
		keyAlgOID, paramID, keyBytes, err := decodeSubjectPublicKeyInfo(tr, children[1])
		if err != nil {
			return fmt.Errorf("dg: ChipAuthenticationPublicKeyInfo: %w", err)
		}
		pk := ChipAuthenticationPublicKey{OID: keyAlgOID, ParameterID: paramID, PublicKey: keyBytes}
		if len(children) > 2 {
			id := decodeIntContent(children[2].Content)
			pk.KeyID = &id
		}
		dg14.PublicKeys = append(dg14.PublicKeys, pk)

	case protocolOID.HasPrefix(oid.IDCA):
		info := ChipAuthenticationInfo{OID: protocolOID}
		if len(children) > 1 {
			info.Version = decodeIntContent(children[1].Content)
		}
		if len(children) > 2 {
			id := decodeIntContent(children[2].Content)
			info.KeyID = &id
		}
		dg14.ChipAuth = append(dg14.ChipAuth, info)

	default:
		// Unrecognized prefix: already recorded in dg14.All, ignored
		// beyond that (spec §4.8).
	}
	return nil
}

// DG15 decodes EF.DG15 (supplemented feature: exposed for display only,
// no Active Authentication challenge/response is performed).
type DG15 struct {
	OID         oid.OID
	ParameterID *params.ParameterID
	PublicKey   []byte
}

// DecodeDG15 parses raw as EF.DG15 (a bare SubjectPublicKeyInfo under the
// DG15 application tag).
func DecodeDG15(raw []byte) (*DG15, error) {
	tr, err := asn1.Parse(raw)
	if err != nil {
		return nil, err
	}
	root := tr.Root()
	if root.Tag != TagFor(NumberDG15) {
		return nil, fmt.Errorf("dg: not EF.DG15 (tag %+v)", root.Tag)
	}
	outer := tr.Children(root)
	if len(outer) != 1 {
		return nil, fmt.Errorf("dg: EF.DG15 does not wrap a single SubjectPublicKeyInfo")
	}
	algOID, paramID, keyBytes, err := decodeSubjectPublicKeyInfo(tr, outer[0])
	if err != nil {
		return nil, fmt.Errorf("dg: EF.DG15: %w", err)
	}
	return &DG15{OID: algOID, ParameterID: paramID, PublicKey: keyBytes}, nil
}

// decodeSubjectPublicKeyInfo decodes a SubjectPublicKeyInfo SEQUENCE node
// (algorithm AlgorithmIdentifier, subjectPublicKey BIT STRING), returning
// the key algorithm OID, the standardized domain-parameter id when the
// AlgorithmIdentifier carries one in place of explicit DH/EC parameters,
// and the raw public key bytes.
func decodeSubjectPublicKeyInfo(tr *asn1.Tree, n *asn1.Node) (oid.OID, *params.ParameterID, []byte, error) {
	children := tr.Children(n)
	if len(children) != 2 {
		return oid.OID{}, nil, nil, fmt.Errorf("SubjectPublicKeyInfo: expected algorithm + public key, got %d fields", len(children))
	}
	algID, pubKeyBS := children[0], children[1]
	if pubKeyBS.Tag != asn1.UniversalBitString {
		return oid.OID{}, nil, nil, fmt.Errorf("subjectPublicKey is not a BIT STRING")
	}

	algChildren := tr.Children(algID)
	if len(algChildren) == 0 {
		return oid.OID{}, nil, nil, fmt.Errorf("AlgorithmIdentifier: missing algorithm OID")
	}
	algOID, err := oid.Decode(algChildren[0].Content)
	if err != nil {
		return oid.OID{}, nil, nil, fmt.Errorf("AlgorithmIdentifier: %w", err)
	}

	var paramID *params.ParameterID
	if len(algChildren) > 1 && algChildren[1].Tag == asn1.UniversalInteger {
		pid := params.ParameterID(decodeIntContent(algChildren[1].Content))
		paramID = &pid
	}

	keyBytes, err := decodePublicKeyBits(algOID, pubKeyBS.Content)
	if err != nil {
		return oid.OID{}, nil, nil, err
	}
	return algOID, paramID, keyBytes, nil
}

// decodePublicKeyBits unwraps a subjectPublicKey BIT STRING's content
// octets (leading unused-bits-count byte, then the value) into the
// public-key byte shape Chip Authentication expects: a DH key is DER
// INTEGER-wrapped and needs one more unwrap; an EC key is the uncompressed
// point directly.
func decodePublicKeyBits(algOID oid.OID, content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty subjectPublicKey BIT STRING")
	}
	unused, bits := content[0], content[1:]

	switch {
	case algOID.HasPrefix(oid.IDPKDH):
		tr, err := asn1.Parse(bits)
		if err != nil {
			return nil, fmt.Errorf("DH public key integer: %w", err)
		}
		v := tr.Root().Content
		for len(v) > 1 && v[0] == 0x00 {
			v = v[1:]
		}
		return v, nil
	case algOID.HasPrefix(oid.IDPKEC):
		if unused != 0 {
			return nil, fmt.Errorf("unexpected unused-bits count %d for EC public key", unused)
		}
		return bits, nil
	default:
		return nil, fmt.Errorf("unrecognized public-key algorithm %s", algOID)
	}
}

func decodeIntContent(b []byte) int {
	return int(new(big.Int).SetBytes(b).Int64())
}

// Decoded is the result of dispatching on a raw LDS file's outer tag: the
// structurally-decoded shape for COM/DG14/DG15, or the raw bytes for
// every other Data Group (spec §4.8, §9 "tagged variant keyed by DG tag").
type Decoded struct {
	Number Number
	COM    *COM
	DG14   *DG14
	DG15   *DG15
	Opaque []byte
}

// Decode identifies raw's outer tag and runs the matching structural
// decoder, falling back to opaque bytes for every Data Group the core
// doesn't interpret.
func Decode(raw []byte) (*Decoded, error) {
	if _, _, err := asn1.HeaderLength(raw); err != nil {
		return nil, err
	}
	num, ok := NumberForShortTag(raw[0])
	if !ok || raw[0]&0xE0 != 0x60 {
		return nil, fmt.Errorf("dg: unrecognized outer tag 0x%02X", raw[0])
	}

	switch num {
	case NumberCOM:
		com, err := DecodeCOM(raw)
		if err != nil {
			return nil, err
		}
		return &Decoded{Number: num, COM: com}, nil
	case NumberDG14:
		dg14, err := DecodeDG14(raw)
		if err != nil {
			return nil, err
		}
		return &Decoded{Number: num, DG14: dg14}, nil
	case NumberDG15:
		dg15, err := DecodeDG15(raw)
		if err != nil {
			return nil, err
		}
		return &Decoded{Number: num, DG15: dg15}, nil
	default:
		return &Decoded{Number: num, Opaque: raw}, nil
	}
}
