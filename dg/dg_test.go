package dg

import (
	"math/big"
	"testing"

	"emrtdcore/asn1"
	"emrtdcore/oid"
	"emrtdcore/params"

	"github.com/stretchr/testify/require"
)

func encInt(n int) []byte {
	b := big.NewInt(int64(n)).Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	return asn1.Encode(asn1.UniversalInteger, b)
}

func encOID(t *testing.T, o oid.OID) []byte {
	b, err := o.Bytes()
	require.NoError(t, err)
	return asn1.Encode(asn1.UniversalOID, b)
}

func TestDecodeCOMListsPresentDataGroups(t *testing.T) {
	ldsVersion := asn1.Encode(asn1.Tag{Class: asn1.ClassApplication, Number: 0x01}, []byte("0107"))
	unicodeVersion := asn1.Encode(asn1.Tag{Class: asn1.ClassApplication, Number: 0x36}, []byte("0410"))
	tagList := asn1.Encode(asn1.Tag{Class: asn1.ClassApplication, Number: 0x1C}, []byte{0x61, 0x75, 0x6E, 0x77})
	content := append(append(append([]byte{}, ldsVersion...), unicodeVersion...), tagList...)
	raw := asn1.Encode(TagFor(NumberCOM), content)

	com, err := DecodeCOM(raw)
	require.NoError(t, err)
	require.Equal(t, "0107", com.LDSVersion)
	require.Equal(t, "0410", com.UnicodeVersion)
	// tag list bytes are 0x61 (DG1), 0x75 (DG2 — the non-sequential ICAO
	// exception), 0x6E (DG14), 0x77 (SOD).
	require.Equal(t, []Number{NumberDG1, NumberDG2, NumberDG14, NumberSOD}, com.Present)
}

func TestDecodeCOMRejectsWrongOuterTag(t *testing.T) {
	raw := asn1.Encode(TagFor(NumberDG1), []byte{0x01})
	_, err := DecodeCOM(raw)
	require.Error(t, err)
}

func buildECSubjectPublicKeyInfo(t *testing.T, point []byte, paramID params.ParameterID) []byte {
	algID := asn1.EncodeSequence(append(encOID(t, oid.IDPKEC), encInt(int(paramID))...))
	bitstring := asn1.Encode(asn1.UniversalBitString, append([]byte{0x00}, point...))
	return asn1.EncodeSequence(append(algID, bitstring...))
}

func TestDecodeDG14RecognizesAllThreeSecurityInfoPrefixes(t *testing.T) {
	paceInfo := asn1.EncodeSequence(append(encOID(t, oid.IDPACEECDHAESCBCCMAC128), append(encInt(2), encInt(int(params.ParamBrainpoolP256R1))...)...))
	caInfo := asn1.EncodeSequence(append(encOID(t, oid.IDCAECDHAESCBCCMAC128), encInt(1)...))

	point := append([]byte{0x04}, make([]byte, 64)...)
	spki := buildECSubjectPublicKeyInfo(t, point, params.ParamBrainpoolP256R1)
	pkInfo := asn1.EncodeSequence(append(encOID(t, oid.IDPKEC), append(spki, encInt(1)...)...))

	set := asn1.Encode(asn1.UniversalSet, append(append(append([]byte{}, paceInfo...), caInfo...), pkInfo...))
	raw := asn1.Encode(TagFor(NumberDG14), set)

	dg14, err := DecodeDG14(raw)
	require.NoError(t, err)
	require.Len(t, dg14.All, 3)

	require.Len(t, dg14.PACE, 1)
	require.True(t, dg14.PACE[0].OID.Equal(oid.IDPACEECDHAESCBCCMAC128))
	require.Equal(t, 2, dg14.PACE[0].Version)
	require.NotNil(t, dg14.PACE[0].ParameterID)
	require.Equal(t, params.ParamBrainpoolP256R1, *dg14.PACE[0].ParameterID)

	require.Len(t, dg14.ChipAuth, 1)
	require.True(t, dg14.ChipAuth[0].OID.Equal(oid.IDCAECDHAESCBCCMAC128))
	require.Equal(t, 1, dg14.ChipAuth[0].Version)

	require.Len(t, dg14.PublicKeys, 1)
	pk := dg14.PublicKeys[0]
	require.True(t, pk.OID.Equal(oid.IDPKEC))
	require.NotNil(t, pk.ParameterID)
	require.Equal(t, params.ParamBrainpoolP256R1, *pk.ParameterID)
	require.Equal(t, point, pk.PublicKey)
	require.NotNil(t, pk.KeyID)
	require.Equal(t, 1, *pk.KeyID)
}

func TestDecodeDG14IgnoresUnrecognizedProtocolPrefix(t *testing.T) {
	unknown := asn1.EncodeSequence(encOID(t, oid.New(2, 23, 136, 1, 99, 99)))
	set := asn1.Encode(asn1.UniversalSet, unknown)
	raw := asn1.Encode(TagFor(NumberDG14), set)

	dg14, err := DecodeDG14(raw)
	require.NoError(t, err)
	require.Len(t, dg14.All, 1)
	require.Empty(t, dg14.PACE)
	require.Empty(t, dg14.ChipAuth)
	require.Empty(t, dg14.PublicKeys)
}

func TestDecodeDG15ExposesECPublicKey(t *testing.T) {
	point := append([]byte{0x04}, make([]byte, 64)...)
	spki := buildECSubjectPublicKeyInfo(t, point, params.ParamBrainpoolP256R1)
	raw := asn1.Encode(TagFor(NumberDG15), spki)

	dg15, err := DecodeDG15(raw)
	require.NoError(t, err)
	require.True(t, dg15.OID.Equal(oid.IDPKEC))
	require.NotNil(t, dg15.ParameterID)
	require.Equal(t, params.ParamBrainpoolP256R1, *dg15.ParameterID)
	require.Equal(t, point, dg15.PublicKey)
}

func TestDecodeDG15UnwrapsDHIntegerPublicKey(t *testing.T) {
	algID := asn1.EncodeSequence(append(encOID(t, oid.IDPKDH), encInt(int(params.ParamGFP1024160))...))
	innerInt := asn1.Encode(asn1.UniversalInteger, []byte{0x01, 0x02, 0x03})
	bitstring := asn1.Encode(asn1.UniversalBitString, append([]byte{0x00}, innerInt...))
	spki := asn1.EncodeSequence(append(algID, bitstring...))
	raw := asn1.Encode(TagFor(NumberDG15), spki)

	dg15, err := DecodeDG15(raw)
	require.NoError(t, err)
	require.True(t, dg15.OID.Equal(oid.IDPKDH))
	require.Equal(t, []byte{0x01, 0x02, 0x03}, dg15.PublicKey)
}

func TestDecodeOpaqueDataGroupPassesRawBytesThrough(t *testing.T) {
	raw := asn1.Encode(TagFor(NumberDG1), []byte("P<UTOERIKSSON<<ANNA<MARIA"))

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, NumberDG1, decoded.Number)
	require.Equal(t, raw, decoded.Opaque)
	require.Nil(t, decoded.COM)
	require.Nil(t, decoded.DG14)
	require.Nil(t, decoded.DG15)
}

func TestDecodeDispatchesCOM(t *testing.T) {
	comRaw := asn1.Encode(TagFor(NumberCOM), append(
		asn1.Encode(asn1.Tag{Class: asn1.ClassApplication, Number: 0x01}, []byte("0107")),
		asn1.Encode(asn1.Tag{Class: asn1.ClassApplication, Number: 0x1C}, []byte{0x61})...,
	))
	decoded, err := Decode(comRaw)
	require.NoError(t, err)
	require.Equal(t, NumberCOM, decoded.Number)
	require.NotNil(t, decoded.COM)
	require.Equal(t, []Number{NumberDG1}, decoded.COM.Present)
}

func TestTagForAndNumberForTagRoundTrip(t *testing.T) {
	for _, n := range []Number{NumberCOM, NumberDG1, NumberDG14, NumberDG16, NumberSOD} {
		got, ok := NumberForTag(TagFor(n))
		require.True(t, ok)
		require.Equal(t, n, got)
	}
}

func TestDecodeCardAccessParsesBareSecurityInfoSet(t *testing.T) {
	paceInfo := asn1.EncodeSequence(append(encOID(t, oid.IDPACEECDHAESCBCCMAC128), append(encInt(2), encInt(int(params.ParamBrainpoolP256R1))...)...))
	raw := asn1.Encode(asn1.UniversalSet, paceInfo)

	info, err := DecodeCardAccess(raw)
	require.NoError(t, err)
	require.Len(t, info.PACE, 1)
	require.True(t, info.PACE[0].OID.Equal(oid.IDPACEECDHAESCBCCMAC128))
	require.NotNil(t, info.PACE[0].ParameterID)
	require.Equal(t, params.ParamBrainpoolP256R1, *info.PACE[0].ParameterID)
}

func TestDecodeCardAccessRejectsNonSetOuterTag(t *testing.T) {
	raw := asn1.Encode(TagFor(NumberDG1), []byte{0x01})
	_, err := DecodeCardAccess(raw)
	require.Error(t, err)
}

func TestEFIDKnownForEveryDefinedNumber(t *testing.T) {
	for _, n := range []Number{
		NumberCOM, NumberDG1, NumberDG2, NumberDG3, NumberDG4, NumberDG5, NumberDG6, NumberDG7, NumberDG8,
		NumberDG9, NumberDG10, NumberDG11, NumberDG12, NumberDG13, NumberDG14, NumberDG15, NumberDG16, NumberSOD,
	} {
		id, ok := EFID(n)
		require.True(t, ok)
		require.Equal(t, byte(0x01), id[0])
	}
}
