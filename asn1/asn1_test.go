package asn1

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripSequenceOfIntegers(t *testing.T) {
	inner := Encode(UniversalInteger, []byte{0x01})
	inner = append(inner, Encode(UniversalOctetString, []byte{0xAA, 0xBB, 0xCC})...)
	encoded := EncodeSequence(inner)

	tr, err := Parse(encoded)
	require.NoError(t, err)

	root := tr.Root()
	require.Equal(t, UniversalSequence, root.Tag)
	require.Equal(t, encoded, root.Raw)

	children := tr.Children(root)
	require.Len(t, children, 2)
	require.Equal(t, UniversalInteger, children[0].Tag)
	require.Equal(t, []byte{0x01}, children[0].Content)
	require.Equal(t, UniversalOctetString, children[1].Tag)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, children[1].Content)
}

func TestLongFormLengthOf127IsRejectedAsNonMinimal(t *testing.T) {
	// SEQUENCE, long-form length byte 0x81 followed by 0x7F (=127): 127
	// fits in a single short-form length byte, so this must be rejected.
	content := make([]byte, 127)
	bad := append([]byte{TagSequence, 0x81, 0x7F}, content...)

	_, err := Parse(bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNonMinimalLen))
}

func TestShortFormLengthOf127IsAccepted(t *testing.T) {
	content := Encode(UniversalOctetString, make([]byte, 125))
	good := EncodeSequence(content)
	require.Equal(t, byte(127), good[1])

	tr, err := Parse(good)
	require.NoError(t, err)
	require.Equal(t, UniversalSequence, tr.Root().Tag)
}

func TestIndefiniteLengthIsRejected(t *testing.T) {
	bad := []byte{TagSequence, 0x80, 0x02, 0x01, 0x00, 0x00, 0x00}
	_, err := Parse(bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIndefiniteLen))
}

func TestTruncatedFieldIsRejected(t *testing.T) {
	bad := []byte{TagOctetString, 0x05, 0x01, 0x02}
	_, err := Parse(bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestTrailingBytesIsRejected(t *testing.T) {
	good := Encode(UniversalInteger, []byte{0x01})
	bad := append(good, 0xFF)
	_, err := Parse(bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTrailingBytes))
}

func TestExcessiveDepthIsRejected(t *testing.T) {
	// Build MaxDepth+2 levels of nested, empty constructed SEQUENCEs.
	encoded := EncodeSequence(nil)
	for i := 0; i < MaxDepth+2; i++ {
		encoded = EncodeSequence(encoded)
	}
	_, err := Parse(encoded)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExcessiveDepth))
}

func TestTwoByteApplicationTag(t *testing.T) {
	// Tag 0x7F49: application class, constructed, number 0x49.
	tag := Tag{Class: ClassApplication, Constructed: true, Number: 0x49}
	require.Equal(t, []byte{0x7F, 0x49}, tag.Bytes())

	inner := Encode(UniversalOctetString, []byte{0x01, 0x02})
	encoded := Encode(tag, inner)

	tr, err := Parse(encoded)
	require.NoError(t, err)
	require.Equal(t, tag, tr.Root().Tag)

	child, ok := tr.FirstChildWithTag(tr.Root(), UniversalOctetString)
	require.True(t, ok)
	require.Equal(t, []byte{0x01, 0x02}, child.Content)
}

func TestHeaderLengthShortForm(t *testing.T) {
	full := Encode(Tag{Class: ClassApplication, Constructed: true, Number: 0x0E}, make([]byte, 100))
	headerLen, contentLen, err := HeaderLength(full[:4])
	require.NoError(t, err)
	require.Equal(t, 2, headerLen)
	require.Equal(t, 100, contentLen)
}

func TestHeaderLengthLongForm(t *testing.T) {
	full := Encode(Tag{Class: ClassApplication, Constructed: true, Number: 0x0E}, make([]byte, 300))
	headerLen, contentLen, err := HeaderLength(full[:4])
	require.NoError(t, err)
	require.Equal(t, 4, headerLen)
	require.Equal(t, 300, contentLen)
}

func TestHeaderLengthNeedsMoreBytes(t *testing.T) {
	full := Encode(Tag{Class: ClassApplication, Constructed: true, Number: 0x0E}, make([]byte, 70000))
	_, _, err := HeaderLength(full[:4])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestFirstChildWithByteTagNoMatch(t *testing.T) {
	encoded := EncodeSequence(Encode(UniversalInteger, []byte{0x01}))
	tr, err := Parse(encoded)
	require.NoError(t, err)
	_, ok := tr.FirstChildWithByteTag(tr.Root(), TagOctetString)
	require.False(t, ok)
}
