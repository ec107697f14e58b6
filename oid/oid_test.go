package oid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefixInvariants(t *testing.T) {
	require.True(t, IDPACEECDHAESCBCCMAC128.HasPrefix(IDPACE))
	require.True(t, IDPACEDH3DESCBCCBC.HasPrefix(IDPACE))
	require.True(t, IDCADHAESCBCCMAC256.HasPrefix(IDCA))
	require.True(t, IDPKEC.HasPrefix(IDPK))
	require.False(t, IDPACE.HasPrefix(IDCA))
}

func TestRoundTrip(t *testing.T) {
	for _, o := range []OID{IDPACEECDHAESCBCCMAC128, IDSHA256, IDLDSSecurityObject, New(2, 5, 4, 3)} {
		b, err := o.Bytes()
		require.NoError(t, err)
		back, err := Decode(b)
		require.NoError(t, err)
		require.True(t, o.Equal(back), "round trip mismatch for %s", o)
	}
}

func TestParseAndString(t *testing.T) {
	o, err := Parse("2.23.136.1.1.1")
	require.NoError(t, err)
	require.True(t, o.Equal(IDLDSSecurityObject))
	require.Equal(t, "2.23.136.1.1.1", o.String())
}

func TestAppendDoesNotMutate(t *testing.T) {
	base := New(1, 2, 3)
	derived := base.Append(4)
	require.True(t, base.Equal(New(1, 2, 3)))
	require.True(t, derived.Equal(New(1, 2, 3, 4)))
}

func TestEqualDifferentLengths(t *testing.T) {
	require.False(t, New(1, 2).Equal(New(1, 2, 3)))
}
