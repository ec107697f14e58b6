package mrz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyICAOTestVector(t *testing.T) {
	key, err := Key(DocumentInfo{
		DocumentNumber: "L898902C<",
		DateOfBirth:    "690806",
		DateOfExpiry:   "940623",
	})
	require.NoError(t, err)
	require.Equal(t, "L898902C<369080619406236", key)
}

func TestDocumentNumberIsPaddedWithFillCharacter(t *testing.T) {
	key, err := Key(DocumentInfo{
		DocumentNumber: "L8988",
		DateOfBirth:    "690806",
		DateOfExpiry:   "940623",
	})
	require.NoError(t, err)
	require.True(t, len(key) == 24)
	require.Equal(t, "L8988<<<<", key[:9])
}

func TestCheckDigitOverAllFillFieldIsZero(t *testing.T) {
	cd, err := CheckDigit("<<<<<<<<<")
	require.NoError(t, err)
	require.Equal(t, byte('0'), cd)
}

func TestCheckDigitRejectsInvalidCharacter(t *testing.T) {
	_, err := CheckDigit("L89890-C<")
	require.Error(t, err)
}

func TestValidLineLength(t *testing.T) {
	require.True(t, ValidLineLength(90))
	require.True(t, ValidLineLength(72))
	require.True(t, ValidLineLength(88))
	require.False(t, ValidLineLength(89))
}

func TestKeyRejectsWrongDateLength(t *testing.T) {
	_, err := Key(DocumentInfo{DocumentNumber: "L898902C<", DateOfBirth: "69080", DateOfExpiry: "940623"})
	require.Error(t, err)
}
