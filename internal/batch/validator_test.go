package batch

import (
	"strings"
	"testing"

	"invoicedrop/pkg/faults"

	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedIdentifiers(t *testing.T) {
	cases := []string{
		"INV-2024.01",
		"abc",
		"A1_b2-c3.d4",
		strings.Repeat("x", 50),
		"12345",
	}
	for _, raw := range cases {
		got, err := Validate(raw, Bounds{})
		require.NoError(t, err, "identifier %q", raw)
		require.Equal(t, raw, got)
	}
}

func TestValidateTrimsWhitespace(t *testing.T) {
	got, err := Validate("  INV-42  \n", Bounds{})
	require.NoError(t, err)
	require.Equal(t, "INV-42", got)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", faults.ErrEmptyIdentifier},
		{"whitespace only", "   ", faults.ErrEmptyIdentifier},
		{"too short", "ab", faults.ErrIdentifierTooShort},
		{"too long", strings.Repeat("x", 51), faults.ErrIdentifierTooLong},
		{"slash", "INV/2024", faults.ErrInvalidCharacters},
		{"space inside", "INV 2024", faults.ErrInvalidCharacters},
		{"cyrillic", "накладная", faults.ErrInvalidCharacters},
		{"asterisk", "INV*01", faults.ErrInvalidCharacters},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.raw, Bounds{})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateCustomBounds(t *testing.T) {
	_, err := Validate("abcd", Bounds{MinLen: 5, MaxLen: 10})
	require.ErrorIs(t, err, faults.ErrIdentifierTooShort)

	_, err = Validate("abcdefghijk", Bounds{MinLen: 5, MaxLen: 10})
	require.ErrorIs(t, err, faults.ErrIdentifierTooLong)

	got, err := Validate("abcdef", Bounds{MinLen: 5, MaxLen: 10})
	require.NoError(t, err)
	require.Equal(t, "abcdef", got)
}

func TestSafeFolderNameIsIdentityOnValidIdentifiers(t *testing.T) {
	for _, id := range []string{"INV-2024.01", "abc_def", "X.1-2_3"} {
		require.Equal(t, id, SafeFolderName(id))
	}
}

func TestSafeFolderNameSubstitutesPathBreakers(t *testing.T) {
	require.Equal(t, "a_b_c_d_e_f_g_h_i_", SafeFolderName(`a<b>c:d"e/f\g|h?i*`))
}
