package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+79991234567":       "+79991234567",
		"89991234567":        "+79991234567",
		"79991234567":        "+79991234567",
		"9991234567":         "+79991234567",
		"+7 (999) 123-45-67": "+79991234567",
		"8 999 123 45 67":    "+79991234567",
		"12345":              "12345",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestValidPhone(t *testing.T) {
	require.True(t, ValidPhone("+79991234567"))
	require.True(t, ValidPhone("8 (999) 123-45-67"))
	require.True(t, ValidPhone("9991234567"))
	require.False(t, ValidPhone("+74951234567"))
	require.False(t, ValidPhone("12345"))
	require.False(t, ValidPhone(""))
}

func TestNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, err := NumericCode(6)
		require.NoError(t, err)
		require.Len(t, c, 6)
		require.Regexp(t, `^\d{6}$`, c)
	}
}

func TestCodeInRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, err := CodeInRange(100000, 999999)
		require.NoError(t, err)
		require.Regexp(t, `^[1-9]\d{5}$`, c)
	}
}
