package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "0.00", FormatDollars(0))
	assert.Equal(t, "12.05", FormatDollars(1205))
	assert.Equal(t, "-1.50", FormatDollars(-150))
}

func TestParseDollars(t *testing.T) {
	for in, want := range map[string]int64{
		"12.05":     1205,
		"$3":        300,
		"-1.5":      -150,
		"-$2.25":    -225,
		".99":       99,
		" 7.1 ":     710,
		"$1,500.00": 150000,
	} {
		got, err := ParseDollars(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "1.234", "abc", "1.-5", "$", "--1"} {
		_, err := ParseDollars(bad)
		assert.Error(t, err, bad)
	}
}

func TestPercent(t *testing.T) {
	p, err := Percent("20%")
	require.NoError(t, err)
	assert.Equal(t, 20, p)
	p, err = Percent(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 13, p)
	_, err = Percent("150%")
	assert.Error(t, err)
	_, err = Percent("")
	assert.Error(t, err)
}
