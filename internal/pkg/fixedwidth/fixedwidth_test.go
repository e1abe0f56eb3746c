package fixedwidth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverpunch(t *testing.T) {
	tests := []struct {
		cents int64
		width int
		want  string
	}{
		{0, 5, "0000{"},
		{1, 5, "0000A"},
		{12345, 7, "001234E"},
		{-12345, 7, "001234N"},
		{-10, 4, "001}"},
		{9, 1, "I"},
		{-9, 1, "R"},
		{100000, 6, "10000{"},
	}
	for _, tt := range tests {
		got, err := Overpunch(tt.cents, tt.width)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Overpunch(%d, %d)", tt.cents, tt.width)

		back, err := ParseOverpunch(got)
		require.NoError(t, err)
		assert.Equal(t, tt.cents, back)
	}
}

func TestOverpunchOverflow(t *testing.T) {
	_, err := Overpunch(123456, 5)
	assert.True(t, errors.Is(err, ErrOverflow))

	_, err = Overpunch(-123456, 5)
	assert.True(t, errors.Is(err, ErrOverflow))

	_, err = Overpunch(1, 0)
	assert.True(t, errors.Is(err, ErrOverflow))
}

func TestParseOverpunchAcceptsUnsignedAndRejectsGarbage(t *testing.T) {
	v, err := ParseOverpunch("00125")
	require.NoError(t, err)
	assert.Equal(t, int64(125), v)

	v, err = ParseOverpunch("  0012}")
	require.NoError(t, err)
	assert.Equal(t, int64(-120), v)

	for _, bad := range []string{"", "   ", "00X2A", "0012Z", "12-4A"} {
		_, err := ParseOverpunch(bad)
		assert.True(t, errors.Is(err, ErrInvalidOverpunch), "input %q", bad)
	}
}

func testLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout("test", 40,
		Field{Name: "record_type", Length: 2, Kind: Alpha, Default: "DT"},
		Field{Name: "name", Length: 10, Kind: Alpha},
		Field{Name: "count", Length: 4, Kind: Numeric},
		Field{Name: "amount", Length: 7, Kind: SignedAmount},
		Field{Name: "service_date", Length: 8, Kind: Date},
		Field{Length: 9, Kind: Filler},
	)
	require.NoError(t, err)
	return l
}

func TestNewLayoutComputesPositions(t *testing.T) {
	l := testLayout(t)
	f, ok := l.Field("amount")
	require.True(t, ok)
	assert.Equal(t, 17, f.Start)
	assert.Equal(t, 23, f.End())

	_, ok = l.Field("missing")
	assert.False(t, ok)
}

func TestLayoutValidate(t *testing.T) {
	_, err := NewLayout("short", 10, Field{Name: "a", Length: 4, Kind: Alpha})
	assert.True(t, errors.Is(err, ErrInvalidLayout))

	_, err = NewLayout("dup", 4,
		Field{Name: "a", Length: 2, Kind: Alpha},
		Field{Name: "a", Length: 2, Kind: Alpha},
	)
	assert.True(t, errors.Is(err, ErrInvalidLayout))

	gap := Layout{Name: "gap", RecordLength: 4, Fields: []Field{
		{Name: "a", Start: 1, Length: 2},
		{Name: "b", Start: 4, Length: 1},
	}}
	assert.True(t, errors.Is(gap.Validate(), ErrInvalidLayout))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	l := testLayout(t)
	dos := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	line, err := Encode(l, Values{
		"name":         "o'brien jr",
		"count":        42,
		"amount":       int64(-2550),
		"service_date": dos,
	})
	require.NoError(t, err)
	assert.Len(t, line, 40)
	assert.Equal(t, "DTO'BRIEN JR0042000255}20260314         ", line)

	rec, err := Decode(l, line+"\r")
	require.NoError(t, err)
	assert.Equal(t, "DT", rec.Text("record_type"))
	assert.Equal(t, "O'BRIEN JR", rec.Text("name"))
	assert.Equal(t, int64(42), rec.Int("count"))
	assert.Equal(t, int64(-2550), rec.Int("amount"))
	assert.True(t, dos.Equal(rec.Time("service_date")))
}

func TestEncodeTruncatesAlphaAndRejectsOverflow(t *testing.T) {
	l := testLayout(t)

	line, err := Encode(l, Values{"name": "abcdefghijklmnop"})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", line[2:12])
	assert.Equal(t, "0000", line[12:16])
	assert.Equal(t, strings.Repeat(" ", 8), line[23:31])

	_, err = Encode(l, Values{"count": 12345})
	assert.True(t, errors.Is(err, ErrOverflow))

	_, err = Encode(l, Values{"count": -1})
	assert.Error(t, err)

	_, err = Encode(l, Values{"name": 12})
	assert.Error(t, err)
}

func TestEncodeReplacesNonASCII(t *testing.T) {
	l := testLayout(t)
	line, err := Encode(l, Values{"name": "josé"})
	require.NoError(t, err)
	assert.Equal(t, "JOS       ", line[2:12])
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	l := testLayout(t)
	_, err := Decode(l, "DT")
	assert.True(t, errors.Is(err, ErrRecordLength))
}

func TestPeek(t *testing.T) {
	l := testLayout(t)
	f, _ := l.Field("record_type")
	assert.Equal(t, "DT", Peek(f, "DTXXXX"))
	assert.Equal(t, "", Peek(f, "D"))
}
