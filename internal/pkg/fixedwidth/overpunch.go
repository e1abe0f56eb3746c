package fixedwidth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrOverflow is returned when a value does not fit in its field width.
var ErrOverflow = errors.New("value does not fit field width")

// ErrInvalidOverpunch is returned when a signed field cannot be decoded.
var ErrInvalidOverpunch = errors.New("invalid overpunch value")

// Zoned-decimal sign characters indexed by the units digit.
var (
	positiveOverpunch = [10]byte{'{', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I'}
	negativeOverpunch = [10]byte{'}', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R'}
)

// Overpunch renders cents as a zero-padded string of exactly width characters
// whose last character carries both the units digit and the sign.
func Overpunch(cents int64, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("%w: width %d", ErrOverflow, width)
	}
	if cents == math.MinInt64 {
		return "", fmt.Errorf("%w: %d", ErrOverflow, cents)
	}

	negative := cents < 0
	if negative {
		cents = -cents
	}

	digits := strconv.FormatInt(cents, 10)
	if len(digits) > width {
		return "", fmt.Errorf("%w: %d digits into %d", ErrOverflow, len(digits), width)
	}
	padded := strings.Repeat("0", width-len(digits)) + digits

	units := padded[width-1] - '0'
	table := positiveOverpunch
	if negative {
		table = negativeOverpunch
	}
	return padded[:width-1] + string(table[units]), nil
}

// ParseOverpunch decodes a signed overpunch field back to cents. A plain
// trailing digit is accepted as an unsigned positive value; leading and
// trailing spaces are ignored.
func ParseOverpunch(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidOverpunch)
	}

	last := s[len(s)-1]
	units, negative, ok := decodeSign(last)
	if !ok {
		return 0, fmt.Errorf("%w: sign character %q", ErrInvalidOverpunch, last)
	}

	body := s[:len(s)-1]
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOverpunch, s)
		}
	}

	value, err := strconv.ParseInt(body+string('0'+units), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOverpunch, err)
	}
	if negative {
		value = -value
	}
	return value, nil
}

func decodeSign(c byte) (units byte, negative bool, ok bool) {
	if c >= '0' && c <= '9' {
		return c - '0', false, true
	}
	for i := 0; i < 10; i++ {
		if positiveOverpunch[i] == c {
			return byte(i), false, true
		}
		if negativeOverpunch[i] == c {
			return byte(i), true, true
		}
	}
	return 0, false, false
}
