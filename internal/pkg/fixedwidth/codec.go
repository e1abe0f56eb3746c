package fixedwidth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrRecordLength is returned when a line does not match the layout length.
var ErrRecordLength = errors.New("record length mismatch")

// Values holds field values keyed by field name for encoding.
type Values map[string]any

// Encode renders values as a single record of exactly layout.RecordLength
// characters. Missing values fall back to the field Default, then to blanks
// (Alpha, Filler) or zero (Numeric, SignedAmount). A missing Date is blank.
func Encode(layout Layout, values Values) (string, error) {
	var b strings.Builder
	b.Grow(layout.RecordLength)

	for _, f := range layout.Fields {
		rendered, err := encodeField(f, values[f.Name])
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", layout.Name, f.Name, err)
		}
		b.WriteString(rendered)
	}
	return b.String(), nil
}

func encodeField(f Field, v any) (string, error) {
	switch f.Kind {
	case Filler:
		return padRight(f.Default, f.Length), nil

	case Alpha:
		s := f.Default
		if v != nil {
			str, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("alpha field wants string, got %T", v)
			}
			s = str
		}
		return padRight(sanitize(s), f.Length), nil

	case Numeric:
		n, err := toInt64(v, f.Default)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", fmt.Errorf("numeric field cannot hold negative %d", n)
		}
		s := strconv.FormatInt(n, 10)
		if len(s) > f.Length {
			return "", fmt.Errorf("%w: %d into %d", ErrOverflow, n, f.Length)
		}
		return strings.Repeat("0", f.Length-len(s)) + s, nil

	case SignedAmount:
		n, err := toInt64(v, f.Default)
		if err != nil {
			return "", err
		}
		return Overpunch(n, f.Length)

	case Date:
		switch t := v.(type) {
		case nil:
			return padRight(f.Default, f.Length), nil
		case time.Time:
			if t.IsZero() {
				return padRight(f.Default, f.Length), nil
			}
			s := t.Format(f.dateFormat())
			if len(s) != f.Length {
				return "", fmt.Errorf("date format %q renders %d chars into %d", f.dateFormat(), len(s), f.Length)
			}
			return s, nil
		case *time.Time:
			if t == nil {
				return padRight(f.Default, f.Length), nil
			}
			return encodeField(f, *t)
		default:
			return "", fmt.Errorf("date field wants time.Time, got %T", v)
		}
	}
	return "", fmt.Errorf("unknown field kind %d", f.Kind)
}

func toInt64(v any, def string) (int64, error) {
	switch n := v.(type) {
	case nil:
		if def == "" {
			return 0, nil
		}
		return strconv.ParseInt(def, 10, 64)
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("numeric field wants integer, got %T", v)
	}
}

// sanitize upper-cases and replaces anything outside printable ASCII with a space.
func sanitize(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Record is a decoded record keyed by field name.
type Record map[string]any

// Text returns an Alpha field with trailing spaces trimmed.
func (r Record) Text(name string) string {
	s, _ := r[name].(string)
	return s
}

// Int returns a Numeric or SignedAmount field.
func (r Record) Int(name string) int64 {
	n, _ := r[name].(int64)
	return n
}

// Time returns a Date field; the zero time when blank.
func (r Record) Time(name string) time.Time {
	t, _ := r[name].(time.Time)
	return t
}

// Decode parses a single record. Trailing CR is ignored.
func Decode(layout Layout, line string) (Record, error) {
	line = strings.TrimRight(line, "\r")
	if !utf8.ValidString(line) || len(line) != layout.RecordLength {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrRecordLength, layout.Name, layout.RecordLength, len(line))
	}

	rec := make(Record, len(layout.Fields))
	for _, f := range layout.Fields {
		if f.Kind == Filler {
			continue
		}
		raw := line[f.Start-1 : f.End()]
		v, err := decodeField(f, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", layout.Name, f.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func decodeField(f Field, raw string) (any, error) {
	switch f.Kind {
	case Alpha:
		return strings.TrimRight(raw, " "), nil
	case Numeric:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return int64(0), nil
		}
		return strconv.ParseInt(trimmed, 10, 64)
	case SignedAmount:
		if strings.TrimSpace(raw) == "" {
			return int64(0), nil
		}
		return ParseOverpunch(raw)
	case Date:
		if strings.TrimSpace(raw) == "" {
			return time.Time{}, nil
		}
		return time.Parse(f.dateFormat(), raw)
	}
	return nil, fmt.Errorf("unknown field kind %d", f.Kind)
}

// Peek returns the raw text of a field from a line without full decoding.
func Peek(f Field, line string) string {
	if len(line) < f.End() {
		return ""
	}
	return line[f.Start-1 : f.End()]
}
