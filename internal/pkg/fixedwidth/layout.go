// Package fixedwidth encodes and decodes positional text records such as
// payer accumulator files.
package fixedwidth

import (
	"errors"
	"fmt"
)

// Kind describes how a field's value is rendered.
type Kind int

const (
	// Alpha is left-justified, space padded, upper-cased text.
	Alpha Kind = iota
	// Numeric is a right-justified, zero padded unsigned integer.
	Numeric
	// SignedAmount is an integer amount of cents with a sign-overpunched units digit.
	SignedAmount
	// Date is a time rendered with the field's DateFormat.
	Date
	// Filler is always blank (or its Default).
	Filler
)

// DefaultDateFormat is CCYYMMDD.
const DefaultDateFormat = "20060102"

// ErrInvalidLayout is returned when a layout's fields do not tile its record.
var ErrInvalidLayout = errors.New("invalid layout")

// Field is one positional column. Start is 1-based.
type Field struct {
	Name       string
	Start      int
	Length     int
	Kind       Kind
	Default    string
	DateFormat string
}

// End returns the 1-based inclusive end position.
func (f Field) End() int {
	return f.Start + f.Length - 1
}

func (f Field) dateFormat() string {
	if f.DateFormat != "" {
		return f.DateFormat
	}
	return DefaultDateFormat
}

// Layout is a record definition.
type Layout struct {
	Name         string
	RecordLength int
	Fields       []Field
	index        map[string]int
}

// NewLayout builds a layout from fields laid out back to back starting at
// position 1. The Start of each field is computed.
func NewLayout(name string, recordLength int, fields ...Field) (Layout, error) {
	pos := 1
	placed := make([]Field, len(fields))
	for i, f := range fields {
		f.Start = pos
		placed[i] = f
		pos += f.Length
	}
	l := Layout{Name: name, RecordLength: recordLength, Fields: placed}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	l.buildIndex()
	return l, nil
}

// MustLayout is NewLayout that panics on error, for package-level layouts.
func MustLayout(name string, recordLength int, fields ...Field) Layout {
	l, err := NewLayout(name, recordLength, fields...)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate checks that fields are contiguous, non-overlapping, uniquely named
// and exactly cover the record length.
func (l Layout) Validate() error {
	if l.RecordLength <= 0 {
		return fmt.Errorf("%w: %s: record length %d", ErrInvalidLayout, l.Name, l.RecordLength)
	}
	seen := make(map[string]bool, len(l.Fields))
	next := 1
	for _, f := range l.Fields {
		if f.Length <= 0 {
			return fmt.Errorf("%w: %s: field %s has length %d", ErrInvalidLayout, l.Name, f.Name, f.Length)
		}
		if f.Start != next {
			return fmt.Errorf("%w: %s: field %s starts at %d, expected %d", ErrInvalidLayout, l.Name, f.Name, f.Start, next)
		}
		if f.Kind != Filler {
			if f.Name == "" {
				return fmt.Errorf("%w: %s: unnamed field at %d", ErrInvalidLayout, l.Name, f.Start)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w: %s: duplicate field %s", ErrInvalidLayout, l.Name, f.Name)
			}
			seen[f.Name] = true
		}
		next = f.End() + 1
	}
	if next-1 != l.RecordLength {
		return fmt.Errorf("%w: %s: fields cover %d of %d positions", ErrInvalidLayout, l.Name, next-1, l.RecordLength)
	}
	return nil
}

func (l *Layout) buildIndex() {
	l.index = make(map[string]int, len(l.Fields))
	for i, f := range l.Fields {
		if f.Kind != Filler {
			l.index[f.Name] = i
		}
	}
}

// Field returns the named field.
func (l Layout) Field(name string) (Field, bool) {
	if l.index != nil {
		i, ok := l.index[name]
		if !ok {
			return Field{}, false
		}
		return l.Fields[i], true
	}
	for _, f := range l.Fields {
		if f.Name == name && f.Kind != Filler {
			return f, true
		}
	}
	return Field{}, false
}
