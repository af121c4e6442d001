// internal/cw/table.go
// Package cw implements poll-driven Morse encoding and decoding over a
// dichotomic code table.
package cw

import (
	"errors"
	"fmt"
)

// Symbol is a single Morse signal unit.
type Symbol byte

const (
	// Dot is the short signal (one dot duration)
	Dot Symbol = '.'
	// Dash is the long signal (three dot durations)
	Dash Symbol = '-'
	// WordSpace is the pseudo-signal sent for a space character
	WordSpace Symbol = ' '
)

const (
	// NotFound is returned by FindIndex when a character has no table node
	NotFound = -1
	// ErrorMarker is decoded when a character has more signals than the table depth
	ErrorMarker = '#'
	// Wildcard fills unassigned table nodes; it is never transmitted
	Wildcard = '*'
	// DefaultDepth is the depth of the ITU table (maximum signals per character)
	DefaultDepth = 6
)

// ituSymbols is the ITU table with most punctuation, in breadth-first order.
// Index 0 is the word space root. The trailing NUL pads the array to 2^(L+1).
const ituSymbols = " ETIANMSURWDKGOHVF*L*PJBXCYZQ!*54*3***2&*+****16=/***(*7***8*90*" +
	"***********?_****\"**.****@***'**-********;!*)*****,****:*******\x00"

var (
	// ErrInvalidDepth indicates the table depth is out of range
	ErrInvalidDepth = errors.New("table depth must be between 1 and 14")
	// ErrTableLength indicates the symbol string does not fill the tree
	ErrTableLength = errors.New("table length must be 2^(depth+1)")
	// ErrNilTable indicates a state machine was built without a table
	ErrNilTable = errors.New("code table is required")
)

// ITU is the default table shared by decoders and encoders.
var ITU = MustCodeTable(DefaultDepth, ituSymbols)

// CodeTable is a complete binary tree stored as a flat array.
// For index i > 0 the parent is (i-1)/2; the odd child 2i+1 is a dot
// and the even child 2i+2 is a dash. No node storage exists beyond the array.
type CodeTable struct {
	depth   int
	symbols []byte
}

// NewCodeTable builds a table of the given depth. symbols must hold exactly
// 2^(depth+1) bytes; a missing final padding byte is tolerated.
func NewCodeTable(depth int, symbols string) (*CodeTable, error) {
	if depth < 1 || depth > 14 {
		return nil, ErrInvalidDepth
	}
	size := 1 << (depth + 1)
	switch len(symbols) {
	case size:
	case size - 1:
		symbols += "\x00"
	default:
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTableLength, len(symbols), size)
	}
	return &CodeTable{depth: depth, symbols: []byte(symbols)}, nil
}

// MustCodeTable is like NewCodeTable but panics on error.
func MustCodeTable(depth int, symbols string) *CodeTable {
	t, err := NewCodeTable(depth, symbols)
	if err != nil {
		panic(err)
	}
	return t
}

// Depth returns the maximum number of signals in one character.
func (t *CodeTable) Depth() int { return t.depth }

// Len returns the number of slots, including the padding slot.
func (t *CodeTable) Len() int { return len(t.symbols) }

// Lookup returns the character at index, or 0 when index is out of range.
func (t *CodeTable) Lookup(index int) byte {
	if index < 0 || index >= len(t.symbols) {
		return 0
	}
	return t.symbols[index]
}

// FindIndex returns the first node holding c, comparing upper case.
func (t *CodeTable) FindIndex(c byte) int {
	c = upper(c)
	if c == 0 {
		return NotFound
	}
	for i, s := range t.symbols {
		if s == c {
			return i
		}
	}
	return NotFound
}

// CanDescend reports whether index has children in the table.
func (t *CodeTable) CanDescend(index int) bool {
	return index < len(t.symbols)/2-1
}

// Descend returns the child of index for the given signal.
func (t *CodeTable) Descend(index int, s Symbol) int {
	if s == Dash {
		return 2*index + 2
	}
	return 2*index + 1
}

// Parent returns the parent index, 0 for the root.
func Parent(index int) int {
	if index <= 0 {
		return 0
	}
	return (index - 1) / 2
}

// Trace appends the signals of index to dst in leaf-to-root order and
// returns the extended slice. Index 0 yields a single WordSpace.
func Trace(dst []Symbol, index int) []Symbol {
	if index <= 0 {
		return append(dst, WordSpace)
	}
	for p := index; p > 0; p = Parent(p) {
		if p&1 == 1 {
			dst = append(dst, Dot)
		} else {
			dst = append(dst, Dash)
		}
	}
	return dst
}

// Path returns the signals of index in transmission (root-to-leaf) order.
func (t *CodeTable) Path(index int) string {
	sig := Trace(make([]Symbol, 0, t.depth), index)
	out := make([]byte, len(sig))
	for i, s := range sig {
		out[len(sig)-1-i] = byte(s)
	}
	return string(out)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
