// Package source defines the location type that flows from the external
// parser through compilation and into the runtime for diagnostics.
package source

import "fmt"

// BufferRef identifies a source buffer (typically a compiled module's
// source file) by name. It is interned by the caller; the zero value means
// "unknown origin", used for synthetic nodes generated by the compiler
// itself (e.g. the enum case helper methods emitted in-place by struct/enum
// lowering).
type BufferRef struct {
	// Name is the path or descriptive name of the buffer, e.g. "main.aria".
	Name string
}

// Pointer is an immutable byte-range location within a buffer:
// (buffer_ref, start_byte, end_byte). Every AST node, IR entry, and
// bytecode location carries one.
type Pointer struct {
	Buffer     BufferRef
	StartByte  uint32
	EndByte    uint32
}

// Unknown is the pointer used for synthetic code with no true source
// origin (e.g. compiler-generated enum helper methods).
var Unknown = Pointer{}

// IsUnknown reports whether p carries no real source location.
func (p Pointer) IsUnknown() bool {
	return p.Buffer.Name == "" && p.StartByte == 0 && p.EndByte == 0
}

func (p Pointer) String() string {
	if p.IsUnknown() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d-%d", p.Buffer.Name, p.StartByte, p.EndByte)
}

// Span returns a Pointer covering both p and other, assuming both share a
// buffer. Used when merging sub-expression pointers into a containing
// node's pointer during lowering.
func Span(p, other Pointer) Pointer {
	start, end := p.StartByte, p.EndByte
	if other.StartByte < start {
		start = other.StartByte
	}
	if other.EndByte > end {
		end = other.EndByte
	}
	buf := p.Buffer
	if buf.Name == "" {
		buf = other.Buffer
	}
	return Pointer{Buffer: buf, StartByte: start, EndByte: end}
}
