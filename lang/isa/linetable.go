package isa

import (
	"sort"

	"github.com/mna/aria/lang/source"
)

// lineEntry pairs a bytecode byte offset with the source pointer of the IR
// entry that produced the instruction starting at that offset.
type lineEntry struct {
	offset uint32
	loc    source.Pointer
}

// LineTable maps bytecode byte offsets to source locations, built during
// block linearization. Entries are sorted by offset; lookup is the entry
// with the greatest offset <= the queried pc (an instruction inherits its
// predecessor's location if it did not itself carry a source pointer,
// e.g. a compiler-synthesized Pop).
type LineTable struct {
	entries []lineEntry
}

// NewLineTableBuilder returns an empty, growable LineTable.
func NewLineTableBuilder() *LineTable { return &LineTable{} }

// Add records that the instruction at byteOffset originates from loc. Must
// be called with non-decreasing byteOffset (linearization walks the
// program in address order).
func (lt *LineTable) Add(byteOffset uint32, loc source.Pointer) {
	if loc.IsUnknown() {
		return
	}
	if n := len(lt.entries); n > 0 && lt.entries[n-1].offset == byteOffset {
		lt.entries[n-1].loc = loc
		return
	}
	lt.entries = append(lt.entries, lineEntry{offset: byteOffset, loc: loc})
}

// Lookup returns the source pointer covering byteOffset, or the unknown
// pointer if the table is empty or byteOffset precedes the first entry.
func (lt *LineTable) Lookup(byteOffset uint32) source.Pointer {
	if len(lt.entries) == 0 {
		return source.Unknown
	}
	i := sort.Search(len(lt.entries), func(i int) bool {
		return lt.entries[i].offset > byteOffset
	})
	if i == 0 {
		return source.Unknown
	}
	return lt.entries[i-1].loc
}

// Len reports the number of distinct (offset, loc) entries, for tests.
func (lt *LineTable) Len() int { return len(lt.entries) }
