// Package ast defines the types to represent the abstract syntax tree (AST)
// of aria source. Unlike a textual-round-trip AST, nodes here exist purely
// to be lowered to bytecode: they are typically constructed directly by a
// front end (or, in this tree, by the compiler's own tests) rather than
// produced by a lexer/parser pass, so no comment-association or
// whitespace-preservation bookkeeping is kept.
//
// Every node carries a source.Pointer span rather than a pair of
// go/token.Pos values, since source.Pointer already represents a
// start/end byte range as a single value.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/aria/lang/source"
)

// Node represents any node in the AST.
type Node interface {
	// Every Node implements the fmt.Formatter interface so they can print a
	// description of themselves. The only supported verbs are 'v' and 's'.
	// The '#' flag can be used to print count information about children
	// nodes. A width can be set to define the number of runes to print for
	// the node description - by default, that width is padded with spaces
	// on the left if the description is shorter, otherwise it is truncated
	// to that width. The '-' flag can be used to pad with spaces on the
	// right instead, and the '+' flag can be used to prevent padding
	// altogether - it only truncates if longer.
	fmt.Formatter

	// Span reports the node's source range.
	Span() source.Pointer

	// Walk enters each node inside itself to implement the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node

	// BlockEnding returns true if the statement unconditionally transfers
	// control out of its enclosing block (return, throw, break, continue).
	BlockEnding() bool
}

// Module is the root node of one compiled source unit: its name (used as
// the import path key) and the top-level statements that make up its
// module-entry code object (§4.5's "module entry" synthetic code object).
type Module struct {
	Name  string
	Block *Block
	Loc   source.Pointer
}

func (n *Module) Format(f fmt.State, verb rune) { format(f, verb, n, "module "+n.Name, nil) }
func (n *Module) Span() source.Pointer          { return n.Loc }
func (n *Module) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// Block represents a sequence of statements delimited by a pair of braces
// in source (or, for a Module, the implicit top-level sequence).
type Block struct {
	Stmts []Stmt
	Loc   source.Pointer
}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() source.Pointer { return n.Loc }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	// replace tabs and newlines with the corresponding unicode key
	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")
	label = strings.ReplaceAll(label, "\v", "⭿")

	if w, ok := f.Width(); ok {
		minus, plus := f.Flag('-'), f.Flag('+')
		runes := []rune(label)
		if len(runes) >= w {
			runes = runes[:w]
		} else if minus {
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		} else if !plus {
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}
