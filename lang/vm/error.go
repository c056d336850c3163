package vm

import (
	"fmt"

	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/source"
)

// Reason identifies why the interpreter aborted, mirroring VmErrorReason
// one-for-one so error messages and tests can match on a stable kind
// instead of string-sniffing.
type Reason int

const (
	ReasonAssertFailed Reason = iota
	ReasonCircularImport
	ReasonDivisionByZero
	ReasonEnumWithoutPayload
	ReasonEmptyStack
	ReasonIndexOutOfBounds
	ReasonImportNotAvailable
	ReasonIncompleteInstruction
	ReasonInvalidBinding
	ReasonInvalidControlInstruction
	ReasonMismatchedArgumentCount
	ReasonNoSuchIdentifier
	ReasonNoSuchCase
	ReasonOperationFailed
	ReasonUnexpectedType
	ReasonUnexpectedVmState
	ReasonUplevelOutOfBounds
	ReasonUnknownOpcode
	ReasonVmHalted
)

// Error is the uniform error value raised by the interpreter, carrying
// enough context to pretty-print a source-anchored diagnostic, matching
// VmError{reason, opcode, loc}.
type Error struct {
	Reason  Reason
	Detail  string
	Opcode  isa.Opcode
	HasOp   bool
	Loc     source.Pointer
	Wrapped error
}

func newError(reason Reason, loc source.Pointer, detail string, args ...interface{}) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(detail, args...), Loc: loc}
}

func (e *Error) withOpcode(op isa.Opcode) *Error {
	e.Opcode = op
	e.HasOp = true
	return e
}

func (e *Error) Error() string {
	if !e.Loc.IsUnknown() {
		return fmt.Sprintf("%s: %s", e.Loc.String(), e.Detail)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Wrapped }

func unknownLoc() source.Pointer { return source.Unknown }
