package game

import "fmt"

// Kind classifies a rejected action.
type Kind uint8

const (
	// KindValidation covers malformed or out-of-turn actions.
	KindValidation Kind = iota
	// KindNotFound covers references to unknown entity ids.
	KindNotFound
	// KindConflict covers actions referencing state the client has not seen
	// yet (e.g. attacking a territory that was just conquered).
	KindConflict
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown_error"
}

// RuleError is the typed rejection returned by Apply. Rejected actions are
// never appended to the log; the error is surfaced only to the sender.
type RuleError struct {
	Kind Kind
	Msg  string
}

func (e *RuleError) Error() string { return e.Msg }

func validationErr(format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}
