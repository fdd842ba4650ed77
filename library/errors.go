package library

import "errors"

// Error kinds. Every error returned by the package matches exactly one of
// these through errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
)

// kindError carries a user facing reason while unwrapping to its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrBookNotFound   = newKindError(ErrNotFound, "book not found")
	ErrMemberNotFound = newKindError(ErrNotFound, "member not found")
	ErrLoanNotFound   = newKindError(ErrNotFound, "loan not found")

	ErrDuplicateISBN        = newKindError(ErrConflict, "a book with this ISBN already exists")
	ErrDuplicateEmail       = newKindError(ErrConflict, "a member with this email already exists")
	ErrNoAvailableCopies    = newKindError(ErrConflict, "no available copies")
	ErrAlreadyReturned      = newKindError(ErrConflict, "already returned")
	ErrBookHasActiveLoans   = newKindError(ErrConflict, "cannot delete: active loans exist for this book")
	ErrMemberHasActiveLoans = newKindError(ErrConflict, "cannot delete: member has active loans")
)

// validationError builds an ErrValidation with a field specific reason.
func validationError(msg string) error {
	return newKindError(ErrValidation, msg)
}

// storeErr tags an unexpected driver failure with the step that failed. It
// matches both ErrStore and the underlying driver error.
type storeErr struct {
	step string
	err  error
}

func (e *storeErr) Error() string   { return e.step + ": " + e.err.Error() }
func (e *storeErr) Unwrap() []error { return []error{ErrStore, e.err} }

func storeError(step string, err error) error {
	return &storeErr{step: step, err: err}
}
