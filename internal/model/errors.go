package model

import "errors"

// Error kinds. Concrete workflow errors wrap exactly one of these so the
// boundary layer can match on the kind while keeping the specific message.
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
)

// WorkflowError carries a human-readable reason together with its kind.
// The reason is rendered verbatim in boundary responses.
type WorkflowError struct {
	Kind    error
	Message string
}

func (e *WorkflowError) Error() string { return e.Message }

func (e *WorkflowError) Unwrap() error { return e.Kind }

// NewConflictError creates a conflict-kind workflow error.
func NewConflictError(msg string) error {
	return &WorkflowError{Kind: ErrConflict, Message: msg}
}

// NewNotFoundError creates a not-found-kind workflow error.
func NewNotFoundError(msg string) error {
	return &WorkflowError{Kind: ErrNotFound, Message: msg}
}

// NewInvalidError creates an invalid-kind workflow error.
func NewInvalidError(msg string) error {
	return &WorkflowError{Kind: ErrInvalid, Message: msg}
}

// Guard violations of the approval workflow. Every guard has its own value so
// callers and tests can match the exact violation with errors.Is.
var (
	// Submit duplicate-identity conflicts, one per state of the existing account.
	ErrCIApproved = NewConflictError("an account with this identity number already exists and has been fully approved")
	ErrCIPending  = NewConflictError("an account with this identity number is already in the approval phase")
	ErrCIExists   = NewConflictError("an account with this identity number already exists")

	ErrAlreadyApproved        = NewConflictError("the account has already been fully approved")
	ErrFirstAlreadyApproved   = NewConflictError("the account has already passed the first approval phase")
	ErrFirstApprovalPending   = NewConflictError("the account has not yet passed the first approval phase")
	ErrPictureAlreadyUploaded = NewConflictError("an identity picture has already been uploaded for this account")
	ErrPictureUnderReview     = NewConflictError("the identity picture is under review and the account can no longer be rejected")

	ErrAccountNotFound = NewNotFoundError("no account exists with that id")
	ErrPictureNotFound = NewNotFoundError("no picture exists with that id")

	// ErrInvalidState reports the (firstApprove=false, secondApprove=true)
	// combination, which no transition can produce.
	ErrInvalidState = errors.New("account flags are in an impossible state")
)
