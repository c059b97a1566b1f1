package model

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStore defines persistence operations for accounts.
type AccountStore interface {
	GetByCI(ctx context.Context, ci string) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, update AccountUpdate, guard AccountGuard) error
	List(ctx context.Context, filter AccountFilter) ([]Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Account represents a bank-account opening request.
//
// The pair (FirstApprove, SecondApprove) together with PictureID encodes the
// position in the approval workflow; use State to interpret them. The JSON
// field names are a stable contract consumed by external tooling.
type Account struct {
	ID              uuid.UUID `json:"id"`
	Names           string    `json:"names"`
	Lastnames       string    `json:"lastnames"`
	CI              string    `json:"ci"`
	FingerprintCode string    `json:"fingerprintCode"`
	Email           string    `json:"email"`
	Sex             string    `json:"sex"`
	Age             int       `json:"age"`
	Reason          string    `json:"reason"`
	PictureID       string    `json:"pictureId,omitempty"`
	FirstApprove    bool      `json:"firstApprove"`
	SecondApprove   bool      `json:"secondApprove"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AccountState is the logical workflow state derived from the stored flags.
type AccountState string

const (
	// StateRequested means the account has been submitted and awaits first approval.
	StateRequested AccountState = "requested"
	// StatePhotoPending means the first approval passed and the identity picture is awaited.
	StatePhotoPending AccountState = "photo_pending"
	// StatePhotoUploaded means the identity picture is stored and awaits review.
	StatePhotoUploaded AccountState = "photo_uploaded"
	// StateFullyApproved is terminal; the account is open.
	StateFullyApproved AccountState = "fully_approved"
	// StateInvalid marks a flag combination that must never be stored.
	StateInvalid AccountState = "invalid"
)

// State derives the logical workflow state. SecondApprove without
// FirstApprove is not a reachable combination and reports StateInvalid.
func (a Account) State() AccountState {
	switch {
	case a.FirstApprove && a.SecondApprove:
		return StateFullyApproved
	case a.FirstApprove && a.PictureID != "":
		return StatePhotoUploaded
	case a.FirstApprove:
		return StatePhotoPending
	case a.SecondApprove:
		return StateInvalid
	default:
		return StateRequested
	}
}

// Open reports whether the account has not yet been fully approved.
func (a Account) Open() bool {
	return !(a.FirstApprove && a.SecondApprove)
}

// AccountDraft contains the applicant-supplied fields of a submission.
type AccountDraft struct {
	Names           string `json:"names"`
	Lastnames       string `json:"lastnames"`
	CI              string `json:"ci"`
	FingerprintCode string `json:"fingerprintCode"`
	Email           string `json:"email"`
	Sex             string `json:"sex"`
	Age             int    `json:"age"`
	Reason          string `json:"reason"`
}

// Validate checks the draft shape before it reaches the workflow.
// All returned errors carry the ErrInvalid kind.
func (d AccountDraft) Validate() error {
	if strings.TrimSpace(d.Names) == "" {
		return NewInvalidError("names are required")
	}
	if strings.TrimSpace(d.Lastnames) == "" {
		return NewInvalidError("lastnames are required")
	}
	if strings.TrimSpace(d.CI) == "" {
		return NewInvalidError("identity number is required")
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return NewInvalidError("a valid email address is required")
	}
	if d.Age < 18 || d.Age > 130 {
		return NewInvalidError("age must be between 18 and 130")
	}
	return nil
}

// AccountUpdate is a field-level partial update; nil fields are left untouched.
type AccountUpdate struct {
	FirstApprove  *bool
	SecondApprove *bool
	PictureID     *string
}

// AccountGuard constrains an update to rows still in the expected state so
// that a concurrent transition makes the update affect zero rows instead of
// clobbering it.
type AccountGuard struct {
	FirstApprove  *bool
	SecondApprove *bool
	PictureAbsent bool
}

// AccountFilter selects accounts for listing queries; nil fields match any value.
type AccountFilter struct {
	FirstApprove  *bool
	SecondApprove *bool
	HasPicture    *bool
}
