package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/openbanco/account-server/internal/logger"
	"github.com/openbanco/account-server/internal/model"
	"github.com/openbanco/account-server/internal/notification"
	"github.com/openbanco/account-server/internal/pipeline"
)

// Approval orchestrates the account-opening workflow: it evaluates guards
// against the stored account, performs the transition and dispatches the
// matching notification. Every operation runs its repository work inside a
// session acquired for exactly that unit of work.
//
// Policy: uploading the identity picture does not finalize the approval;
// ApproveIdentity is a separate human action.
type Approval struct {
	sessions  model.SessionPool
	storage   model.Storage
	notifier  model.Notifier
	logger    *logger.Logger
	publicURL string
	timeout   time.Duration
}

// NewApproval creates the approval workflow service. timeout bounds every
// operation; zero disables the deadline.
func NewApproval(
	sessions model.SessionPool,
	storage model.Storage,
	notifier model.Notifier,
	logger *logger.Logger,
	publicURL string,
	timeout time.Duration,
) *Approval {
	return &Approval{
		sessions:  sessions,
		storage:   storage,
		notifier:  notifier,
		logger:    logger,
		publicURL: publicURL,
		timeout:   timeout,
	}
}

func (s *Approval) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

func (s *Approval) acquireAccounts(ctx context.Context) (model.AccountStore, pipeline.ReleaseFunc, error) {
	session, err := s.sessions.AcquireSession(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	return session.Accounts(), session.Release, nil
}

func getAccount(ctx context.Context, accounts model.AccountStore, id uuid.UUID) (model.Account, error) {
	account, err := accounts.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	if account.State() == model.StateInvalid {
		return model.Account{}, fmt.Errorf("%w: account %s", model.ErrInvalidState, id)
	}
	return account, nil
}

// Submit validates and persists a new account request. At most one open
// account may exist per identity number; the conflict reported depends on
// how far the existing account has progressed.
func (s *Approval) Submit(ctx context.Context, draft model.AccountDraft) (model.Account, error) {
	if err := draft.Validate(); err != nil {
		return model.Account{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	account, err := pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (model.Account, error) {
		existing, err := accounts.GetByCI(ctx, draft.CI)
		if err == nil {
			switch existing.State() {
			case model.StateFullyApproved:
				return model.Account{}, model.ErrCIApproved
			case model.StatePhotoPending, model.StatePhotoUploaded:
				return model.Account{}, model.ErrCIPending
			default:
				return model.Account{}, model.ErrCIExists
			}
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.Account{}, fmt.Errorf("failed to check for existing account: %w", err)
		}

		saved, err := accounts.Create(ctx, model.Account{
			ID:              uuid.New(),
			Names:           draft.Names,
			Lastnames:       draft.Lastnames,
			CI:              draft.CI,
			FingerprintCode: draft.FingerprintCode,
			Email:           draft.Email,
			Sex:             draft.Sex,
			Age:             draft.Age,
			Reason:          draft.Reason,
		})
		if err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.Account{}, err
			}
			return model.Account{}, fmt.Errorf("failed to create account: %w", err)
		}
		return saved, nil
	})
	if err != nil {
		return model.Account{}, err
	}

	// The submission notice is best-effort: the insert is already committed
	// and is not rolled back when mail delivery fails.
	if body, err := notification.RequestedEmail(draft); err != nil {
		s.logger.Error("failed to render submission notice", "account_id", account.ID, "error", err)
	} else if err := s.notifier.Send(ctx, draft.Email, notification.SubjectRequested, body, true); err != nil {
		s.logger.Error("failed to send submission notice", "account_id", account.ID, "error", err)
	}

	return account, nil
}

// Reject notifies the applicant and deletes the request. Rejection is only
// possible before an identity picture has been uploaded, and the record is
// kept when the notification cannot be delivered.
func (s *Approval) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (struct{}, error) {
		var done struct{}

		account, err := getAccount(ctx, accounts, id)
		if err != nil {
			return done, err
		}

		switch account.State() {
		case model.StateFullyApproved:
			return done, model.ErrAlreadyApproved
		case model.StatePhotoUploaded:
			return done, model.ErrPictureUnderReview
		}

		body, err := notification.RejectedEmail(reason)
		if err != nil {
			return done, err
		}
		// Notify before deleting: if the notice cannot be delivered the
		// request survives and the operator can retry.
		if err := s.notifier.Send(ctx, account.Email, notification.SubjectRejected, body, true); err != nil {
			return done, fmt.Errorf("failed to send rejection notice: %w", err)
		}

		if err := accounts.Delete(ctx, account.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return done, fmt.Errorf("failed to delete account: %w", err)
		}
		return done, nil
	})
	return err
}

// ApproveFirst marks the first approval phase as passed and asks the
// applicant for the identity picture.
func (s *Approval) ApproveFirst(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (struct{}, error) {
		var done struct{}

		account, err := getAccount(ctx, accounts, id)
		if err != nil {
			return done, err
		}
		if account.FirstApprove {
			return done, model.ErrFirstAlreadyApproved
		}

		approved, requested := true, false
		err = accounts.UpdateFields(ctx, id,
			model.AccountUpdate{FirstApprove: &approved},
			model.AccountGuard{FirstApprove: &requested},
		)
		if err != nil {
			// Zero rows means a concurrent operation already moved the
			// account out of the requested state.
			if errors.Is(err, model.ErrNotFound) {
				return done, model.ErrFirstAlreadyApproved
			}
			return done, fmt.Errorf("failed to update account: %w", err)
		}

		uploadURL := fmt.Sprintf("%s/upload-identity-document/%s", s.publicURL, account.ID)
		body, err := notification.FirstApproveEmail(uploadURL)
		if err != nil {
			return done, err
		}
		if err := s.notifier.Send(ctx, account.Email, notification.SubjectFirstApprove, body, true); err != nil {
			return done, fmt.Errorf("failed to send first-approval notice: %w", err)
		}
		return done, nil
	})
	return err
}

// PermitPictureUpload reports whether the account may receive an identity
// picture. Read-only; used to gate the upload page.
func (s *Approval) PermitPictureUpload(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (bool, error) {
		account, err := getAccount(ctx, accounts, id)
		if err != nil {
			return false, err
		}
		return account.FirstApprove && !account.SecondApprove && account.PictureID == "", nil
	})
}

// UploadPicture streams the identity picture into blob storage and attaches
// the blob reference to the account. The reference is write-once: it is set
// only after the upload completed, and the stored object is removed again if
// the reference cannot be persisted.
func (s *Approval) UploadPicture(ctx context.Context, id uuid.UUID, file io.Reader, filename, contentType string, size int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (struct{}, error) {
		var done struct{}

		account, err := getAccount(ctx, accounts, id)
		if err != nil {
			return done, err
		}
		if account.PictureID != "" {
			return done, model.ErrPictureAlreadyUploaded
		}
		if !account.FirstApprove {
			return done, model.ErrFirstApprovalPending
		}
		if account.SecondApprove {
			return done, model.ErrAlreadyApproved
		}

		key := uuid.New().String()
		meta := model.BlobMetadata{
			AccountID:    account.ID.String(),
			UploadDate:   time.Now().UTC().Format(time.RFC3339),
			ContentType:  contentType,
			Size:         size,
			OriginalName: filename,
		}

		if err := s.storage.Upload(ctx, key, file, size, meta); err != nil {
			return done, fmt.Errorf("failed to upload picture: %w", err)
		}

		stillFirst, notSecond := true, false
		err = accounts.UpdateFields(ctx, id,
			model.AccountUpdate{PictureID: &key},
			model.AccountGuard{FirstApprove: &stillFirst, SecondApprove: &notSecond, PictureAbsent: true},
		)
		if err != nil {
			if delErr := s.storage.Delete(ctx, key); delErr != nil {
				s.logger.Error("failed to delete orphaned picture", "key", key, "error", delErr)
			}
			if errors.Is(err, model.ErrNotFound) {
				return done, model.ErrPictureAlreadyUploaded
			}
			return done, fmt.Errorf("failed to attach picture to account: %w", err)
		}
		return done, nil
	})
	return err
}

// ApproveIdentity finalizes the approval and notifies the applicant.
func (s *Approval) ApproveIdentity(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) (struct{}, error) {
		var done struct{}

		account, err := getAccount(ctx, accounts, id)
		if err != nil {
			return done, err
		}
		if !account.FirstApprove {
			return done, model.ErrFirstApprovalPending
		}
		if account.SecondApprove {
			return done, model.ErrAlreadyApproved
		}

		approved, pending := true, false
		err = accounts.UpdateFields(ctx, id,
			model.AccountUpdate{SecondApprove: &approved},
			model.AccountGuard{FirstApprove: &approved, SecondApprove: &pending},
		)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return done, model.ErrAlreadyApproved
			}
			return done, fmt.Errorf("failed to update account: %w", err)
		}

		body, err := notification.ApprovedEmail()
		if err != nil {
			return done, err
		}
		if err := s.notifier.Send(ctx, account.Email, notification.SubjectApproved, body, true); err != nil {
			return done, fmt.Errorf("failed to send approval notice: %w", err)
		}
		return done, nil
	})
	return err
}

// Accounts lists every account request.
func (s *Approval) Accounts(ctx context.Context) ([]model.Account, error) {
	return s.list(ctx, model.AccountFilter{})
}

// NewAccounts lists requests that have not passed the first approval phase.
func (s *Approval) NewAccounts(ctx context.Context) ([]model.Account, error) {
	requested := false
	return s.list(ctx, model.AccountFilter{FirstApprove: &requested})
}

// AccountsPendingIdentity lists accounts whose identity picture is stored
// and awaits review. Accounts without a picture are not ready for the queue.
func (s *Approval) AccountsPendingIdentity(ctx context.Context) ([]model.Account, error) {
	first, second, withPicture := true, false, true
	return s.list(ctx, model.AccountFilter{
		FirstApprove:  &first,
		SecondApprove: &second,
		HasPicture:    &withPicture,
	})
}

func (s *Approval) list(ctx context.Context, filter model.AccountFilter) ([]model.Account, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return pipeline.Run(ctx, s.acquireAccounts, func(ctx context.Context, accounts model.AccountStore) ([]model.Account, error) {
		list, err := accounts.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		return list, nil
	})
}

// Picture streams a stored identity picture with its metadata. No deadline
// is applied: the stream stays readable after Picture returns.
func (s *Approval) Picture(ctx context.Context, ref string) (io.ReadCloser, model.BlobMetadata, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return nil, model.BlobMetadata{}, model.ErrPictureNotFound
	}
	return s.storage.Download(ctx, ref)
}
