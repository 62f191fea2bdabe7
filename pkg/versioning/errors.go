package versioning

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not initialized for version control")
	ErrBranchNotFound    = errors.New("branch does not exist")
	ErrVersionOutOfRange = errors.New("version out of range")
	ErrBranchExists      = errors.New("branch already exists")
	ErrNoChange          = errors.New("no changes to commit")
	ErrLocked            = errors.New("document is locked")
	ErrNotLocked         = errors.New("document is not locked")
	ErrNotLockHolder     = errors.New("document is locked by another user")
)

// Outcome folds store errors into a small discriminated result
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeAlreadyExists
	OutcomeNoChange
	OutcomeLocked
)

// OutcomeOf classifies an error returned by the store.
// A nil error is OutcomeOK.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrBranchNotFound),
		errors.Is(err, ErrVersionOutOfRange),
		errors.Is(err, ErrNotLocked):
		return OutcomeNotFound
	case errors.Is(err, ErrBranchExists):
		return OutcomeAlreadyExists
	case errors.Is(err, ErrNoChange):
		return OutcomeNoChange
	case errors.Is(err, ErrLocked), errors.Is(err, ErrNotLockHolder):
		return OutcomeLocked
	}
	return OutcomeNotFound
}

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeNoChange:
		return "no_change"
	case OutcomeLocked:
		return "locked"
	}
	return "unknown"
}
