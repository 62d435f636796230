package scheduler

import "errors"

// Validation and capacity errors. None of them leave a partial mutation behind.
var (
	ErrEmptyName        = errors.New("schedule name cannot be empty")
	ErrDuplicateName    = errors.New("a schedule with this name already exists")
	ErrInvalidTime      = errors.New("time must be HH:MM between 00:00 and 23:59")
	ErrInvalidDuration  = errors.New("duration must be greater than 0")
	ErrInvalidRepeat    = errors.New("repeat count must be 0 or greater and interval greater than 0")
	ErrInvalidRelay     = errors.New("relay must be between 1 and 8")
	ErrTooManyEvents    = errors.New("maximum number of events reached")
	ErrTooManySchedules = errors.New("maximum number of schedules reached")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// Session mode errors.
var (
	ErrNotEditing     = errors.New("no create or edit session is open")
	ErrReadOnly       = errors.New("schedule is read-only outside a create or edit session")
	ErrAlreadyEditing = errors.New("a create or edit session is already open")
	ErrSaveInFlight   = errors.New("a save is already in progress")
	ErrNoDraft        = errors.New("no pending draft")
	ErrDraftStale     = errors.New("draft refers to a schedule that no longer exists")
	ErrDraftPending   = errors.New("an unsaved draft from another session is pending; resume or discard it first")
)

// IsValidation reports whether err is a user input or capacity error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyName, ErrDuplicateName, ErrInvalidTime, ErrInvalidDuration, ErrInvalidRepeat,
		ErrInvalidRelay, ErrTooManyEvents, ErrTooManySchedules, ErrIndexOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsModeConflict reports whether err was caused by the session being in the wrong mode.
func IsModeConflict(err error) bool {
	for _, target := range []error{
		ErrNotEditing, ErrReadOnly, ErrAlreadyEditing, ErrSaveInFlight, ErrNoDraft, ErrDraftStale, ErrDraftPending,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
