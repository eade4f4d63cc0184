package faults

import (
	"errors"
	"fmt"
)

// Validation errors. These are raised before any remote call is made and are
// always recoverable by the user.
var (
	ErrEmptyIdentifier    = errors.New("identifier is empty")
	ErrIdentifierTooShort = errors.New("identifier too short")
	ErrIdentifierTooLong  = errors.New("identifier too long")
	ErrInvalidCharacters  = errors.New("identifier contains invalid characters")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrFileTooLarge       = errors.New("file too large")
	ErrQuotaExceeded      = errors.New("batch quota exceeded")
	ErrNoActiveBatch      = errors.New("no active batch")
	ErrBatchAlreadyActive = errors.New("a batch is already active")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Kind classifies a failure of the upload pipeline. Remote kinds are assigned
// at the storage boundary so the core never inspects provider error strings.
type Kind int

const (
	KindValidation Kind = iota
	KindQuotaExceeded
	KindRemoteTransient
	KindRemoteQuota
	KindRemoteAccessDenied
	KindLocalIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRemoteTransient:
		return "remote_transient"
	case KindRemoteQuota:
		return "remote_quota"
	case KindRemoteAccessDenied:
		return "remote_access_denied"
	case KindLocalIO:
		return "local_io"
	default:
		return "unknown"
	}
}

// Failure is a classified error. Op names the operation that failed
// ("create_folder", "upload_bytes", "stage_payload", ...).
type Failure struct {
	Kind Kind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func New(kind Kind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err. Unclassified errors default to
// KindRemoteTransient: a retry is the safest suggestion for anything the
// storage boundary failed to tag.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindRemoteTransient
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
