// internal/app/system/aggregator/errors.go
package aggregator

import (
	"errors"
	"fmt"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
)

// ErrRecordNotFound is returned by Lookup when no record matches.
var ErrRecordNotFound = errors.New("record not found")

// FetchError aborts a whole refresh. RecordID is empty when listing the
// role collection itself failed.
type FetchError struct {
	Role     models.RoleType
	RecordID string
	Err      error
}

func (e *FetchError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("fetch %s: %v", e.Role.Collection(), e.Err)
	}
	return fmt.Sprintf("fetch %s/%s: %v", e.Role.Collection(), e.RecordID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Kind classifies a MutationError.
type Kind int

const (
	// KindTransient covers outages, timeouts and anything else the backend
	// may succeed at on a later attempt.
	KindTransient Kind = iota
	KindNotFound
	KindPermissionDenied
	// KindInvalidTransition means the record's current status does not
	// allow the requested change.
	KindInvalidTransition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindInvalidTransition:
		return "invalid transition"
	default:
		return "transient backend error"
	}
}

// MutationError is the only error type returned by Approve, Reject and Remove.
type MutationError struct {
	Kind     Kind
	Op       string
	Role     models.RoleType
	RecordID string
	AuthID   string
	Err      error
}

func (e *MutationError) Error() string {
	msg := fmt.Sprintf("%s %s/%s/%s: %s", e.Op, e.Role.Collection(), e.RecordID, e.AuthID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MutationError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may try the same mutation again.
func (e *MutationError) Retryable() bool { return e.Kind == KindTransient }

// IsKind reports whether err is a MutationError of kind k.
func IsKind(err error, k Kind) bool {
	var me *MutationError
	return errors.As(err, &me) && me.Kind == k
}

func mutationError(op string, rec models.RoleRecord, err error) *MutationError {
	kind := KindTransient
	switch {
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidPath):
		kind = KindNotFound
	case errors.Is(err, docstore.ErrPermissionDenied):
		kind = KindPermissionDenied
	}
	return &MutationError{
		Kind:     kind,
		Op:       op,
		Role:     rec.RoleType,
		RecordID: rec.RecordID,
		AuthID:   rec.AuthID,
		Err:      err,
	}
}

func invalidTransition(op string, rec models.RoleRecord, from models.Status) *MutationError {
	return &MutationError{
		Kind:     KindInvalidTransition,
		Op:       op,
		Role:     rec.RoleType,
		RecordID: rec.RecordID,
		AuthID:   rec.AuthID,
		Err:      fmt.Errorf("record is %s", from),
	}
}
