// internal/app/system/aggregator/register.go
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
)

// AuthSubcollection holds each person's profile and approval flags.
const AuthSubcollection = "auth"

// ErrMissingField is returned by Register when a required field is blank.
var ErrMissingField = errors.New("missing required field")

// RequiredSignupFields must be non-blank strings on every new record.
var RequiredSignupFields = []string{models.FieldName, models.FieldEmail, models.FieldUID}

// Creator creates an outer document together with its first child.
type Creator interface {
	CreateWithChild(ctx context.Context, collectionPath, sub string, fields map[string]any) (outerID, innerID string, err error)
}

// Register creates a signup: an outer document in the role's collection and
// its auth document. Master Admins start approved, everyone else pending.
func Register(ctx context.Context, c Creator, role models.RoleType, fields models.Fields) (models.RoleRecord, error) {
	if !role.Valid() {
		return models.RoleRecord{}, fmt.Errorf("register: unknown role %q", role)
	}
	for _, k := range RequiredSignupFields {
		if strings.TrimSpace(fields.String(k)) == "" {
			return models.RoleRecord{}, fmt.Errorf("register: %w: %s", ErrMissingField, k)
		}
	}

	f := fields.Clone()
	if f == nil {
		f = models.Fields{}
	}
	delete(f, models.FieldIsApproved)
	delete(f, models.FieldIsRejected)
	rec := models.RoleRecord{RoleType: role, Fields: f}
	if role == models.RoleMasterAdmin {
		rec = rec.WithStatus(models.StatusApproved)
	} else {
		rec = rec.WithStatus(models.StatusPending)
	}
	rec.Fields[models.FieldUserType] = string(role)
	rec.Fields[models.FieldCreatedAt] = time.Now().UTC()

	outerID, innerID, err := c.CreateWithChild(ctx, role.Collection(), AuthSubcollection, rec.Fields)
	if err != nil {
		return models.RoleRecord{}, fmt.Errorf("register %s: %w", role.Collection(), err)
	}
	rec.RecordID = outerID
	rec.AuthID = innerID
	return rec, nil
}

// Lookup walks one role collection and returns the first auth document whose
// uid matches. It returns ErrRecordNotFound when none does.
func Lookup(ctx context.Context, store Reader, role models.RoleType, uid string) (models.RoleRecord, error) {
	if strings.TrimSpace(uid) == "" {
		return models.RoleRecord{}, ErrRecordNotFound
	}
	pred := docstore.Where(models.FieldUID, docstore.Eq, uid)
	recs, err := fetchRole(ctx, store, role, AuthSubcollection, pred, DefaultConcurrency)
	if err != nil {
		return models.RoleRecord{}, err
	}
	if len(recs) == 0 {
		return models.RoleRecord{}, ErrRecordNotFound
	}
	return recs[0], nil
}
