package testutil

import (
	"testing"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
)

// Fixtures builds role hierarchies in an in-memory store with readable ids.
type Fixtures struct {
	store *docstore.MemStore
	t     *testing.T
}

// NewFixtures creates Fixtures over a fresh MemStore.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	return &Fixtures{store: docstore.NewMemStore(), t: t}
}

// Store returns the underlying store.
func (f *Fixtures) Store() *docstore.MemStore {
	return f.store
}

// CreateRecord creates an outer document recordID in the role's collection
// with one auth document authID holding fields.
func (f *Fixtures) CreateRecord(role models.RoleType, recordID, authID string, fields models.Fields) models.RoleRecord {
	f.t.Helper()
	return f.CreateNested(role, "auth", recordID, authID, fields)
}

// CreateNested is CreateRecord for an arbitrary subcollection.
func (f *Fixtures) CreateNested(role models.RoleType, sub, recordID, childID string, fields models.Fields) models.RoleRecord {
	f.t.Helper()
	if err := f.store.Put(role.Collection(), recordID, nil); err != nil {
		f.t.Fatalf("failed to create outer document: %v", err)
	}
	if err := f.store.Put(docstore.Path(role.Collection(), recordID, sub), childID, fields); err != nil {
		f.t.Fatalf("failed to create %s document: %v", sub, err)
	}
	return models.RoleRecord{
		RecordID: recordID,
		AuthID:   childID,
		RoleType: role,
		Status:   models.DeriveStatus(fields),
		Fields:   fields.Clone(),
	}
}

// CreatePending creates a never-reviewed record.
func (f *Fixtures) CreatePending(role models.RoleType, recordID, authID, name, registerNumber string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRecord(role, recordID, authID, models.Fields{
		models.FieldName:           name,
		models.FieldRegisterNumber: registerNumber,
		models.FieldIsApproved:     false,
		models.FieldIsRejected:     false,
	})
}

// CreateApproved creates an approved record.
func (f *Fixtures) CreateApproved(role models.RoleType, recordID, authID, name, registerNumber string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRecord(role, recordID, authID, models.Fields{
		models.FieldName:           name,
		models.FieldRegisterNumber: registerNumber,
		models.FieldIsApproved:     true,
		models.FieldIsRejected:     false,
	})
}

// CreateRejected creates a rejected record.
func (f *Fixtures) CreateRejected(role models.RoleType, recordID, authID, name, registerNumber string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRecord(role, recordID, authID, models.Fields{
		models.FieldName:           name,
		models.FieldRegisterNumber: registerNumber,
		models.FieldIsApproved:     false,
		models.FieldIsRejected:     true,
	})
}

// AuthFields returns the stored fields of a record's auth document.
func (f *Fixtures) AuthFields(rec models.RoleRecord) (models.Fields, bool) {
	f.t.Helper()
	m, ok := f.store.Get(docstore.Path(rec.RoleType.Collection(), rec.RecordID, "auth"), rec.AuthID)
	return models.Fields(m), ok
}
