// internal/domain/models/record.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RoleType partitions the top-level document hierarchy. Each role owns one
// top-level collection whose documents hold a nested subcollection with the
// real record.
type RoleType string

const (
	RoleStudent     RoleType = "Student"
	RoleTeacher     RoleType = "Teacher"
	RoleAdmin       RoleType = "Admin"
	RoleMasterAdmin RoleType = "Master Admin"
)

// AllRoles lists every role type in the order signup screens offer them.
var AllRoles = []RoleType{RoleStudent, RoleTeacher, RoleAdmin, RoleMasterAdmin}

// Collection returns the name of the role's top-level collection
// (Students, Teachers, Admins, Master Admins).
func (r RoleType) Collection() string {
	return string(r) + "s"
}

// Valid reports whether r is one of the known role types.
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleMasterAdmin:
		return true
	}
	return false
}

// ParseRoleType accepts the display name ("Master Admin"), the collection
// name ("Master Admins") or a URL slug ("master-admin", "masteradmins"),
// case-insensitively.
func ParseRoleType(s string) (RoleType, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
	k = strings.TrimSuffix(k, "s")
	switch k {
	case "student":
		return RoleStudent, nil
	case "teacher":
		return RoleTeacher, nil
	case "admin":
		return RoleAdmin, nil
	case "masteradmin":
		return RoleMasterAdmin, nil
	}
	return "", fmt.Errorf("unknown role type %q", s)
}

// Slug is the URL form of the role (student, teacher, admin, master-admin).
func (r RoleType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(r)), " ", "-")
}

// Status is the approval state derived from the isApproved/isRejected pair.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Keys read from and written to auth documents.
const (
	FieldName           = "name"
	FieldSchoolName     = "schoolName"
	FieldDepartment     = "department"
	FieldRegisterNumber = "registerNumber"
	FieldRollNumber     = "rollNumber"
	FieldPhoneNumber    = "phoneNumber"
	FieldEmail          = "email"
	FieldUID            = "uid"
	FieldImageURL       = "imageUrl"
	FieldUserType       = "userType"
	FieldIsApproved     = "isApproved"
	FieldIsRejected     = "isRejected"
	FieldCreatedAt      = "createdAt"
)

// Fields is the open, schema-less payload of a document. Consumers read by
// key and must tolerate absence; every accessor returns the zero value for a
// missing or mistyped key.
type Fields map[string]any

// String returns the value at key when it is a string, else "".
func (f Fields) String(key string) string {
	if f == nil {
		return ""
	}
	s, _ := f[key].(string)
	return s
}

// Bool returns the value at key when it is a bool, else false.
func (f Fields) Bool(key string) bool {
	if f == nil {
		return false
	}
	b, _ := f[key].(bool)
	return b
}

// Has reports whether key is present (even if nil).
func (f Fields) Has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f[key]
	return ok
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// DeriveStatus maps the two stored booleans onto a Status.
// isApproved wins; a rejected flag only counts when the record is not approved.
func DeriveStatus(f Fields) Status {
	switch {
	case f.Bool(FieldIsApproved):
		return StatusApproved
	case f.Bool(FieldIsRejected):
		return StatusRejected
	default:
		return StatusPending
	}
}

// RoleRecord is one flattened record: the inner document's fields plus the
// ids that locate it in the hierarchy.
type RoleRecord struct {
	RecordID string   `json:"recordId"` // outer document id
	AuthID   string   `json:"authId"`   // inner (subcollection) document id
	RoleType RoleType `json:"roleType"`
	Status   Status   `json:"status"`
	Fields   Fields   `json:"fields"`
}

// Key identifies the record across role partitions.
func (r RoleRecord) Key() string {
	return string(r.RoleType) + "/" + r.RecordID + "/" + r.AuthID
}

// Name is a convenience accessor for the record's display name.
func (r RoleRecord) Name() string { return r.Fields.String(FieldName) }

// RegisterNumber is a convenience accessor.
func (r RoleRecord) RegisterNumber() string { return r.Fields.String(FieldRegisterNumber) }

// Clone returns a copy whose Fields map can be modified independently.
func (r RoleRecord) Clone() RoleRecord {
	r.Fields = r.Fields.Clone()
	return r
}

// WithStatus returns a copy of r whose fields and Status reflect s.
// Approving always clears the rejected flag.
func (r RoleRecord) WithStatus(s Status) RoleRecord {
	r = r.Clone()
	if r.Fields == nil {
		r.Fields = Fields{}
	}
	switch s {
	case StatusApproved:
		r.Fields[FieldIsApproved] = true
		r.Fields[FieldIsRejected] = false
	case StatusRejected:
		r.Fields[FieldIsApproved] = false
		r.Fields[FieldIsRejected] = true
	default:
		r.Fields[FieldIsApproved] = false
		r.Fields[FieldIsRejected] = false
	}
	r.Status = s
	return r
}

// MarshalJSON writes the role as its display name.
func (r RoleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts any form ParseRoleType understands.
func (r *RoleType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	rt, err := ParseRoleType(s)
	if err != nil {
		return err
	}
	*r = rt
	return nil
}
