// internal/app/system/aggregator/filter.go
package aggregator

import (
	"fmt"
	"strings"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// StatusFilter selects which records a fetch returns.
type StatusFilter int

const (
	FilterAll StatusFilter = iota
	FilterPending
	FilterApproved
	FilterRejected
)

// DefaultSearchKeys are the fields matched by FilterByQuery when the caller
// names none.
var DefaultSearchKeys = []string{models.FieldName, models.FieldRegisterNumber}

func (f StatusFilter) String() string {
	switch f {
	case FilterPending:
		return "pending"
	case FilterApproved:
		return "approved"
	case FilterRejected:
		return "rejected"
	default:
		return "all"
	}
}

// ParseStatusFilter accepts the names produced by String.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "approved":
		return FilterApproved, nil
	case "rejected":
		return FilterRejected, nil
	}
	return FilterAll, fmt.Errorf("unknown status filter %q", s)
}

// Predicate is the store-side form of the filter. Absent booleans count as
// false, so never-reviewed legacy records are Pending.
func (f StatusFilter) Predicate() docstore.Predicate {
	switch f {
	case FilterPending:
		return docstore.Where(models.FieldIsApproved, docstore.Ne, true).
			And(models.FieldIsRejected, docstore.Ne, true)
	case FilterApproved:
		return docstore.Where(models.FieldIsApproved, docstore.Eq, true)
	case FilterRejected:
		return docstore.Where(models.FieldIsRejected, docstore.Eq, true).
			And(models.FieldIsApproved, docstore.Ne, true)
	default:
		return nil
	}
}

// Matches reports whether a record in status s belongs in the filtered view.
func (f StatusFilter) Matches(s models.Status) bool {
	switch f {
	case FilterPending:
		return s == models.StatusPending
	case FilterApproved:
		return s == models.StatusApproved
	case FilterRejected:
		return s == models.StatusRejected
	default:
		return true
	}
}

// FilterByQuery returns the records whose search keys contain query,
// ignoring case and diacritics. A blank query returns every record.
// Missing keys read as "". The input slice is never modified.
func FilterByQuery(records []models.RoleRecord, query string, keys ...string) []models.RoleRecord {
	if len(keys) == 0 {
		keys = DefaultSearchKeys
	}
	q := strings.TrimSpace(query)
	out := make([]models.RoleRecord, 0, len(records))
	if q == "" {
		return append(out, records...)
	}
	q = text.Fold(q)
	for _, r := range records {
		for _, k := range keys {
			if strings.Contains(text.Fold(r.Fields.String(k)), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
