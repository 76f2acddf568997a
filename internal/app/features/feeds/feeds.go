// internal/app/features/feeds/feeds.go
package feeds

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/domain/models"
)

// Definition describes one shared feed: where its items live and what a
// new item must carry.
type Definition struct {
	Name          string
	Roles         []models.RoleType
	Subcollection string
	SearchKeys    []string
	Required      []string
	URLKeys       []string // must hold absolute http(s) URLs
	Check         func(models.Fields) error
}

// Definitions lists every feed served under /feeds.
var Definitions = []Definition{
	{
		Name:          "erp-links",
		Roles:         []models.RoleType{models.RoleMasterAdmin},
		Subcollection: "erpLinks",
		SearchKeys:    []string{"name", "url"},
		Required:      []string{"name", "url"},
		URLKeys:       []string{"url"},
	},
	{
		Name:          "library-links",
		Roles:         []models.RoleType{models.RoleMasterAdmin},
		Subcollection: "libraryLinks",
		SearchKeys:    []string{"name", "url"},
		Required:      []string{"name", "url"},
		URLKeys:       []string{"url"},
	},
	{
		Name:          "events",
		Roles:         []models.RoleType{models.RoleMasterAdmin},
		Subcollection: "events",
		SearchKeys:    []string{"name", "description"},
		Required:      []string{"name", "date"},
	},
	{
		Name:          "reports",
		Roles:         []models.RoleType{models.RoleStudent, models.RoleTeacher},
		Subcollection: "reports",
		SearchKeys:    []string{"description", "reportType", "adminName"},
		Required:      []string{"description", "reportType"},
	},
	{
		Name:          "timetables",
		Roles:         []models.RoleType{models.RoleAdmin},
		Subcollection: "timetables",
		SearchKeys:    []string{"department", "semester"},
		Required:      []string{"department", "semester", "timetable"},
		Check:         checkTimetable,
	},
}

// Slot keys every timetable entry carries. start and end are optional.
var timetableSlotKeys = []string{"day", "slot", "subject", "teacher"}

// Validate checks a new item's fields. A required string must be non-blank;
// any other required value must be present and non-null.
func (d Definition) Validate(f models.Fields) error {
	for _, k := range d.Required {
		if !present(f, k) {
			return fmt.Errorf("%w: %s is required", respond.ErrBadRequest, k)
		}
	}
	for _, k := range d.URLKeys {
		u, err := url.Parse(f.String(k))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute http(s) URL", respond.ErrBadRequest, k)
		}
	}
	if d.Check != nil {
		return d.Check(f)
	}
	return nil
}

func present(f models.Fields, k string) bool {
	v, ok := f[k]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// checkTimetable requires a non-empty list of slot objects, each naming its
// day, slot, subject and teacher.
func checkTimetable(f models.Fields) error {
	entries, ok := f["timetable"].([]any)
	if !ok || len(entries) == 0 {
		return fmt.Errorf("%w: timetable must be a non-empty list", respond.ErrBadRequest)
	}
	for i, e := range entries {
		slot, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: timetable[%d] must be an object", respond.ErrBadRequest, i)
		}
		for _, k := range timetableSlotKeys {
			if !present(slot, k) {
				return fmt.Errorf("%w: timetable[%d].%s is required", respond.ErrBadRequest, i, k)
			}
		}
	}
	return nil
}

// HasRole reports whether items of the feed may live under role.
func (d Definition) HasRole(role models.RoleType) bool {
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}
