package feeds_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dalemusser/collegehub/internal/app/features/feeds"
	"github.com/dalemusser/collegehub/internal/app/features/shared/listing"
	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/dalemusser/collegehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fixture struct {
	fx     *testutil.Fixtures
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := testutil.NewFixtures(t)
	fx.CreateNested(models.RoleMasterAdmin, "erpLinks", "E", "e1", models.Fields{"name": "Fees Portal", "url": "https://erp.example.edu/fees"})
	fx.CreateNested(models.RoleMasterAdmin, "libraryLinks", "L", "l1", models.Fields{"name": "Digital Library", "url": "https://lib.example.edu"})
	fx.CreateNested(models.RoleStudent, "reports", "R", "r1", models.Fields{"description": "Broken projector", "reportType": "Facility"})
	fx.CreateNested(models.RoleTeacher, "reports", "S", "s1", models.Fields{"description": "Late submission", "reportType": "Academic", "adminName": "Dana"})

	h, err := feeds.NewHandler(fx.Store(), aggregator.Config{}, feeds.Definitions, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return &fixture{fx: fx, router: feeds.Routes(h)}
}

func (f *fixture) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) list(t *testing.T, target string) listing.Response {
	t.Helper()
	rec := f.serve(testutil.NewRequest(http.MethodGet, target))
	rec.AssertStatus(t, http.StatusOK)
	var resp listing.Response
	rec.DecodeJSON(t, &resp)
	return resp
}

func TestList_Feeds(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		target string
		count  int
	}{
		{"/erp-links", 1},
		{"/library-links", 1},
		{"/events", 0},
		{"/reports", 2},
		{"/reports?q=DANA", 1},
		{"/erp-links?q=fees", 1},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if resp := f.list(t, tt.target); resp.Count != tt.count {
				t.Errorf("count = %d, want %d (%+v)", resp.Count, tt.count, resp)
			}
		})
	}

	f.serve(testutil.NewRequest(http.MethodGet, "/news")).AssertStatus(t, http.StatusNotFound)
}

func TestList_EventsIgnoreOtherSubcollections(t *testing.T) {
	f := newFixture(t)
	f.fx.CreateNested(models.RoleMasterAdmin, "events", "V", "v1", models.Fields{"name": "Convocation", "date": "2026-11-02"})

	resp := f.list(t, "/events")
	if resp.Count != 1 || resp.Records[0].Name() != "Convocation" {
		t.Errorf("events = %+v", resp)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.list(t, "/library-links")

	body := map[string]any{"fields": map[string]any{"name": "Journals", "url": "http://journals.example.edu"}}
	rec := f.serve(testutil.NewJSONRequest(t, http.MethodPost, "/library-links", body))
	rec.AssertStatus(t, http.StatusCreated)

	var created struct {
		Record models.RoleRecord `json:"record"`
	}
	rec.DecodeJSON(t, &created)
	if created.Record.RoleType != models.RoleMasterAdmin || created.Record.Name() != "Journals" {
		t.Errorf("created = %+v", created.Record)
	}
	stored, ok := f.fx.Store().Get(docstore.Path("Master Admins", created.Record.RecordID, "libraryLinks"), created.Record.AuthID)
	if !ok || stored["url"] != "http://journals.example.edu" {
		t.Errorf("stored = %v, %v", stored, ok)
	}
	if _, ok := stored[models.FieldCreatedAt]; !ok {
		t.Error("expected createdAt to be set")
	}

	// The cached list already includes the new link.
	if resp := f.list(t, "/library-links"); resp.Count != 2 {
		t.Errorf("library links = %d, want 2", resp.Count)
	}
}

func TestCreate_ReportUnderTeacher(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"role": "teacher", "fields": map[string]any{"description": "Lab access", "reportType": "Facility"}}
	rec := f.serve(testutil.NewJSONRequest(t, http.MethodPost, "/reports", body))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"roleType":"Teacher"`)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		body   any
		status int
	}{
		{"missing name", "/erp-links", map[string]any{"fields": map[string]any{"url": "https://x.example"}}, http.StatusBadRequest},
		{"relative url", "/erp-links", map[string]any{"fields": map[string]any{"name": "X", "url": "/fees"}}, http.StatusBadRequest},
		{"ftp url", "/library-links", map[string]any{"fields": map[string]any{"name": "X", "url": "ftp://x.example"}}, http.StatusBadRequest},
		{"event without date", "/events", map[string]any{"fields": map[string]any{"name": "Fest"}}, http.StatusBadRequest},
		{"report under admin", "/reports", map[string]any{"role": "admin", "fields": map[string]any{"description": "d", "reportType": "t"}}, http.StatusBadRequest},
		{"unknown role", "/reports", map[string]any{"role": "janitor", "fields": map[string]any{}}, http.StatusBadRequest},
		{"unknown feed", "/news", map[string]any{"fields": map[string]any{"name": "X"}}, http.StatusNotFound},
		{"event ok", "/events", map[string]any{"fields": map[string]any{"name": "Fest", "date": "2026-12-01"}}, http.StatusCreated},
		{"timetable without slots", "/timetables", map[string]any{"fields": map[string]any{"department": "CSE", "semester": "3"}}, http.StatusBadRequest},
		{"timetable empty slots", "/timetables", map[string]any{"fields": map[string]any{"department": "CSE", "semester": "3", "timetable": []any{}}}, http.StatusBadRequest},
		{"timetable slot missing subject", "/timetables", map[string]any{"fields": map[string]any{
			"department": "CSE", "semester": "3",
			"timetable": []any{map[string]any{"day": "Day 1", "slot": "1", "teacher": "Ravi"}},
		}}, http.StatusBadRequest},
		{"timetable under student", "/timetables", map[string]any{"role": "student", "fields": timetableFields()}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.serve(testutil.NewJSONRequest(t, http.MethodPost, tt.target, tt.body)).AssertStatus(t, tt.status)
		})
	}
}

func timetableFields() map[string]any {
	return map[string]any{
		"department": "CSE",
		"semester":   "5",
		"timetable": []any{
			map[string]any{"day": "Day 1", "slot": "1", "subject": "Compilers", "teacher": "Ravi", "start": "09:00", "end": "09:50"},
			map[string]any{"day": "Day 2", "slot": "3", "subject": "Networks", "teacher": "Meera", "start": "11:00", "end": "11:50"},
		},
	}
}

func TestTimetables(t *testing.T) {
	f := newFixture(t)
	f.fx.CreateNested(models.RoleAdmin, "timetables", "T", "t1", models.Fields{
		"department": "ECE",
		"semester":   "3",
		"timetable":  []any{map[string]any{"day": "Day 1", "slot": "2", "subject": "Signals", "teacher": "Anu"}},
	})

	rec := f.serve(testutil.NewJSONRequest(t, http.MethodPost, "/timetables", map[string]any{"fields": timetableFields()}))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"roleType":"Admin"`)

	var created struct {
		Record models.RoleRecord `json:"record"`
	}
	rec.DecodeJSON(t, &created)
	stored, ok := f.fx.Store().Get(docstore.Path("Admins", created.Record.RecordID, "timetables"), created.Record.AuthID)
	if !ok {
		t.Fatal("timetable not stored")
	}
	if slots, _ := stored["timetable"].([]any); len(slots) != 2 {
		t.Errorf("stored slots = %v", stored["timetable"])
	}

	if resp := f.list(t, "/timetables?q="); resp.Count != 2 {
		t.Errorf("timetables = %d, want 2", resp.Count)
	}
	// Department and semester are searchable.
	if resp := f.list(t, "/timetables?q=cse"); resp.Count != 1 || resp.Records[0].Fields.String("semester") != "5" {
		t.Errorf("filtered timetables = %+v", resp)
	}
	// Timetables live beside auth documents; the reports feed never sees them.
	if resp := f.list(t, "/reports"); resp.Count != 2 {
		t.Errorf("reports = %d, want 2", resp.Count)
	}

	target := "/timetables/admin/" + created.Record.RecordID + "/" + created.Record.AuthID
	f.serve(testutil.NewRequest(http.MethodDelete, target)).AssertStatus(t, http.StatusNoContent)
	if resp := f.list(t, "/timetables?q="); resp.Count != 1 {
		t.Errorf("timetables after remove = %d, want 1", resp.Count)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	f.list(t, "/erp-links")

	f.serve(testutil.NewRequest(http.MethodDelete, "/erp-links/master-admin/E/e1")).AssertStatus(t, http.StatusNoContent)
	if resp := f.list(t, "/erp-links"); resp.Count != 0 {
		t.Errorf("erp links = %d after remove", resp.Count)
	}
	if _, ok := f.fx.Store().Get("Master Admins", "E"); ok {
		t.Error("outer document still stored")
	}

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"already removed", "/erp-links/master-admin/E/e1", http.StatusNotFound},
		{"role not in feed", "/erp-links/student/R/r1", http.StatusBadRequest},
		{"bad role", "/reports/janitor/R/r1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.serve(testutil.NewRequest(http.MethodDelete, tt.target)).AssertStatus(t, tt.status)
		})
	}
}

func TestDefinition_Validate(t *testing.T) {
	var erp feeds.Definition
	for _, d := range feeds.Definitions {
		if d.Name == "erp-links" {
			erp = d
		}
	}
	if err := erp.Validate(models.Fields{"name": "A", "url": "https://a.example/x"}); err != nil {
		t.Errorf("valid link rejected: %v", err)
	}
	if err := erp.Validate(models.Fields{"name": " ", "url": "https://a.example"}); err == nil {
		t.Error("blank name accepted")
	}
	if !erp.HasRole(models.RoleMasterAdmin) || erp.HasRole(models.RoleStudent) {
		t.Error("unexpected role membership")
	}

	required := feeds.Definition{Required: []string{"timetable"}}
	tests := []struct {
		name string
		val  any
		ok   bool
	}{
		{"list", []any{1}, true},
		{"number", 3, true},
		{"null", nil, false},
		{"blank string", "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := required.Validate(models.Fields{"timetable": tt.val})
			if (err == nil) != tt.ok {
				t.Errorf("Validate(%v) = %v, want ok=%v", tt.val, err, tt.ok)
			}
		})
	}
}

func TestNewHandler_FeedWithoutRoles(t *testing.T) {
	defs := []feeds.Definition{{Name: "orphan", Subcollection: "orphans"}}
	if _, err := feeds.NewHandler(docstore.NewMemStore(), aggregator.Config{}, defs, nil, zap.NewNop()); !errors.Is(err, aggregator.ErrNoRoles) {
		t.Errorf("NewHandler: got %v, want ErrNoRoles", err)
	}
}
