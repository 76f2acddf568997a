package notices_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/collegehub/internal/app/features/notices"
	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type listResponse struct {
	Notices []notices.Notice `json:"notices"`
	Count   int              `json:"count"`
}

type noticeResponse struct {
	Notice notices.Notice `json:"notice"`
}

func newRouter(t *testing.T) (*docstore.MemStore, chi.Router) {
	t.Helper()
	store := docstore.NewMemStore()
	for id, f := range map[string]map[string]any{
		"n1": {"text": "Exam schedule posted", "recipient": "Student"},
		"n2": {"text": "Faculty meeting at 4", "recipient": "Teacher"},
	} {
		if err := store.Put(notices.Collection, id, f); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	return store, notices.Routes(notices.NewHandler(store, zap.NewNop()))
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func list(t *testing.T, r chi.Router, target string) listResponse {
	t.Helper()
	rec := serve(r, testutil.NewRequest(http.MethodGet, target))
	rec.AssertStatus(t, http.StatusOK)
	var resp listResponse
	rec.DecodeJSON(t, &resp)
	return resp
}

func TestList_ByRecipient(t *testing.T) {
	_, r := newRouter(t)

	tests := []struct {
		target string
		count  int
		text   string
	}{
		{"/", 2, ""},
		{"/?recipient=Teacher", 1, "Faculty meeting at 4"},
		{"/?recipient=student", 1, "Exam schedule posted"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp := list(t, r, tt.target)
			if resp.Count != tt.count || len(resp.Notices) != tt.count {
				t.Fatalf("response = %+v", resp)
			}
			if tt.text != "" && resp.Notices[0].Text != tt.text {
				t.Errorf("text = %q, want %q", resp.Notices[0].Text, tt.text)
			}
		})
	}

	serve(r, testutil.NewRequest(http.MethodGet, "/?recipient=Admin")).AssertStatus(t, http.StatusBadRequest)
}

func TestCreate(t *testing.T) {
	store, r := newRouter(t)

	rec := serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"text": "Holiday on Friday", "recipient": "teacher"}))
	rec.AssertStatus(t, http.StatusCreated)
	var created noticeResponse
	rec.DecodeJSON(t, &created)
	if created.Notice.ID == "" || created.Notice.Recipient != "Teacher" || created.Notice.CreatedAt == nil {
		t.Errorf("created = %+v", created.Notice)
	}
	stored, ok := store.Get(notices.Collection, created.Notice.ID)
	if !ok || stored["text"] != "Holiday on Friday" || stored["recipient"] != "Teacher" {
		t.Errorf("stored = %v, %v", stored, ok)
	}
	if resp := list(t, r, "/?recipient=Teacher"); resp.Count != 2 {
		t.Errorf("teacher notices = %d, want 2", resp.Count)
	}

	tests := []struct {
		name string
		body any
	}{
		{"missing text", map[string]any{"recipient": "Student"}},
		{"blank text", map[string]any{"text": "  ", "recipient": "Student"}},
		{"missing recipient", map[string]any{"text": "x"}},
		{"admin recipient", map[string]any{"text": "x", "recipient": "Admin"}},
		{"not an object", []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/", tt.body)).AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestUpdate(t *testing.T) {
	store, r := newRouter(t)

	rec := serve(r, testutil.NewJSONRequest(t, http.MethodPatch, "/n1", map[string]any{"recipient": "Teacher"}))
	rec.AssertStatus(t, http.StatusOK)
	var updated noticeResponse
	rec.DecodeJSON(t, &updated)
	if updated.Notice.Text != "Exam schedule posted" || updated.Notice.Recipient != "Teacher" {
		t.Errorf("updated = %+v", updated.Notice)
	}
	if resp := list(t, r, "/?recipient=Student"); resp.Count != 0 {
		t.Errorf("student notices = %d after readdressing, want 0", resp.Count)
	}

	serve(r, testutil.NewJSONRequest(t, http.MethodPatch, "/n2", map[string]any{"text": "Meeting moved to 5"})).AssertStatus(t, http.StatusOK)
	if stored, _ := store.Get(notices.Collection, "n2"); stored["text"] != "Meeting moved to 5" {
		t.Errorf("stored text = %v", stored["text"])
	}

	tests := []struct {
		name   string
		target string
		body   any
		status int
	}{
		{"empty patch", "/n1", map[string]any{}, http.StatusBadRequest},
		{"bad recipient", "/n1", map[string]any{"recipient": "Parent"}, http.StatusBadRequest},
		{"missing notice", "/nope", map[string]any{"text": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(r, testutil.NewJSONRequest(t, http.MethodPatch, tt.target, tt.body)).AssertStatus(t, tt.status)
		})
	}
}

func TestDelete(t *testing.T) {
	store, r := newRouter(t)

	serve(r, testutil.NewRequest(http.MethodDelete, "/n1")).AssertStatus(t, http.StatusNoContent)
	if _, ok := store.Get(notices.Collection, "n1"); ok {
		t.Error("notice still stored")
	}
	if resp := list(t, r, "/"); resp.Count != 1 {
		t.Errorf("notices = %d after delete, want 1", resp.Count)
	}
	serve(r, testutil.NewRequest(http.MethodDelete, "/n1")).AssertStatus(t, http.StatusNotFound)
}
