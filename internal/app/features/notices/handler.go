// internal/app/features/notices/handler.go
package notices

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Collection is the flat top-level collection holding admin notices.
const Collection = "Adminnotices"

const (
	fieldText      = "text"
	fieldRecipient = "recipient"
)

// Store is what notices need from the document store.
type Store interface {
	QueryDocuments(ctx context.Context, collectionPath string, pred docstore.Predicate) ([]docstore.Document, error)
	GetDocument(ctx context.Context, collectionPath, id string) (docstore.Document, error)
	CreateDocument(ctx context.Context, collectionPath string, fields map[string]any) (string, error)
	SetFields(ctx context.Context, collectionPath, id string, fields map[string]any) error
	DeleteDocument(ctx context.Context, collectionPath, id string) error
}

// Notice is one admin notice addressed to all students or all teachers.
type Notice struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Recipient models.RoleType `json:"recipient"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

func noticeFrom(doc docstore.Document) Notice {
	f := models.Fields(doc.Fields)
	n := Notice{ID: doc.ID, Text: f.String(fieldText), Recipient: models.RoleType(f.String(fieldRecipient))}
	if t, ok := f[models.FieldCreatedAt].(time.Time); ok {
		n.CreatedAt = &t
	}
	return n
}

// Handler serves admin notices. Notices are read straight from the store;
// there is no cached view to keep in step.
type Handler struct {
	Store Store
	Log   *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// parseRecipient accepts the two audiences a notice can address.
func parseRecipient(s string) (models.RoleType, error) {
	role, err := models.ParseRoleType(s)
	if err != nil || (role != models.RoleStudent && role != models.RoleTeacher) {
		return "", fmt.Errorf("%w: recipient must be Student or Teacher", respond.ErrBadRequest)
	}
	return role, nil
}

// List handles GET /notices?recipient=. Without a recipient every notice is
// returned, which is the admin's view.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var pred docstore.Predicate
	if s := r.URL.Query().Get("recipient"); s != "" {
		role, err := parseRecipient(s)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		pred = docstore.Where(fieldRecipient, docstore.Eq, string(role))
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "list notices")
	defer cancel()
	docs, err := h.Store.QueryDocuments(ctx, Collection, pred)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	out := make([]Notice, 0, len(docs))
	for _, d := range docs {
		out = append(out, noticeFrom(d))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"notices": out, "count": len(out)})
}

type noticeRequest struct {
	Text      *string `json:"text"`
	Recipient *string `json:"recipient"`
}

// fields validates the request. On create both keys are required; on update
// at least one must be given.
func (req noticeRequest) fields(create bool) (map[string]any, error) {
	out := map[string]any{}
	if req.Text != nil {
		if strings.TrimSpace(*req.Text) == "" {
			return nil, fmt.Errorf("%w: text must not be blank", respond.ErrBadRequest)
		}
		out[fieldText] = *req.Text
	} else if create {
		return nil, fmt.Errorf("%w: text is required", respond.ErrBadRequest)
	}
	if req.Recipient != nil {
		role, err := parseRecipient(*req.Recipient)
		if err != nil {
			return nil, err
		}
		out[fieldRecipient] = string(role)
	} else if create {
		return nil, fmt.Errorf("%w: recipient is required", respond.ErrBadRequest)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", respond.ErrBadRequest)
	}
	return out, nil
}

// Create handles POST /notices {text, recipient}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req noticeRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	fields, err := req.fields(true)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	fields[models.FieldCreatedAt] = time.Now().UTC()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "create notice")
	defer cancel()
	id, err := h.Store.CreateDocument(ctx, Collection, fields)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("notice created", zap.String("id", id), zap.Any("recipient", fields[fieldRecipient]))
	respond.JSON(w, http.StatusCreated, map[string]any{"notice": noticeFrom(docstore.Document{ID: id, Fields: fields})})
}

// Update handles PATCH /notices/{id} {text?, recipient?}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req noticeRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	fields, err := req.fields(false)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "update notice")
	defer cancel()
	if err := h.Store.SetFields(ctx, Collection, id, fields); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	doc, err := h.Store.GetDocument(ctx, Collection, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("notice updated", zap.String("id", id))
	respond.JSON(w, http.StatusOK, map[string]any{"notice": noticeFrom(doc)})
}

// Delete handles DELETE /notices/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "delete notice")
	defer cancel()
	if err := h.Store.DeleteDocument(ctx, Collection, id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("notice deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
