// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/notify"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
)

// Store is what signup needs from the document store.
type Store interface {
	aggregator.Reader
	aggregator.Creator
}

// Handler creates new role records after the external auth provider has
// issued the person's uid.
type Handler struct {
	Store  Store
	Notify notify.Publisher
	Log    *zap.Logger
}

func NewHandler(store Store, pub notify.Publisher, logger *zap.Logger) *Handler {
	if pub == nil {
		pub = notify.Nop{}
	}
	return &Handler{Store: store, Notify: pub, Log: logger}
}

type request struct {
	Role   models.RoleType `json:"role"`
	Fields models.Fields   `json:"fields"`
}

// Serve handles POST /signup.
//
//	{ "role": "Student", "fields": { "name": "...", "email": "...", "uid": "...", ... } }
//
// Responds 201 with the created record, 409 when the uid is already
// registered under that role.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !req.Role.Valid() {
		respond.BadRequest(w, "role is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "signup")
	defer cancel()

	// The lookup answers the common case; the store's uid constraint settles
	// concurrent signups that both pass it.
	uid := req.Fields.String(models.FieldUID)
	if _, err := aggregator.Lookup(ctx, h.Store, req.Role, uid); err == nil {
		alreadyRegistered(w)
		return
	} else if !errors.Is(err, aggregator.ErrRecordNotFound) {
		respond.Error(w, h.Log, err)
		return
	}

	rec, err := aggregator.Register(ctx, h.Store, req.Role, req.Fields)
	if errors.Is(err, docstore.ErrDuplicate) {
		h.Log.Info("signup lost uid race", zap.String("role", string(req.Role)))
		alreadyRegistered(w)
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.Log.Info("signup created",
		zap.String("role", string(rec.RoleType)),
		zap.String("record_id", rec.RecordID),
		zap.String("status", string(rec.Status)))
	if err := h.Notify.Publish(context.WithoutCancel(ctx), notify.NewEvent(notify.ActionRegistered, rec)); err != nil {
		h.Log.Warn("signup event not published", zap.String("record_id", rec.RecordID), zap.Error(err))
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"record": rec})
}

func alreadyRegistered(w http.ResponseWriter) {
	respond.JSON(w, http.StatusConflict, map[string]string{"error": "uid already registered"})
}
