// internal/app/features/approvals/handler.go
package approvals

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/collegehub/internal/app/features/shared/listing"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/notify"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the pending, approved and rejected review lists.
type Handler struct {
	Views  map[string]*aggregator.Aggregator // keyed by StatusFilter.String()
	Media  *media.Resolver
	Notify notify.Publisher
	Log    *zap.Logger
}

// NewHandler builds one aggregator per review view over the given roles.
func NewHandler(store aggregator.Store, cfg aggregator.Config, resolver *media.Resolver, pub notify.Publisher, logger *zap.Logger) (*Handler, error) {
	views := make(map[string]*aggregator.Aggregator, 3)
	for _, f := range []aggregator.StatusFilter{aggregator.FilterPending, aggregator.FilterApproved, aggregator.FilterRejected} {
		c := cfg
		c.Filter = f
		c.AllowPendingRemove = false
		agg, err := aggregator.New(store, c, logger.With(zap.String("view", f.String())))
		if err != nil {
			return nil, fmt.Errorf("approvals %s view: %w", f, err)
		}
		views[f.String()] = agg
	}
	if pub == nil {
		pub = notify.Nop{}
	}
	return &Handler{Views: views, Media: resolver, Notify: pub, Log: logger}, nil
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) (string, *aggregator.Aggregator, bool) {
	name := chi.URLParam(r, "view")
	agg, ok := h.Views[name]
	if !ok {
		respond.JSON(w, http.StatusNotFound, map[string]string{"error": "unknown view " + name})
		return "", nil, false
	}
	return name, agg, true
}

// List handles GET /approvals/{view}?q=&refresh=1.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	name, agg, ok := h.view(w, r)
	if !ok {
		return
	}
	listing.List(w, r, name, agg, h.Media, h.Log)
}

// Refresh handles POST /approvals/{view}/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	name, agg, ok := h.view(w, r)
	if !ok {
		return
	}
	listing.Refresh(w, r, name, agg, h.Media, h.Log)
}

// Approve handles POST /approvals/{view}/{role}/{recordID}/{authID}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, notify.ActionApproved, (*aggregator.Aggregator).Approve)
}

// Reject handles POST /approvals/{view}/{role}/{recordID}/{authID}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, notify.ActionRejected, (*aggregator.Aggregator).Reject)
}

type decision func(*aggregator.Aggregator, context.Context, models.RoleRecord) (aggregator.Decision, error)

// decide applies fn and answers with the stored record. An event goes out
// only when the call changed the record.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action string, fn decision) {
	_, agg, ok := h.view(w, r)
	if !ok {
		return
	}
	rec, ok := h.record(w, r, agg)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, action)
	defer cancel()
	dec, err := fn(agg, ctx, rec)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if dec.Changed {
		h.publish(r, action, dec.Record)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"record": dec.Record, "changed": dec.Changed})
}

// Remove handles DELETE /approvals/{view}/{role}/{recordID}/{authID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	_, agg, ok := h.view(w, r)
	if !ok {
		return
	}
	rec, ok := h.record(w, r, agg)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "remove")
	defer cancel()
	if err := agg.Remove(ctx, rec); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.publish(r, notify.ActionRemoved, rec)
	w.WriteHeader(http.StatusNoContent)
}

// record resolves the addressed record from the URL. The cached copy is used
// when the view holds one so the event can carry its fields; the aggregator
// reads the stored status either way.
func (h *Handler) record(w http.ResponseWriter, r *http.Request, agg *aggregator.Aggregator) (models.RoleRecord, bool) {
	role, err := models.ParseRoleType(chi.URLParam(r, "role"))
	if err != nil {
		respond.BadRequest(w, err.Error())
		return models.RoleRecord{}, false
	}
	rec := models.RoleRecord{
		RecordID: chi.URLParam(r, "recordID"),
		AuthID:   chi.URLParam(r, "authID"),
		RoleType: role,
	}
	if rec.RecordID == "" || rec.AuthID == "" {
		respond.BadRequest(w, "record and auth ids are required")
		return models.RoleRecord{}, false
	}
	if cached, ok := listing.Find(agg, rec.Key()); ok {
		return cached, true
	}
	return rec, true
}

// publish reports a decision. The decision is already stored, so a
// publishing failure is only logged.
func (h *Handler) publish(r *http.Request, action string, rec models.RoleRecord) {
	if err := h.Notify.Publish(r.Context(), notify.NewEvent(action, rec)); err != nil {
		h.Log.Warn("decision event not published",
			zap.String("action", action),
			zap.String("record_id", rec.RecordID),
			zap.Error(err))
	}
}
