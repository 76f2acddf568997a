// internal/app/features/feeds/handler.go
package feeds

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/collegehub/internal/app/features/shared/listing"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Store is what feeds need from the document store.
type Store interface {
	aggregator.Store
	aggregator.Creator
}

type feed struct {
	def Definition
	agg *aggregator.Aggregator
}

// Handler serves the ERP link, library link, calendar, report and
// timetable feeds.
type Handler struct {
	Store Store
	Media *media.Resolver
	Log   *zap.Logger
	feeds map[string]feed
}

// NewHandler builds one aggregator per feed. base supplies concurrency and
// timeout settings.
func NewHandler(store Store, base aggregator.Config, defs []Definition, resolver *media.Resolver, logger *zap.Logger) (*Handler, error) {
	h := &Handler{Store: store, Media: resolver, Log: logger, feeds: make(map[string]feed, len(defs))}
	for _, d := range defs {
		cfg := base
		cfg.Roles = d.Roles
		cfg.Subcollection = d.Subcollection
		cfg.SearchKeys = d.SearchKeys
		cfg.Filter = aggregator.FilterAll
		cfg.AllowPendingRemove = true
		agg, err := aggregator.New(store, cfg, logger.With(zap.String("feed", d.Name)))
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", d.Name, err)
		}
		h.feeds[d.Name] = feed{def: d, agg: agg}
	}
	return h, nil
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) (feed, bool) {
	name := chi.URLParam(r, "feed")
	f, ok := h.feeds[name]
	if !ok {
		respond.JSON(w, http.StatusNotFound, map[string]string{"error": "unknown feed " + name})
	}
	return f, ok
}

// List handles GET /feeds/{feed}?q=&refresh=1.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	listing.List(w, r, f.def.Name, f.agg, h.Media, h.Log)
}

// Refresh handles POST /feeds/{feed}/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	listing.Refresh(w, r, f.def.Name, f.agg, h.Media, h.Log)
}

type createRequest struct {
	Role   models.RoleType `json:"role"`
	Fields models.Fields   `json:"fields"`
}

// Create handles POST /feeds/{feed}. The item gets a fresh outer document
// under the requested role (the feed's first role by default).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	role := req.Role
	if role == "" {
		role = f.def.Roles[0]
	}
	if !f.def.HasRole(role) {
		respond.BadRequest(w, fmt.Sprintf("%s items cannot be stored under %s", f.def.Name, role))
		return
	}
	if err := f.def.Validate(req.Fields); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	fields := req.Fields.Clone()
	fields[models.FieldCreatedAt] = time.Now().UTC()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "create "+f.def.Name)
	defer cancel()
	outerID, innerID, err := h.Store.CreateWithChild(ctx, role.Collection(), f.def.Subcollection, fields)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	rec := models.RoleRecord{
		RecordID: outerID,
		AuthID:   innerID,
		RoleType: role,
		Status:   models.DeriveStatus(fields),
		Fields:   fields,
	}

	// The new item shows up in the cached list on its next refresh; do it now
	// so the creator sees it.
	if _, err := f.agg.Refresh(ctx); err != nil {
		h.Log.Warn("feed refresh after create failed", zap.String("feed", f.def.Name), zap.Error(err))
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"record": rec})
}

// Remove handles DELETE /feeds/{feed}/{role}/{recordID}/{itemID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	role, err := models.ParseRoleType(chi.URLParam(r, "role"))
	if err != nil || !f.def.HasRole(role) {
		respond.BadRequest(w, "role does not hold "+f.def.Name)
		return
	}
	rec := models.RoleRecord{
		RecordID: chi.URLParam(r, "recordID"),
		AuthID:   chi.URLParam(r, "itemID"),
		RoleType: role,
	}
	if cached, ok := listing.Find(f.agg, rec.Key()); ok {
		rec = cached
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "remove "+f.def.Name)
	defer cancel()
	if err := f.agg.Remove(ctx, rec); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Views returns each feed's aggregator keyed by feed name.
func (h *Handler) Views() map[string]*aggregator.Aggregator {
	out := make(map[string]*aggregator.Aggregator, len(h.feeds))
	for name, f := range h.feeds {
		out[name] = f.agg
	}
	return out
}
