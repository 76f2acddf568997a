// internal/app/features/shared/listing/listing.go

// Package listing serves the cached record lists shared by the approval and
// feed endpoints.
package listing

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
)

// Response is the body of every list endpoint.
type Response struct {
	View      string              `json:"view"`
	Query     string              `json:"query,omitempty"`
	Count     int                 `json:"count"`
	Records   []models.RoleRecord `json:"records"`
	FetchedAt *time.Time          `json:"fetchedAt,omitempty"`
	Stale     bool                `json:"stale,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// List serves GET for one view. The view is refreshed on first use or when
// ?refresh=1 is given; a failed refresh of an already loaded view still
// serves the previous records, marked stale. A present q parameter becomes
// the view's active query (empty resets it).
func List(w http.ResponseWriter, r *http.Request, name string, agg *aggregator.Aggregator, resolver *media.Resolver, log *zap.Logger) {
	loaded, _ := agg.Loaded()
	var refreshErr error
	if !loaded || wantsRefresh(r) {
		refreshErr = refresh(r, name, agg, log)
		if refreshErr != nil && !loaded {
			respond.Error(w, log, refreshErr)
			return
		}
	}

	var recs []models.RoleRecord
	if q := r.URL.Query(); q.Has("q") {
		recs = agg.Filter(q.Get("q"))
	} else {
		recs = agg.Records()
	}

	resp := build(r, name, agg, recs, resolver)
	if refreshErr != nil {
		log.Warn("serving stale records", zap.String("view", name), zap.Error(refreshErr))
		resp.Stale = true
		resp.Error = refreshErr.Error()
	}
	respond.JSON(w, http.StatusOK, resp)
}

// Refresh serves POST .../refresh: an explicit refresh whose failure is
// reported to the caller.
func Refresh(w http.ResponseWriter, r *http.Request, name string, agg *aggregator.Aggregator, resolver *media.Resolver, log *zap.Logger) {
	if err := refresh(r, name, agg, log); err != nil {
		respond.Error(w, log, err)
		return
	}
	respond.JSON(w, http.StatusOK, build(r, name, agg, agg.Records(), resolver))
}

// Find returns the cached copy of the record with key, if any.
func Find(agg *aggregator.Aggregator, key string) (models.RoleRecord, bool) {
	for _, rec := range agg.Original() {
		if rec.Key() == key {
			return rec, true
		}
	}
	return models.RoleRecord{}, false
}

func refresh(r *http.Request, name string, agg *aggregator.Aggregator, log *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), log, "refresh "+name)
	defer cancel()
	_, err := agg.Refresh(ctx)
	return err
}

func build(r *http.Request, name string, agg *aggregator.Aggregator, recs []models.RoleRecord, resolver *media.Resolver) Response {
	resp := Response{
		View:    name,
		Query:   agg.Query(),
		Count:   len(recs),
		Records: resolver.Resolve(r.Context(), recs),
	}
	if loaded, at := agg.Loaded(); loaded {
		resp.FetchedAt = &at
	}
	return resp
}

func wantsRefresh(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("refresh")) {
	case "1", "true", "yes":
		return true
	}
	return false
}
