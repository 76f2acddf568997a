// internal/app/system/aggregator/aggregator.go

// Package aggregator flattens records spread across role collections and
// their nested sub collections into one cached list per view, filters that
// list locally and applies approval decisions back to the store.
//
// An Aggregator holds only a transient cache. The store stays authoritative
// and every Refresh rebuilds the cache from it.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds one shared refresh.
const DefaultFetchTimeout = 30 * time.Second

// ErrNoRoles is returned by New when a view scans no role collections.
var ErrNoRoles = errors.New("aggregator: config names no roles")

// Store is the document store contract the aggregator consumes.
type Store interface {
	Reader
	GetDocument(ctx context.Context, collectionPath, id string) (docstore.Document, error)
	SetFields(ctx context.Context, collectionPath, id string, fields map[string]any) error
	DeleteDocument(ctx context.Context, collectionPath, id string) error
}

// Config describes one view.
type Config struct {
	Roles              []models.RoleType // scanned in this order; must be non-empty
	Subcollection      string            // defaults to "auth"
	Filter             StatusFilter
	SearchKeys         []string // defaults to DefaultSearchKeys
	Concurrency        int      // defaults to DefaultConcurrency
	FetchTimeout       time.Duration
	AllowPendingRemove bool // feeds carry no approval fields
}

// override is a confirmed mutation that a fetch started earlier must not undo.
type override struct {
	epoch   uint64
	rec     models.RoleRecord
	removed bool
}

// Aggregator caches one view. It is safe for concurrent use.
type Aggregator struct {
	store Store
	cfg   Config
	log   *zap.Logger
	group singleflight.Group

	mu        sync.RWMutex
	original  []models.RoleRecord
	records   []models.RoleRecord
	query     string
	loaded    bool
	fetchedAt time.Time
	epoch     uint64
	overrides map[string]override
}

// Decision is the outcome of Approve or Reject. Record carries the stored
// state after the call; Changed is false when the record already had the
// requested status and nothing was written.
type Decision struct {
	Record  models.RoleRecord
	Changed bool
}

// New creates an aggregator. Zero config fields take their defaults; Roles
// has none and must be non-empty.
func New(store Store, cfg Config, logger *zap.Logger) (*Aggregator, error) {
	if len(cfg.Roles) == 0 {
		return nil, ErrNoRoles
	}
	if cfg.Subcollection == "" {
		cfg.Subcollection = "auth"
	}
	if len(cfg.SearchKeys) == 0 {
		cfg.SearchKeys = DefaultSearchKeys
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Roles = append([]models.RoleType(nil), cfg.Roles...)
	return &Aggregator{
		store:     store,
		cfg:       cfg,
		log:       logger,
		overrides: make(map[string]override),
	}, nil
}

// Config returns the aggregator's effective configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Refresh rebuilds the cache from the store and returns the displayed
// records with the active query re-applied.
//
// Concurrent calls share one traversal. The traversal runs on a context
// detached from ctx, so a caller that gives up gets ctx.Err() while the
// refresh still completes for everyone else. On failure the previous cache
// is kept and the *FetchError is returned.
func (a *Aggregator) Refresh(ctx context.Context) ([]models.RoleRecord, error) {
	ch := a.group.DoChan("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.FetchTimeout)
		defer cancel()
		return a.refresh(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRecords(res.Val.([]models.RoleRecord)), nil
	}
}

func (a *Aggregator) refresh(ctx context.Context) ([]models.RoleRecord, error) {
	a.mu.RLock()
	start := a.epoch
	a.mu.RUnlock()

	began := time.Now()
	recs, err := fetchAll(ctx, a.store, a.cfg.Roles, a.cfg.Subcollection, a.cfg.Filter.Predicate(), a.cfg.Concurrency)
	if err != nil {
		a.log.Warn("refresh failed",
			zap.String("filter", a.cfg.Filter.String()),
			zap.String("subcollection", a.cfg.Subcollection),
			zap.Error(err))
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	applied := 0
	for key, ov := range a.overrides {
		if ov.epoch > start {
			recs = a.apply(recs, ov)
			applied++
			continue
		}
		// The fetch began after this mutation was confirmed, so the store
		// data already reflects it.
		delete(a.overrides, key)
	}

	a.original = recs
	a.records = FilterByQuery(recs, a.query, a.cfg.SearchKeys...)
	a.loaded = true
	a.fetchedAt = time.Now()

	a.log.Debug("refresh complete",
		zap.String("filter", a.cfg.Filter.String()),
		zap.String("subcollection", a.cfg.Subcollection),
		zap.Int("records", len(recs)),
		zap.Int("overrides_applied", applied),
		zap.Duration("took", time.Since(began)))
	return a.records, nil
}

// Records returns a copy of the displayed records.
func (a *Aggregator) Records() []models.RoleRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneRecords(a.records)
}

// Original returns a copy of the unfiltered baseline.
func (a *Aggregator) Original() []models.RoleRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneRecords(a.original)
}

// Loaded reports whether at least one refresh has succeeded, and when the
// latest one did.
func (a *Aggregator) Loaded() (bool, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded, a.fetchedAt
}

// Query returns the active search query.
func (a *Aggregator) Query() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.query
}

// Filter sets the active search query and returns the new displayed
// records. A blank query restores the full baseline.
func (a *Aggregator) Filter(query string) []models.RoleRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query = query
	a.records = FilterByQuery(a.original, query, a.cfg.SearchKeys...)
	return cloneRecords(a.records)
}

// Approve marks the record approved and clears any rejection.
func (a *Aggregator) Approve(ctx context.Context, rec models.RoleRecord) (Decision, error) {
	return a.decide(ctx, "approve", rec, models.StatusApproved)
}

// Reject marks the record rejected. Approved records cannot be rejected.
func (a *Aggregator) Reject(ctx context.Context, rec models.RoleRecord) (Decision, error) {
	return a.decide(ctx, "reject", rec, models.StatusRejected)
}

func (a *Aggregator) decide(ctx context.Context, op string, rec models.RoleRecord, target models.Status) (Decision, error) {
	stored, err := a.load(ctx, rec)
	if err != nil {
		return Decision{}, a.failed(op, rec, err)
	}
	current := stored.Status
	if current == target {
		return Decision{Record: stored}, nil
	}
	if target == models.StatusRejected && current == models.StatusApproved {
		return Decision{}, invalidTransition(op, rec, current)
	}

	updated := stored.WithStatus(target)
	err = a.store.SetFields(ctx, a.authPath(rec), rec.AuthID, map[string]any{
		models.FieldIsApproved: updated.Fields[models.FieldIsApproved],
		models.FieldIsRejected: updated.Fields[models.FieldIsRejected],
	})
	if err != nil {
		return Decision{}, a.failed(op, rec, err)
	}

	a.commit(updated, false)
	a.log.Info("record status changed",
		zap.String("op", op),
		zap.String("role", string(rec.RoleType)),
		zap.String("record_id", rec.RecordID),
		zap.String("auth_id", rec.AuthID),
		zap.String("from", string(current)),
		zap.String("to", string(target)))
	return Decision{Record: updated, Changed: true}, nil
}

// Remove deletes the record's outer document. The store removes everything
// nested under it. Pending records must be decided first unless the view
// allows pending removal.
func (a *Aggregator) Remove(ctx context.Context, rec models.RoleRecord) error {
	if !a.cfg.AllowPendingRemove {
		stored, err := a.load(ctx, rec)
		if err != nil {
			return a.failed("remove", rec, err)
		}
		if stored.Status == models.StatusPending {
			return invalidTransition("remove", rec, stored.Status)
		}
	}
	if err := a.store.DeleteDocument(ctx, rec.RoleType.Collection(), rec.RecordID); err != nil {
		return a.failed("remove", rec, err)
	}

	a.commit(rec, true)
	a.log.Info("record removed",
		zap.String("role", string(rec.RoleType)),
		zap.String("record_id", rec.RecordID),
		zap.String("auth_id", rec.AuthID))
	return nil
}

func (a *Aggregator) failed(op string, rec models.RoleRecord, err error) error {
	me := mutationError(op, rec, err)
	a.log.Warn("mutation failed",
		zap.String("op", op),
		zap.String("role", string(rec.RoleType)),
		zap.String("record_id", rec.RecordID),
		zap.String("auth_id", rec.AuthID),
		zap.Stringer("kind", me.Kind),
		zap.Error(err))
	return me
}

// load reads the record's inner document and derives its status from the
// stored flags. Whatever status the caller's copy claims is ignored.
func (a *Aggregator) load(ctx context.Context, rec models.RoleRecord) (models.RoleRecord, error) {
	doc, err := a.store.GetDocument(ctx, a.authPath(rec), rec.AuthID)
	if err != nil {
		return models.RoleRecord{}, err
	}
	stored := models.RoleRecord{
		RecordID: rec.RecordID,
		AuthID:   rec.AuthID,
		RoleType: rec.RoleType,
		Fields:   models.Fields(doc.Fields),
	}
	stored.Status = models.DeriveStatus(stored.Fields)
	return stored, nil
}

func (a *Aggregator) authPath(rec models.RoleRecord) string {
	return docstore.Path(rec.RoleType.Collection(), rec.RecordID, a.cfg.Subcollection)
}

// commit records a confirmed mutation and applies it to the cache.
func (a *Aggregator) commit(rec models.RoleRecord, removed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	ov := override{epoch: a.epoch, rec: rec.Clone(), removed: removed}
	a.overrides[rec.Key()] = ov
	a.original = a.apply(a.original, ov)
	a.records = a.apply(a.records, ov)
}

// apply drops the overridden record when it was removed or no longer fits
// the view, and otherwise replaces it in place. A new slice is returned so
// copies handed out earlier stay untouched.
func (a *Aggregator) apply(list []models.RoleRecord, ov override) []models.RoleRecord {
	key := ov.rec.Key()
	keep := !ov.removed && a.cfg.Filter.Matches(ov.rec.Status)
	out := make([]models.RoleRecord, 0, len(list))
	for _, r := range list {
		if r.Key() != key {
			out = append(out, r)
			continue
		}
		if keep {
			out = append(out, ov.rec)
		}
	}
	return out
}

func cloneRecords(in []models.RoleRecord) []models.RoleRecord {
	out := make([]models.RoleRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
