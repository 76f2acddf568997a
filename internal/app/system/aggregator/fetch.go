// internal/app/system/aggregator/fetch.go
package aggregator

import (
	"context"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent subcollection queries per role type.
const DefaultConcurrency = 8

// Reader is the read half of the store contract.
type Reader interface {
	ListDocuments(ctx context.Context, collectionPath string) ([]string, error)
	QueryDocuments(ctx context.Context, collectionPath string, pred docstore.Predicate) ([]docstore.Document, error)
}

// Fetch walks every role collection in order and returns the flattened
// records of each outer document's sub collection that satisfy filter.
// Any failure aborts the walk and returns a *FetchError with no records.
func Fetch(ctx context.Context, store Reader, roles []models.RoleType, sub string, filter StatusFilter) ([]models.RoleRecord, error) {
	return fetchAll(ctx, store, roles, sub, filter.Predicate(), DefaultConcurrency)
}

func fetchAll(ctx context.Context, store Reader, roles []models.RoleType, sub string, pred docstore.Predicate, limit int) ([]models.RoleRecord, error) {
	if limit < 1 {
		limit = 1
	}
	out := []models.RoleRecord{}
	for _, role := range roles {
		recs, err := fetchRole(ctx, store, role, sub, pred, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// fetchRole queries every outer document of one role concurrently. Each
// query writes into its own slot so the result keeps listing order.
func fetchRole(ctx context.Context, store Reader, role models.RoleType, sub string, pred docstore.Predicate, limit int) ([]models.RoleRecord, error) {
	ids, err := store.ListDocuments(ctx, role.Collection())
	if err != nil {
		return nil, &FetchError{Role: role, Err: err}
	}

	slots := make([][]models.RoleRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			docs, err := store.QueryDocuments(gctx, docstore.Path(role.Collection(), id, sub), pred)
			if err != nil {
				return &FetchError{Role: role, RecordID: id, Err: err}
			}
			recs := make([]models.RoleRecord, 0, len(docs))
			for _, d := range docs {
				f := models.Fields(d.Fields)
				recs = append(recs, models.RoleRecord{
					RecordID: id,
					AuthID:   d.ID,
					RoleType: role,
					Status:   models.DeriveStatus(f),
					Fields:   f,
				})
			}
			slots[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.RoleRecord
	for _, s := range slots {
		out = append(out, s...)
	}
	return out, nil
}
