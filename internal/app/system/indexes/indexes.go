// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Problems are aggregated so startup can fail fast with the full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	if err := ensureDocuments(ctx, db, logger); err != nil {
		problems = append(problems, docstore.CollectionName+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureDocuments covers the access paths of the document store: ordered
// listing of one collection, cascade deletes by ancestor, and the login
// gate's uid lookup. idx_documents_auth_uid also keeps a uid unique across
// the auth documents of one role collection, so concurrent signups with the
// same uid cannot both land.
func ensureDocuments(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection(docstore.CollectionName), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "created_at", Value: 1}, {Key: "doc_id", Value: 1}},
			Options: options.Index().SetName("idx_documents_collection_order"),
		},
		{
			Keys:    bson.D{{Key: "ancestors", Value: 1}},
			Options: options.Index().SetName("idx_documents_ancestors"),
		},
		{
			Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "fields.uid", Value: 1}},
			Options: options.Index().SetName("idx_documents_uid"),
		},
		{
			Keys: bson.D{{Key: "root", Value: 1}, {Key: "fields." + docstore.UniqueField, Value: 1}},
			Options: options.Index().
				SetName("idx_documents_auth_uid").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"kind":                            docstore.UniqueSubcollection,
					"fields." + docstore.UniqueField: bson.M{"$exists": true},
				}),
		},
	})
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool {
	return b != nil && *b
}

// ensureIndexSet reconciles the desired indexes of one collection with what
// exists: matching key patterns are reused, renamed or rebuilt when options
// differ, and missing ones are created.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, logger *zap.Logger, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	var errs []string
	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := logger.With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig))

		ex, found := existing[sig]
		switch {
		case found && boolOf(ex.Unique) == boolOf(unique) && (name == "" || ex.Name == name):
			log.Debug("reusing existing index")
			continue
		case found:
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
			log.Info("dropped index to rebuild", zap.String("old_name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}
