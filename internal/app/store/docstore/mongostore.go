// internal/app/store/docstore/mongostore.go
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/collegehub/internal/app/system/txn"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// CollectionName is the Mongo collection holding every document of every
// nested collection.
const CollectionName = "documents"

const fieldsKey = "fields"

// Mongo error codes that mean the caller lacks rights.
const (
	codeUnauthorized         = 13
	codeAtlasUnauthorized    = 8000
	codeAuthenticationFailed = 18
)

// row is the stored shape of one document.
type row struct {
	ID         string         `bson:"_id"` // full document path
	Collection string         `bson:"collection"`
	Root       string         `bson:"root"` // top-level collection
	Kind       string         `bson:"kind"` // last collection segment
	DocID      string         `bson:"doc_id"`
	Ancestors  []string       `bson:"ancestors"`
	Fields     map[string]any `bson:"fields"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

// Store is the MongoDB backend. Every nested collection lives in one Mongo
// collection, keyed by full document path.
type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

// New creates a Mongo-backed document store.
func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection(CollectionName), log: logger}
}

func (s *Store) ListDocuments(ctx context.Context, collectionPath string) ([]string, error) {
	if err := validatePath(collectionPath); err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "doc_id", Value: 1}}).
		SetProjection(bson.M{"doc_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"collection": collectionPath}, opts)
	if err != nil {
		return nil, classify("list", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var r struct {
			DocID string `bson:"doc_id"`
		}
		if err := cur.Decode(&r); err != nil {
			return nil, classify("list", err)
		}
		ids = append(ids, r.DocID)
	}
	if err := cur.Err(); err != nil {
		return nil, classify("list", err)
	}
	return ids, nil
}

func (s *Store) QueryDocuments(ctx context.Context, collectionPath string, pred Predicate) ([]Document, error) {
	if err := validatePath(collectionPath); err != nil {
		return nil, err
	}
	filter := bson.M{"collection": collectionPath}
	if pf := pred.Filter(); pf != nil {
		filter["$and"] = pf["$and"]
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "doc_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("query", err)
	}
	defer cur.Close(ctx)

	var rows []row
	if err := cur.All(ctx, &rows); err != nil {
		return nil, classify("query", err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{ID: r.DocID, Fields: normalizeFields(r.Fields)})
	}
	return docs, nil
}

// SetFields merges fields into an existing document. A document that does
// not exist yields ErrNotFound; an update that changes nothing still succeeds.
// GetDocument reads one document by id.
func (s *Store) GetDocument(ctx context.Context, collectionPath, id string) (Document, error) {
	if err := validatePath(collectionPath); err != nil {
		return Document{}, err
	}
	if err := validateID(id); err != nil {
		return Document{}, err
	}
	var r row
	if err := s.c.FindOne(ctx, bson.M{"_id": Path(collectionPath, id)}).Decode(&r); err != nil {
		return Document{}, classify("get", err)
	}
	return Document{ID: r.DocID, Fields: normalizeFields(r.Fields)}, nil
}

// CreateDocument inserts one document with a generated id.
func (s *Store) CreateDocument(ctx context.Context, collectionPath string, fields map[string]any) (string, error) {
	if err := validatePath(collectionPath); err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()
	r := newRow(collectionPath, id, fields, time.Now().UTC())
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return "", fmt.Errorf("create %s: %w: %w", collectionPath, ErrDuplicate, err)
		}
		return "", classify("create", err)
	}
	return id, nil
}

func (s *Store) SetFields(ctx context.Context, collectionPath, id string, fields map[string]any) error {
	if err := validatePath(collectionPath); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[fieldsKey+"."+k] = v
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": Path(collectionPath, id)}, bson.M{"$set": set})
	if err != nil {
		return classify("set", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set %s/%s: %w", collectionPath, id, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes the document and everything nested under it in one
// transaction (or sequentially when the deployment has no transactions).
func (s *Store) DeleteDocument(ctx context.Context, collectionPath, id string) error {
	if err := validatePath(collectionPath); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	docPath := Path(collectionPath, id)

	var nested int64
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": docPath})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		many, err := s.c.DeleteMany(ctx, bson.M{"ancestors": docPath})
		if err != nil {
			return err
		}
		nested = many.DeletedCount
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %s: %w", docPath, ErrNotFound)
	}
	if err != nil {
		return classify("delete", err)
	}
	s.log.Debug("document deleted",
		zap.String("path", docPath),
		zap.Int64("nested_deleted", nested))
	return nil
}

// CreateWithChild inserts an empty outer document into collectionPath and one
// child holding fields into its sub collection, atomically.
func (s *Store) CreateWithChild(ctx context.Context, collectionPath, sub string, fields map[string]any) (string, string, error) {
	if err := validatePath(collectionPath); err != nil {
		return "", "", err
	}
	if err := validateID(sub); err != nil {
		return "", "", err
	}
	now := time.Now().UTC()
	outerID := primitive.NewObjectID().Hex()
	innerID := primitive.NewObjectID().Hex()
	outer := newRow(collectionPath, outerID, nil, now)
	inner := newRow(Path(collectionPath, outerID, sub), innerID, fields, now)

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, outer); err != nil {
			return err
		}
		_, err := s.c.InsertOne(ctx, inner)
		return err
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return "", "", fmt.Errorf("create %s: %w: %w", collectionPath, ErrDuplicate, err)
		}
		return "", "", classify("create", err)
	}
	return outerID, innerID, nil
}

func newRow(collectionPath, id string, fields map[string]any, now time.Time) row {
	if fields == nil {
		fields = map[string]any{}
	}
	return row{
		ID:         Path(collectionPath, id),
		Collection: collectionPath,
		Root:       rootOf(collectionPath),
		Kind:       kindOf(collectionPath),
		DocID:      id,
		Ancestors:  ancestorsOf(collectionPath),
		Fields:     fields,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return classify("ping", err)
	}
	return nil
}

// classify maps driver errors onto the package's sentinel errors while
// keeping the original error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case isPermission(err):
		return fmt.Errorf("%s: %w: %w", op, ErrPermissionDenied, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isPermission(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeUnauthorized) ||
		se.HasErrorCode(codeAtlasUnauthorized) ||
		se.HasErrorCode(codeAuthenticationFailed)
}

// normalizeFields turns nested BSON values into plain Go values so that
// callers see the same shapes from both backends.
func normalizeFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.D:
		return normalizeFields(t.Map())
	case primitive.M:
		return normalizeFields(map[string]any(t))
	case map[string]any:
		return normalizeFields(t)
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
