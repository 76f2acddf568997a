// internal/app/system/txn/txn.go

// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports them, and falls back to running the same function
// without one on standalone servers (local development, some test setups).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server codes returned when transactions are unavailable:
// 20 IllegalOperation, 51 (legacy), 263 OperationNotSupportedInTransaction.
var notSupportedCodes = []int{20, 51, 263}

// Run executes fn inside a transaction on db's client. If the server cannot
// run transactions, fn is executed once more without a session.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if logger != nil {
			logger.Debug("transactions not supported, running without", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, or an operation not allowed inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range notSupportedCodes {
			if int(ce.Code) == c {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set"):
		return true
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "session"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
