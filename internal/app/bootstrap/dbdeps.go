// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/notify"
	"github.com/dalemusser/collegehub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// MongoClient and MongoDatabase are nil with the memory backend; Documents
// is always set.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Documents     docstore.Backend

	// Services is filled by Startup and BuildHandler. Hooks receive DBDeps
	// by value, so it is shared through a pointer.
	Services *Services
}

// Services are the integrations built once at startup.
type Services struct {
	Notify    notify.Publisher
	Media     *media.Resolver
	Refresher *workers.Refresher
}
