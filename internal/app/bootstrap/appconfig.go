// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/collegehub/internal/domain/models"
)

// Store backends accepted by store_backend.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for CollegeHub.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS; everything here
// is about the document store, the approval views and the optional
// integrations (Kafka notifications, S3 profile images).
type AppConfig struct {
	// Document store
	StoreBackend     string // "mongo" or "memory"
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Approval views
	ApprovalRoles    []models.RoleType // role collections walked by the approval views
	FetchConcurrency int               // parallel subcollection queries per role
	FetchTimeout     time.Duration     // bound on one full refresh
	MutationTimeout  time.Duration     // bound on one approve/reject/remove/signup
	RefreshInterval  time.Duration     // background refresh of loaded views; 0 disables

	// Requests per minute per client IP on /signup and /login-gate; 0 disables
	GateRateLimit int

	// Decision notifications (disabled when KafkaBrokers is empty)
	KafkaBrokers []string
	KafkaTopic   string

	// Profile images (disabled when StorageS3Bucket is empty)
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Endpoint  string // S3-compatible endpoint (MinIO, R2); blank for AWS
	StorageS3AccessKey string
	StorageS3SecretKey string
	ImageURLExpiry     time.Duration
}
