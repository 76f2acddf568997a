// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CollegeHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, approval_roles, etc.
//   - Environment variables: COLLEGEHUB_MONGO_URI, COLLEGEHUB_APPROVAL_ROLES, etc.
//   - Command-line flags: --mongo_uri, --approval_roles, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Document store: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "college_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Approval views
	{Name: "approval_roles", Default: "Student,Teacher,Admin", Desc: "Comma-separated role types listed by the approval views"},
	{Name: "fetch_concurrency", Default: aggregator.DefaultConcurrency, Desc: "Parallel subcollection queries per role during a refresh"},
	{Name: "fetch_timeout", Default: "30s", Desc: "Timeout for one full view refresh"},
	{Name: "mutation_timeout", Default: "10s", Desc: "Timeout for a single approve/reject/remove/signup"},
	{Name: "refresh_interval", Default: "0s", Desc: "Background refresh interval for loaded views (0 disables)"},

	{Name: "gate_rate_limit", Default: 30, Desc: "Requests per minute per IP on /signup and /login-gate (0 disables)"},

	// Kafka notifications
	{Name: "kafka_brokers", Default: "", Desc: "Comma-separated Kafka brokers (blank disables notifications)"},
	{Name: "kafka_topic", Default: "collegehub.approvals", Desc: "Kafka topic for approval events"},

	// S3 profile images
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket holding profile images (blank disables presigning)"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint URL (blank for AWS)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key ID"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret access key"},
	{Name: "image_url_expiry", Default: "15m", Desc: "Lifetime of presigned profile image URLs"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// Precedence is flags > env (COLLEGEHUB_*) > config files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COLLEGEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	roles, err := parseRoles(appValues.String("approval_roles"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		ApprovalRoles:    roles,
		FetchConcurrency: appValues.Int("fetch_concurrency"),
		FetchTimeout:     appValues.Duration("fetch_timeout", timeouts.DefaultFetch),
		MutationTimeout:  appValues.Duration("mutation_timeout", timeouts.DefaultMutation),
		RefreshInterval:  appValues.Duration("refresh_interval", 0),
		GateRateLimit:    appValues.Int("gate_rate_limit"),

		KafkaBrokers: splitList(appValues.String("kafka_brokers")),
		KafkaTopic:   appValues.String("kafka_topic"),

		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),
		ImageURLExpiry:     appValues.Duration("image_url_expiry", media.DefaultExpiry),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation. Errors abort
// startup before any backend is contacted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return errors.New("mongo_database is required")
		}
	case BackendMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("memory store backend in prod; data does not survive restarts")
		}
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	if len(appCfg.ApprovalRoles) == 0 {
		return errors.New("approval_roles must name at least one role type")
	}
	if appCfg.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be positive, got %d", appCfg.FetchConcurrency)
	}
	if appCfg.FetchTimeout <= 0 || appCfg.MutationTimeout <= 0 {
		return errors.New("fetch_timeout and mutation_timeout must be positive")
	}
	if appCfg.RefreshInterval < 0 {
		return errors.New("refresh_interval must not be negative")
	}
	if appCfg.GateRateLimit < 0 {
		return errors.New("gate_rate_limit must not be negative")
	}
	if len(appCfg.KafkaBrokers) > 0 && appCfg.KafkaTopic == "" {
		return errors.New("kafka_topic is required when kafka_brokers is set")
	}
	if appCfg.StorageS3Bucket != "" && appCfg.StorageS3Region == "" {
		return errors.New("storage_s3_region is required when storage_s3_bucket is set")
	}
	return nil
}

// timeoutConfig maps app config onto the shared timeouts.
func timeoutConfig(appCfg AppConfig) timeouts.Config {
	return timeouts.Config{
		Ping:     timeouts.DefaultPing,
		Fetch:    appCfg.FetchTimeout,
		Mutation: appCfg.MutationTimeout,
	}
}

func parseRoles(s string) ([]models.RoleType, error) {
	var roles []models.RoleType
	seen := make(map[models.RoleType]bool)
	for _, part := range splitList(s) {
		r, err := models.ParseRoleType(part)
		if err != nil {
			return nil, fmt.Errorf("approval_roles: %w", err)
		}
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	return roles, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
