// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/collegehub/internal/app/system/media"
	"github.com/dalemusser/collegehub/internal/app/system/notify"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup builds the optional integrations after the store is ready and
// before the HTTP handler is built. Missing settings disable an
// integration rather than failing startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if len(appCfg.KafkaBrokers) > 0 {
		deps.Services.Notify = notify.NewKafka(appCfg.KafkaBrokers, appCfg.KafkaTopic, logger)
		logger.Info("approval events enabled",
			zap.Strings("brokers", appCfg.KafkaBrokers),
			zap.String("topic", appCfg.KafkaTopic))
	} else {
		deps.Services.Notify = notify.Nop{}
	}

	if appCfg.StorageS3Bucket != "" {
		deps.Services.Media = media.NewS3(media.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Endpoint:  appCfg.StorageS3Endpoint,
			AccessKey: appCfg.StorageS3AccessKey,
			SecretKey: appCfg.StorageS3SecretKey,
			Expiry:    appCfg.ImageURLExpiry,
		}, logger)
		logger.Info("profile image presigning enabled", zap.String("bucket", appCfg.StorageS3Bucket))
	}
	return nil
}
