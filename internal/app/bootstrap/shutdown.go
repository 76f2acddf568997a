// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the refresher, flushes pending events and disconnects
// MongoDB. All steps run; their errors are joined.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if svc := deps.Services; svc != nil {
		if svc.Refresher != nil {
			svc.Refresher.Stop()
		}
		if svc.Notify != nil {
			if err := svc.Notify.Close(); err != nil {
				logger.Error("closing event publisher failed", zap.Error(err))
				errs = append(errs, err)
			}
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting CollegeHub MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
