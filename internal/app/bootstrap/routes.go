// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	approvalsfeature "github.com/dalemusser/collegehub/internal/app/features/approvals"
	feedsfeature "github.com/dalemusser/collegehub/internal/app/features/feeds"
	healthfeature "github.com/dalemusser/collegehub/internal/app/features/health"
	logingatefeature "github.com/dalemusser/collegehub/internal/app/features/logingate"
	noticesfeature "github.com/dalemusser/collegehub/internal/app/features/notices"
	signupfeature "github.com/dalemusser/collegehub/internal/app/features/signup"
	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/ratelimit"
	"github.com/dalemusser/collegehub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for CollegeHub.
//
// Each approval view and each feed owns one aggregator, built here once and
// shared by every request. When refresh_interval is set, the same
// aggregators are handed to the background refresher.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Documents == nil || deps.Services == nil {
		return nil, errors.New("document store not connected")
	}
	svc := deps.Services

	backend := appCfg.StoreBackend
	if backend == "" {
		backend = BackendMongo
	}

	base := aggregator.Config{
		Roles:        appCfg.ApprovalRoles,
		Concurrency:  appCfg.FetchConcurrency,
		FetchTimeout: appCfg.FetchTimeout,
	}

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Documents, backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Approval views (pending, approved, rejected)
	approvalsHandler, err := approvalsfeature.NewHandler(deps.Documents, base, svc.Media, svc.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("approvals: %w", err)
	}
	r.Mount("/approvals", approvalsfeature.Routes(approvalsHandler))

	// Signup and the login approval gate, throttled per client IP
	var gateLimiter *ratelimit.Limiter
	if appCfg.GateRateLimit > 0 {
		gateLimiter = ratelimit.New(appCfg.GateRateLimit, time.Minute)
	}
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(gateLimiter, logger))

		signupHandler := signupfeature.NewHandler(deps.Documents, svc.Notify, logger)
		r.Mount("/signup", signupfeature.Routes(signupHandler))

		gateHandler := logingatefeature.NewHandler(deps.Documents, logger)
		r.Mount("/login-gate", logingatefeature.Routes(gateHandler))
	})

	// Shared feeds (ERP links, library links, events, reports, timetables)
	feedsHandler, err := feedsfeature.NewHandler(deps.Documents, base, feedsfeature.Definitions, svc.Media, logger)
	if err != nil {
		return nil, fmt.Errorf("feeds: %w", err)
	}
	r.Mount("/feeds", feedsfeature.Routes(feedsHandler))

	// Admin notices addressed to students or teachers
	noticesHandler := noticesfeature.NewHandler(deps.Documents, logger)
	r.Mount("/notices", noticesfeature.Routes(noticesHandler))

	if appCfg.RefreshInterval > 0 {
		views := make(map[string]workers.View)
		for name, agg := range approvalsHandler.Views {
			views["approvals/"+name] = agg
		}
		for name, agg := range feedsHandler.Views() {
			views["feeds/"+name] = agg
		}
		svc.Refresher = workers.NewRefresher(views, logger, appCfg.RefreshInterval)
		svc.Refresher.Start()
	}

	return r, nil
}
