// internal/app/system/workers/refresher.go
package workers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
)

// View is a cached record list that can be reloaded.
type View interface {
	Loaded() (bool, time.Time)
	Refresh(ctx context.Context) ([]models.RoleRecord, error)
}

// Refresher is a background worker that periodically reloads every view
// that has been loaded at least once. Views nobody has asked for yet stay
// cold.
type Refresher struct {
	views    map[string]View
	names    []string
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher over the named views.
func NewRefresher(views map[string]View, logger *zap.Logger, interval time.Duration) *Refresher {
	names := make([]string, 0, len(views))
	for n := range views {
		names = append(names, n)
	}
	sort.Strings(names)
	return &Refresher{
		views:    views,
		names:    names,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop.
func (w *Refresher) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("view refresher started",
		zap.Duration("interval", w.interval),
		zap.Int("views", len(w.names)))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *Refresher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("view refresher stopped")
}

func (w *Refresher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RefreshLoaded(context.Background())
		}
	}
}

// RefreshLoaded reloads each loaded view once and returns how many
// succeeded. Failures are logged; the view keeps its previous records.
func (w *Refresher) RefreshLoaded(parent context.Context) int {
	ok := 0
	for _, name := range w.names {
		v := w.views[name]
		if loaded, _ := v.Loaded(); !loaded {
			continue
		}
		ctx, cancel := context.WithTimeout(parent, timeouts.Fetch())
		_, err := v.Refresh(ctx)
		cancel()
		if err != nil {
			w.log.Warn("background refresh failed", zap.String("view", name), zap.Error(err))
			continue
		}
		ok++
	}
	if ok > 0 {
		w.log.Debug("refreshed views", zap.Int("count", ok))
	}
	return ok
}
