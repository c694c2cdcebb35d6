package ticker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/dennisdiepolder/activations/backend/internal/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads caps simultaneous load cycles per refresh
const maxConcurrentLoads = 4

// Loader runs one load cycle
type Loader interface {
	Load(ctx context.Context, sheet, query string) (*types.Dashboard, error)
}

// Retainer drops cached dashboards nobody subscribes to
type Retainer interface {
	Retain(keys []string)
}

// Publisher knows the live subscriptions and delivers dashboards to them
type Publisher interface {
	Subscriptions() []websocket.Subscription
	Publish(d *types.Dashboard) error
}

// Refresher periodically reloads every live subscription and pushes the result
type Refresher struct {
	loader    Loader
	publisher Publisher
	interval  time.Duration
	logger    zerolog.Logger
}

// NewRefresher creates a new Refresher
func NewRefresher(loader Loader, publisher Publisher, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		loader:    loader,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With().Str("component", "refresher").Logger(),
	}
}

// Start runs refresh cycles until ctx is done. A zero interval disables refreshing.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info().Msg("live refresh disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresher stopped")
			return

		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce reloads each distinct subscription and publishes the dashboards
// that loaded. It returns the number of dashboards pushed. Loaders that
// implement Retainer first drop dashboards of subscriptions that went away.
func (r *Refresher) RefreshOnce(ctx context.Context) int {
	subs := r.publisher.Subscriptions()
	if rt, ok := r.loader.(Retainer); ok {
		keys := make([]string, len(subs))
		for i, sub := range subs {
			keys[i] = sub.Key()
		}
		rt.Retain(keys)
	}
	if len(subs) == 0 {
		return 0
	}

	var pushed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, sub := range subs {
		g.Go(func() error {
			d, err := r.loader.Load(gctx, sub.Sheet, sub.Query)
			if err != nil {
				// the last good snapshot stays with the clients
				r.logger.Warn().Err(err).
					Str("sheet", sub.Sheet).
					Str("query", sub.Query).
					Msg("refresh skipped")
				return nil
			}
			if err := r.publisher.Publish(d); err != nil {
				r.logger.Error().Err(err).Str("sheet", sub.Sheet).Msg("failed to publish dashboard")
				return nil
			}
			pushed.Add(1)
			return nil
		})
	}
	g.Wait()

	n := int(pushed.Load())
	metrics.Get().RecordRefreshCycle(n)
	r.logger.Debug().
		Int("subscriptions", len(subs)).
		Int("pushed", n).
		Msg("refresh cycle completed")
	return n
}
