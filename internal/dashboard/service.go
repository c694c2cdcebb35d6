package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/aggregator"
	"github.com/dennisdiepolder/activations/backend/internal/alerts"
	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/parser"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/dennisdiepolder/activations/backend/internal/upstream"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrLoadFailed is returned when any upstream fetch of a load cycle fails
var ErrLoadFailed = errors.New("failed to load data")

// DefaultMaxSnapshots caps the dashboards kept for priming new subscribers
const DefaultMaxSnapshots = 128

// Source is an upstream source whose cached payloads can be dropped
type Source interface {
	upstream.Source
	Invalidate(ctx context.Context) error
}

// Service runs load cycles and keeps the last good dashboard per subscription
type Service struct {
	source     Source
	generation atomic.Uint64
	now        func() time.Time
	logger     zerolog.Logger

	mu           sync.RWMutex
	snapshots    map[string]*types.Dashboard
	maxSnapshots int
}

// NewService creates a dashboard service reading from source
func NewService(source Source, logger zerolog.Logger) *Service {
	return &Service{
		source:       source,
		now:          time.Now,
		logger:       logger.With().Str("component", "dashboard").Logger(),
		snapshots:    make(map[string]*types.Dashboard),
		maxSnapshots: DefaultMaxSnapshots,
	}
}

// Load fetches the selected sheet, and every period sheet when query is set,
// and builds the dashboard for it.
func (s *Service) Load(ctx context.Context, sheet, query string) (*types.Dashboard, error) {
	start := time.Now()
	m := metrics.Get()
	gen := s.generation.Add(1)
	query = strings.TrimSpace(query)

	d, err := s.build(ctx, sheet, query)
	if err != nil {
		m.RecordLoadError()
		s.logger.Warn().Err(err).Str("sheet", sheet).Str("query", query).Msg("load cycle failed")
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	d.Generation = gen
	d.GeneratedAt = s.now()

	s.store(d)
	m.RecordLoadCycle(time.Since(start), len(d.Rows))
	s.logger.Debug().
		Str("sheet", sheet).
		Str("query", query).
		Int("rows", len(d.Rows)).
		Int("periods", len(d.Periods)).
		Uint64("generation", gen).
		Msg("load cycle completed")
	return d, nil
}

func (s *Service) build(ctx context.Context, sheet, query string) (*types.Dashboard, error) {
	aggregate := sheet == types.MasterSheet

	raw, err := s.source.FetchRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	current := parser.Normalize(raw, aggregate)

	var periods map[string][]types.ActivationRecord
	if query != "" {
		if periods, err = s.loadPeriods(ctx); err != nil {
			return nil, err
		}
	}

	view := types.ViewPeriod
	switch {
	case query != "" && len(periods) > 0:
		view = types.ViewSearch
	case aggregate:
		view = types.ViewAggregate
	}

	rows := aggregator.Aggregate(current, periods, query)
	return &types.Dashboard{
		Sheet:        sheet,
		View:         view,
		Query:        query,
		Rows:         alerts.Decorate(rows, view),
		Totals:       aggregator.Summarize(current),
		ResultTotals: aggregator.Summarize(rows),
		Periods:      aggregator.PeriodLabels(periods),
	}, nil
}

// loadPeriods fetches every non-master sheet concurrently. The batch is all or nothing.
func (s *Service) loadPeriods(ctx context.Context) (map[string][]types.ActivationRecord, error) {
	sheets, err := s.source.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	periods := make(map[string][]types.ActivationRecord, len(sheets))

	g, gctx := errgroup.WithContext(ctx)
	for _, sd := range sheets {
		if sd.IsAggregate() {
			continue
		}
		g.Go(func() error {
			raw, err := s.source.FetchRows(gctx, sd.Name)
			if err != nil {
				return fmt.Errorf("sheet %q: %w", sd.Name, err)
			}
			records := parser.Normalize(raw, false)

			label := sd.PeriodLabel
			if label == "" {
				label = sd.Name
			}
			mu.Lock()
			periods[label] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return periods, nil
}

// store keeps d unless a newer generation is already stored for its key.
// When the map is full the oldest snapshot makes room.
func (s *Service) store(d *types.Dashboard) {
	key := types.SubscriptionKey(d.Sheet, d.Query)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.snapshots[key]
	if ok && prev.Generation > d.Generation {
		return
	}
	if !ok && len(s.snapshots) >= s.maxSnapshots {
		s.evictOldest()
	}
	s.snapshots[key] = d
}

// evictOldest drops the snapshot with the lowest generation. Callers hold s.mu.
func (s *Service) evictOldest() {
	var oldestKey string
	var oldest *types.Dashboard
	for key, d := range s.snapshots {
		if oldest == nil || d.Generation < oldest.Generation {
			oldestKey, oldest = key, d
		}
	}
	if oldest != nil {
		delete(s.snapshots, oldestKey)
	}
}

// Retain drops every snapshot whose subscription key is not in keys
func (s *Service) Retain(keys []string) {
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for key := range s.snapshots {
		if !keep[key] {
			delete(s.snapshots, key)
			pruned++
		}
	}
	if pruned > 0 {
		s.logger.Debug().Int("pruned", pruned).Int("kept", len(s.snapshots)).Msg("snapshots pruned")
	}
}

// Snapshot returns the last good dashboard for (sheet, query)
func (s *Service) Snapshot(sheet, query string) (*types.Dashboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.snapshots[types.SubscriptionKey(sheet, strings.TrimSpace(query))]
	return d, ok
}

// Sheets lists the upstream sources
func (s *Service) Sheets(ctx context.Context) ([]types.SheetDescriptor, error) {
	sheets, err := s.source.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return sheets, nil
}

// Reload drops every cached upstream payload so the next load goes upstream
func (s *Service) Reload(ctx context.Context) error {
	return s.source.Invalidate(ctx)
}
