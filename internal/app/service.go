// Package service orchestrates the voting engine: it loads events and votes
// from the store, runs the pure domain transitions and commits the result
// with a single compare-and-set write. It implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/comments"
	"github.com/okian/techradar/internal/domain/flow"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
	"github.com/okian/techradar/pkg/metrics"
)

// Defaults.
const (
	defaultOperationTimeout = 5 * time.Second
	defaultMaxRetries       = 5
)

// Service implements the API dependencies for the voting engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	comments *comments.Engine
	catalog  Catalog
	identity IdentityResolver

	// Sources
	newID func() string
	now   func() time.Time
	rndMu sync.Mutex
	rnd   *rand.Rand

	// Configuration
	opTimeout  time.Duration
	maxRetries int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		identity:   BearerIdentity{},
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
		rnd:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7ad4)), //nolint:gosec // winner draw, not security sensitive
		opTimeout:  defaultOperationTimeout,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.comments == nil {
		s.comments = comments.New(comments.WithIDGenerator(s.newID), comments.WithClock(s.now))
	}
	return s
}

// Start initializes the service. Without an injected store it runs on the
// in-memory store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting voting service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	if err := s.store.Ping(ctx); err != nil {
		return model.WrapKind("service.start", model.ErrStoreUnavailable, err)
	}
	if s.catalog == nil {
		s.catalog = StoreCatalog{Store: s.store}
	}

	s.started = true
	s.logger.Info(ctx, "voting service started",
		logger.Duration("operationTimeout", s.opTimeout),
		logger.Int("maxUpdateRetries", s.maxRetries),
	)
	return nil
}

// Stop gracefully shuts down the service and closes its store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping voting service...")
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "voting service stopped")
}

// Ready reports whether the service is started and its store reachable.
func (s *Service) Ready(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.WrapKind("service.ready", model.ErrStoreUnavailable, errNotStarted)
	}
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          started,
		"operationTimeout": s.opTimeout.String(),
		"maxUpdateRetries": s.maxRetries,
	}
	if !started {
		return stats
	}

	events, err := s.store.Events(ctx, repository.EventQuery{IncludeCancelled: true})
	if err == nil {
		live := 0
		for _, ev := range events {
			if !ev.Cancelled {
				live++
			}
		}
		stats["events"] = live
		stats["cancelledEvents"] = len(events) - live
		metrics.UpdateStoredEvents(len(events))
	}
	votes, err := s.store.Votes(ctx, repository.VoteFilter{})
	if err == nil {
		stats["votes"] = len(votes)
		metrics.UpdateStoredVotes(len(votes))
	}
	techs, err := s.store.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: true})
	if err == nil {
		stats["technologies"] = len(techs)
		metrics.UpdateCatalogSize(len(techs))
	}
	if g, ok := s.store.(*repository.Guarded); ok {
		stats["storeBreaker"] = g.State().String()
	}
	return stats
}

// run executes fn under the operation timeout and records its outcome.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.store == nil {
		return model.WrapKind(op, model.ErrStoreUnavailable, errNotStarted)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && model.Kind(err) == nil &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		err = model.WrapKind(op, model.ErrTimeout, err)
	}

	elapsed := time.Since(start)
	code := ""
	if err != nil {
		code = model.Code(err)
		s.logFailure(ctx, op, code, err)
	}
	metrics.RecordOperation(op, code, float64(elapsed.Microseconds())/1000.0)
	return err
}

func (s *Service) logFailure(ctx context.Context, op, code string, err error) {
	switch {
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, model.ErrTimeout), code == "internal":
		s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.String("code", code), logger.Error(err))
	default:
		s.logger.Debug(ctx, "operation rejected", logger.String("op", op), logger.String("code", code), logger.Error(err))
	}
}

// call is run for operations that return a value.
func call[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// mutateEvent is the read, transition, compare-and-set loop every event
// mutation goes through. fn runs on a copy; a version conflict re-reads
// the event and re-runs fn so its guards see the winner's state.
func (s *Service) mutateEvent(
	ctx context.Context,
	op string,
	id string,
	tr flow.Transition,
	fn func(ctx context.Context, ev *model.VotingEvent) error,
) (model.VotingEvent, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		cur, err := s.store.Event(ctx, id)
		if err != nil {
			return model.VotingEvent{}, err
		}

		next := cur.Clone()
		if err := fn(ctx, &next); err != nil {
			metrics.RecordFlowTransition(string(tr), model.Code(err))
			return model.VotingEvent{}, err
		}

		saved, err := s.store.UpdateEvent(ctx, next, cur.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordCASRetry()
			s.logger.Debug(ctx, "event version conflict, retrying",
				logger.String("op", op),
				logger.String("eventID", id),
				logger.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return model.VotingEvent{}, err
		}
		metrics.RecordFlowTransition(string(tr), "ok")
		return saved, nil
	}
	metrics.RecordFlowTransition(string(tr), "concurrent_update")
	return model.VotingEvent{}, model.WrapKind(op, model.ErrConcurrentUpdate, errRetriesExhausted)
}

// liveEvent loads an event, hiding soft-cancelled ones.
func (s *Service) liveEvent(ctx context.Context, op, id string) (model.VotingEvent, error) {
	ev, err := s.store.Event(ctx, id)
	if err != nil {
		return model.VotingEvent{}, err
	}
	if ev.Cancelled {
		return model.VotingEvent{}, model.NewKind(op, model.ErrEventNotFound)
	}
	return ev, nil
}
