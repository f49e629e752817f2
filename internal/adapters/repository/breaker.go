package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
	"github.com/okian/techradar/pkg/metrics"
)

// BreakerConfig holds configuration for the store circuit breaker.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns a default configuration for the store breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// Guarded decorates a Store with a circuit breaker. Connectivity failures
// and an open breaker surface as model.ErrStoreUnavailable with the cause
// attached; domain errors pass through and do not count as failures.
type Guarded struct {
	inner Store
	cb    *gobreaker.CircuitBreaker
	log   logger.Logger
}

// NewGuarded wraps inner.
func NewGuarded(inner Store, cfg BreakerConfig, log logger.Logger) *Guarded {
	g := &Guarded{inner: inner, log: log}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn(context.Background(), "store breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || passthrough(err)
		},
	})
	metrics.UpdateBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return g
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State { return g.cb.State() }

// passthrough lists errors that describe the request, not the store's health.
func passthrough(err error) bool {
	return model.Kind(err) != nil ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, context.Canceled)
}

func (g *Guarded) classify(op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return model.WrapKind(op, model.ErrStoreUnavailable, err)
	case passthrough(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return model.WrapKind(op, model.ErrTimeout, err)
	default:
		g.log.Error(context.Background(), "store call failed", logger.String("op", op), logger.Error(err))
		return model.WrapKind(op, model.ErrStoreUnavailable, err)
	}
}

func guard[T any](g *Guarded, op string, fn func() (T, error)) (T, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		var zero T
		return zero, g.classify(op, err)
	}
	return out.(T), nil
}

// InsertVotes implements VoteStore.
func (g *Guarded) InsertVotes(ctx context.Context, eventID string, admit AdmitFunc, votes []model.Vote) ([]model.Vote, error) {
	return guard(g, "store.insert_votes", func() ([]model.Vote, error) {
		return g.inner.InsertVotes(ctx, eventID, admit, votes)
	})
}

// Votes implements VoteStore.
func (g *Guarded) Votes(ctx context.Context, f VoteFilter) ([]model.Vote, error) {
	return guard(g, "store.votes", func() ([]model.Vote, error) { return g.inner.Votes(ctx, f) })
}

// MutateVote implements VoteStore.
func (g *Guarded) MutateVote(ctx context.Context, id string, fn func(v *model.Vote) error) (model.Vote, error) {
	return guard(g, "store.mutate_vote", func() (model.Vote, error) { return g.inner.MutateVote(ctx, id, fn) })
}

// DeleteVotes implements VoteStore.
func (g *Guarded) DeleteVotes(ctx context.Context, eventID string) (int, error) {
	return guard(g, "store.delete_votes", func() (int, error) { return g.inner.DeleteVotes(ctx, eventID) })
}

// InsertEvent implements EventStore.
func (g *Guarded) InsertEvent(ctx context.Context, ev model.VotingEvent) (model.VotingEvent, error) {
	return guard(g, "store.insert_event", func() (model.VotingEvent, error) { return g.inner.InsertEvent(ctx, ev) })
}

// Event implements EventStore.
func (g *Guarded) Event(ctx context.Context, id string) (model.VotingEvent, error) {
	return guard(g, "store.event", func() (model.VotingEvent, error) { return g.inner.Event(ctx, id) })
}

// UpdateEvent implements EventStore.
func (g *Guarded) UpdateEvent(ctx context.Context, ev model.VotingEvent, expectedVersion int64) (model.VotingEvent, error) {
	return guard(g, "store.update_event", func() (model.VotingEvent, error) {
		return g.inner.UpdateEvent(ctx, ev, expectedVersion)
	})
}

// DeleteEvent implements EventStore.
func (g *Guarded) DeleteEvent(ctx context.Context, id string) error {
	_, err := guard(g, "store.delete_event", func() (struct{}, error) { return struct{}{}, g.inner.DeleteEvent(ctx, id) })
	return err
}

// Events implements EventStore.
func (g *Guarded) Events(ctx context.Context, q EventQuery) ([]model.VotingEvent, error) {
	return guard(g, "store.events", func() ([]model.VotingEvent, error) { return g.inner.Events(ctx, q) })
}

// InsertTechnology implements CatalogStore.
func (g *Guarded) InsertTechnology(ctx context.Context, t model.Technology) (model.Technology, error) {
	return guard(g, "store.insert_technology", func() (model.Technology, error) { return g.inner.InsertTechnology(ctx, t) })
}

// Technology implements CatalogStore.
func (g *Guarded) Technology(ctx context.Context, id string) (model.Technology, error) {
	return guard(g, "store.technology", func() (model.Technology, error) { return g.inner.Technology(ctx, id) })
}

// Technologies implements CatalogStore.
func (g *Guarded) Technologies(ctx context.Context, q TechnologyQuery) ([]model.Technology, error) {
	return guard(g, "store.technologies", func() ([]model.Technology, error) { return g.inner.Technologies(ctx, q) })
}

// MutateTechnology implements CatalogStore.
func (g *Guarded) MutateTechnology(ctx context.Context, id string, fn func(t *model.Technology) error) (model.Technology, error) {
	return guard(g, "store.mutate_technology", func() (model.Technology, error) {
		return g.inner.MutateTechnology(ctx, id, fn)
	})
}

// DeleteTechnology implements CatalogStore.
func (g *Guarded) DeleteTechnology(ctx context.Context, id string) error {
	_, err := guard(g, "store.delete_technology", func() (struct{}, error) {
		return struct{}{}, g.inner.DeleteTechnology(ctx, id)
	})
	return err
}

// ReplaceTechnologies implements CatalogStore.
func (g *Guarded) ReplaceTechnologies(ctx context.Context, techs []model.Technology) (int, error) {
	return guard(g, "store.replace_technologies", func() (int, error) { return g.inner.ReplaceTechnologies(ctx, techs) })
}

// Ping implements Store.
func (g *Guarded) Ping(ctx context.Context) error {
	_, err := guard(g, "store.ping", func() (struct{}, error) { return struct{}{}, g.inner.Ping(ctx) })
	return err
}

// Close closes the wrapped store.
func (g *Guarded) Close() error { return g.inner.Close() }
