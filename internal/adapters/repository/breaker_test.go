package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var errDown = errors.New("connection refused")

// flakyStore fails vote reads while down is set.
type flakyStore struct {
	*repository.MemoryStore
	down bool
}

func (f *flakyStore) Votes(ctx context.Context, q repository.VoteFilter) ([]model.Vote, error) {
	if f.down {
		return nil, errDown
	}
	return f.MemoryStore.Votes(ctx, q)
}

func TestGuardedStore(t *testing.T) {
	Convey("Given a guarded store over a flaky backend", t, func() {
		ctx := context.Background()
		inner := &flakyStore{MemoryStore: repository.NewMemoryStore(ctx)}
		defer func() { _ = inner.Close() }()
		cfg := repository.DefaultBreakerConfig("test")
		cfg.MinRequests = 3
		cfg.FailureRatio = 0.5
		cfg.Timeout = time.Minute
		g := repository.NewGuarded(inner, cfg, logger.Get())

		Convey("When the backend fails", func() {
			inner.down = true
			_, err := g.Votes(ctx, repository.VoteFilter{})

			Convey("Then the failure surfaces as StoreUnavailable with its cause", func() {
				So(errors.Is(err, model.ErrStoreUnavailable), ShouldBeTrue)
				So(errors.Is(err, errDown), ShouldBeTrue)
			})
		})

		Convey("When failures keep coming", func() {
			inner.down = true
			for i := 0; i < 3; i++ {
				_, _ = g.Votes(ctx, repository.VoteFilter{})
			}
			inner.down = false
			_, err := g.Votes(ctx, repository.VoteFilter{})

			Convey("Then the breaker opens and rejects calls", func() {
				So(g.State(), ShouldEqual, gobreaker.StateOpen)
				So(errors.Is(err, model.ErrStoreUnavailable), ShouldBeTrue)
				So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
			})
		})

		Convey("When domain errors are returned", func() {
			for i := 0; i < 5; i++ {
				_, err := g.Event(ctx, "missing")
				So(errors.Is(err, model.ErrEventNotFound), ShouldBeTrue)
			}

			Convey("Then they pass through without tripping the breaker", func() {
				So(g.State(), ShouldEqual, gobreaker.StateClosed)
			})
		})

		Convey("When the call succeeds", func() {
			_, err := g.InsertEvent(ctx, model.VotingEvent{ID: "e1", Name: "Radar"})
			So(err, ShouldBeNil)
			So(g.Ping(ctx), ShouldBeNil)
		})
	})
}
