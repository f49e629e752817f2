package service

import (
	"math/rand/v2"
	"time"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/comments"
	"github.com/okian/techradar/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore sets the backing store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithOperationTimeout bounds every operation.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithMaxRetries bounds event compare-and-set retries.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithCommentEngine sets the engine used to build comment threads.
func WithCommentEngine(e *comments.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.comments = e
		}
	}
}

// WithIDGenerator overrides the id source for events, technologies and votes.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand sets the random source used to draw winners.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		if r != nil {
			s.rnd = r
		}
	}
}

// WithCatalog sets the technology catalog snapshotted on first open. By
// default the store's own catalog is used.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithIdentityResolver sets how bearer tokens map to user ids.
func WithIdentityResolver(r IdentityResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.identity = r
		}
	}
}
