package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/techradar/internal/domain/dedupe"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/metrics"
)

const memoryStoreName = "memory"

// MemoryStore keeps events and votes in process. Every method works on
// copies, so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]model.VotingEvent
	order  []string
	votes  []model.Vote
	byID   map[string]int
	seq    int64

	// voteKeys enforces one vote per voter, technology, event and round.
	voteKeys dedupe.Deduper
	// names enforces one live event per name.
	names dedupe.Deduper

	techs     map[string]model.Technology
	techOrder []string
	// techNames enforces one live catalog entry per name.
	techNames dedupe.Deduper

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	closed   bool
}

// NewMemoryStore constructs a memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		events:                make(map[string]model.VotingEvent),
		byID:                  make(map[string]int),
		voteKeys:              dedupe.NewInMemoryDeduper(dedupe.WithInitialCapacity(4096)),
		names:                 dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding()),
		techs:                 make(map[string]model.Technology),
		techNames:             dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding()),
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// InsertVotes implements VoteStore.
func (s *MemoryStore) InsertVotes(ctx context.Context, eventID string, admit AdmitFunc, votes []model.Vote) ([]model.Vote, error) {
	const op = "repository.insert_votes"
	defer observe("insert_votes", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, len(votes))
	for i, v := range votes {
		if v.EventID != eventID {
			return nil, model.WrapKind(op, model.ErrInvalidInput, errForeignVote(v.ID))
		}
		keys[i] = v.UniqueKey()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, model.NewKind(op, model.ErrEventNotFound)
	}
	if admit != nil {
		if err := admit(ev.Clone()); err != nil {
			return nil, err
		}
	}
	if dup, ok := s.voteKeys.SeenAndRecordAll(ctx, keys); !ok {
		return nil, model.WrapKind(op, model.ErrDuplicateVote, errDuplicateKey(dup))
	}
	out := make([]model.Vote, len(votes))
	for i, v := range votes {
		s.seq++
		v = v.Clone()
		v.Seq = s.seq
		s.byID[v.ID] = len(s.votes)
		s.votes = append(s.votes, v)
		out[i] = v.Clone()
	}
	ev.Version++
	s.events[eventID] = ev
	return out, nil
}

// Votes implements VoteStore.
func (s *MemoryStore) Votes(ctx context.Context, f VoteFilter) ([]model.Vote, error) {
	defer observe("votes", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Vote, 0)
	for _, v := range s.votes {
		if f.Match(v) {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

// MutateVote implements VoteStore.
func (s *MemoryStore) MutateVote(ctx context.Context, id string, fn func(v *model.Vote) error) (model.Vote, error) {
	defer observe("mutate_vote", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Vote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return model.Vote{}, model.NewKind("repository.mutate_vote", model.ErrVoteNotFound)
	}
	v := s.votes[i].Clone()
	if err := fn(&v); err != nil {
		return model.Vote{}, err
	}
	// identity fields are not mutable
	v.ID, v.EventID, v.EventRound, v.Technology, v.VoterKey, v.Seq =
		s.votes[i].ID, s.votes[i].EventID, s.votes[i].EventRound, s.votes[i].Technology, s.votes[i].VoterKey, s.votes[i].Seq
	s.votes[i] = v
	return v.Clone(), nil
}

// DeleteVotes implements VoteStore.
func (s *MemoryStore) DeleteVotes(ctx context.Context, eventID string) (int, error) {
	defer observe("delete_votes", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return 0, model.NewKind("repository.delete_votes", model.ErrEventNotFound)
	}
	n := s.deleteVotesLocked(ctx, eventID)
	ev.Version++
	s.events[eventID] = ev
	return n, nil
}

func (s *MemoryStore) deleteVotesLocked(ctx context.Context, eventID string) int {
	kept := s.votes[:0]
	removed := 0
	for _, v := range s.votes {
		if v.EventID == eventID {
			s.voteKeys.Unrecord(ctx, v.UniqueKey())
			removed++
			continue
		}
		kept = append(kept, v)
	}
	s.votes = kept
	s.byID = make(map[string]int, len(kept))
	for i, v := range kept {
		s.byID[v.ID] = i
	}
	return removed
}

// InsertEvent implements EventStore.
func (s *MemoryStore) InsertEvent(ctx context.Context, ev model.VotingEvent) (model.VotingEvent, error) {
	const op = "repository.insert_event"
	defer observe("insert_event", time.Now())
	if err := ctx.Err(); err != nil {
		return model.VotingEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return model.VotingEvent{}, model.WrapKind(op, model.ErrInvalidInput, errDuplicateKey(ev.ID))
	}
	if !ev.Cancelled && s.names.SeenAndRecord(ctx, ev.Name) {
		return model.VotingEvent{}, model.NewKind(op, model.ErrDuplicateEventName)
	}
	ev = ev.Clone()
	ev.Version = 1
	s.events[ev.ID] = ev
	s.order = append(s.order, ev.ID)
	return ev.Clone(), nil
}

// Event implements EventStore.
func (s *MemoryStore) Event(ctx context.Context, id string) (model.VotingEvent, error) {
	defer observe("event", time.Now())
	if err := ctx.Err(); err != nil {
		return model.VotingEvent{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return model.VotingEvent{}, model.NewKind("repository.event", model.ErrEventNotFound)
	}
	return ev.Clone(), nil
}

// UpdateEvent implements EventStore.
func (s *MemoryStore) UpdateEvent(ctx context.Context, ev model.VotingEvent, expectedVersion int64) (model.VotingEvent, error) {
	const op = "repository.update_event"
	defer observe("update_event", time.Now())
	if err := ctx.Err(); err != nil {
		return model.VotingEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.events[ev.ID]
	if !ok {
		return model.VotingEvent{}, model.NewKind(op, model.ErrEventNotFound)
	}
	if cur.Version != expectedVersion {
		return model.VotingEvent{}, ErrVersionConflict
	}
	if err := s.renameLocked(ctx, cur, ev); err != nil {
		return model.VotingEvent{}, model.WrapKind(op, model.ErrDuplicateEventName, err)
	}
	ev = ev.Clone()
	ev.Version = expectedVersion + 1
	s.events[ev.ID] = ev
	return ev.Clone(), nil
}

// renameLocked moves the live-name claim when cancellation or name changes.
func (s *MemoryStore) renameLocked(ctx context.Context, cur, next model.VotingEvent) error {
	return moveClaim(ctx, s.names, cur.Name, !cur.Cancelled, next.Name, !next.Cancelled)
}

// moveClaim keeps names in step with an entry whose name or liveness
// changes. Only live entries hold a claim.
func moveClaim(ctx context.Context, names dedupe.Deduper, curName string, wasLive bool, nextName string, isLive bool) error {
	sameName := model.SameName(curName, nextName)
	switch {
	case wasLive && isLive && sameName, !wasLive && !isLive:
		return nil
	case wasLive && !isLive:
		names.Unrecord(ctx, curName)
		return nil
	}
	if names.SeenAndRecord(ctx, nextName) {
		return errDuplicateKey(nextName)
	}
	if wasLive {
		names.Unrecord(ctx, curName)
	}
	return nil
}

// DeleteEvent implements EventStore.
func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	defer observe("delete_event", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return model.NewKind("repository.delete_event", model.ErrEventNotFound)
	}
	if !ev.Cancelled {
		s.names.Unrecord(ctx, ev.Name)
	}
	delete(s.events, id)
	for i, eid := range s.order {
		if eid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.deleteVotesLocked(ctx, id)
	return nil
}

// Events implements EventStore.
func (s *MemoryStore) Events(ctx context.Context, q EventQuery) ([]model.VotingEvent, error) {
	defer observe("events", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.VotingEvent, 0, len(s.order))
	for _, id := range s.order {
		ev := s.events[id]
		if ev.Cancelled && !q.IncludeCancelled {
			continue
		}
		if q.Full {
			out = append(out, ev.Clone())
		} else {
			out = append(out, ev.Skinny().Clone())
		}
	}
	return out, nil
}

// startMetricsUpdater starts a background goroutine that publishes store sizes.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	events, votes, techs := len(s.events), len(s.votes), len(s.techs)
	s.mu.RUnlock()

	metrics.UpdateStoredEvents(events)
	metrics.UpdateStoredVotes(votes)
	metrics.UpdateCatalogSize(techs)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(memoryStoreName, op, float64(time.Since(start).Microseconds())/1000)
}
