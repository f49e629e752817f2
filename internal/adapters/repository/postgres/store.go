// Package postgres implements the vote and event stores on PostgreSQL via gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
	"github.com/okian/techradar/pkg/metrics"
)

const (
	storeName          = "postgres"
	liveNameIndex      = "ux_voting_events_live_name"
	liveTechIndex      = "ux_technologies_live_name"
	uniqueViolation    = "23505"
	defaultPingTimeout = 5 * time.Second
)

// Store implements repository.Store.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// Connect opens a gorm connection and checks it with a ping.
func Connect(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	s := New(db, log)

	pctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := s.Ping(pctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Migrate creates tables and indexes. The live-name indexes are partial,
// so cancelled events and catalog entries do not reserve their name.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&eventModel{}, &voteModel{}, &technologyModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for index, table := range map[string]string{liveNameIndex: "voting_events", liveTechIndex: "technologies"} {
		stmt := "CREATE UNIQUE INDEX IF NOT EXISTS " + index +
			" ON " + table + " (lower(btrim(name))) WHERE NOT cancelled"
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", index, err)
		}
	}
	return nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertVotes implements repository.VoteStore. The event row stays locked
// from the admit check until the batch and the version bump commit.
func (s *Store) InsertVotes(ctx context.Context, eventID string, admit repository.AdmitFunc, votes []model.Vote) ([]model.Vote, error) {
	const op = "postgres.insert_votes"
	defer observe("insert_votes", time.Now())
	if len(votes) == 0 {
		return nil, nil
	}
	rows := make([]voteModel, len(votes))
	for i, v := range votes {
		if v.EventID != eventID {
			return nil, model.WrapKind(op, model.ErrInvalidInput, fmt.Errorf("vote %s belongs to event %s", v.ID, v.EventID))
		}
		row, err := voteModelFromEntity(v)
		if err != nil {
			return nil, model.WrapKind(op, model.ErrInvalidInput, err)
		}
		rows[i] = row
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, op, eventID)
		if err != nil {
			return err
		}
		if admit != nil {
			if err := admit(ev); err != nil {
				return err
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return bumpVersion(tx, eventID)
	})
	if err != nil {
		if model.Kind(err) != nil {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, model.WrapKind(op, model.ErrDuplicateVote, err)
		}
		return nil, s.logError("votes_insert_failed", err, logger.Int("count", len(votes)))
	}
	out := make([]model.Vote, len(votes))
	for i, v := range votes {
		v.Seq = rows[i].Seq
		out[i] = v
	}
	return out, nil
}

// lockEvent reads the event row under FOR UPDATE.
func lockEvent(tx *gorm.DB, op, id string) (model.VotingEvent, error) {
	var row eventModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.VotingEvent{}, model.NewKind(op, model.ErrEventNotFound)
	}
	if err != nil {
		return model.VotingEvent{}, err
	}
	return row.toEntity()
}

func bumpVersion(tx *gorm.DB, id string) error {
	return tx.Model(&eventModel{}).Where("id = ?", id).
		Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now().UTC()}).Error
}

// Votes implements repository.VoteStore.
func (s *Store) Votes(ctx context.Context, f repository.VoteFilter) ([]model.Vote, error) {
	defer observe("votes", time.Now())
	tx := s.db.WithContext(ctx).Model(&voteModel{})
	if f.EventID != "" {
		tx = tx.Where("event_id = ?", f.EventID)
	}
	if len(f.EventIDs) > 0 {
		tx = tx.Where("event_id IN ?", f.EventIDs)
	}
	if f.TechnologyID != "" {
		tx = tx.Where("technology_id = ?", f.TechnologyID)
	}
	if f.Round > 0 {
		tx = tx.Where("event_round = ?", f.Round)
	}
	var rows []voteModel
	if err := tx.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("votes_list_failed", err, logger.String("event_id", f.EventID))
	}
	return toVoteEntities(rows)
}

// MutateVote implements repository.VoteStore. The row is locked for the
// duration of fn.
func (s *Store) MutateVote(ctx context.Context, id string, fn func(v *model.Vote) error) (model.Vote, error) {
	const op = "postgres.mutate_vote"
	defer observe("mutate_vote", time.Now())
	var out model.Vote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row voteModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewKind(op, model.ErrVoteNotFound)
		}
		if err != nil {
			return err
		}
		v, err := row.toEntity()
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		v.ID, v.EventID, v.EventRound, v.VoterKey, v.Seq = row.ID, row.EventID, row.EventRound, row.VoterKey, row.Seq
		v.Technology.ID = row.TechnologyID
		next, err := voteModelFromEntity(v)
		if err != nil {
			return err
		}
		if err := tx.Model(&voteModel{}).Where("seq = ?", row.Seq).
			Updates(map[string]any{"doc": next.Doc, "ring": next.Ring}).Error; err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		if model.Kind(err) != nil {
			return model.Vote{}, err
		}
		return model.Vote{}, s.logError("vote_mutate_failed", err, logger.String("vote_id", id))
	}
	return out, nil
}

// DeleteVotes implements repository.VoteStore.
func (s *Store) DeleteVotes(ctx context.Context, eventID string) (int, error) {
	const op = "postgres.delete_votes"
	defer observe("delete_votes", time.Now())
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, op, eventID); err != nil {
			return err
		}
		res := tx.Where("event_id = ?", eventID).Delete(&voteModel{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return bumpVersion(tx, eventID)
	})
	if err != nil {
		if model.Kind(err) != nil {
			return 0, err
		}
		return 0, s.logError("votes_delete_failed", err, logger.String("event_id", eventID))
	}
	return int(n), nil
}

// InsertEvent implements repository.EventStore.
func (s *Store) InsertEvent(ctx context.Context, ev model.VotingEvent) (model.VotingEvent, error) {
	const op = "postgres.insert_event"
	defer observe("insert_event", time.Now())
	ev.Version = 1
	row, err := eventModelFromEntity(ev)
	if err != nil {
		return model.VotingEvent{}, model.WrapKind(op, model.ErrInvalidInput, err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if c, ok := uniqueConstraint(err); ok {
			if c == liveNameIndex {
				return model.VotingEvent{}, model.WrapKind(op, model.ErrDuplicateEventName, err)
			}
			return model.VotingEvent{}, model.WrapKind(op, model.ErrInvalidInput, err)
		}
		return model.VotingEvent{}, s.logError("event_insert_failed", err, logger.String("event_id", ev.ID))
	}
	return ev, nil
}

// Event implements repository.EventStore.
func (s *Store) Event(ctx context.Context, id string) (model.VotingEvent, error) {
	defer observe("event", time.Now())
	var row eventModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.VotingEvent{}, model.NewKind("postgres.event", model.ErrEventNotFound)
		}
		return model.VotingEvent{}, s.logError("event_get_failed", err, logger.String("event_id", id))
	}
	return row.toEntity()
}

// UpdateEvent implements repository.EventStore as a conditional update on version.
func (s *Store) UpdateEvent(ctx context.Context, ev model.VotingEvent, expectedVersion int64) (model.VotingEvent, error) {
	const op = "postgres.update_event"
	defer observe("update_event", time.Now())
	ev.Version = expectedVersion + 1
	row, err := eventModelFromEntity(ev)
	if err != nil {
		return model.VotingEvent{}, model.WrapKind(op, model.ErrInvalidInput, err)
	}
	res := s.db.WithContext(ctx).Model(&eventModel{}).
		Where("id = ? AND version = ?", ev.ID, expectedVersion).
		Updates(map[string]any{
			"name":       row.Name,
			"status":     row.Status,
			"cancelled":  row.Cancelled,
			"round":      row.Round,
			"version":    row.Version,
			"doc":        row.Doc,
			"updated_at": row.UpdatedAt,
		})
	if res.Error != nil {
		if c, ok := uniqueConstraint(res.Error); ok && c == liveNameIndex {
			return model.VotingEvent{}, model.WrapKind(op, model.ErrDuplicateEventName, res.Error)
		}
		return model.VotingEvent{}, s.logError("event_update_failed", res.Error, logger.String("event_id", ev.ID))
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&eventModel{}).Where("id = ?", ev.ID).Count(&n).Error; err != nil {
			return model.VotingEvent{}, s.logError("event_update_recheck_failed", err, logger.String("event_id", ev.ID))
		}
		if n == 0 {
			return model.VotingEvent{}, model.NewKind(op, model.ErrEventNotFound)
		}
		return model.VotingEvent{}, repository.ErrVersionConflict
	}
	return ev, nil
}

// DeleteEvent implements repository.EventStore.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	const op = "postgres.delete_event"
	defer observe("delete_event", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&voteModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&eventModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.NewKind(op, model.ErrEventNotFound)
		}
		return nil
	})
	if err != nil && model.Kind(err) == nil {
		return s.logError("event_delete_failed", err, logger.String("event_id", id))
	}
	return err
}

// Events implements repository.EventStore.
func (s *Store) Events(ctx context.Context, q repository.EventQuery) ([]model.VotingEvent, error) {
	defer observe("events", time.Now())
	tx := s.db.WithContext(ctx).Model(&eventModel{})
	if !q.IncludeCancelled {
		tx = tx.Where("cancelled = ?", false)
	}
	var rows []eventModel
	if err := tx.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("events_list_failed", err)
	}
	out := make([]model.VotingEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		if !q.Full {
			ev = ev.Skinny()
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) logError(event string, err error, fields ...logger.Field) error {
	fields = append(fields, logger.String("event", event), logger.Error(err))
	s.logger.Error(context.Background(), "postgres store operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	_, ok := uniqueConstraint(err)
	return ok
}

// uniqueConstraint returns the violated constraint of a unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(storeName, op, float64(time.Since(start).Microseconds())/1000)
}

var _ repository.Store = (*Store)(nil)
