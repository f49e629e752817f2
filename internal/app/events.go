package service

import (
	"context"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/flow"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
)

// CreateEvent creates a proposed event. Names are unique among live events.
func (s *Service) CreateEvent(ctx context.Context, name, initiative, creator string) (model.VotingEvent, error) {
	return call(ctx, s, "create_event", func(ctx context.Context) (model.VotingEvent, error) {
		ev, err := flow.NewEvent(s.newID(), name, initiative, creator, s.now())
		if err != nil {
			return model.VotingEvent{}, err
		}
		saved, err := s.store.InsertEvent(ctx, ev)
		if err != nil {
			return model.VotingEvent{}, err
		}
		s.logger.Info(ctx, "voting event created",
			logger.String("eventID", saved.ID),
			logger.String("name", saved.Name),
			logger.String("initiative", saved.Initiative),
		)
		return saved, nil
	})
}

// GetEvent returns a live event. Soft-cancelled events are not found.
func (s *Service) GetEvent(ctx context.Context, id string) (model.VotingEvent, error) {
	return call(ctx, s, "get_event", func(ctx context.Context) (model.VotingEvent, error) {
		return s.liveEvent(ctx, "get_event", id)
	})
}

// ListEvents lists live events. Without full, technologies and blips are omitted.
func (s *Service) ListEvents(ctx context.Context, full bool) ([]model.VotingEvent, error) {
	return call(ctx, s, "list_events", func(ctx context.Context) ([]model.VotingEvent, error) {
		return s.store.Events(ctx, repository.EventQuery{Full: full})
	})
}

// OpenEvent opens a proposed or closed event. The first open starts round 1
// and snapshots the catalog unless technologies were already set.
func (s *Service) OpenEvent(ctx context.Context, id string) (model.VotingEvent, error) {
	return call(ctx, s, "open_event", func(ctx context.Context) (model.VotingEvent, error) {
		ev, err := s.mutateEvent(ctx, "open_event", id, flow.Open, func(ctx context.Context, ev *model.VotingEvent) error {
			var catalog []model.Technology
			if !ev.Snapshotted() && len(ev.Technologies) == 0 {
				var err error
				if catalog, err = s.catalog.Technologies(ctx, ev.Initiative); err != nil {
					return err
				}
			}
			return flow.DoOpen(ev, catalog, s.newID, s.now())
		})
		if err == nil {
			s.logger.Info(ctx, "voting event opened",
				logger.String("eventID", id), logger.Int("round", ev.Round), logger.Int("technologies", len(ev.Technologies)))
		}
		return ev, err
	})
}

// CloseEvent closes an open event.
func (s *Service) CloseEvent(ctx context.Context, id string) (model.VotingEvent, error) {
	return call(ctx, s, "close_event", func(ctx context.Context) (model.VotingEvent, error) {
		ev, err := s.mutateEvent(ctx, "close_event", id, flow.Close, func(_ context.Context, ev *model.VotingEvent) error {
			return flow.DoClose(ev, s.now())
		})
		if err == nil {
			s.logger.Info(ctx, "voting event closed", logger.String("eventID", id))
		}
		return ev, err
	})
}

// CancelEvent soft-cancels an event, or deletes it with its votes when hard is set.
func (s *Service) CancelEvent(ctx context.Context, id string, hard bool) error {
	return s.run(ctx, "cancel_event", func(ctx context.Context) error {
		if !hard {
			_, err := s.mutateEvent(ctx, "cancel_event", id, flow.CancelSoft, func(_ context.Context, ev *model.VotingEvent) error {
				return flow.DoCancel(ev)
			})
			if err == nil {
				s.logger.Info(ctx, "voting event cancelled", logger.String("eventID", id))
			}
			return err
		}

		ev, err := s.store.Event(ctx, id)
		if err != nil {
			return err
		}
		if err := flow.Check(&ev, flow.CancelHard); err != nil {
			return err
		}
		if err := s.store.DeleteEvent(ctx, id); err != nil {
			return err
		}
		s.logger.Info(ctx, "voting event deleted", logger.String("eventID", id), logger.Bool("hard", true))
		return nil
	})
}

// UndoCancel restores a soft-cancelled event.
func (s *Service) UndoCancel(ctx context.Context, id string) (model.VotingEvent, error) {
	return call(ctx, s, "undo_cancel", func(ctx context.Context) (model.VotingEvent, error) {
		return s.mutateEvent(ctx, "undo_cancel", id, flow.UndoCancel, func(_ context.Context, ev *model.VotingEvent) error {
			return flow.DoUndoCancel(ev)
		})
	})
}

// OpenForRevote flags the current round for revote. round must match the
// event's round.
func (s *Service) OpenForRevote(ctx context.Context, id string, round int) (model.VotingEvent, error) {
	return call(ctx, s, "open_for_revote", func(ctx context.Context) (model.VotingEvent, error) {
		return s.mutateEvent(ctx, "open_for_revote", id, flow.OpenForRevote, func(_ context.Context, ev *model.VotingEvent) error {
			return flow.DoOpenForRevote(ev, round)
		})
	})
}

// CloseForRevote clears the revote flag.
func (s *Service) CloseForRevote(ctx context.Context, id string) (model.VotingEvent, error) {
	return call(ctx, s, "close_for_revote", func(ctx context.Context) (model.VotingEvent, error) {
		return s.mutateEvent(ctx, "close_for_revote", id, flow.CloseForRevote, func(_ context.Context, ev *model.VotingEvent) error {
			return flow.DoCloseForRevote(ev)
		})
	})
}

// MoveToNextFlowStep freezes the current round's tallies and advances the
// round. round pins the round the caller saw; zero pins the round read
// first, so a caller that loses a race fails with ErrStaleRound.
func (s *Service) MoveToNextFlowStep(ctx context.Context, id string, round int) (model.VotingEvent, error) {
	return call(ctx, s, "next_flow_step", func(ctx context.Context) (model.VotingEvent, error) {
		pinned := round
		ev, err := s.mutateEvent(ctx, "next_flow_step", id, flow.MoveToNextFlowStep, func(ctx context.Context, ev *model.VotingEvent) error {
			if pinned == 0 {
				pinned = ev.Round
			}
			if err := flow.Check(ev, flow.MoveToNextFlowStep); err != nil {
				return err
			}
			votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: ev.ID})
			if err != nil {
				return err
			}
			return flow.DoMoveToNextFlowStep(ev, pinned, votes)
		})
		if err == nil {
			s.logger.Info(ctx, "voting event moved to next flow step",
				logger.String("eventID", id), logger.Int("round", ev.Round))
		}
		return ev, err
	})
}

// AddNewTechnology appends a technology to an opened event.
func (s *Service) AddNewTechnology(ctx context.Context, id string, tech model.Technology) (model.Technology, error) {
	return call(ctx, s, "add_technology", func(ctx context.Context) (model.Technology, error) {
		var added model.Technology
		_, err := s.mutateEvent(ctx, "add_technology", id, flow.AddTechnology, func(_ context.Context, ev *model.VotingEvent) error {
			var err error
			added, err = flow.DoAddTechnology(ev, tech, s.newID)
			return err
		})
		return added, err
	})
}

// SetTechnologies replaces the technologies of an event.
func (s *Service) SetTechnologies(ctx context.Context, id string, techs []model.Technology) (model.VotingEvent, error) {
	return call(ctx, s, "set_technologies", func(ctx context.Context) (model.VotingEvent, error) {
		return s.mutateEvent(ctx, "set_technologies", id, flow.SetTechnologies, func(_ context.Context, ev *model.VotingEvent) error {
			return flow.DoSetTechnologies(ev, techs, s.newID)
		})
	})
}

// TechnologyWithCounts is a technology with the activity it received.
type TechnologyWithCounts struct {
	model.Technology
	NumberOfVotes    int `json:"numberOfVotes"`
	NumberOfComments int `json:"numberOfComments"`
}

// EventWithCounts is an event whose technologies carry vote and comment counts.
type EventWithCounts struct {
	model.VotingEvent
	Technologies []TechnologyWithCounts `json:"technologies"`
}

// GetEventWithCounts returns the event with, per technology, the number of
// votes it received and the number of comments on it and on its votes,
// replies included.
func (s *Service) GetEventWithCounts(ctx context.Context, id string) (EventWithCounts, error) {
	return call(ctx, s, "get_event_with_counts", func(ctx context.Context) (EventWithCounts, error) {
		ev, err := s.liveEvent(ctx, "get_event_with_counts", id)
		if err != nil {
			return EventWithCounts{}, err
		}
		votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: id})
		if err != nil {
			return EventWithCounts{}, err
		}

		type counts struct{ votes, comments int }
		byTech := make(map[string]*counts, len(ev.Technologies))
		for _, v := range votes {
			c, ok := byTech[v.Technology.ID]
			if !ok {
				c = &counts{}
				byTech[v.Technology.ID] = c
			}
			c.votes++
			c.comments += v.Comment.Len()
		}

		out := EventWithCounts{VotingEvent: ev, Technologies: make([]TechnologyWithCounts, len(ev.Technologies))}
		for i, t := range ev.Technologies {
			twc := TechnologyWithCounts{Technology: t, NumberOfComments: t.Comments.Len()}
			if c, ok := byTech[t.ID]; ok {
				twc.NumberOfVotes = c.votes
				twc.NumberOfComments += c.comments
			}
			out.Technologies[i] = twc
		}
		return out, nil
	})
}
