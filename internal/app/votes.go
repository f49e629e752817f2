package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/flow"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
	"github.com/okian/techradar/pkg/logger"
	"github.com/okian/techradar/pkg/metrics"
)

// Credentials identify who votes in which event.
type Credentials struct {
	EventID string
	Voter   model.Voter
}

// Ballot is one vote as submitted, before the service stamps it.
type Ballot struct {
	Technology model.TechnologyRef
	Ring       model.Ring
	Tags       []string
	Comment    string
}

// SaveVotes stores a voter's ballots for the event's current round. The
// batch is stored entirely or not at all; a repeat vote by the same
// normalized voter for the same technology and round fails with
// ErrDuplicateVote. The store re-checks the event when it inserts, so a
// close or round change that lands first refuses the batch.
func (s *Service) SaveVotes(ctx context.Context, cred Credentials, ballots []Ballot, ip string) ([]model.Vote, error) {
	const op = "save_votes"
	return call(ctx, s, op, func(ctx context.Context) ([]model.Vote, error) {
		key := cred.Voter.Key()
		if key == "" {
			return nil, model.WrapKind(op, model.ErrInvalidInput, errNoVoter)
		}
		if len(ballots) == 0 {
			return nil, model.WrapKind(op, model.ErrInvalidInput, errEmptyBallot)
		}
		ev, err := s.liveEvent(ctx, op, cred.EventID)
		if err != nil {
			return nil, err
		}
		if err := flow.Check(&ev, flow.AcceptVotes); err != nil {
			return nil, err
		}

		now := s.now()
		author := voterName(cred.Voter)
		votes := make([]model.Vote, 0, len(ballots))
		for _, b := range ballots {
			ring, err := model.ParseRing(string(b.Ring))
			if err != nil {
				return nil, err
			}
			ref, err := technologyOf(&ev, b.Technology)
			if err != nil {
				return nil, err
			}
			v := model.Vote{
				ID:         s.newID(),
				EventID:    ev.ID,
				EventName:  ev.Name,
				EventRound: ev.Round,
				Technology: ref,
				Ring:       ring,
				Tags:       cleanTags(b.Tags),
				Voter:      cred.Voter,
				VoterKey:   key,
				IPAddress:  ip,
				Timestamp:  now,
			}
			if strings.TrimSpace(b.Comment) != "" {
				v.Comment = s.comments.NewThread(b.Comment, author)
			}
			votes = append(votes, v)
		}

		round := ev.Round
		saved, err := s.store.InsertVotes(ctx, ev.ID, func(cur model.VotingEvent) error {
			return flow.Admit(&cur, round)
		}, votes)
		if err != nil {
			if errors.Is(err, model.ErrDuplicateVote) {
				metrics.RecordDuplicateVote()
			}
			return nil, err
		}
		metrics.RecordVotesSaved(len(saved))
		s.logger.Debug(ctx, "votes saved",
			logger.String("eventID", ev.ID),
			logger.Int("round", ev.Round),
			logger.Int("count", len(saved)),
		)
		return saved, nil
	})
}

// DeleteVotes removes every vote of a live event, in every round. Frozen
// results already stored on the event are kept.
func (s *Service) DeleteVotes(ctx context.Context, eventID string) (int, error) {
	const op = "delete_votes"
	return call(ctx, s, op, func(ctx context.Context) (int, error) {
		if _, err := s.liveEvent(ctx, op, eventID); err != nil {
			return 0, err
		}
		n, err := s.store.DeleteVotes(ctx, eventID)
		if err != nil {
			return 0, err
		}
		s.logger.Warn(ctx, "votes deleted", logger.String("eventID", eventID), logger.Int("count", n))
		return n, nil
	})
}

// GetVotes returns votes matching f in insertion order.
func (s *Service) GetVotes(ctx context.Context, f repository.VoteFilter) ([]model.Vote, error) {
	return call(ctx, s, "get_votes", func(ctx context.Context) ([]model.Vote, error) {
		return s.store.Votes(ctx, f)
	})
}

// HasAlreadyVoted reports whether voter cast any vote in the event's current round.
func (s *Service) HasAlreadyVoted(ctx context.Context, eventID string, voter model.Voter) (bool, error) {
	const op = "has_already_voted"
	return call(ctx, s, op, func(ctx context.Context) (bool, error) {
		key := voter.Key()
		if key == "" {
			return false, model.WrapKind(op, model.ErrInvalidInput, errNoVoter)
		}
		ev, err := s.liveEvent(ctx, op, eventID)
		if err != nil {
			return false, err
		}
		votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: eventID, Round: ev.Round})
		if err != nil {
			return false, err
		}
		for _, v := range votes {
			if v.VoterKey == key {
				return true, nil
			}
		}
		return false, nil
	})
}

// GetVoters lists the distinct voters of an event in first-vote order.
func (s *Service) GetVoters(ctx context.Context, eventID string) ([]model.Voter, error) {
	const op = "get_voters"
	return call(ctx, s, op, func(ctx context.Context) ([]model.Voter, error) {
		if _, err := s.liveEvent(ctx, op, eventID); err != nil {
			return nil, err
		}
		return s.voters(ctx, eventID)
	})
}

func (s *Service) voters(ctx context.Context, eventID string) ([]model.Voter, error) {
	votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: eventID})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]model.Voter, 0)
	for _, v := range votes {
		if _, ok := seen[v.VoterKey]; ok {
			continue
		}
		seen[v.VoterKey] = struct{}{}
		out = append(out, v.Voter)
	}
	return out, nil
}

// CalculateWinner draws one voter at random and stores it as the event winner.
func (s *Service) CalculateWinner(ctx context.Context, eventID string) (model.Voter, error) {
	const op = "calculate_winner"
	return call(ctx, s, op, func(ctx context.Context) (model.Voter, error) {
		if _, err := s.liveEvent(ctx, op, eventID); err != nil {
			return model.Voter{}, err
		}
		voters, err := s.voters(ctx, eventID)
		if err != nil {
			return model.Voter{}, err
		}
		if len(voters) == 0 {
			return model.Voter{}, model.WrapKind(op, model.ErrInvalidInput, errNoVoters)
		}

		s.rndMu.Lock()
		winner := voters[s.rnd.IntN(len(voters))]
		s.rndMu.Unlock()

		_, err = s.mutateEvent(ctx, op, eventID, flow.Annotate, func(_ context.Context, ev *model.VotingEvent) error {
			if err := flow.Check(ev, flow.Annotate); err != nil {
				return err
			}
			w := winner
			ev.Winner = &w
			return nil
		})
		if err != nil {
			return model.Voter{}, err
		}
		s.logger.Info(ctx, "winner drawn", logger.String("eventID", eventID), logger.Int("voters", len(voters)))
		return winner, nil
	})
}

// AggregateVotes returns the raw per-technology tallies of an event. A
// positive round restricts them to that round.
func (s *Service) AggregateVotes(ctx context.Context, eventID string, round int) ([]tally.Result, error) {
	const op = "aggregate_votes"
	return call(ctx, s, op, func(ctx context.Context) ([]tally.Result, error) {
		if _, err := s.liveEvent(ctx, op, eventID); err != nil {
			return nil, err
		}
		votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: eventID, Round: round})
		if err != nil {
			return nil, err
		}
		return tally.Tally(votes), nil
	})
}

// CalculateBlips resolves the blips of an event and stores them, together
// with every technology's revote flag, on the event. A positive round
// counts only that round; zero counts each technology's latest voted round.
func (s *Service) CalculateBlips(ctx context.Context, eventID string, round int) ([]model.Blip, error) {
	const op = "calculate_blips"
	return call(ctx, s, op, func(ctx context.Context) ([]model.Blip, error) {
		var blips []model.Blip
		_, err := s.mutateEvent(ctx, op, eventID, flow.Annotate, func(ctx context.Context, ev *model.VotingEvent) error {
			if ev.Cancelled {
				return model.NewKind(op, model.ErrEventNotFound)
			}
			votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: eventID, Round: round})
			if err != nil {
				return err
			}
			if round == 0 {
				votes = tally.LatestRound(votes, ev.Round)
			}
			blips = tally.Blips(votes)
			ev.Blips = blips
			flags := make(map[string]bool, len(blips))
			for _, b := range blips {
				flags[b.TechnologyID] = b.ForRevote
			}
			for i := range ev.Technologies {
				if f, ok := flags[ev.Technologies[i].ID]; ok {
					ev.Technologies[i].ForRevote = f
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		metrics.RecordBlipsCalculated(len(blips))
		return blips, nil
	})
}

// CalculateBlipsFromAllEvents merges the votes of every live event by
// technology name and resolves them. Each event contributes the latest
// voted round of each of its technologies.
func (s *Service) CalculateBlipsFromAllEvents(ctx context.Context) ([]model.Blip, error) {
	return call(ctx, s, "calculate_blips_all_events", func(ctx context.Context) ([]model.Blip, error) {
		ids, err := s.liveEventIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []model.Blip{}, nil
		}
		votes, err := s.store.Votes(ctx, repository.VoteFilter{EventIDs: ids})
		if err != nil {
			return nil, err
		}
		blips := tally.MergedBlips(latestPerEvent(votes))
		metrics.RecordBlipsCalculated(len(blips))
		return blips, nil
	})
}

// liveEventIDs lists the ids of events that are not soft-cancelled.
func (s *Service) liveEventIDs(ctx context.Context) ([]string, error) {
	events, err := s.store.Events(ctx, repository.EventQuery{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids, nil
}

// latestPerEvent applies tally.LatestRound inside each event, keeping the
// overall insertion order.
func latestPerEvent(votes []model.Vote) []model.Vote {
	byEvent := make(map[string][]model.Vote)
	for _, v := range votes {
		byEvent[v.EventID] = append(byEvent[v.EventID], v)
	}
	keep := make(map[string]struct{}, len(votes))
	for _, evVotes := range byEvent {
		for _, v := range tally.LatestRound(evVotes, 0) {
			keep[v.ID] = struct{}{}
		}
	}
	out := make([]model.Vote, 0, len(keep))
	for _, v := range votes {
		if _, ok := keep[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// technologyOf resolves a ballot's technology against the event snapshot,
// by id first and then by name.
func technologyOf(ev *model.VotingEvent, ref model.TechnologyRef) (model.TechnologyRef, error) {
	const op = "save_votes"
	if ref.ID == "" && strings.TrimSpace(ref.Name) == "" {
		return model.TechnologyRef{}, model.WrapKind(op, model.ErrInvalidInput, errMissingTechnology)
	}
	i := -1
	if ref.ID != "" {
		i = ev.TechnologyIndex(ref.ID)
	}
	if i < 0 && ref.Name != "" {
		i = ev.TechnologyIndexByName(ref.Name)
	}
	if i < 0 {
		return model.TechnologyRef{}, model.WrapKind(op, model.ErrTechnologyNotPresent,
			fmt.Errorf("technology %q (%s) not in event", ref.Name, ref.ID))
	}
	return ev.Technologies[i].Ref(), nil
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func voterName(v model.Voter) string {
	if n := strings.TrimSpace(v.Nickname); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(v.FirstName) + " " + strings.TrimSpace(v.LastName))
}
