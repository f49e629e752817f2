package service

import (
	"context"
	"fmt"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/flow"
	"github.com/okian/techradar/internal/domain/model"
)

// AddCommentToTech appends a top-level comment to a technology of an event.
func (s *Service) AddCommentToTech(ctx context.Context, eventID, techID, text, author string) (string, error) {
	const op = "add_comment_to_tech"
	return call(ctx, s, op, func(ctx context.Context) (string, error) {
		var id string
		_, err := s.mutateEvent(ctx, op, eventID, flow.Annotate, func(_ context.Context, ev *model.VotingEvent) error {
			t, err := technologyAt(ev, op, techID)
			if err != nil {
				return err
			}
			if t.Comments == nil {
				t.Comments = &model.CommentThread{}
			}
			id, err = s.comments.AddComment(t.Comments, text, author)
			return err
		})
		return id, err
	})
}

// AddReplyToTechComment replies to any comment in a technology's thread.
func (s *Service) AddReplyToTechComment(ctx context.Context, eventID, techID, commentID, text, author string) (string, error) {
	const op = "add_reply_to_tech_comment"
	return call(ctx, s, op, func(ctx context.Context) (string, error) {
		var id string
		_, err := s.mutateEvent(ctx, op, eventID, flow.Annotate, func(_ context.Context, ev *model.VotingEvent) error {
			t, err := technologyAt(ev, op, techID)
			if err != nil {
				return err
			}
			id, err = s.comments.AddReply(t.Comments, commentID, text, author)
			return err
		})
		return id, err
	})
}

// AddReplyToVoteComment replies to any comment in a vote's thread.
func (s *Service) AddReplyToVoteComment(ctx context.Context, voteID, commentID, text, author string) (string, error) {
	const op = "add_reply_to_vote_comment"
	return call(ctx, s, op, func(ctx context.Context) (string, error) {
		var id string
		_, err := s.store.MutateVote(ctx, voteID, func(v *model.Vote) error {
			var err error
			id, err = s.comments.AddReply(v.Comment, commentID, text, author)
			return err
		})
		if err != nil {
			return "", err
		}
		return id, nil
	})
}

// GetVotesCommentsForTech returns the comment trees voters left on a
// technology, optionally within one event. Votes of soft-cancelled events
// are left out.
func (s *Service) GetVotesCommentsForTech(ctx context.Context, techID, eventID string) ([]model.Comment, error) {
	const op = "get_votes_comments_for_tech"
	return call(ctx, s, op, func(ctx context.Context) ([]model.Comment, error) {
		f := repository.VoteFilter{EventID: eventID, TechnologyID: techID}
		if eventID != "" {
			if _, err := s.liveEvent(ctx, op, eventID); err != nil {
				return nil, err
			}
		} else {
			ids, err := s.liveEventIDs(ctx)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return []model.Comment{}, nil
			}
			f.EventIDs = ids
		}
		votes, err := s.store.Votes(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make([]model.Comment, 0)
		for _, v := range votes {
			out = append(out, v.Comment.Tree()...)
		}
		return out, nil
	})
}

// GetVotesWithCommentsForTechAndEvent returns the votes on a technology in
// an event that carry a comment.
func (s *Service) GetVotesWithCommentsForTechAndEvent(ctx context.Context, techID, eventID string) ([]model.Vote, error) {
	return call(ctx, s, "get_votes_with_comments", func(ctx context.Context) ([]model.Vote, error) {
		votes, err := s.store.Votes(ctx, repository.VoteFilter{EventID: eventID, TechnologyID: techID})
		if err != nil {
			return nil, err
		}
		out := make([]model.Vote, 0, len(votes))
		for _, v := range votes {
			if v.Comment.Len() > 0 {
				out = append(out, v)
			}
		}
		return out, nil
	})
}

// technologyAt returns a pointer into ev for techID after checking the
// event can be annotated.
func technologyAt(ev *model.VotingEvent, op, techID string) (*model.Technology, error) {
	if err := flow.Check(ev, flow.Annotate); err != nil {
		return nil, err
	}
	i := ev.TechnologyIndex(techID)
	if i < 0 {
		return nil, model.WrapKind(op, model.ErrTechnologyNotPresent, fmt.Errorf("technology %s", techID))
	}
	return &ev.Technologies[i], nil
}
