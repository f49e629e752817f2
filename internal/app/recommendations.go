package service

import (
	"context"

	"github.com/okian/techradar/internal/domain/flow"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/recommendation"
	"github.com/okian/techradar/pkg/logger"
)

// SetRecommendationAuthor claims the recommendation of a technology for
// author. Racing claims are decided by the event compare-and-set: the
// loser re-reads and fails with ErrRecommendationAuthorAlreadySet.
func (s *Service) SetRecommendationAuthor(ctx context.Context, eventID, techID, author string) (model.Technology, error) {
	return s.recommend(ctx, "set_recommendation_author", eventID, techID, func(t *model.Technology) error {
		return recommendation.SetAuthor(t, author)
	})
}

// SetRecommendation stores a recommendation written by its author.
func (s *Service) SetRecommendation(ctx context.Context, eventID, techID string, rec model.Recommendation) (model.Technology, error) {
	return s.recommend(ctx, "set_recommendation", eventID, techID, func(t *model.Technology) error {
		rec.Timestamp = s.now()
		return recommendation.Set(t, rec)
	})
}

// ResetRecommendation releases the lock; only its holder may do so.
func (s *Service) ResetRecommendation(ctx context.Context, eventID, techID, requester string) (model.Technology, error) {
	return s.recommend(ctx, "reset_recommendation", eventID, techID, func(t *model.Technology) error {
		return recommendation.Reset(t, requester)
	})
}

func (s *Service) recommend(ctx context.Context, op, eventID, techID string, fn func(t *model.Technology) error) (model.Technology, error) {
	return call(ctx, s, op, func(ctx context.Context) (model.Technology, error) {
		var out model.Technology
		_, err := s.mutateEvent(ctx, op, eventID, flow.Annotate, func(_ context.Context, ev *model.VotingEvent) error {
			t, err := technologyAt(ev, op, techID)
			if err != nil {
				return err
			}
			if err := fn(t); err != nil {
				return err
			}
			out = t.Clone()
			return nil
		})
		if err != nil {
			if author, ok := model.CurrentAuthor(err); ok {
				s.logger.Debug(ctx, "recommendation locked",
					logger.String("eventID", eventID),
					logger.String("technologyID", techID),
					logger.String("currentAuthor", author),
				)
			}
			return model.Technology{}, err
		}
		return out, nil
	})
}
