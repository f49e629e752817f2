// Package recommendation guards the editorial recommendation of a
// technology with a single-author lock. Functions mutate the technology
// passed in; persistence decides concurrent winners through the event
// version compare-and-set.
package recommendation

import (
	"strings"

	"github.com/okian/techradar/internal/domain/model"
)

// SetAuthor claims the lock for author. Claiming it again as the same
// author is a no-op.
func SetAuthor(t *model.Technology, author string) error {
	author = strings.TrimSpace(author)
	if author == "" {
		return model.NewKind("recommendation.set_author", model.ErrInvalidInput)
	}
	switch current := strings.TrimSpace(t.RecommendationAuthor); {
	case current == "":
		t.RecommendationAuthor = author
		return nil
	case current == author:
		return nil
	default:
		return &model.AuthorError{Kind: model.ErrRecommendationAuthorAlreadySet, CurrentAuthor: current}
	}
}

// Set stores rec. With no lock holder the recommendation's author takes the lock.
func Set(t *model.Technology, rec model.Recommendation) error {
	rec.Author = strings.TrimSpace(rec.Author)
	if rec.Author == "" {
		return model.NewKind("recommendation.set", model.ErrInvalidInput)
	}
	if rec.Ring != "" && !rec.Ring.Valid() {
		return model.NewKind("recommendation.set", model.ErrInvalidInput)
	}
	current := strings.TrimSpace(t.RecommendationAuthor)
	if current != "" && current != rec.Author {
		return &model.AuthorError{Kind: model.ErrRecommendationAuthorDifferent, CurrentAuthor: current}
	}
	t.RecommendationAuthor = rec.Author
	t.Recommendation = &rec
	return nil
}

// Reset clears author and recommendation when requester holds the lock.
func Reset(t *model.Technology, requester string) error {
	current := strings.TrimSpace(t.RecommendationAuthor)
	if current != strings.TrimSpace(requester) {
		return &model.AuthorError{Kind: model.ErrRecommendationAuthorDifferent, CurrentAuthor: current}
	}
	t.RecommendationAuthor = ""
	t.Recommendation = nil
	return nil
}
