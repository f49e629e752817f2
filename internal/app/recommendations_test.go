package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/techradar/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecommendations_Lock(t *testing.T) {
	Convey("Given a technology without a recommendation author", t, func() {
		ctx := context.Background()
		svc := newService()
		defer svc.Stop()
		ev := openEvent(svc, "Recommend")

		Convey("When A claims it", func() {
			tech, err := svc.SetRecommendationAuthor(ctx, ev.ID, "go", "A")
			So(err, ShouldBeNil)
			So(tech.RecommendationAuthor, ShouldEqual, "A")

			Convey("Then B cannot claim it and learns the holder", func() {
				_, err := svc.SetRecommendationAuthor(ctx, ev.ID, "go", "B")
				So(errors.Is(err, model.ErrRecommendationAuthorAlreadySet), ShouldBeTrue)
				author, ok := model.CurrentAuthor(err)
				So(ok, ShouldBeTrue)
				So(author, ShouldEqual, "A")
			})

			Convey("Then B cannot write or reset the recommendation", func() {
				_, err := svc.SetRecommendation(ctx, ev.ID, "go", model.Recommendation{Author: "B", Ring: model.RingHold})
				So(errors.Is(err, model.ErrRecommendationAuthorDifferent), ShouldBeTrue)
				_, err = svc.ResetRecommendation(ctx, ev.ID, "go", "B")
				So(errors.Is(err, model.ErrRecommendationAuthorDifferent), ShouldBeTrue)
			})

			Convey("Then A writes it and it is stamped", func() {
				tech, err := svc.SetRecommendation(ctx, ev.ID, "go", model.Recommendation{Author: "A", Text: "use it", Ring: model.RingAdopt})
				So(err, ShouldBeNil)
				So(tech.Recommendation.Text, ShouldEqual, "use it")
				So(tech.Recommendation.Timestamp.IsZero(), ShouldBeFalse)

				Convey("And after A resets it B can claim it", func() {
					reset, err := svc.ResetRecommendation(ctx, ev.ID, "go", "A")
					So(err, ShouldBeNil)
					So(reset.RecommendationAuthor, ShouldBeEmpty)
					So(reset.Recommendation, ShouldBeNil)
					tech, err := svc.SetRecommendationAuthor(ctx, ev.ID, "go", "B")
					So(err, ShouldBeNil)
					So(tech.RecommendationAuthor, ShouldEqual, "B")
				})
			})
		})

		Convey("When the technology is unknown", func() {
			_, err := svc.SetRecommendationAuthor(ctx, ev.ID, "cobol", "A")
			So(errors.Is(err, model.ErrTechnologyNotPresent), ShouldBeTrue)
		})

		Convey("When many authors race for the lock", func() {
			const authors = 10
			errs := make([]error, authors)
			var wg sync.WaitGroup
			for i := 0; i < authors; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.SetRecommendationAuthor(ctx, ev.ID, "rust", fmt.Sprintf("author-%d", i))
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one wins and the others see it", func() {
				winners := 0
				for _, err := range errs {
					if err == nil {
						winners++
						continue
					}
					So(errors.Is(err, model.ErrRecommendationAuthorAlreadySet), ShouldBeTrue)
				}
				So(winners, ShouldEqual, 1)
			})
		})
	})
}
