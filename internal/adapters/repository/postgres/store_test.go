package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okian/techradar/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUniqueConstraint(t *testing.T) {
	Convey("Given errors returned by the driver", t, func() {
		Convey("When a unique violation is wrapped", func() {
			pgErr := &pgconn.PgError{Code: "23505", ConstraintName: liveNameIndex}
			err := fmt.Errorf("create: %w", pgErr)

			Convey("Then the constraint name is recovered", func() {
				c, ok := uniqueConstraint(err)
				So(ok, ShouldBeTrue)
				So(c, ShouldEqual, liveNameIndex)
				So(isUniqueViolation(err), ShouldBeTrue)
			})
		})

		Convey("When the error is another postgres error", func() {
			So(isUniqueViolation(&pgconn.PgError{Code: "42P01"}), ShouldBeFalse)
		})

		Convey("When the error is not from postgres", func() {
			So(isUniqueViolation(errors.New("boom")), ShouldBeFalse)
		})
	})
}

func TestTechConflict(t *testing.T) {
	Convey("Given unique violations on the technologies table", t, func() {
		Convey("When the live name index fires", func() {
			err := techConflict(&pgconn.PgError{Code: "23505", ConstraintName: liveTechIndex})
			So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
		})

		Convey("When the id index fires", func() {
			err := techConflict(&pgconn.PgError{Code: "23505", ConstraintName: "idx_technologies_id"})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the error is not a unique violation", func() {
			So(techConflict(errors.New("boom")), ShouldBeNil)
		})
	})
}

func TestTechnologyModelMapping(t *testing.T) {
	Convey("Given a catalog entry", t, func() {
		tech := model.Technology{ID: "t1", Name: "Go", Quadrant: "languages", Description: "d", IsNew: true, Cancelled: true}

		Convey("When it goes through a row and back", func() {
			row := technologyModelFromEntity(tech)

			Convey("Then every field survives", func() {
				So(row.toEntity(), ShouldResemble, tech)
				So(row.UpdatedAt.IsZero(), ShouldBeFalse)
			})
		})
	})
}

func TestModelMapping(t *testing.T) {
	Convey("Given a voting event", t, func() {
		revote := true
		ev := model.VotingEvent{
			ID: "e1", Name: "Radar", Status: model.StatusOpen, Round: 2, OpenForRevote: &revote,
			Technologies: []model.Technology{{ID: "t1", Name: "Go", VotingResult: &model.VotingResult{
				Round: 1, VotesForRing: []model.RingCount{{Ring: model.RingAdopt, Count: 2}},
			}}},
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Version:   3,
		}

		Convey("When it goes through a row and back", func() {
			row, err := eventModelFromEntity(ev)
			So(err, ShouldBeNil)
			back, err := row.toEntity()
			So(err, ShouldBeNil)

			Convey("Then the document and the columns agree", func() {
				So(row.Status, ShouldEqual, "open")
				So(row.Round, ShouldEqual, 2)
				So(back.Version, ShouldEqual, 3)
				So(*back.OpenForRevote, ShouldBeTrue)
				So(back.Technologies[0].VotingResult.VotesForRing[0].Count, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a vote with a comment thread", t, func() {
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		v := model.Vote{
			ID: "v1", EventID: "e1", EventRound: 1,
			Technology: model.TechnologyRef{ID: "t1", Name: "Go"},
			Ring:       model.RingHold, VoterKey: "one|two",
			Voter:      model.Voter{FirstName: "One", LastName: "Two"},
			Comment:    model.ThreadFromTree([]model.Comment{{ID: "c1", Text: "x", Timestamp: ts}}),
			Timestamp:  ts,
		}

		Convey("When it goes through a row and back", func() {
			row, err := voteModelFromEntity(v)
			So(err, ShouldBeNil)
			row.Seq = 42
			back, err := row.toEntity()
			So(err, ShouldBeNil)

			Convey("Then identity columns and the comment survive", func() {
				So(row.VoterKey, ShouldEqual, "one|two")
				So(back.VoterKey, ShouldEqual, "one|two")
				So(back.Seq, ShouldEqual, 42)
				So(back.Comment.Len(), ShouldEqual, 1)
				So(back.Voter.FirstName, ShouldEqual, "One")
			})
		})
	})
}

func TestInsertVotesBatchCheck(t *testing.T) {
	Convey("Given a store without a reachable database", t, func() {
		s := New(nil, nil)

		Convey("When a batch mixes votes of two events", func() {
			_, err := s.InsertVotes(context.Background(), "e1", nil, []model.Vote{
				{ID: "v1", EventID: "e1"},
				{ID: "v2", EventID: "e2"},
			})

			Convey("Then it is refused before any statement runs", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the batch is empty", func() {
			out, err := s.InsertVotes(context.Background(), "e1", nil, nil)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}
