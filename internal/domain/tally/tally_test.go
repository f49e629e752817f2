package tally_test

import (
	"testing"

	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
	. "github.com/smartystreets/goconvey/convey"
)

func vote(techID, techName string, ring model.Ring, round int, tags ...string) model.Vote {
	return model.Vote{
		EventID:    "ev",
		EventRound: round,
		Technology: model.TechnologyRef{ID: techID, Name: techName},
		Ring:       ring,
		Tags:       tags,
	}
}

func TestTally(t *testing.T) {
	Convey("Given votes for one technology with a tie at the top", t, func() {
		votes := []model.Vote{
			vote("t0", "Go", model.RingHold, 1),
			vote("t0", "Go", model.RingHold, 1),
			vote("t0", "Go", model.RingAssess, 1),
			vote("t0", "Go", model.RingAssess, 1),
			vote("t0", "Go", model.RingTrial, 1),
		}

		Convey("When the votes are tallied", func() {
			results := tally.Tally(votes)

			Convey("Then rings are ordered by count with first-seen tie break", func() {
				So(results, ShouldHaveLength, 1)
				So(results[0].Total, ShouldEqual, 5)
				So(results[0].Rings, ShouldResemble, []model.RingCount{
					{Ring: model.RingHold, Count: 2},
					{Ring: model.RingAssess, Count: 2},
					{Ring: model.RingTrial, Count: 1},
				})
				So(results[0].Tags, ShouldBeNil)
			})
		})

		Convey("When blips are resolved", func() {
			blips := tally.Blips(votes)

			Convey("Then the technology is flagged for revote with the first tied ring", func() {
				So(blips, ShouldHaveLength, 1)
				So(blips[0].Ring, ShouldEqual, model.RingHold)
				So(blips[0].ForRevote, ShouldBeTrue)
			})
		})
	})

	Convey("Given tagged votes", t, func() {
		votes := []model.Vote{
			vote("t0", "Go", model.RingAdopt, 1, "production"),
			vote("t0", "Go", model.RingAdopt, 1, "training", "production"),
			vote("t0", "Go", model.RingAdopt, 1, "colleagues"),
			vote("t0", "Go", model.RingAdopt, 1),
		}

		Convey("When they are tallied", func() {
			r := tally.Tally(votes)[0]

			Convey("Then tag counts are sorted and stable", func() {
				So(r.Tags, ShouldResemble, []model.TagCount{
					{Tag: "production", Count: 2},
					{Tag: "training", Count: 1},
					{Tag: "colleagues", Count: 1},
				})
			})
		})
	})
}

func TestBlips(t *testing.T) {
	Convey("Given eight votes across three technologies", t, func() {
		votes := []model.Vote{
			vote("t0", "Kafka", model.RingHold, 1),
			vote("t1", "Rust", model.RingAssess, 1),
			vote("t0", "Kafka", model.RingHold, 1),
			vote("t2", "Go", model.RingAdopt, 1),
			vote("t1", "Rust", model.RingTrial, 1),
			vote("t0", "Kafka", model.RingHold, 1),
			vote("t1", "Rust", model.RingAssess, 1),
			vote("t2", "Go", model.RingAdopt, 1),
		}

		Convey("When blips are calculated", func() {
			blips := tally.Blips(votes)

			Convey("Then there is one blip per technology in first-seen order", func() {
				So(blips, ShouldHaveLength, 3)
				So(blips[0].Name, ShouldEqual, "Kafka")
				So(blips[0].Ring, ShouldEqual, model.RingHold)
				So(blips[0].NumberOfVotes, ShouldEqual, 3)
				So(blips[1].Ring, ShouldEqual, model.RingAssess)
				So(blips[1].NumberOfVotes, ShouldEqual, 3)
				So(blips[2].Ring, ShouldEqual, model.RingAdopt)
				So(blips[2].NumberOfVotes, ShouldEqual, 2)
			})

			Convey("Then ring counts sum to the vote count and nothing is tied", func() {
				for _, b := range blips {
					sum := 0
					for _, rc := range b.Votes {
						sum += rc.Count
					}
					So(sum, ShouldEqual, b.NumberOfVotes)
					So(b.ForRevote, ShouldBeFalse)
				}
			})
		})

		Convey("When blips are restricted to a round nobody voted in", func() {
			So(tally.Blips(votes, tally.WithRound(2)), ShouldBeEmpty)
		})
	})

	Convey("Given a three-way tie", t, func() {
		rings := []model.RingCount{
			{Ring: model.RingTrial, Count: 2},
			{Ring: model.RingAdopt, Count: 2},
			{Ring: model.RingHold, Count: 2},
		}
		So(tally.ForRevote(rings), ShouldBeTrue)
		So(tally.ForRevote(rings[:1]), ShouldBeFalse)
	})

	Convey("Given votes from two events on the same technology name", t, func() {
		a := vote("e1-t", "Kubernetes", model.RingTrial, 1)
		a.EventID = "e1"
		b := vote("e2-t", " kubernetes", model.RingAdopt, 1)
		b.EventID = "e2"
		c := vote("e2-t", " kubernetes", model.RingAdopt, 1)
		c.EventID = "e2"

		Convey("When merged blips are calculated", func() {
			blips := tally.MergedBlips([]model.Vote{a, b, c})

			Convey("Then the technology counts as one entity", func() {
				So(blips, ShouldHaveLength, 1)
				So(blips[0].Name, ShouldEqual, "Kubernetes")
				So(blips[0].Ring, ShouldEqual, model.RingAdopt)
				So(blips[0].NumberOfVotes, ShouldEqual, 3)
			})
		})
	})
}

func TestLatestRound(t *testing.T) {
	Convey("Given votes where one technology was revoted in round two", t, func() {
		votes := []model.Vote{
			vote("t0", "Go", model.RingHold, 1),
			vote("t1", "Rust", model.RingTrial, 1),
			vote("t0", "Go", model.RingAdopt, 2),
		}

		Convey("When the latest round is selected up to round two", func() {
			latest := tally.LatestRound(votes, 2)

			Convey("Then each technology keeps only its most recent votes", func() {
				So(latest, ShouldHaveLength, 2)
				So(latest[0].Technology.ID, ShouldEqual, "t1")
				So(latest[1].Ring, ShouldEqual, model.RingAdopt)
			})
		})

		Convey("When the selection stops at round one", func() {
			results := tally.Tally(tally.LatestRound(votes, 1))

			Convey("Then frozen results carry round one", func() {
				So(results, ShouldHaveLength, 2)
				So(results[0].VotingResult().Round, ShouldEqual, 1)
				So(results[0].VotingResult().VotesForRing[0].Ring, ShouldEqual, model.RingHold)
			})
		})
	})
}
