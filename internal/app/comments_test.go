package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/techradar/internal/adapters/repository"
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestComments_Votes(t *testing.T) {
	Convey("Given a vote carrying a comment", t, func() {
		ctx := context.Background()
		svc := newService()
		defer svc.Stop()
		ev := openEvent(svc, "Vote comments")
		b := ballot("go", model.RingAdopt)
		b.Comment = "solid"
		saved, err := svc.SaveVotes(ctx, service.Credentials{EventID: ev.ID, Voter: voter("a", "b")}, []service.Ballot{b}, "")
		So(err, ShouldBeNil)
		So(cast(svc, ev.ID, voter("c", "d"), ballot("go", model.RingHold)), ShouldBeNil)
		vote := saved[0]
		root := vote.Comment.Roots[0]

		Convey("When a chain of replies is added", func() {
			first, err := svc.AddReplyToVoteComment(ctx, vote.ID, root, "agreed", "bob")
			So(err, ShouldBeNil)
			second, err := svc.AddReplyToVoteComment(ctx, vote.ID, first, "me too", "carol")
			So(err, ShouldBeNil)

			Convey("Then the replies nest under their targets", func() {
				tree, err := svc.GetVotesCommentsForTech(ctx, "go", ev.ID)
				So(err, ShouldBeNil)
				So(tree, ShouldHaveLength, 1)
				So(tree[0].Text, ShouldEqual, "solid")
				So(tree[0].Replies, ShouldHaveLength, 1)
				So(tree[0].Replies[0].ID, ShouldEqual, first)
				So(tree[0].Replies[0].Replies[0].ID, ShouldEqual, second)
				So(tree[0].Replies[0].Replies[0].Author, ShouldEqual, "carol")
			})

			Convey("Then only the commented vote is listed", func() {
				votes, err := svc.GetVotesWithCommentsForTechAndEvent(ctx, "go", ev.ID)
				So(err, ShouldBeNil)
				So(votes, ShouldHaveLength, 1)
				So(votes[0].ID, ShouldEqual, vote.ID)
				So(votes[0].Comment.Len(), ShouldEqual, 3)
			})
		})

		Convey("When the vote does not exist", func() {
			_, err := svc.AddReplyToVoteComment(ctx, "missing", root, "hi", "bob")
			So(errors.Is(err, model.ErrVoteNotFound), ShouldBeTrue)
		})

		Convey("When the target comment does not exist", func() {
			_, err := svc.AddReplyToVoteComment(ctx, vote.ID, "nope", "hi", "bob")
			So(errors.Is(err, model.ErrCommentTargetNotFound), ShouldBeTrue)
		})

		Convey("When the vote has no comment at all", func() {
			votes, err := svc.GetVotesWithCommentsForTechAndEvent(ctx, "go", ev.ID)
			So(err, ShouldBeNil)
			So(votes, ShouldHaveLength, 1)
			var bare string
			all, err := svc.GetVotes(ctx, repository.VoteFilter{EventID: ev.ID})
			So(err, ShouldBeNil)
			for _, v := range all {
				if v.Comment == nil {
					bare = v.ID
				}
			}
			_, err = svc.AddReplyToVoteComment(ctx, bare, root, "hi", "bob")
			So(errors.Is(err, model.ErrCommentTargetNotFound), ShouldBeTrue)
		})
	})
}

func TestComments_Technologies(t *testing.T) {
	Convey("Given an open event", t, func() {
		ctx := context.Background()
		svc := newService()
		defer svc.Stop()
		ev := openEvent(svc, "Tech comments")

		Convey("When a technology is commented and replied to", func() {
			id, err := svc.AddCommentToTech(ctx, ev.ID, "rust", "worth a look", "ann")
			So(err, ShouldBeNil)
			reply, err := svc.AddReplyToTechComment(ctx, ev.ID, "rust", id, "borrow checker", "ben")
			So(err, ShouldBeNil)

			Convey("Then the event stores the thread on the technology", func() {
				got, err := svc.GetEvent(ctx, ev.ID)
				So(err, ShouldBeNil)
				tree := got.Technologies[got.TechnologyIndex("rust")].Comments.Tree()
				So(tree, ShouldHaveLength, 1)
				So(tree[0].Author, ShouldEqual, "ann")
				So(tree[0].Replies[0].ID, ShouldEqual, reply)
			})

			Convey("Then replying to an unknown comment fails", func() {
				_, err := svc.AddReplyToTechComment(ctx, ev.ID, "rust", "nope", "x", "ben")
				So(errors.Is(err, model.ErrCommentTargetNotFound), ShouldBeTrue)
			})
		})

		Convey("When a technology without comments is replied to", func() {
			_, err := svc.AddReplyToTechComment(ctx, ev.ID, "go", "any", "x", "ben")
			So(errors.Is(err, model.ErrCommentTargetNotFound), ShouldBeTrue)
		})

		Convey("When the technology is not in the event", func() {
			_, err := svc.AddCommentToTech(ctx, ev.ID, "cobol", "old", "ann")
			So(errors.Is(err, model.ErrTechnologyNotPresent), ShouldBeTrue)
		})

		Convey("When the comment is blank", func() {
			_, err := svc.AddCommentToTech(ctx, ev.ID, "go", "  ", "ann")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When comments land on a technology and its votes", func() {
			b := ballot("go", model.RingAdopt)
			b.Comment = "fast builds"
			saved, err := svc.SaveVotes(ctx, service.Credentials{EventID: ev.ID, Voter: voter("a", "a")}, []service.Ballot{b}, "")
			So(err, ShouldBeNil)
			So(cast(svc, ev.ID, voter("b", "b"), ballot("go", model.RingTrial)), ShouldBeNil)
			root := saved[0].Comment.Roots[0]
			r1, err := svc.AddReplyToVoteComment(ctx, saved[0].ID, root, "yes", "b")
			So(err, ShouldBeNil)
			_, err = svc.AddReplyToVoteComment(ctx, saved[0].ID, r1, "indeed", "c")
			So(err, ShouldBeNil)
			c1, err := svc.AddCommentToTech(ctx, ev.ID, "go", "keep", "ann")
			So(err, ShouldBeNil)
			_, err = svc.AddCommentToTech(ctx, ev.ID, "go", "move", "ben")
			So(err, ShouldBeNil)
			_, err = svc.AddReplyToTechComment(ctx, ev.ID, "go", c1, "why", "cid")
			So(err, ShouldBeNil)
			_, err = svc.AddReplyToTechComment(ctx, ev.ID, "go", c1, "because", "ann")
			So(err, ShouldBeNil)

			counted, err := svc.GetEventWithCounts(ctx, ev.ID)

			Convey("Then every comment and reply is counted once", func() {
				So(err, ShouldBeNil)
				var goTech, kafka service.TechnologyWithCounts
				for _, tc := range counted.Technologies {
					switch tc.ID {
					case "go":
						goTech = tc
					case "kafka":
						kafka = tc
					}
				}
				So(goTech.NumberOfVotes, ShouldEqual, 2)
				So(goTech.NumberOfComments, ShouldEqual, 7)
				So(kafka.NumberOfVotes, ShouldEqual, 0)
				So(kafka.NumberOfComments, ShouldEqual, 0)
			})
		})
	})
}

func TestComments_CancelledEventsHidden(t *testing.T) {
	Convey("Given commented votes in a live and a cancelled event", t, func() {
		ctx := context.Background()
		svc := newService()
		defer svc.Stop()
		live := openEvent(svc, "Live")
		gone := openEvent(svc, "Gone")
		for _, ev := range []model.VotingEvent{live, gone} {
			b := ballot("go", model.RingTrial)
			b.Comment = "from " + ev.Name
			_, err := svc.SaveVotes(ctx, service.Credentials{EventID: ev.ID, Voter: voter("a", "b")}, []service.Ballot{b}, "")
			So(err, ShouldBeNil)
		}
		So(svc.CancelEvent(ctx, gone.ID, false), ShouldBeNil)

		Convey("When comments are read across events", func() {
			tree, err := svc.GetVotesCommentsForTech(ctx, "go", "")

			Convey("Then only the live event contributes", func() {
				So(err, ShouldBeNil)
				So(tree, ShouldHaveLength, 1)
				So(tree[0].Text, ShouldEqual, "from Live")
			})
		})

		Convey("When comments are read for the cancelled event", func() {
			_, err := svc.GetVotesCommentsForTech(ctx, "go", gone.ID)
			So(errors.Is(err, model.ErrEventNotFound), ShouldBeTrue)
		})

		Convey("When every event is cancelled", func() {
			So(svc.CancelEvent(ctx, live.ID, false), ShouldBeNil)
			tree, err := svc.GetVotesCommentsForTech(ctx, "go", "")
			So(err, ShouldBeNil)
			So(tree, ShouldBeEmpty)
		})
	})
}
