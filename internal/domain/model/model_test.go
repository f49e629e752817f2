package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/techradar/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestVoterKey(t *testing.T) {
	convey.Convey("Given two voters differing only in case and whitespace", t, func() {
		a := model.Voter{FirstName: "One", LastName: "Two"}
		b := model.Voter{FirstName: "One ", LastName: "  twO "}

		convey.Convey("Then they share the same key", func() {
			convey.So(a.Key(), convey.ShouldEqual, "one|two")
			convey.So(a.Same(b), convey.ShouldBeTrue)
		})

		convey.Convey("When one uses a nickname", func() {
			n := model.Voter{FirstName: "One", LastName: "Two", Nickname: " Uno "}

			convey.Convey("Then the nickname defines the identity", func() {
				convey.So(n.Key(), convey.ShouldEqual, "nick:uno")
				convey.So(n.Same(a), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the voter has no name at all", func() {
			convey.So(model.Voter{FirstName: "  "}.Empty(), convey.ShouldBeTrue)
		})
	})
}

func TestParseRing(t *testing.T) {
	convey.Convey("Given ring names", t, func() {
		convey.Convey("When the name has odd casing", func() {
			r, err := model.ParseRing(" HoLd ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(r, convey.ShouldEqual, model.RingHold)
		})

		convey.Convey("When the name is unknown", func() {
			_, err := model.ParseRing("deprecated")
			convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
		})
	})
}

func TestCommentThreadJSON(t *testing.T) {
	convey.Convey("Given a nested comment tree", t, func() {
		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		tree := []model.Comment{{
			ID: "c1", Text: "root", Timestamp: ts,
			Replies: []model.Comment{{
				ID: "c2", Text: "reply", Timestamp: ts,
				Replies: []model.Comment{{ID: "c3", Text: "deep", Author: "x", Timestamp: ts}},
			}},
		}}
		thread := model.ThreadFromTree(tree)

		convey.Convey("Then the arena holds every node with child ids", func() {
			convey.So(thread.Len(), convey.ShouldEqual, 3)
			convey.So(thread.Roots, convey.ShouldResemble, []string{"c1"})
			convey.So(thread.Nodes["c2"].Children, convey.ShouldResemble, []string{"c3"})
			convey.So(thread.Nodes["c3"].Parent, convey.ShouldEqual, "c2")
		})

		convey.Convey("When it is encoded and decoded", func() {
			b, err := json.Marshal(thread)
			convey.So(err, convey.ShouldBeNil)

			var back model.CommentThread
			convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)

			convey.Convey("Then the nested view is preserved", func() {
				convey.So(back.Tree(), convey.ShouldResemble, tree)
			})
		})

		convey.Convey("When it is cloned and the clone is mutated", func() {
			c := thread.Clone()
			n := c.Nodes["c1"]
			n.Children = append(n.Children, "zz")
			c.Nodes["c1"] = n

			convey.Convey("Then the original is untouched", func() {
				convey.So(thread.Nodes["c1"].Children, convey.ShouldResemble, []string{"c2"})
			})
		})
	})
}

func TestEventClone(t *testing.T) {
	convey.Convey("Given an event with technologies", t, func() {
		revote := true
		ev := model.VotingEvent{
			ID: "e1", Name: "Radar", OpenForRevote: &revote,
			Technologies: []model.Technology{{ID: "t1", Name: "Go"}},
		}

		convey.Convey("When the clone is mutated", func() {
			c := ev.Clone()
			*c.OpenForRevote = false
			c.Technologies[0].Name = "Rust"

			convey.Convey("Then the source is unchanged", func() {
				convey.So(*ev.OpenForRevote, convey.ShouldBeTrue)
				convey.So(ev.Technologies[0].Name, convey.ShouldEqual, "Go")
			})
		})

		convey.Convey("Then lookups by name ignore case", func() {
			convey.So(ev.TechnologyIndexByName(" go "), convey.ShouldEqual, 0)
			convey.So(ev.TechnologyIndex("missing"), convey.ShouldEqual, -1)
		})

		convey.Convey("Then the skinny view drops embedded lists", func() {
			convey.So(ev.Skinny().Technologies, convey.ShouldBeNil)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	convey.Convey("Given wrapped domain errors", t, func() {
		cause := errors.New("dial tcp: refused")
		err := model.WrapKind("store.insert", model.ErrStoreUnavailable, cause)

		convey.Convey("Then both kind and cause are reachable", func() {
			convey.So(errors.Is(err, model.ErrStoreUnavailable), convey.ShouldBeTrue)
			convey.So(errors.Is(err, cause), convey.ShouldBeTrue)
			convey.So(model.Code(err), convey.ShouldEqual, "store_unavailable")
			convey.So(err.Error(), convey.ShouldContainSubstring, "store.insert")
		})

		convey.Convey("When an author error is returned", func() {
			err := error(&model.AuthorError{Kind: model.ErrRecommendationAuthorAlreadySet, CurrentAuthor: "A"})
			author, ok := model.CurrentAuthor(model.WrapKind("svc", model.ErrRecommendationAuthorAlreadySet, err))

			convey.So(ok, convey.ShouldBeTrue)
			convey.So(author, convey.ShouldEqual, "A")
			convey.So(model.Code(err), convey.ShouldEqual, "recommendation_author_already_set")
		})

		convey.Convey("When the error is foreign", func() {
			convey.So(model.Kind(cause), convey.ShouldBeNil)
			convey.So(model.Code(cause), convey.ShouldEqual, "internal")
		})
	})
}
