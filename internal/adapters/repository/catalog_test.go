package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStoreCatalog(t *testing.T) {
	Convey("Given a memory store with two catalog entries", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		defer func() { _ = s.Close() }()

		_, err := s.InsertTechnology(ctx, model.Technology{ID: "t1", Name: "Go"})
		So(err, ShouldBeNil)
		_, err = s.InsertTechnology(ctx, model.Technology{ID: "t2", Name: "Rust"})
		So(err, ShouldBeNil)

		Convey("When a live name is reused with another case", func() {
			_, err := s.InsertTechnology(ctx, model.Technology{ID: "t3", Name: "go"})

			Convey("Then it is already present", func() {
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
			})
		})

		Convey("When an id is reused", func() {
			_, err := s.InsertTechnology(ctx, model.Technology{ID: "t1", Name: "Zig"})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When an entry is cancelled", func() {
			_, err := s.MutateTechnology(ctx, "t1", func(t *model.Technology) error {
				t.Cancelled = true
				return nil
			})
			So(err, ShouldBeNil)

			Convey("Then it is hidden unless asked for", func() {
				live, _ := s.Technologies(ctx, repository.TechnologyQuery{})
				all, _ := s.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: true})
				So(live, ShouldHaveLength, 1)
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, "t1")
			})

			Convey("Then its name is free and restoring it conflicts", func() {
				_, err := s.InsertTechnology(ctx, model.Technology{ID: "t3", Name: "GO"})
				So(err, ShouldBeNil)
				_, err = s.MutateTechnology(ctx, "t1", func(t *model.Technology) error {
					t.Cancelled = false
					return nil
				})
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				got, _ := s.Technology(ctx, "t1")
				So(got.Cancelled, ShouldBeTrue)
			})
		})

		Convey("When an entry is renamed onto a live name", func() {
			_, err := s.MutateTechnology(ctx, "t2", func(t *model.Technology) error {
				t.Name = "Go"
				return nil
			})

			Convey("Then the rename is refused and the old name kept", func() {
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				got, _ := s.Technology(ctx, "t2")
				So(got.Name, ShouldEqual, "Rust")
			})
		})

		Convey("When an entry is deleted", func() {
			So(s.DeleteTechnology(ctx, "t1"), ShouldBeNil)

			Convey("Then it is gone and its name is free", func() {
				_, err := s.Technology(ctx, "t1")
				So(errors.Is(err, model.ErrTechnologyNotPresent), ShouldBeTrue)
				So(errors.Is(s.DeleteTechnology(ctx, "t1"), model.ErrTechnologyNotPresent), ShouldBeTrue)
				_, err = s.InsertTechnology(ctx, model.Technology{ID: "t9", Name: "Go"})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the catalog is replaced", func() {
			n, err := s.ReplaceTechnologies(ctx, []model.Technology{
				{ID: "k1", Name: "Kotlin"}, {ID: "g1", Name: "Go"},
			})

			Convey("Then only the new entries remain in order", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				all, _ := s.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: true})
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, "k1")
				So(all[1].ID, ShouldEqual, "g1")
				_, err = s.InsertTechnology(ctx, model.Technology{ID: "t4", Name: "Rust"})
				So(err, ShouldBeNil)
			})
		})

		Convey("When a replacement repeats a live name", func() {
			_, err := s.ReplaceTechnologies(ctx, []model.Technology{
				{ID: "a", Name: "Elm"}, {ID: "b", Name: "elm"},
			})

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				all, _ := s.Technologies(ctx, repository.TechnologyQuery{IncludeCancelled: true})
				So(all, ShouldHaveLength, 2)
			})
		})
	})
}
