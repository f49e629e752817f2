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

func TestTechnologies_Catalog(t *testing.T) {
	Convey("Given a service on the store catalog", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the catalog is seeded on an empty store", func() {
			seeded, err := svc.SeedTechnologies(ctx)
			So(err, ShouldBeNil)
			So(seeded, ShouldBeTrue)

			Convey("Then the built-in list is installed once", func() {
				techs, err := svc.GetTechnologies(ctx, false)
				So(err, ShouldBeNil)
				So(techs, ShouldHaveLength, len(service.DefaultTechnologies()))
				again, err := svc.SeedTechnologies(ctx)
				So(err, ShouldBeNil)
				So(again, ShouldBeFalse)
			})
		})

		Convey("When technologies are added", func() {
			goTech, err := svc.AddTechnology(ctx, model.Technology{Name: " Go ", Quadrant: "languages"})
			So(err, ShouldBeNil)
			_, err = svc.AddTechnology(ctx, model.Technology{ID: "rust", Name: "Rust"})
			So(err, ShouldBeNil)

			Convey("Then ids are generated and names trimmed", func() {
				So(goTech.ID, ShouldNotBeEmpty)
				So(goTech.Name, ShouldEqual, "Go")
				got, err := svc.GetTechnology(ctx, "rust")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Rust")
			})

			Convey("Then a second live entry with the same name is refused", func() {
				_, err := svc.AddTechnology(ctx, model.Technology{Name: "go"})
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
			})

			Convey("Then a blank name is invalid", func() {
				_, err := svc.AddTechnology(ctx, model.Technology{Name: "  "})
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("And one is updated", func() {
				up, err := svc.UpdateTechnology(ctx, "rust", model.Technology{Name: "Rust lang", Description: "systems", IsNew: true})

				Convey("Then its fields change and its id stays", func() {
					So(err, ShouldBeNil)
					So(up.ID, ShouldEqual, "rust")
					So(up.Name, ShouldEqual, "Rust lang")
					So(up.IsNew, ShouldBeTrue)
				})

				Convey("Then renaming onto a live name is refused", func() {
					_, err := svc.UpdateTechnology(ctx, "rust", model.Technology{Name: "GO"})
					So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				})
			})

			Convey("And one is cancelled", func() {
				c, err := svc.CancelTechnology(ctx, goTech.ID)
				So(err, ShouldBeNil)
				So(c.Cancelled, ShouldBeTrue)

				Convey("Then it is hidden from the default listing and new snapshots", func() {
					live, _ := svc.GetTechnologies(ctx, false)
					So(live, ShouldHaveLength, 1)
					all, _ := svc.GetTechnologies(ctx, true)
					So(all, ShouldHaveLength, 2)
					ev := openEvent(svc, "Snapshot")
					So(ev.Technologies, ShouldHaveLength, 1)
					So(ev.Technologies[0].ID, ShouldEqual, "rust")
				})

				Convey("Then it can be restored", func() {
					r, err := svc.RestoreTechnology(ctx, goTech.ID)
					So(err, ShouldBeNil)
					So(r.Cancelled, ShouldBeFalse)
				})

				Convey("Then restoring fails once its name was taken again", func() {
					_, err := svc.AddTechnology(ctx, model.Technology{Name: "Go"})
					So(err, ShouldBeNil)
					_, err = svc.RestoreTechnology(ctx, goTech.ID)
					So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				})
			})

			Convey("And one is deleted", func() {
				So(svc.DeleteTechnology(ctx, "rust"), ShouldBeNil)

				Convey("Then it is gone", func() {
					_, err := svc.GetTechnology(ctx, "rust")
					So(errors.Is(err, model.ErrTechnologyNotPresent), ShouldBeTrue)
					So(errors.Is(svc.DeleteTechnology(ctx, "rust"), model.ErrTechnologyNotPresent), ShouldBeTrue)
				})
			})
		})

		Convey("When a catalog is loaded", func() {
			n, err := svc.LoadTechnologies(ctx, []model.Technology{{Name: "Kafka"}, {Name: "Argo CD"}})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			Convey("Then it replaces the previous one", func() {
				n, err := svc.LoadTechnologies(ctx, nil)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, len(service.DefaultTechnologies()))
				techs, _ := svc.GetTechnologies(ctx, true)
				So(techs[0].Name, ShouldEqual, service.DefaultTechnologies()[0].Name)
			})

			Convey("Then a list repeating a name is refused and the catalog kept", func() {
				_, err := svc.LoadTechnologies(ctx, []model.Technology{{Name: "A"}, {Name: "a"}})
				So(errors.Is(err, model.ErrTechnologyAlreadyPresent), ShouldBeTrue)
				techs, _ := svc.GetTechnologies(ctx, false)
				So(techs, ShouldHaveLength, 2)
			})

			Convey("Then an empty list clears it", func() {
				n, err := svc.LoadTechnologies(ctx, []model.Technology{})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestVotes_Delete(t *testing.T) {
	Convey("Given an event with votes", t, func() {
		ctx := context.Background()
		svc := newService()
		defer svc.Stop()
		ev := openEvent(svc, "Wipe")
		So(cast(svc, ev.ID, voter("a", "b"), ballot("go", model.RingAdopt), ballot("rust", model.RingHold)), ShouldBeNil)

		Convey("When its votes are deleted", func() {
			n, err := svc.DeleteVotes(ctx, ev.ID)

			Convey("Then they are gone and the voter may vote again", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				votes, _ := svc.GetVotes(ctx, repository.VoteFilter{EventID: ev.ID})
				So(votes, ShouldBeEmpty)
				So(cast(svc, ev.ID, voter("a", "b"), ballot("go", model.RingTrial)), ShouldBeNil)
			})
		})

		Convey("When the event does not exist", func() {
			_, err := svc.DeleteVotes(ctx, "missing")
			So(errors.Is(err, model.ErrEventNotFound), ShouldBeTrue)
		})
	})
}
