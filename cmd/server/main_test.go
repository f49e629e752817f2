package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/techradar/internal/adapters/repository"
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/config"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWith(io.Discard, logger.FormatText)
	m.Run()
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cfg := config.New(ctx)

		convey.Convey("When the memory driver is selected", func() {
			store, err := openStore(ctx, cfg, logger.Get())

			convey.Convey("Then the store is wrapped by the breaker", func() {
				convey.So(err, convey.ShouldBeNil)
				_, guarded := store.(*repository.Guarded)
				convey.So(guarded, convey.ShouldBeTrue)
				convey.So(store.Ping(ctx), convey.ShouldBeNil)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the postgres driver cannot connect", func() {
			cfg.StoreDriver = config.StorePostgres
			cfg.PostgresDSN = "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1"
			_, err := openStore(ctx, cfg, logger.Get())

			convey.Convey("Then the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the breaker settings are mapped", func() {
			bc := breakerConfig(cfg)

			convey.Convey("Then the durations and ratios carry over", func() {
				convey.So(bc.Name, convey.ShouldEqual, config.StoreMemory)
				convey.So(bc.Timeout, convey.ShouldEqual, cfg.BreakerTimeout())
				convey.So(bc.Interval, convey.ShouldEqual, cfg.BreakerInterval())
				convey.So(bc.FailureRatio, convey.ShouldEqual, cfg.BreakerFailureRatio)
				convey.So(bc.MinRequests, convey.ShouldEqual, uint32(cfg.BreakerMinRequests))
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc := service.New()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, svc))
		defer srv.Close()

		get := func(path string) int {
			resp, err := http.Get(srv.URL + path) //nolint:noctx // test helper
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			return resp.StatusCode
		}

		convey.Convey("Then the API and documentation routes are served", func() {
			convey.So(get("/readyz"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/v1/events"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/v1/technologies"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs"), convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns once the context is done", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}

func TestSeedCatalog(t *testing.T) {
	convey.Convey("Given a started service on an empty store", t, func() {
		ctx := context.Background()
		svc := service.New()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		cfg := config.New(ctx)

		convey.Convey("When seeding is on", func() {
			convey.So(seedCatalog(ctx, cfg, svc, logger.Get()), convey.ShouldBeNil)

			convey.Convey("Then every default entry is live with a unique id", func() {
				techs, err := svc.GetTechnologies(ctx, false)
				convey.So(err, convey.ShouldBeNil)
				convey.So(techs, convey.ShouldHaveLength, len(service.DefaultTechnologies()))
				seen := map[string]bool{}
				for _, tech := range techs {
					convey.So(tech.ID, convey.ShouldNotBeBlank)
					convey.So(seen[tech.ID], convey.ShouldBeFalse)
					seen[tech.ID] = true
				}
			})

			convey.Convey("Then a restart keeps an edited catalog", func() {
				_, err := svc.LoadTechnologies(ctx, []model.Technology{{Name: "Zig"}})
				convey.So(err, convey.ShouldBeNil)
				convey.So(seedCatalog(ctx, cfg, svc, logger.Get()), convey.ShouldBeNil)
				techs, _ := svc.GetTechnologies(ctx, true)
				convey.So(techs, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When seeding is off", func() {
			cfg.SeedCatalog = false
			convey.So(seedCatalog(ctx, cfg, svc, logger.Get()), convey.ShouldBeNil)
			techs, _ := svc.GetTechnologies(ctx, true)
			convey.So(techs, convey.ShouldBeEmpty)
		})
	})
}
