package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applied to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("radar_test"),
				WithSubsystem("options"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the manager carries them", func() {
				So(m.namespace, ShouldEqual, "radar_test")
				So(m.subsystem, ShouldEqual, "options")
				So(m.metricPrefix, ShouldEqual, "pfx")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.customLabels["env"], ShouldEqual, "test")
			})

			Convey("Then metric names include the prefix", func() {
				m.votesSaved.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "radar_test_options_pfx_votes_saved_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty values are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then the defaults are kept", func() {
				So(m.namespace, ShouldEqual, "techradar")
				So(m.subsystem, ShouldEqual, "voting")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})

		Convey("When metrics are disabled", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(registry))
			m.votesSaved.Inc()

			Convey("Then nothing is registered", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldBeEmpty)
			})
		})
	})
}

func TestVotingMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When votes are recorded", func() {
			before := testutil.ToFloat64(globalManager.votesSaved)
			RecordVotesSaved(3)
			RecordVotesSaved(2)

			Convey("Then the counter grows by the batch sizes", func() {
				So(testutil.ToFloat64(globalManager.votesSaved)-before, ShouldEqual, 5)
			})
		})

		Convey("When duplicates and blips are recorded", func() {
			dup := testutil.ToFloat64(globalManager.votesDuplicate)
			blips := testutil.ToFloat64(globalManager.blipsCalculated)
			RecordDuplicateVote()
			RecordBlipsCalculated(4)

			Convey("Then both counters move", func() {
				So(testutil.ToFloat64(globalManager.votesDuplicate)-dup, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.blipsCalculated)-blips, ShouldEqual, 4)
			})
		})

		Convey("When transitions are recorded", func() {
			c := globalManager.flowTransitions.WithLabelValues("open", "ok")
			before := testutil.ToFloat64(c)
			RecordFlowTransition("open", "ok")
			RecordFlowTransition("open", "ok")
			RecordFlowTransition("open", "illegal_transition")

			Convey("Then each label pair counts separately", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 2)
			})
		})

		Convey("When an operation fails", func() {
			c := globalManager.operationErrors.WithLabelValues("save_votes", "duplicate_vote")
			before := testutil.ToFloat64(c)
			RecordOperation("save_votes", "duplicate_vote", 1.5)
			RecordOperation("save_votes", "", 0.7)

			Convey("Then only the failure is counted as an error", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 1)
			})
		})
	})
}

func TestStoreMetrics(t *testing.T) {
	Convey("Given store gauges", t, func() {
		Convey("When the store reports its size", func() {
			UpdateStoredEvents(7)
			UpdateStoredVotes(120)
			UpdateCatalogSize(12)
			UpdateBreakerState("postgres", 2)

			Convey("Then the last value wins", func() {
				So(testutil.ToFloat64(globalManager.storedEvents), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.storedVotes), ShouldEqual, 120)
				So(testutil.ToFloat64(globalManager.catalogSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("postgres")), ShouldEqual, 2)
			})
		})

		Convey("When latencies and retries are recorded", func() {
			before := testutil.ToFloat64(globalManager.casRetries)
			RecordStoreLatency("memory", "insert_votes", 0.2)
			RecordCASRetry()

			Convey("Then nothing panics and retries are counted", func() {
				So(testutil.ToFloat64(globalManager.casRetries)-before, ShouldEqual, 1)
			})
		})
	})
}

func TestHTTPAndSystemMetrics(t *testing.T) {
	Convey("Given HTTP and system metrics", t, func() {
		Convey("When requests are recorded", func() {
			c := globalManager.httpRequests.WithLabelValues("/voting-events", "POST", "201")
			before := testutil.ToFloat64(c)
			RecordHTTPRequest("/voting-events", "POST", "201")
			RecordHTTPRequestDuration("/voting-events", "POST", "201", 4.0)
			RecordErrorByType("duplicate_vote", "warning")
			RecordErrorByEndpoint("/votes", "POST", "duplicate_vote")
			RecordErrorLatency("api", "duplicate_vote", 3.0)

			Convey("Then the request counter moves", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 1)
			})
		})

		Convey("When system stats are published", func() {
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.3)

			Convey("Then the gauges hold them", func() {
				So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 1<<20)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
			})
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()

			Convey("Then the custom registry exposes the voting metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
