package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			metricPrefixOpt := WithMetricPrefix("test_prefix")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(metricPrefixOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the mcf namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "mcf")
				So(manager.subsystem, ShouldEqual, "estimator")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.bootstrapReplicates.Add(3)

			Convey("Then metric names carry the prefix and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_pfx_bootstrap_replicates_total" {
						found = true
						So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 3)
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording estimation metrics", func() {
			So(func() {
				RecordEstimation("risk-adjusted", "lawless-nadeau", "ok")
				RecordEstimation("sample-mean", "csv", "invalid_interval")
				RecordEstimationLatency(12.5)
				RecordEstimationShape(40, 75)
				RecordExcludedSnapshots(2)
				RecordExcludedSnapshots(0)
			}, ShouldNotPanic)
		})

		Convey("When recording bootstrap metrics", func() {
			So(func() {
				RecordBootstrapReplicates(200)
				RecordBootstrapLatency(340)
				UpdateBootstrapWorkers(8)
			}, ShouldNotPanic)
		})

		Convey("When recording store, HTTP and error metrics", func() {
			So(func() {
				UpdateStoredResults(10)
				RecordStoreEviction()
				RecordHTTPRequest("mcf", "POST", "200")
				RecordHTTPRequestDuration("mcf", "POST", "200", 4)
				RecordError("estimator", "invalid_level")
				RecordErrorByEndpoint("mcf", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When gathering from the custom registry", func() {
			RecordBootstrapReplicates(1)
			families, err := GetRegistry().Gather()

			Convey("Then mcf metrics are exposed", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "mcf_estimator_bootstrap_replicates_total")
			})
		})

		Convey("When collection is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)

			Convey("Then recording is a no-op", func() {
				So(func() { RecordBootstrapReplicates(5) }, ShouldNotPanic)
			})
		})
	})
}
