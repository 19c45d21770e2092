package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/mcf/internal/adapters/repository"
	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with full integration", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithStoreCapacity(3),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When estimating concurrently", func() {
			const n = 8
			var wg sync.WaitGroup
			results := make([]model.Result, n)
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = svc.Estimate(ctx, service.Request{Input: sampleInput()})
				}(i)
			}
			wg.Wait()

			Convey("Then every estimation succeeds with a distinct id", func() {
				ids := make(map[string]bool, n)
				for i := 0; i < n; i++ {
					So(errs[i], ShouldBeNil)
					So(results[i].MCF, ShouldResemble, []float64{0.5, 1.5})
					ids[results[i].ID] = true
				}
				So(len(ids), ShouldEqual, n)
				So(svc.GetStats()["estimations"], ShouldEqual, int64(n))
			})

			Convey("And only the newest results stay retrievable", func() {
				So(svc.GetStats()["storedResults"], ShouldEqual, 3)
				list, err := svc.List(ctx, 10)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 3)

				missing := 0
				for _, r := range results {
					if _, err := svc.Result(ctx, r.ID); errors.Is(err, repository.ErrNotFound) {
						missing++
					}
				}
				So(missing, ShouldEqual, n-3)
			})
		})

		Convey("When running a bootstrap estimation without a seed", func() {
			v := method.Bootstrap
			rs := method.Stratified
			b := uint(60)
			req := service.Request{Input: sampleInput(), Variance: &v, Resampling: &rs, BootstrapB: &b}
			first, err := svc.Estimate(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the drawn seed is reported and replays the same variance", func() {
				So(first.Seed, ShouldNotBeNil)
				So(first.BootstrapB, ShouldEqual, uint(60))
				So(first.Methods.Variance, ShouldEqual, method.Bootstrap.String())

				req.Seed = first.Seed
				again, err := svc.Estimate(ctx, req)
				So(err, ShouldBeNil)
				So(again.Variance, ShouldResemble, first.Variance)
				So(again.Lower, ShouldResemble, first.Lower)
				So(again.Upper, ShouldResemble, first.Upper)
			})
		})

		Convey("When the context is already cancelled", func() {
			v := method.Bootstrap
			b := uint(500)
			cctx, ccancel := context.WithCancel(ctx)
			ccancel()
			_, err := svc.Estimate(cctx, service.Request{Input: sampleInput(), Variance: &v, BootstrapB: &b})

			Convey("Then the bootstrap run is abandoned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(svc.GetStats()["failures"], ShouldEqual, int64(1))
			})
		})
	})
}
