package main

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mcf/internal/cli"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the mcf binary entry point", t, func() {
		ctx := context.Background()

		convey.Convey("When asking for help", func() {
			convey.Convey("Then it should succeed", func() {
				convey.So(run(ctx, []string{"--help"}), convey.ShouldEqual, cli.ExitSuccess)
			})
		})

		convey.Convey("When passing an invalid format", func() {
			convey.Convey("Then it should report a command error", func() {
				convey.So(run(ctx, []string{"--format", "xml", "generate"}), convey.ShouldEqual, cli.ExitCommandError)
			})
		})

		convey.Convey("When estimating a missing file", func() {
			convey.Convey("Then it should report a command error", func() {
				convey.So(run(ctx, []string{"estimate", "does-not-exist.csv"}), convey.ShouldEqual, cli.ExitCommandError)
			})
		})

		convey.Convey("When an unknown command is given", func() {
			convey.Convey("Then it should fail", func() {
				convey.So(run(ctx, []string{"frobnicate"}), convey.ShouldEqual, cli.ExitFailure)
			})
		})
	})
}
