package cli

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/loadtest"
)

// Default load test constants.
const (
	defaultRequests       = 200
	defaultWorkersPerCPU  = 2
	defaultRequestTimeout = 30 * time.Second
	defaultTestTimeout    = 10 * time.Minute
)

// LoadtestOptions holds flags for the loadtest command.
type LoadtestOptions struct {
	Config   loadtest.Config
	Variance string
	CI       string
	Deadline time.Duration
}

// NewLoadtestCommand creates the loadtest command.
func NewLoadtestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadtestOptions{
		Config: loadtest.Config{
			Cohort: loadtest.DefaultCohort(),
		},
	}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running MCF service with synthetic datasets",
		Long: `Submit synthetic datasets to a running MCF service concurrently, read
every stored result back and verify it against a local estimation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadtest(cmd, rootOpts, opts)
		},
	}

	c := &opts.Config
	cmd.Flags().StringVar(&c.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().IntVar(&c.Requests, "requests", defaultRequests, "number of estimation requests")
	cmd.Flags().IntVar(&c.Workers, "workers", runtime.NumCPU()*defaultWorkersPerCPU, "number of concurrent workers")
	cmd.Flags().DurationVar(&c.Timeout, "timeout", defaultRequestTimeout, "HTTP request timeout")
	cmd.Flags().DurationVar(&opts.Deadline, "deadline", defaultTestTimeout, "overall test deadline")
	cmd.Flags().StringVar(&c.OutputFile, "output", "", "save generated datasets as JSON")
	cmd.Flags().IntVar(&c.Cohort.Subjects, "subjects", c.Cohort.Subjects, "subjects per dataset")
	cmd.Flags().Uint64Var(&c.Seed, "seed", 1, "generator seed")
	cmd.Flags().StringVar(&opts.Variance, "variance", "", "variance method sent with every request (server default when empty)")
	cmd.Flags().StringVar(&opts.CI, "ci", "", "interval method sent with every request")
	cmd.Flags().UintVarP(&c.Replicates, "replicates", "B", 0, "bootstrap replicates sent with every request")

	return cmd
}

func runLoadtest(cmd *cobra.Command, rootOpts *RootOptions, opts *LoadtestOptions) error {
	formatter := newFormatter(cmd, rootOpts)
	cfg := opts.Config
	cfg.Verbose = rootOpts.Verbose

	if opts.Variance != "" || opts.CI != "" {
		set := method.Default()
		var err error
		if opts.Variance != "" {
			if set.Variance, err = method.ParseVariance(opts.Variance); err != nil {
				return outputEstimateError(formatter, ExitCommandError, err)
			}
			if set.Variance == method.CSV {
				set.Point = method.SampleMean
			}
		}
		if opts.CI != "" {
			if set.CI, err = method.ParseCI(opts.CI); err != nil {
				return outputEstimateError(formatter, ExitCommandError, err)
			}
		}
		if err := set.Validate(); err != nil {
			return outputEstimateError(formatter, ExitCommandError, err)
		}
		cfg.Methods = &set
	}

	ctx, cancel := contextWithDeadline(cmd, opts.Deadline)
	defer cancel()

	stats, err := loadtest.Run(ctx, &cfg)
	if err != nil {
		_ = formatter.Error("loadtest_failed", err.Error(), stats)
		return WrapExitError(ExitFailure, "loadtest", err)
	}
	return formatter.Success(stats, func(w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"requests: %d ok, %d failed\nresults: %d fetched, %d verified, %d mismatched\nduration: %s\n",
			stats.RequestsOK, stats.RequestsFailed,
			stats.ResultsFetched, stats.ResultsVerified, stats.ResultsMismatched,
			stats.Duration.Round(time.Millisecond))
		return err
	})
}
