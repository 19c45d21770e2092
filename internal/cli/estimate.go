package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/mcf/internal/config"
	"github.com/okian/mcf/internal/domain/estimator"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
	"github.com/okian/mcf/pkg/logger"
)

// EstimateOptions holds flags for the estimate command. Unset flags fall
// back to the configured defaults.
type EstimateOptions struct {
	Point      string
	Variance   string
	CI         string
	Resampling string
	Level      float64
	Replicates uint
	Seed       uint64
	Degenerate string
	Workers    int
}

// NewEstimateCommand creates the estimate command.
func NewEstimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EstimateOptions{}

	cmd := &cobra.Command{
		Use:   "estimate <file>",
		Short: "Estimate the MCF of a data file",
		Long: `Estimate the mean cumulative function of the event table in <file>.

The file is CSV with a time1,time2,id,event header, or YAML/JSON holding
either a rows list or parallel time1/time2/id/event arrays. "-" reads CSV
from stdin. Methods default to the configured values.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Point, "point", "", "point estimator (risk-adjusted|sample-mean)")
	cmd.Flags().StringVar(&opts.Variance, "variance", "", "variance estimator (none|lawless-nadeau|poisson|bootstrap|csv)")
	cmd.Flags().StringVar(&opts.CI, "ci", "", "confidence interval (normal|log-normal|percentile)")
	cmd.Flags().StringVar(&opts.Resampling, "resampling", "", "bootstrap resampling (subjects|stratified)")
	cmd.Flags().Float64Var(&opts.Level, "level", 0, "confidence level in (0, 1)")
	cmd.Flags().UintVarP(&opts.Replicates, "replicates", "B", 0, "bootstrap replicates")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "bootstrap seed (random when unset)")
	cmd.Flags().StringVar(&opts.Degenerate, "degenerate", "", "empty risk set policy (fail|exclude)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "bootstrap workers (default worker_count)")

	return cmd
}

func runEstimate(cmd *cobra.Command, rootOpts *RootOptions, opts *EstimateOptions, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(cmd, rootOpts)

	cfg, err := loadConfig(ctx, rootOpts)
	if err != nil {
		_ = formatter.Error("invalid_config", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}

	req, err := buildRequest(ctx, cmd, cfg, opts)
	if err != nil {
		return outputEstimateError(formatter, ExitCommandError, err)
	}

	if req.Input, err = ReadInputFile(path, cmd.InOrStdin()); err != nil {
		_ = formatter.Error("bad_input", err.Error(), nil)
		return WrapExitError(ExitCommandError, "read input", err)
	}
	formatter.VerboseLog("read %d rows from %s", req.Input.Len(), path)

	workers := cfg.WorkerCount
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	est := estimator.New(
		estimator.WithWorkers(workers),
		estimator.WithLogger(logger.OrNop().Named("estimator")),
	)
	res, err := est.Estimate(ctx, req)
	if err != nil {
		return outputEstimateError(formatter, ExitFailure, err)
	}
	formatter.VerboseLog("estimated %d event times for %d subjects", res.Len(), res.Subjects)

	return formatter.Success(res, func(w io.Writer) error {
		return writeResultText(w, &res)
	})
}

// buildRequest applies the flags set on cmd over the configured defaults.
func buildRequest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *EstimateOptions) (estimator.Request, error) {
	d, err := cfg.Defaults(ctx)
	if err != nil {
		return estimator.Request{}, err
	}
	req := estimator.Request{
		Methods:    d.Methods,
		Level:      d.Level,
		BootstrapB: d.BootstrapB,
		Seed:       d.Seed,
		Degenerate: d.Degenerate,
	}

	flags := cmd.Flags()
	if flags.Changed("point") {
		if req.Methods.Point, err = method.ParsePoint(opts.Point); err != nil {
			return req, err
		}
	}
	if flags.Changed("variance") {
		if req.Methods.Variance, err = method.ParseVariance(opts.Variance); err != nil {
			return req, err
		}
	}
	if flags.Changed("ci") {
		if req.Methods.CI, err = method.ParseCI(opts.CI); err != nil {
			return req, err
		}
	}
	if flags.Changed("resampling") {
		if req.Methods.Resampling, err = method.ParseResampling(opts.Resampling); err != nil {
			return req, err
		}
	}
	if flags.Changed("degenerate") {
		if req.Degenerate, err = point.ParsePolicy(opts.Degenerate); err != nil {
			return req, err
		}
	}
	if flags.Changed("level") {
		req.Level = opts.Level
	}
	if flags.Changed("replicates") {
		req.BootstrapB = opts.Replicates
	}
	if flags.Changed("seed") {
		seed := opts.Seed
		req.Seed = &seed
	}
	return req, nil
}

// outputEstimateError reports err with its estimation code and context.
func outputEstimateError(formatter *OutputFormatter, exitCode int, err error) error {
	code := model.Code(err)
	if code == "" {
		code = "internal_error"
	}
	var details map[string]interface{}
	var me *model.Error
	if errors.As(err, &me) {
		details = map[string]interface{}{"op": me.Op}
		if me.SubjectID != nil {
			details["subject_id"] = *me.SubjectID
		}
		if me.Row >= 0 {
			details["row"] = me.Row
		}
		if me.Time != nil {
			details["time"] = *me.Time
		}
		if me.Method != "" {
			details["method"] = me.Method
		}
	}
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(exitCode, code, err)
}

// writeResultText renders res as a header followed by one row per event time.
func writeResultText(w io.Writer, res *model.Result) error {
	m := res.Methods
	fmt.Fprintf(w, "methods: point=%s variance=%s ci=%s level=%g\n", m.Point, m.Variance, m.CI, res.Level)
	if res.BootstrapB > 0 {
		fmt.Fprintf(w, "bootstrap: resampling=%s B=%d", m.Resampling, res.BootstrapB)
		if res.Seed != nil {
			fmt.Fprintf(w, " seed=%d", *res.Seed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "subjects: %d, event times: %d\n", res.Subjects, res.Len())
	if len(res.Excluded) > 0 {
		fmt.Fprintf(w, "excluded: %s\n", joinFloats(res.Excluded))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "time\tat_risk\tevents\tmcf\tvariance\tci_lower\tci_upper")
	for i := range res.Times {
		fmt.Fprintf(tw, "%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
			res.Times[i], res.AtRisk[i], res.Events[i], res.MCF[i],
			res.Variance[i], res.Lower[i], res.Upper[i])
	}
	return tw.Flush()
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func newFormatter(cmd *cobra.Command, rootOpts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   rootOpts.Verbose,
	}
}

// loadConfig layers the --config file (or MCF_CONFIG) and MCF_* env over
// the defaults.
func loadConfig(ctx context.Context, rootOpts *RootOptions) (*config.Config, error) {
	path := rootOpts.Config
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	return config.LoadFile(ctx, path)
}
