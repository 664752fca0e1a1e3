// Package cli implements the mycoledger command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mycoledger/internal/config"
	"mycoledger/internal/core"
	"mycoledger/internal/logging"
	"mycoledger/pkg/domain"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// RootOptions holds global flags and the lazily built ledger runtime.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool
	Caller     string
	Storage    string
	DBPath     string

	rt *runtime
}

// runtime is the service stack assembled from configuration for one
// command invocation.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    domain.PersistentStore
	svc      *core.Service
	registry *prometheus.Registry
	closers  []func() error
}

func (r *runtime) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// NewRootCommand creates the root command for the mycoledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mycoledger",
		Short: "Ledger for forest mycorrhizal networks",
		Long: `mycoledger records mycorrhizal networks, their trees, fungal inoculations,
carbon measurements and funding, and derives network health and carbon
efficiency scores.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{Code: ExitInvalidInput, Err: fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)}
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.rt == nil {
				return nil
			}
			err := opts.rt.close()
			opts.rt = nil
			return err
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitInvalidInput, Err: err}
	})

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Caller, "caller", os.Getenv("MYCOLEDGER_CALLER"), "principal submitting the operation")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", "", "storage driver override (memory|sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "sqlite path override")

	cmd.AddCommand(NewNetworkCommand(opts))
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewInoculationCommand(opts))
	cmd.AddCommand(NewCarbonCommand(opts))
	cmd.AddCommand(NewMetricsCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewServeMetricsCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code. Failures are
// rendered in the selected output format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if opts.rt != nil {
		err = errors.Join(err, opts.rt.close())
	}
	if err == nil {
		return ExitSuccess
	}
	format := opts.Format
	if !slices.Contains(ValidFormats, format) {
		format = FormatText
	}
	_ = Printer{Format: format, Writer: stderr}.Failure(err)
	return ExitCodeFor(err)
}

func (o *RootOptions) caller() domain.Principal {
	return domain.Principal(o.Caller)
}

func (o *RootOptions) printer(cmd *cobra.Command) Printer {
	return Printer{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// runtime loads configuration and opens the ledger once per invocation.
func (o *RootOptions) runtime(cmd *cobra.Command) (*runtime, error) {
	if o.rt != nil {
		return o.rt, nil
	}
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, &ExitError{Code: ExitInvalidInput, Err: err}
	}
	if o.Storage != "" {
		cfg.Storage.Driver = o.Storage
	}
	if o.DBPath != "" {
		cfg.Storage.SQLitePath = o.DBPath
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: ExitInvalidInput, Err: err}
	}

	rt := &runtime{cfg: cfg, registry: prometheus.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			_ = rt.close()
		}
	}()

	logger, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt.logger = logger
	rt.closers = append(rt.closers, closeLog)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	rt.store = store
	rt.closers = append(rt.closers, func() error { return core.CloseStore(store) })

	svcOpts := []core.Option{
		core.WithLogger(logger),
		core.WithAuthorizer(core.PolicyFor(cfg.Policy.Mode)),
	}
	switch cfg.Metrics.Recorder {
	case config.MetricsPrometheus:
		rec, err := core.NewPrometheusMetricsRecorder(rt.registry)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, core.WithMetricsRecorder(rec))
	case config.MetricsExpvar:
		svcOpts = append(svcOpts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
	}
	if cfg.Metrics.TracePath != "" {
		f, err := os.OpenFile(cfg.Metrics.TracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		rt.closers = append(rt.closers, f.Close)
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}
	if cfg.Metrics.AuditPath != "" {
		f, err := os.OpenFile(cfg.Metrics.AuditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		rt.closers = append(rt.closers, f.Close)
		svcOpts = append(svcOpts, core.WithAuditRecorder(core.NewJSONAuditLog(f)))
	}
	rt.svc = core.NewService(store, svcOpts...)

	logger.Debug("ledger runtime ready", "storage", cfg.Storage.Driver, "policy", cfg.Policy.Mode, "metrics", cfg.Metrics.Recorder)
	o.rt = rt
	ok = true
	return rt, nil
}

func (o *RootOptions) service(cmd *cobra.Command) (*core.Service, error) {
	rt, err := o.runtime(cmd)
	if err != nil {
		return nil, err
	}
	return rt.svc, nil
}
