// main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mannyrivera2010/go-quadingest/pkg/config"
	"github.com/mannyrivera2010/go-quadingest/pkg/ingest"
	"github.com/mannyrivera2010/go-quadingest/pkg/logger"
)

// app holds state shared by the commands of one invocation.
type app struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "quad-ingest <store-path> <version> <base-dir>",
		Short: "Ingest a directory of RDF change-sets as one version of a quad store",
		Long: `Ingest a directory of RDF change-sets as one version of a versioned quad store.

Files in <base-dir> ending in deleted.nt (or deleted.nq) are deletions, other
.nt and .nq files are additions, everything else is ignored. All of them are
appended to the store at <store-path> as <version> in a single all-or-nothing
append.

On success stderr gets two human-readable lines and stdout gets exactly one:

  <inserted>,<elapsed-millis>

On failure nothing is written to stdout and the exit status is non-zero.`,
		Example: `  quad-ingest ./store 0 ./data/v0/
  quad-ingest ./store 1 ./data/v1/ -v
  quad-ingest ./store 2 ./data/v2/ --materialize --metrics-file /var/lib/node_exporter/ingest.prom`,
		Args:              exactArgs(3),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runIngest,
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ingest.ArgumentError{Arg: "flag", Err: err}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (toml, yaml or json)")
	pf.CountP("verbose", "v", "increase diagnostic output (-v progress, -vv debug)")
	pf.Bool("json-logs", false, "write diagnostics as JSON lines")

	rootCmd.Flags().Bool("materialize", false, "build the whole delta in memory before appending")
	rootCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(newLogCmd(), newShowCmd())
	return rootCmd
}

// setup loads configuration and initializes the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return &ingest.ArgumentError{Arg: "configuration", Value: a.configFile, Err: err}
	}
	a.cfg = cfg

	if err := logger.Initialize(logger.Options{
		Verbosity: cfg.Log.Verbosity,
		JSON:      cfg.Log.JSON,
		Output:    cmd.ErrOrStderr(),
	}); err != nil {
		return errors.Wrap(err, "initialize logger")
	}
	logger.ComponentLogger("config").Debugw("Configuration loaded",
		"streaming", cfg.Ingest.Streaming,
		"deletion_patterns", strings.Join(cfg.Ingest.DeletionPatterns, " "),
		"addition_patterns", strings.Join(cfg.Ingest.AdditionPatterns, " "),
		"sync_writes", cfg.Store.SyncWrites)
	return nil
}

func (a *app) runIngest(cmd *cobra.Command, args []string) error {
	storePath, baseDir := args[0], args[2]
	version, err := parseVersion(args[1])
	if err != nil {
		return err
	}

	classifier, err := ingest.NewClassifier(a.cfg.Ingest.DeletionPatterns, a.cfg.Ingest.AdditionPatterns)
	if err != nil {
		return &ingest.ArgumentError{Arg: "file patterns", Err: err}
	}

	var metrics *ingest.Metrics
	if a.cfg.Metrics.File != "" {
		metrics = ingest.NewMetrics()
		defer func() {
			if werr := metrics.WriteTextfile(a.cfg.Metrics.File); werr != nil {
				logger.Logger.Warnw("Writing metrics failed",
					logger.FieldFile, a.cfg.Metrics.File,
					logger.FieldError, werr)
			}
		}()
	}

	driver := ingest.NewDriver(ingest.Options{
		Classifier: classifier,
		Streaming:  a.cfg.Ingest.Streaming,
		SyncWrites: a.cfg.Store.SyncWrites,
		Logger:     logger.ComponentLogger("ingest"),
		Metrics:    metrics,
	})

	rep, err := driver.Ingest(cmd.Context(), storePath, version, baseDir)
	if err != nil {
		return err
	}
	return rep.Write(cmd.ErrOrStderr(), cmd.OutOrStdout())
}

// parseVersion accepts a non-negative decimal integer.
func parseVersion(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &ingest.ArgumentError{Arg: "version", Value: s, Err: errors.New("must be a non-negative decimal integer")}
	}
	return v, nil
}

// exactArgs is cobra.ExactArgs reporting an ArgumentError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &ingest.ArgumentError{Arg: "arguments", Value: strings.Join(args, " "), Err: err}
		}
		return nil
	}
}

// printError writes err and its hints. Commas are replaced so a caller that
// merges stderr into stdout never mistakes the message for a result line.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error: "+sanitizeLine(err.Error()))
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintln(w, "Hint: "+sanitizeLine(hint))
	}
}

func sanitizeLine(s string) string {
	return strings.NewReplacer(",", ";", "\n", " ").Replace(s)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(ingest.ExitCode(err))
	}
}
