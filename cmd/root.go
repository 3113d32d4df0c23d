// Package cmd defines the sweeper command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options holds the flag values that are not configuration keys.
type options struct {
	input       string
	output      string
	configPath  string
	metricsFile string
}

// usageError marks failures that should be followed by the usage text.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// newRootCmd creates the sweeper command. Flags that mirror configuration
// keys are bound into v so flag > env > file > default.
func newRootCmd(v *viper.Viper) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sweeper -i INPUT -o OUTPUT",
		Short: "Drop dead and soft-404 URLs from a list.",
		Long: `sweeper checks every URL of a list and keeps only the ones that are alive.

A URL is dead when its redirect chain bounces to the site root, when its
headings or title read like an error page, or when a headless browser shows a
client-side redirect to the root or error text. Paths may be local files or
gs://bucket/object URIs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), v, opts, cmd.OutOrStdout())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input_file", "i", "", "file with one URL per line (local path or gs://)")
	flags.StringVarP(&opts.output, "output_file", "o", "", "file receiving the alive URLs (local path or gs://)")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.IntP("workers", "w", 0, "parallel chunks (default one per CPU)")
	flags.StringVar(&opts.configPath, "config", "", "optional YAML config file")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the run ends")

	bindFlags(v, flags)
	return cmd
}

// bindFlags maps config keys to the flags that override them.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range map[string]string{
		"logging.development": "verbose",
		"sweep.workers":       "workers",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// run executes the command with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(viper.New())
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, cmd.UsageString())
		}
		return 1
	}
	return 0
}

// Execute is the main entry point. SIGINT and SIGTERM stop the workers
// between URLs.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
