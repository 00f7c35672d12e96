package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/h5probe/internal/config"
	"github.com/oshokin/h5probe/internal/logger"
	"github.com/oshokin/h5probe/internal/service/checker"
	"github.com/oshokin/h5probe/internal/storage/hdf5"
	"github.com/oshokin/h5probe/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// output overrides the report format from the configuration file.
	output string
	// logLevel overrides the log level from the configuration file.
	logLevel string
	// keepFile keeps the temporary probe file after the run.
	keepFile bool
	// parallelism overrides how many files are probed at once.
	parallelism int

	// rootCmd represents the base command for the HDF5 round-trip probe.
	rootCmd = &cobra.Command{
		Use:   "h5probe [path...]",
		Short: "Write the HDF5 library version to a file and read it back.",
		Long: `Checks that the linked HDF5 library can round-trip a string.

For every path the probe creates (or truncates) an HDF5 file, writes the
library version as the string dataset /version_str, reopens the file
read-only and reads the dataset back. The value read is printed.

Without a path a temporary file is used and removed afterwards unless
--keep is given. Probing several paths runs them in parallel; the same
path may not be given twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			options := &checker.Options{
				ConfigPath:  configPath,
				Paths:       args,
				Output:      output,
				LogLevel:    logLevel,
				KeepFile:    keepFile,
				Parallelism: parallelism,
				Progress:    os.Stderr,
			}

			return checker.Run(ctx, options)
		},
	}
)

// Execute runs the h5probe CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd, version.Component{
		Name: "hdf5",
		Version: func() (string, error) {
			v, err := hdf5.New().Version()
			if err != nil {
				return "", err
			}

			return v.String(), nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes the final error once; cobra's own printing is silenced.
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, "Error:", err)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&output, "output", "o", "", "report format: text, table or json")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&keepFile, "keep", false, "keep the temporary probe file")
	flags.IntVarP(&parallelism, "parallelism", "p", 0,
		fmt.Sprintf("number of files probed at once (default from config, %d)", config.DefaultParallelism))
}
