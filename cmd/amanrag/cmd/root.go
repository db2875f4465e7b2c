// Package cmd provides the CLI commands for amanrag.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/logging"
	"github.com/Aman-CERP/amanrag/internal/profiling"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the amanrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amanrag",
		Short: "Local BM25 retrieval over a directory of documents",
		Long: `amanrag turns a directory of text documents into a document table
and answers top-K relevance queries over it.

Documents are split into paragraph chunks and ranked with BM25,
weighting file-name matches twice as much as body matches.

Typical flow:
  amanrag index            # build data/index.json from ./docs
  amanrag search "query"   # rank chunks
  amanrag serve            # expose retrieval to MCP clients`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("amanrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amanrag/logs/")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts the requested profiles, then logging.
func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = s
	}
	return startLogging(cmd, args)
}

// stopProfilingAndLogging flushes profiles and closes the log file.
func stopProfilingAndLogging(cmd *cobra.Command, args []string) error {
	var profErr error
	if profileSession != nil {
		profErr = profileSession.Stop()
		profileSession = nil
	}
	if err := stopLogging(cmd, args); err != nil {
		return err
	}
	if profErr != nil {
		return fmt.Errorf("failed to write profiles: %w", profErr)
	}
	return nil
}

// startLogging installs a file logger for every command. stderr is left to
// the command's own output unless --debug is set. serve configures its own
// logger, since stdout and stderr belong to the MCP client there.
func startLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "serve" {
		return nil
	}

	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("command_started", slog.String("command", cmd.CommandPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command. Cobra skips the post-run hook when a
// command fails, so profiles and the log file are also released here.
func Execute() error {
	err := NewRootCmd().Execute()
	if stopErr := stopProfilingAndLogging(nil, nil); err == nil {
		err = stopErr
	}
	return err
}
