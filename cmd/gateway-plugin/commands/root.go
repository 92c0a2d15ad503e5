// Package commands provides the gateway-plugin CLI's cobra commands, laid
// out as a root command plus subcommand packages the way OpenCode's own
// CLI is structured.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "gateway-plugin",
	Short: "OpenCode Gateway hook pipeline",
	Long: `gateway-plugin drives the OpenCode Gateway's hook pipeline from
outside the host process: "serve" dispatches newline-JSON lifecycle events
read from stdin, "state show" inspects a working directory's persisted
continuation-loop state, and "audit tail" prints recent audit records.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if parsed, err := zerolog.ParseLevel(logLevel); err == nil {
			level = parsed
		}
		if !printLogs {
			level = zerolog.FatalLevel
		}
		gatewaylog.Logger = gatewaylog.Logger.Level(level)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print hook-pipeline logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("gateway-plugin %s\n", Version))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(auditCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getWorkDir returns dir if non-empty, else the process's current
// directory.
func getWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
