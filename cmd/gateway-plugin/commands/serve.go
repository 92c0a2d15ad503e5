package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/gateway"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
	"github.com/opencode-ai/opencode-gateway/internal/hostio"
)

var (
	serveDir   string
	serveAudit bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Dispatch newline-JSON events read from stdin",
	Long: `serve reads one lifecycle event per line from stdin, runs it through
the Gateway's hook pipeline, and writes the (possibly hook-mutated) event
back to stdout as one JSON line per input line. The same pair of streams
carries the Gateway's outbound session.messages / session.promptAsync /
session.summarize calls, multiplexed as request/response lines.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Working directory (defaults to cwd)")
	serveCmd.Flags().BoolVar(&serveAudit, "audit", false, "Force-enable audit-log writes for this run")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := getWorkDir(serveDir)
	if err != nil {
		return err
	}

	host := hostio.NewHost(os.Stdin, os.Stdout)

	var auditOpts []audit.Option
	if serveAudit {
		auditOpts = append(auditOpts, audit.WithEnabled(true))
	}
	gw, err := gateway.New(workDir, host, auditOpts...)
	if err != nil {
		return fmt.Errorf("load gateway policy: %w", err)
	}

	gatewaylog.Info().Str("directory", workDir).Msg("gateway-plugin serve starting")

	ctx := context.Background()
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		line, err := host.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if len(line) == 0 {
			continue
		}

		event, err := hostio.DecodeEvent(line)
		if err != nil {
			gatewaylog.Warn().Err(err).Msg("skipping malformed event line")
			continue
		}
		if event.Directory == "" {
			event.Directory = workDir
		}

		if err := gw.Dispatch(ctx, event); err != nil {
			gatewaylog.Warn().Err(err).Str("event_type", string(event.Type)).Msg("event rejected or dispatch failed")
		}

		out := hostio.EncodeResult(event)
		if out == nil {
			continue
		}
		writer.Write(out)
		writer.WriteByte('\n')
		writer.Flush()
	}
}
