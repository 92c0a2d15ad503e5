package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
)

var (
	auditDir string
	auditN   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the append-only audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the last N audit records for a directory",
	RunE:  runAuditTail,
}

func init() {
	auditTailCmd.Flags().StringVar(&auditDir, "dir", "", "Working directory (defaults to cwd)")
	auditTailCmd.Flags().IntVarP(&auditN, "n", "n", 20, "Number of records to print")
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	workDir, err := getWorkDir(auditDir)
	if err != nil {
		return err
	}
	if auditN <= 0 {
		auditN = 20
	}

	path := audit.Path(workDir)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	start := 0
	if len(lines) > auditN {
		start = len(lines) - auditN
	}
	for _, line := range lines[start:] {
		fmt.Println(line)
	}
	return nil
}
