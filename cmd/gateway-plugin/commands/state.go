package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
)

var stateDir string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect persisted Gateway state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Pretty-print the persisted GatewayState for a directory",
	RunE:  runStateShow,
}

func init() {
	stateShowCmd.Flags().StringVar(&stateDir, "dir", "", "Working directory (defaults to cwd)")
	stateCmd.AddCommand(stateShowCmd)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	workDir, err := getWorkDir(stateDir)
	if err != nil {
		return err
	}

	store := gatewaystate.NewStore()
	state, err := store.Load(workDir)
	if err != nil {
		return fmt.Errorf("load gateway state: %w", err)
	}
	if state == nil {
		fmt.Println("{}")
		return nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gateway state: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
