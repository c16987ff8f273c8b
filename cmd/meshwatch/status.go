package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status [kind]",
	Short: "Show run status from a serving meshwatch instance",
	Long: `Query the control plane for the current or most recent run of each
test kind. With an argument, only that kind is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	kinds := model.AllKinds()
	if len(args) == 1 {
		kind, err := model.ParseKind(args[0])
		if err != nil {
			return err
		}
		kinds = []model.Kind{kind}
	}

	for _, kind := range kinds {
		state, err := fetchStatus(kind)
		if err != nil {
			return fmt.Errorf("control plane unreachable on port %d (is 'meshwatch serve' running?): %w",
				cfg.WebPort, err)
		}
		printStatus(state)
	}
	return nil
}

func fetchStatus(kind model.Kind) (model.RunState, error) {
	var state model.RunState

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(apiURL(fmt.Sprintf("/api/test_status/%s", kind)))
	if err != nil {
		return state, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("bad status response: %w", err)
	}
	if state.Kind == "" {
		state.Kind = kind
	}
	return state, nil
}

func printStatus(state model.RunState) {
	switch {
	case state.Running && state.Paused:
		fmt.Printf("%-15s paused at %d%% (current: %s)\n", state.Kind, state.Progress, state.CurrentDevice)
	case state.Running:
		fmt.Printf("%-15s running at %d%% (current: %s)\n", state.Kind, state.Progress, state.CurrentDevice)
	case state.Summary != "":
		fmt.Printf("%-15s idle | last run: %s\n", state.Kind, state.Summary)
	default:
		fmt.Printf("%-15s idle\n", state.Kind)
	}
}
