package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/model"
)

var stopCmd = &cobra.Command{
	Use:   "stop [kind]",
	Short: "Stop a running test on a serving meshwatch instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl("stop_test", args[0])
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [kind]",
	Short: "Pause a running test on a serving meshwatch instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl("pause_test", args[0])
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [kind]",
	Short: "Resume a paused test on a serving meshwatch instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl("resume_test", args[0])
	},
}

func apiURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.WebPort, path)
}

// sendControl posts a control request for a kind and prints the reply.
func sendControl(action, kindArg string) error {
	kind, err := model.ParseKind(kindArg)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{"test_type": string(kind)})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(apiURL("/api/"+action), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("control plane unreachable on port %d (is 'meshwatch serve' running?): %w",
			cfg.WebPort, err)
	}
	defer resp.Body.Close()

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("bad control response: %w", err)
	}
	if !reply.Success {
		return fmt.Errorf("%s failed: %s", action, reply.Error)
	}
	fmt.Println(reply.Message)
	return nil
}
