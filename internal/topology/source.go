package topology

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/meshwatch/internal/probes"
)

// CommandSource fetches the status dump by running the border router CLI,
// e.g. "wsbrd_cli status".
type CommandSource struct {
	Command string
	Budget  time.Duration
}

// Fetch runs the configured command and returns its output.
func (s CommandSource) Fetch(stop func() bool) (string, error) {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 {
		return "", fmt.Errorf("no topology command configured")
	}

	output, err := probes.RunCommand(fields[0], fields[1:], s.Budget, stop)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("%s produced no output", fields[0])
	}
	return output, nil
}
