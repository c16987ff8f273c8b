package probes

import (
	"regexp"
	"strconv"
	"time"

	"github.com/user/meshwatch/internal/model"
)

// PingProbe measures reachability with the system ping command.
type PingProbe struct {
	count  int
	budget time.Duration
}

// NewPingProbe creates a ping probe sending count packets with the given
// wall-clock budget per device.
func NewPingProbe(count int, budget time.Duration) *PingProbe {
	if count <= 0 {
		count = 100
	}
	if budget <= 0 {
		budget = 120 * time.Second
	}
	return &PingProbe{count: count, budget: budget}
}

// Kind reports the test kind this probe serves.
func (p *PingProbe) Kind() model.Kind { return model.KindPing }

// Check pings a single device and parses the statistics block.
func (p *PingProbe) Check(address string, stop func() bool) model.Outcome {
	args := []string{
		"-c", strconv.Itoa(p.count),
		"-W", strconv.Itoa(int(p.budget.Seconds())),
		address,
	}

	output, err := RunCommand("ping", args, p.budget, stop)
	if err != nil && output == "" {
		return failedPing(p.count)
	}

	// ping exits non-zero when any packet is lost; the statistics block is
	// still printed, so parse whatever arrived.
	result := parsePingOutput(output, p.count)
	if result.PacketsRx == 0 {
		return failedPing(p.count)
	}
	return result
}

var (
	pingStatsRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) received, ([0-9.]+)% packet loss`)
	pingRTTRe   = regexp.MustCompile(`= ([0-9.]+)/([0-9.]+)/([0-9.]+)/([0-9.]+)`)
)

// parsePingOutput extracts packet and round-trip statistics from ping output.
// Absent fields keep their zero placeholder.
func parsePingOutput(output string, count int) model.PingOutcome {
	result := model.PingOutcome{
		PacketsTx:   count,
		LossPercent: 100.0,
	}

	if m := pingStatsRe.FindStringSubmatch(output); m != nil {
		result.PacketsTx, _ = strconv.Atoi(m[1])
		result.PacketsRx, _ = strconv.Atoi(m[2])
		result.LossPercent, _ = strconv.ParseFloat(m[3], 64)
	}
	if m := pingRTTRe.FindStringSubmatch(output); m != nil {
		result.MinRTT, _ = strconv.ParseFloat(m[1], 64)
		result.AvgRTT, _ = strconv.ParseFloat(m[2], 64)
		result.MaxRTT, _ = strconv.ParseFloat(m[3], 64)
		result.MdevRTT, _ = strconv.ParseFloat(m[4], 64)
	}

	return result
}

func failedPing(count int) model.PingOutcome {
	return model.PingOutcome{
		PacketsTx:   count,
		PacketsRx:   0,
		LossPercent: 100.0,
	}
}
