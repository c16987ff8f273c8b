package probes

import (
	"fmt"
	"time"

	"github.com/user/meshwatch/internal/model"
)

// Probe checks one device and reports a structured outcome. Implementations
// never return an error: any failure mode is folded into a failed outcome.
// The stop callback is polled at sub-second granularity while the probe waits
// on its external command; on stop the probe terminates the command and
// reports failure. Probes do not retry.
type Probe interface {
	Kind() model.Kind
	Check(address string, stop func() bool) model.Outcome
}

// Settings carries per-kind probe construction parameters, normally taken
// from the config file and optionally overridden per start request.
type Settings struct {
	PingCount  int
	PingBudget time.Duration

	CoapPort             int
	SignalBudget         time.Duration
	RankBudget           time.Duration
	DisconnectionsBudget time.Duration
	AvailabilityBudget   time.Duration
}

// ForKind constructs the probe for a test kind.
func ForKind(kind model.Kind, s Settings) (Probe, error) {
	switch kind {
	case model.KindPing:
		return NewPingProbe(s.PingCount, s.PingBudget), nil
	case model.KindSignal:
		return NewSignalProbe(s.CoapPort, s.SignalBudget), nil
	case model.KindRank:
		return NewRankProbe(s.CoapPort, s.RankBudget), nil
	case model.KindDisconnections:
		return NewDisconnectionsProbe(s.CoapPort, s.DisconnectionsBudget), nil
	case model.KindAvailability:
		return NewAvailabilityProbe(s.CoapPort, s.AvailabilityBudget), nil
	default:
		return nil, fmt.Errorf("no probe for kind %q", kind)
	}
}
