// Package model defines core data structures for meshwatch.
package model

import (
	"fmt"
	"time"
)

// Kind identifies a test kind. It keys run state and control flags.
type Kind string

const (
	KindPing           Kind = "ping"
	KindSignal         Kind = "signal"
	KindRank           Kind = "rank"
	KindDisconnections Kind = "disconnections"
	KindAvailability   Kind = "availability"
)

// AllKinds lists every supported test kind in display order.
func AllKinds() []Kind {
	return []Kind{KindPing, KindSignal, KindRank, KindDisconnections, KindAvailability}
}

// ParseKind validates a test kind received from the CLI or web layer.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown test kind %q", s)
}

// ConnectionStatus is the normalized per-device verdict attached to every outcome.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "Connected"
	StatusUnstable     ConnectionStatus = "Unstable"
	StatusDisconnected ConnectionStatus = "Disconnected"
	StatusSkipped      ConnectionStatus = "Skipped"
	StatusUnknown      ConnectionStatus = "Unknown"
)

// Device is one roster entry: a human label plus a network address.
// The address is treated as an opaque string; the roster decides the family.
type Device struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Pole    string `json:"pole,omitempty"`
}

// Outcome is the result of one probe against one device. Each test kind has
// its own concrete type carrying that kind's measurement fields; consumers
// switch on the concrete type (or use Fields for display).
type Outcome interface {
	Kind() Kind
	OK() bool
	Status() ConnectionStatus
	// Fields returns display-ready measurement fields, with "-" standing in
	// for values the probe could not obtain.
	Fields() map[string]string
}

// PingOutcome carries reachability statistics parsed from ping output.
type PingOutcome struct {
	PacketsTx   int
	PacketsRx   int
	LossPercent float64
	MinRTT      float64
	AvgRTT      float64
	MaxRTT      float64
	MdevRTT     float64
}

func (o PingOutcome) Kind() Kind { return KindPing }
func (o PingOutcome) OK() bool   { return o.PacketsRx > 0 }

func (o PingOutcome) Status() ConnectionStatus {
	switch {
	case o.PacketsRx == 0:
		return StatusDisconnected
	case o.PacketsRx < o.PacketsTx:
		return StatusUnstable
	default:
		return StatusConnected
	}
}

func (o PingOutcome) Fields() map[string]string {
	return map[string]string{
		"packets_tx":   fmt.Sprintf("%d", o.PacketsTx),
		"packets_rx":   fmt.Sprintf("%d", o.PacketsRx),
		"loss_percent": fmt.Sprintf("%.1f", o.LossPercent),
		"min_time":     rttField(o.MinRTT),
		"avg_time":     rttField(o.AvgRTT),
		"max_time":     rttField(o.MaxRTT),
		"mdev_time":    rttField(o.MdevRTT),
	}
}

func rttField(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

// SignalOutcome carries the RSL level pair reported by a device.
type SignalOutcome struct {
	RSLIn    int
	RSLOut   int
	Received bool
}

func (o SignalOutcome) Kind() Kind { return KindSignal }
func (o SignalOutcome) OK() bool   { return o.Received }

func (o SignalOutcome) Status() ConnectionStatus {
	if o.Received {
		return StatusConnected
	}
	return StatusDisconnected
}

func (o SignalOutcome) Fields() map[string]string {
	if !o.Received {
		return map[string]string{"rsl_in": "-", "rsl_out": "-", "signal_quality": "Poor"}
	}
	return map[string]string{
		"rsl_in":         fmt.Sprintf("%d", o.RSLIn),
		"rsl_out":        fmt.Sprintf("%d", o.RSLOut),
		"signal_quality": "Good",
	}
}

// RankOutcome carries a device's routing rank.
type RankOutcome struct {
	Rank     int
	Received bool
}

func (o RankOutcome) Kind() Kind { return KindRank }
func (o RankOutcome) OK() bool   { return o.Received }

func (o RankOutcome) Status() ConnectionStatus {
	if o.Received {
		return StatusConnected
	}
	return StatusDisconnected
}

func (o RankOutcome) Fields() map[string]string {
	if !o.Received {
		return map[string]string{"rank": "-"}
	}
	return map[string]string{"rank": fmt.Sprintf("%d", o.Rank)}
}

// DisconnectionsOutcome carries a device's lifetime disconnection counter.
type DisconnectionsOutcome struct {
	Total    int
	Raw      string
	Received bool
}

func (o DisconnectionsOutcome) Kind() Kind { return KindDisconnections }
func (o DisconnectionsOutcome) OK() bool   { return o.Received }

func (o DisconnectionsOutcome) Status() ConnectionStatus {
	if o.Received {
		return StatusConnected
	}
	return StatusDisconnected
}

func (o DisconnectionsOutcome) Fields() map[string]string {
	if !o.Received {
		return map[string]string{"disconnected_total": "-"}
	}
	return map[string]string{"disconnected_total": fmt.Sprintf("%d", o.Total)}
}

// AvailabilityOutcome carries a device's self-reported availability percentage.
type AvailabilityOutcome struct {
	Percent  float64
	Raw      string
	Received bool
}

func (o AvailabilityOutcome) Kind() Kind { return KindAvailability }
func (o AvailabilityOutcome) OK() bool   { return o.Received && o.Percent > 0 }

func (o AvailabilityOutcome) Status() ConnectionStatus {
	if o.OK() {
		return StatusConnected
	}
	return StatusDisconnected
}

func (o AvailabilityOutcome) Fields() map[string]string {
	if !o.Received {
		return map[string]string{"availability": "-"}
	}
	return map[string]string{"availability": fmt.Sprintf("%.1f", o.Percent)}
}

// SkippedOutcome marks a device the batch runner did not probe, typically
// because the topology snapshot shows it off the mesh.
type SkippedOutcome struct {
	OfKind Kind
	Reason string
}

func (o SkippedOutcome) Kind() Kind               { return o.OfKind }
func (o SkippedOutcome) OK() bool                 { return false }
func (o SkippedOutcome) Status() ConnectionStatus { return StatusSkipped }

func (o SkippedOutcome) Fields() map[string]string {
	return map[string]string{"skip_reason": o.Reason}
}

// RunState is a snapshot of one kind's current or most recent run. The batch
// runner is its sole writer; everyone else reads copies.
type RunState struct {
	Kind          Kind      `json:"kind"`
	Running       bool      `json:"running"`
	Paused        bool      `json:"paused"`
	Progress      int       `json:"progress"`
	CurrentDevice string    `json:"current_device"`
	StartTime     time.Time `json:"start_time"`
	// EndTime is nil while a kind has never finished a run; omitempty only
	// works on the pointer form.
	EndTime *time.Time `json:"end_time,omitempty"`
	Success       int       `json:"success"`
	Failure       int       `json:"failure"`
	Skipped       int       `json:"skipped"`
	Summary       string    `json:"summary,omitempty"`
	LogFile       string    `json:"log_file,omitempty"`
}

// ProgressEvent is emitted once per probed device during a batch run.
type ProgressEvent struct {
	Kind     Kind    `json:"kind"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Device   Device  `json:"device"`
	HopCount string  `json:"hop_count"`
	Outcome  Outcome `json:"-"`
	// Result is the flattened outcome for JSON consumers.
	Result map[string]string `json:"result"`
}

// NewProgressEvent builds a progress event with the flattened result filled in.
func NewProgressEvent(kind Kind, index, total int, dev Device, hopCount string, outcome Outcome) ProgressEvent {
	ev := ProgressEvent{
		Kind:     kind,
		Index:    index,
		Total:    total,
		Device:   dev,
		HopCount: hopCount,
		Outcome:  outcome,
	}
	if outcome != nil {
		ev.Result = outcome.Fields()
		ev.Result["connection_status"] = string(outcome.Status())
	}
	return ev
}
