package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		parsed, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("traceroute")
	assert.Error(t, err)
	_, err = ParseKind("")
	assert.Error(t, err)
}

func TestPingOutcomeStatus(t *testing.T) {
	assert.Equal(t, StatusConnected, PingOutcome{PacketsTx: 4, PacketsRx: 4}.Status())
	assert.Equal(t, StatusUnstable, PingOutcome{PacketsTx: 4, PacketsRx: 2}.Status())
	assert.Equal(t, StatusDisconnected, PingOutcome{PacketsTx: 4, PacketsRx: 0}.Status())
}

func TestAvailabilityOutcome(t *testing.T) {
	assert.True(t, AvailabilityOutcome{Percent: 99.5, Received: true}.OK())
	// A zero percentage is a dead device even when the query succeeded.
	assert.False(t, AvailabilityOutcome{Percent: 0, Received: true}.OK())
	assert.False(t, AvailabilityOutcome{Percent: 50, Received: false}.OK())
}

func TestOutcomeFieldsPlaceholders(t *testing.T) {
	assert.Equal(t, "-", SignalOutcome{}.Fields()["rsl_in"])
	assert.Equal(t, "Poor", SignalOutcome{}.Fields()["signal_quality"])
	assert.Equal(t, "-", RankOutcome{}.Fields()["rank"])
	assert.Equal(t, "-", DisconnectionsOutcome{}.Fields()["disconnected_total"])

	got := SignalOutcome{RSLIn: -61, RSLOut: -64, Received: true}.Fields()
	assert.Equal(t, "-61", got["rsl_in"])
	assert.Equal(t, "-64", got["rsl_out"])
	assert.Equal(t, "Good", got["signal_quality"])
}

func TestSkippedOutcome(t *testing.T) {
	o := SkippedOutcome{OfKind: KindPing, Reason: "not in topology snapshot"}
	assert.Equal(t, KindPing, o.Kind())
	assert.False(t, o.OK())
	assert.Equal(t, StatusSkipped, o.Status())
	assert.Equal(t, "not in topology snapshot", o.Fields()["skip_reason"])
}

func TestRunStateEndTimeSerialization(t *testing.T) {
	// A kind that never finished a run must not report a bogus end time.
	idle, err := json.Marshal(RunState{Kind: KindPing})
	require.NoError(t, err)
	assert.NotContains(t, string(idle), "end_time")

	ended := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	done, err := json.Marshal(RunState{Kind: KindPing, EndTime: &ended})
	require.NoError(t, err)
	assert.Contains(t, string(done), `"end_time":"2026-08-28T12:00:00Z"`)
}

func TestNewProgressEventFlattensOutcome(t *testing.T) {
	dev := Device{Label: "WN-L031-30", Address: "fd12::1"}
	ev := NewProgressEvent(KindSignal, 3, 28, dev, "2",
		SignalOutcome{RSLIn: -60, RSLOut: -62, Received: true})

	assert.Equal(t, 3, ev.Index)
	assert.Equal(t, 28, ev.Total)
	assert.Equal(t, "2", ev.HopCount)
	assert.Equal(t, "-60", ev.Result["rsl_in"])
	assert.Equal(t, "Connected", ev.Result["connection_status"])
}
