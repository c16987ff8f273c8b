package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/probes"
	"github.com/user/meshwatch/internal/roster"
	"github.com/user/meshwatch/internal/topology"
)

type stubProbe struct {
	kind  model.Kind
	check func(address string, stop func() bool) model.Outcome
}

func (p stubProbe) Kind() model.Kind { return p.kind }

func (p stubProbe) Check(address string, stop func() bool) model.Outcome {
	return p.check(address, stop)
}

type captureSink struct {
	events []model.ProgressEvent
	errs   []string
	done   chan model.RunState
}

func newCaptureSink() *captureSink {
	return &captureSink{done: make(chan model.RunState, 1)}
}

func (s *captureSink) Progress(ev model.ProgressEvent) { s.events = append(s.events, ev) }

func (s *captureSink) Completed(kind model.Kind, state model.RunState) { s.done <- state }

func (s *captureSink) RunError(kind model.Kind, msg string) { s.errs = append(s.errs, msg) }

func (s *captureSink) wait(t *testing.T) model.RunState {
	t.Helper()
	select {
	case state := <-s.done:
		return state
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete in time")
		return model.RunState{}
	}
}

type errSource struct{}

func (errSource) Fetch(stop func() bool) (string, error) {
	return "", errors.New("router unreachable")
}

type fixedSource struct {
	output string
}

func (s fixedSource) Fetch(stop func() bool) (string, error) { return s.output, nil }

func mustRoster(t *testing.T, devices ...model.Device) *roster.Roster {
	t.Helper()
	r, err := roster.New(devices)
	require.NoError(t, err)
	return r
}

func newTestEngine(t *testing.T, r *roster.Roster, source topology.Source, sink Sink, probe probes.Probe) *Engine {
	t.Helper()
	cache := topology.NewCache(source, nil, time.Minute, nil)
	eng := New(NewRegistry(), r, cache, sink, nil, probes.Settings{}, "")
	eng.SetFactory(func(kind model.Kind, s probes.Settings) (probes.Probe, error) {
		return probe, nil
	})
	return eng
}

func TestBatchCountsOutcomes(t *testing.T) {
	r := mustRoster(t,
		model.Device{Label: "A", Address: "fd12::a"},
		model.Device{Label: "B", Address: "fd12::b"},
	)

	probe := stubProbe{kind: model.KindPing, check: func(address string, stop func() bool) model.Outcome {
		if address == "fd12::a" {
			return model.PingOutcome{PacketsTx: 4, PacketsRx: 4}
		}
		return model.PingOutcome{PacketsTx: 4, PacketsRx: 0, LossPercent: 100}
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, errSource{}, sink, probe)

	require.NoError(t, eng.Start(model.KindPing, Params{}))
	final := sink.wait(t)

	assert.Equal(t, 1, final.Success)
	assert.Equal(t, 1, final.Failure)
	assert.Equal(t, 0, final.Skipped)
	assert.Equal(t, 100, final.Progress)
	assert.False(t, final.Running)
	assert.Contains(t, final.Summary, "1/2 devices reachable")
	assert.Contains(t, final.Summary, "50.0% success rate")
	assert.Contains(t, final.Summary, "Duration:")

	require.Len(t, sink.events, 2)
	assert.Equal(t, 1, sink.events[0].Index)
	assert.Equal(t, 2, sink.events[0].Total)
	assert.Equal(t, "Connected", sink.events[0].Result["connection_status"])
	assert.Equal(t, "Disconnected", sink.events[1].Result["connection_status"])
}

func TestBatchSkipsDevicesOffMesh(t *testing.T) {
	r := mustRoster(t,
		model.Device{Label: "A", Address: "fd12:3456::aaaa"},
		model.Device{Label: "B", Address: "fd12:3456::bbbb"},
	)

	// Only A appears in the topology; B must be skipped without probing.
	probed := make(map[string]bool)
	probe := stubProbe{kind: model.KindSignal, check: func(address string, stop func() bool) model.Outcome {
		probed[address] = true
		return model.SignalOutcome{RSLIn: -60, RSLOut: -62, Received: true}
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, fixedSource{output: "fd12:3456::aaaa\n"}, sink, probe)

	require.NoError(t, eng.Start(model.KindSignal, Params{}))
	final := sink.wait(t)

	assert.Equal(t, 1, final.Success)
	assert.Equal(t, 0, final.Failure)
	assert.Equal(t, 1, final.Skipped)
	assert.True(t, probed["fd12:3456::aaaa"])
	assert.False(t, probed["fd12:3456::bbbb"])

	require.Len(t, sink.events, 2)
	assert.Equal(t, "Skipped", sink.events[1].Result["connection_status"])
	assert.Equal(t, "0", sink.events[0].HopCount)
	assert.Equal(t, "-", sink.events[1].HopCount)
}

func TestDuplicateStartRejected(t *testing.T) {
	r := mustRoster(t, model.Device{Label: "A", Address: "fd12::a"})

	release := make(chan struct{})
	probe := stubProbe{kind: model.KindPing, check: func(address string, stop func() bool) model.Outcome {
		<-release
		return model.PingOutcome{PacketsTx: 1, PacketsRx: 1}
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, errSource{}, sink, probe)

	require.NoError(t, eng.Start(model.KindPing, Params{}))
	assert.ErrorIs(t, eng.Start(model.KindPing, Params{}), ErrAlreadyRunning)

	close(release)
	final := sink.wait(t)
	assert.Equal(t, 1, final.Success)
}

func TestStopEndsRunPromptly(t *testing.T) {
	r := mustRoster(t,
		model.Device{Label: "A", Address: "fd12::a"},
		model.Device{Label: "B", Address: "fd12::b"},
		model.Device{Label: "C", Address: "fd12::c"},
	)

	entered := make(chan string, 3)
	probe := stubProbe{kind: model.KindPing, check: func(address string, stop func() bool) model.Outcome {
		entered <- address
		// Simulate a long probe that honors the stop callback.
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if stop != nil && stop() {
				return model.PingOutcome{PacketsTx: 1, PacketsRx: 0, LossPercent: 100}
			}
			time.Sleep(20 * time.Millisecond)
		}
		return model.PingOutcome{PacketsTx: 1, PacketsRx: 1}
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, errSource{}, sink, probe)

	require.NoError(t, eng.Start(model.KindPing, Params{}))
	<-entered

	requested := time.Now()
	eng.Registry().RequestStop(model.KindPing)
	final := sink.wait(t)

	assert.Less(t, time.Since(requested), 2*time.Second)
	assert.False(t, final.Running)
	// Only the first device was reached before the stop.
	assert.Len(t, sink.events, 1)
}

func TestPauseHoldsBeforeNextDevice(t *testing.T) {
	r := mustRoster(t,
		model.Device{Label: "A", Address: "fd12::a"},
		model.Device{Label: "B", Address: "fd12::b"},
	)

	entered := make(chan string, 2)
	proceed := make(chan struct{})
	probe := stubProbe{kind: model.KindPing, check: func(address string, stop func() bool) model.Outcome {
		entered <- address
		<-proceed
		return model.PingOutcome{PacketsTx: 1, PacketsRx: 1}
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, errSource{}, sink, probe)

	require.NoError(t, eng.Start(model.KindPing, Params{}))
	<-entered
	eng.Registry().RequestPause(model.KindPing)
	proceed <- struct{}{}

	// The worker holds before device B while the pause flag is set.
	select {
	case addr := <-entered:
		t.Fatalf("probed %s while paused", addr)
	case <-time.After(3 * pauseSlice):
	}
	assert.True(t, eng.Registry().Status(model.KindPing).Paused)

	eng.Registry().RequestResume(model.KindPing)
	select {
	case addr := <-entered:
		assert.Equal(t, "fd12::b", addr)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not resume")
	}
	proceed <- struct{}{}

	final := sink.wait(t)
	assert.Equal(t, 2, final.Success)
	assert.False(t, final.Paused)
}

func TestPanickingProbeStillFinalizes(t *testing.T) {
	r := mustRoster(t, model.Device{Label: "A", Address: "fd12::a"})

	probe := stubProbe{kind: model.KindPing, check: func(address string, stop func() bool) model.Outcome {
		panic("probe exploded")
	}}

	sink := newCaptureSink()
	eng := newTestEngine(t, r, errSource{}, sink, probe)

	require.NoError(t, eng.Start(model.KindPing, Params{}))
	final := sink.wait(t)

	// The worker must not strand the kind: finalization runs on the panic
	// path and the registry accepts a new run afterwards.
	assert.False(t, final.Running)
	assert.False(t, final.Paused)
	require.NotNil(t, final.EndTime)
	require.Len(t, sink.errs, 1)
	assert.Contains(t, sink.errs[0], "probe exploded")

	_, err := eng.Registry().Begin(model.KindPing)
	require.NoError(t, err)
}

func TestRetestDeliversSingleEvent(t *testing.T) {
	r := mustRoster(t, model.Device{Label: "A", Address: "fd12::a"})

	probe := stubProbe{kind: model.KindRank, check: func(address string, stop func() bool) model.Outcome {
		return model.RankOutcome{Rank: 256, Received: true}
	}}

	done := make(chan model.ProgressEvent, 1)
	sink := &funcSink{onProgress: func(ev model.ProgressEvent) { done <- ev }}

	cache := topology.NewCache(errSource{}, nil, time.Minute, nil)
	eng := New(NewRegistry(), r, cache, sink, nil, probes.Settings{}, "")
	eng.SetFactory(func(kind model.Kind, s probes.Settings) (probes.Probe, error) {
		return probe, nil
	})

	require.NoError(t, eng.Retest(model.KindRank, "fd12::a", "A", Params{}))

	select {
	case ev := <-done:
		assert.Equal(t, 1, ev.Index)
		assert.Equal(t, 1, ev.Total)
		assert.Equal(t, "A", ev.Device.Label)
		assert.Equal(t, "256", ev.Result["rank"])
	case <-time.After(5 * time.Second):
		t.Fatal("retest event never arrived")
	}

	assert.Error(t, eng.Retest(model.KindRank, "", "A", Params{}))
}

type funcSink struct {
	onProgress func(model.ProgressEvent)
}

func (s *funcSink) Progress(ev model.ProgressEvent)      { s.onProgress(ev) }
func (s *funcSink) Completed(model.Kind, model.RunState) {}
func (s *funcSink) RunError(model.Kind, string)          {}
