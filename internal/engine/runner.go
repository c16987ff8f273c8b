package engine

import (
	"fmt"
	"time"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/probes"
	"github.com/user/meshwatch/internal/roster"
	"github.com/user/meshwatch/internal/topology"
	"github.com/user/meshwatch/internal/util"
)

// pauseSlice bounds how long a paused worker sleeps before rechecking the
// stop flag, keeping cancellation latency under a second even while paused.
const pauseSlice = 500 * time.Millisecond

// ProbeFactory builds the probe for a kind. Swappable in tests.
type ProbeFactory func(kind model.Kind, s probes.Settings) (probes.Probe, error)

// Params are per-start overrides for probe construction. Zero values fall
// back to the configured defaults.
type Params struct {
	PacketCount int
	Budget      time.Duration
}

// Engine runs batch tests over the roster: one worker goroutine per admitted
// kind, cooperating with stop and pause flags polled between (and through
// the probe's stop callback, during) devices.
type Engine struct {
	registry *Registry
	roster   *roster.Roster
	cache    *topology.Cache
	sink     Sink
	feed     *Feed
	settings probes.Settings
	factory  ProbeFactory
	logDir   string
}

// New creates an engine. feed may be nil when no polling consumer exists;
// logDir may be empty to skip per-run log files.
func New(reg *Registry, r *roster.Roster, cache *topology.Cache, sink Sink, feed *Feed, settings probes.Settings, logDir string) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		registry: reg,
		roster:   r,
		cache:    cache,
		sink:     sink,
		feed:     feed,
		settings: settings,
		factory:  probes.ForKind,
		logDir:   logDir,
	}
}

// SetFactory replaces the probe factory. Intended for tests.
func (e *Engine) SetFactory(f ProbeFactory) { e.factory = f }

// Registry exposes the run registry for status and control requests.
func (e *Engine) Registry() *Registry { return e.registry }

// Cache exposes the topology cache for refresh/lookup/summary requests.
func (e *Engine) Cache() *topology.Cache { return e.cache }

// applyParams merges per-start overrides over the configured defaults.
func (e *Engine) applyParams(p Params) probes.Settings {
	s := e.settings
	if p.PacketCount > 0 {
		s.PingCount = p.PacketCount
	}
	if p.Budget > 0 {
		s.PingBudget = p.Budget
		s.SignalBudget = p.Budget
		s.RankBudget = p.Budget
		s.DisconnectionsBudget = p.Budget
		s.AvailabilityBudget = p.Budget
	}
	return s
}

// Start admits and launches a batch run of the given kind. It returns
// ErrAlreadyRunning when a run of that kind is live, without side effects.
func (e *Engine) Start(kind model.Kind, p Params) error {
	probe, err := e.factory(kind, e.applyParams(p))
	if err != nil {
		return err
	}

	run, err := e.registry.Begin(kind)
	if err != nil {
		return err
	}
	if e.feed != nil {
		e.feed.Reset(kind)
	}

	go e.execute(run, probe)
	return nil
}

// Retest probes a single device once, outside the registry, and delivers the
// outcome through the progress sink as a one-of-one event.
func (e *Engine) Retest(kind model.Kind, address, label string, p Params) error {
	if address == "" || label == "" {
		return fmt.Errorf("retest needs both address and label")
	}
	probe, err := e.factory(kind, e.applyParams(p))
	if err != nil {
		return err
	}

	go func() {
		outcome := probe.Check(address, nil)
		dev := model.Device{Label: label, Address: address}
		hop := e.cache.LookupLabel(address)
		e.sink.Progress(model.NewProgressEvent(kind, 1, 1, dev, hop, outcome))
	}()
	return nil
}

// execute is the per-run worker. Finalization is guaranteed: whatever path
// ends the run, the state is marked not running, flags are cleared, a
// summary is stored and a completion event is emitted.
func (e *Engine) execute(run *Run, probe probes.Probe) {
	kind := run.Kind()
	devices := e.roster.Devices()
	total := len(devices)
	start := time.Now()

	rlog := util.NewRunLog(e.logDir, string(kind))
	defer rlog.Close()
	run.Update(func(s *model.RunState) { s.LogFile = rlog.Path })
	rlog.StartBanner(string(kind), total)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			rlog.Error("%s", msg)
			e.sink.RunError(kind, msg)
		}
		elapsed := time.Since(start)
		final := run.Finish(func(s *model.RunState) {
			s.Summary = summarize(kind, s.Success, s.Failure, s.Skipped, elapsed)
		})
		rlog.EndBanner(string(kind), final.Summary)
		e.sink.Completed(kind, final)
	}()

	// Hop counts annotate every result; a failed refresh degrades to
	// "unknown distance" rather than blocking the batch.
	if err := e.cache.RefreshIfStale(run.Stopping); err != nil {
		rlog.Warn("Topology unavailable: %v", err)
	}

	for i, dev := range devices {
		if run.Stopping() {
			rlog.Info("Test stopped by user")
			break
		}

		stopped := false
		for run.PauseRequested() {
			time.Sleep(pauseSlice)
			if run.Stopping() {
				rlog.Info("Test stopped by user while paused")
				stopped = true
				break
			}
		}
		if stopped {
			break
		}

		run.Update(func(s *model.RunState) { s.CurrentDevice = dev.Label })

		var outcome model.Outcome
		_, onMesh := e.cache.Lookup(dev.Address)
		if e.cache.HasData() && !onMesh {
			// Known to be off the mesh; don't spend probe budget on it.
			outcome = model.SkippedOutcome{OfKind: kind, Reason: "not in topology snapshot"}
		} else {
			outcome = probe.Check(dev.Address, run.Stopping)
		}

		run.Update(func(s *model.RunState) {
			switch {
			case outcome.Status() == model.StatusSkipped:
				s.Skipped++
			case outcome.OK():
				s.Success++
			default:
				s.Failure++
			}
			s.Progress = (i + 1) * 100 / total
		})

		rlog.DeviceLine(dev.Label, dev.Address, string(outcome.Status()), outcome.Fields())
		e.sink.Progress(model.NewProgressEvent(kind, i+1, total, dev, e.cache.LookupLabel(dev.Address), outcome))
	}
}

// summarize renders the end-of-run summary line. The success percentage is
// computed over the full roster; ping runs also report elapsed time.
func summarize(kind model.Kind, success, failure, skipped int, elapsed time.Duration) string {
	total := success + failure + skipped
	if total == 0 {
		return "SUMMARY: no devices tested"
	}
	pct := float64(success) / float64(total) * 100

	verb := "responded"
	switch kind {
	case model.KindPing:
		verb = "reachable"
	case model.KindAvailability:
		verb = "available"
	}

	s := fmt.Sprintf("SUMMARY: %d/%d devices %s (%.1f%% success rate)", success, total, verb, pct)
	if kind == model.KindPing {
		s += " - Duration: " + formatDuration(elapsed)
	}
	return s
}

func formatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
