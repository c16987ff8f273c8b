// Package engine drives batch test runs over the device roster and owns the
// per-kind run state and control flags.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/user/meshwatch/internal/model"
)

// ErrAlreadyRunning reports a start request for a kind with a live run.
var ErrAlreadyRunning = errors.New("test already running")

// runControl is one kind's state record plus its control flags. The flags
// are only ever observed by the run's worker through polling.
type runControl struct {
	state model.RunState
	stop  bool
	pause bool
}

// Registry is the process-wide table of run state, keyed by test kind. Start
// admission is strict (duplicate running kinds are rejected); stop, pause and
// resume are permissive so a run whose state was lost can still be controlled.
type Registry struct {
	mu   sync.Mutex
	runs map[model.Kind]*runControl
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[model.Kind]*runControl)}
}

func (r *Registry) control(kind model.Kind) *runControl {
	rc, ok := r.runs[kind]
	if !ok {
		rc = &runControl{state: model.RunState{Kind: kind}}
		r.runs[kind] = rc
	}
	return rc
}

// Begin admits a new run of the given kind. It fails fast with
// ErrAlreadyRunning when a run of that kind is live; there is no queueing.
// On success the previous run's state is replaced wholesale and both control
// flags start clear.
func (r *Registry) Begin(kind model.Kind) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := r.control(kind)
	if rc.state.Running {
		return nil, ErrAlreadyRunning
	}

	rc.stop = false
	rc.pause = false
	rc.state = model.RunState{
		Kind:      kind,
		Running:   true,
		StartTime: time.Now(),
	}
	return &Run{reg: r, rc: rc}, nil
}

// RequestStop sets the stop flag for a kind. Fire-and-forget: the worker
// observes it at its next poll point. Stop is terminal for the current run;
// only the next run's admission clears it. Stopping an idle kind is harmless.
func (r *Registry) RequestStop(kind model.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := r.control(kind)
	rc.stop = true
	rc.state.Running = false
	rc.state.Paused = false
}

// RequestPause sets the pause flag. Set defensively even when no run is
// known, since run state can be lost while a worker lingers.
func (r *Registry) RequestPause(kind model.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := r.control(kind)
	rc.pause = true
	if rc.state.Running {
		rc.state.Paused = true
	}
}

// RequestResume clears the pause flag.
func (r *Registry) RequestResume(kind model.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := r.control(kind)
	rc.pause = false
	rc.state.Paused = false
}

// Status returns a point-in-time snapshot of a kind's run state. A kind that
// never ran reports a zero state with Running=false.
func (r *Registry) Status(kind model.Kind) model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.control(kind).state
}

// Run is the worker-side handle for one admitted run. The owning worker is
// the sole writer of the run's state; other goroutines read snapshots
// through Registry.Status.
type Run struct {
	reg *Registry
	rc  *runControl
}

// Kind returns the run's test kind.
func (run *Run) Kind() model.Kind {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()
	return run.rc.state.Kind
}

// Stopping reports whether a stop has been requested. Workers poll this
// between devices and pass it down into probes as the stop callback.
func (run *Run) Stopping() bool {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()
	return run.rc.stop
}

// PauseRequested reports whether the run should hold before the next device.
func (run *Run) PauseRequested() bool {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()
	return run.rc.pause
}

// Update mutates the run state under the registry lock.
func (run *Run) Update(mutate func(*model.RunState)) {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()
	mutate(&run.rc.state)
}

// State returns a snapshot of the run's state.
func (run *Run) State() model.RunState {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()
	return run.rc.state
}

// Finish finalizes the run: the mutate hook fills summary fields, then the
// run is marked not running, not paused, stamped with an end time, and both
// control flags are cleared so the next run starts clean. Returns the final
// state snapshot. Safe to call exactly once per run, on every exit path.
func (run *Run) Finish(mutate func(*model.RunState)) model.RunState {
	run.reg.mu.Lock()
	defer run.reg.mu.Unlock()

	if mutate != nil {
		mutate(&run.rc.state)
	}
	run.rc.state.Running = false
	run.rc.state.Paused = false
	ended := time.Now()
	run.rc.state.EndTime = &ended
	run.rc.stop = false
	run.rc.pause = false
	return run.rc.state
}
