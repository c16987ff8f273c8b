package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/engine"
	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/tui"
)

var (
	runPacketCount int
	runTimeout     int
	runPlain       bool
)

var runCmd = &cobra.Command{
	Use:   "run [ping|signal|rank|disconnections|availability]",
	Short: "Run a batch test over the device roster",
	Long: `Run one test kind against every roster device and wait for completion.

By default a live progress view is shown; use --plain for line-oriented
output suitable for cron jobs and log capture.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVarP(&runPacketCount, "count", "c", 0,
		"Ping packet count (0 uses the configured default)")
	runCmd.Flags().IntVarP(&runTimeout, "timeout", "t", 0,
		"Per-device budget in seconds (0 uses the configured default)")
	runCmd.Flags().BoolVar(&runPlain, "plain", false,
		"Line-oriented output instead of the live view")
}

func runRun(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return err
	}

	params := engine.Params{
		PacketCount: runPacketCount,
		Budget:      time.Duration(runTimeout) * time.Second,
	}

	if runPlain {
		return runPlainBatch(kind, params)
	}

	app := tui.NewApp(kind)
	eng, _, _, err := buildEngine(app.Sink())
	if err != nil {
		return err
	}
	if err := eng.Start(kind, params); err != nil {
		return err
	}

	final, err := app.Run(eng)
	if err != nil {
		return err
	}
	fmt.Println(final.Summary)
	return nil
}

func runPlainBatch(kind model.Kind, params engine.Params) error {
	sink := &consoleSink{done: make(chan model.RunState, 1)}
	eng, _, _, err := buildEngine(sink)
	if err != nil {
		return err
	}
	if err := eng.Start(kind, params); err != nil {
		return err
	}

	final := <-sink.done
	fmt.Println(final.Summary)
	return nil
}

// consoleSink prints one line per device and hands the final state back to
// the command goroutine.
type consoleSink struct {
	done chan model.RunState
}

func (s *consoleSink) Progress(ev model.ProgressEvent) {
	status := string(model.StatusUnknown)
	if ev.Outcome != nil {
		status = string(ev.Outcome.Status())
	}
	fmt.Printf("[%d/%d] %s (%s) hops:%s %s\n",
		ev.Index, ev.Total, ev.Device.Label, ev.Device.Address, ev.HopCount, status)
}

func (s *consoleSink) Completed(kind model.Kind, state model.RunState) {
	s.done <- state
}

func (s *consoleSink) RunError(kind model.Kind, msg string) {
	fmt.Fprintf(os.Stderr, "%s run error: %s\n", kind, msg)
}
