package main

import (
	"fmt"

	"github.com/user/meshwatch/internal/engine"
	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/probes"
	"github.com/user/meshwatch/internal/roster"
	"github.com/user/meshwatch/internal/storage"
	"github.com/user/meshwatch/internal/topology"
	"github.com/user/meshwatch/internal/util"
)

// buildRoster returns the configured device roster, falling back to the
// built-in field table when the config file lists no devices.
func buildRoster() (*roster.Roster, error) {
	if len(cfg.Devices) == 0 {
		return roster.Default(), nil
	}

	devices := make([]model.Device, len(cfg.Devices))
	for i, d := range cfg.Devices {
		devices[i] = model.Device{Label: d.Label, Address: d.Address, Pole: d.Pole}
	}
	return roster.New(devices)
}

func probeSettings() probes.Settings {
	return probes.Settings{
		PingCount:            cfg.PingCount,
		PingBudget:           cfg.PingBudget,
		CoapPort:             cfg.CoapPort,
		SignalBudget:         cfg.SignalBudget,
		RankBudget:           cfg.RankBudget,
		DisconnectionsBudget: cfg.DisconnectionsBudget,
		AvailabilityBudget:   cfg.AvailabilityBudget,
	}
}

// buildEngine assembles the full stack: database, snapshot-backed topology
// cache, result persistence and the batch engine. Extra sinks (the live
// terminal view) are appended after the persisting sink and the feed.
func buildEngine(extra ...engine.Sink) (*engine.Engine, *engine.Feed, topology.Source, error) {
	db, err := storage.Initialize(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	source := topology.CommandSource{Command: cfg.TopologyCommand, Budget: cfg.TopologyBudget}
	cache := topology.NewCache(source, storage.NewSnapshotStore(db), cfg.TopologyTTL, nil)

	r, err := buildRoster()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := util.EnsureDir(cfg.RunLogDir); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create run log dir: %w", err)
	}

	feed := engine.NewFeed()
	sinks := engine.MultiSink{storage.NewResultSink(storage.NewResultStore(db)), feed}
	sinks = append(sinks, extra...)

	eng := engine.New(engine.NewRegistry(), r, cache, sinks, feed, probeSettings(), cfg.RunLogDir)
	return eng, feed, source, nil
}

// buildCache assembles just the topology cache for commands that never probe.
func buildCache() (*topology.Cache, topology.Source, error) {
	db, err := storage.Initialize(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	source := topology.CommandSource{Command: cfg.TopologyCommand, Budget: cfg.TopologyBudget}
	return topology.NewCache(source, storage.NewSnapshotStore(db), cfg.TopologyTTL, nil), source, nil
}
