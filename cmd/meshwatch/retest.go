package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/probes"
)

var (
	retestAddress string
	retestCount   int
	retestTimeout int
)

var retestCmd = &cobra.Command{
	Use:   "retest [kind] [label]",
	Short: "Probe a single device once",
	Long: `Probe one device and print the outcome. The label is looked up in
the roster; --address overrides the roster address for ad-hoc targets.`,
	Args: cobra.ExactArgs(2),
	RunE: runRetest,
}

func init() {
	retestCmd.Flags().StringVarP(&retestAddress, "address", "a", "",
		"Target address (default from the roster)")
	retestCmd.Flags().IntVarP(&retestCount, "count", "c", 0,
		"Ping packet count (0 uses the configured default)")
	retestCmd.Flags().IntVarP(&retestTimeout, "timeout", "t", 0,
		"Budget in seconds (0 uses the configured default)")
}

func runRetest(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return err
	}
	label := args[1]

	address := retestAddress
	if address == "" {
		r, err := buildRoster()
		if err != nil {
			return err
		}
		dev, ok := r.Lookup(label)
		if !ok {
			return fmt.Errorf("device %q not in roster (use --address for ad-hoc targets)", label)
		}
		address = dev.Address
	}

	settings := probeSettings()
	if retestCount > 0 {
		settings.PingCount = retestCount
	}
	if retestTimeout > 0 {
		budget := time.Duration(retestTimeout) * time.Second
		settings.PingBudget = budget
		settings.SignalBudget = budget
		settings.RankBudget = budget
		settings.DisconnectionsBudget = budget
		settings.AvailabilityBudget = budget
	}

	probe, err := probes.ForKind(kind, settings)
	if err != nil {
		return err
	}

	fmt.Printf("Probing %s (%s)...\n", label, address)
	outcome := probe.Check(address, nil)

	fmt.Printf("Status: %s\n", outcome.Status())
	fields := outcome.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, fields[k])
	}
	return nil
}
