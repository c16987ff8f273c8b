package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Inspect the mesh topology",
}

var topologySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the hop-count distribution of the cached topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := buildCache()
		if err != nil {
			return err
		}
		if !cache.HasData() {
			fmt.Println("No topology snapshot yet; run 'meshwatch topology refresh'")
			return nil
		}
		fmt.Println(cache.Summary())
		if at := cache.FetchedAt(); !at.IsZero() {
			fmt.Printf("Fetched: %s\n", at.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var topologyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-query the border router and rebuild hop counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := buildCache()
		if err != nil {
			return err
		}
		if err := cache.Refresh(nil); err != nil {
			return err
		}
		fmt.Println(cache.Summary())
		return nil
	},
}

var topologyTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the raw border router status dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, source, err := buildCache()
		if err != nil {
			return err
		}
		output, err := source.Fetch(nil)
		if err != nil {
			return err
		}
		fmt.Println(strings.TrimSpace(output))
		fmt.Printf("\nFetched: %s\n", time.Now().Format("2006-01-02 15:04:05"))
		return nil
	},
}

var topologyLookupCmd = &cobra.Command{
	Use:   "lookup [address]",
	Short: "Show the hop count for one address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := buildCache()
		if err != nil {
			return err
		}
		hops, found := cache.Lookup(args[0])
		if !found {
			fmt.Printf("%s: not in topology snapshot\n", args[0])
			return nil
		}
		fmt.Printf("%s: %d hops\n", args[0], hops)
		return nil
	},
}

func init() {
	topologyCmd.AddCommand(topologySummaryCmd)
	topologyCmd.AddCommand(topologyRefreshCmd)
	topologyCmd.AddCommand(topologyTreeCmd)
	topologyCmd.AddCommand(topologyLookupCmd)
}
