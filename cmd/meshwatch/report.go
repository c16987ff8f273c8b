package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/report"
	"github.com/user/meshwatch/internal/storage"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report [kind]",
	Short: "Generate a report for the latest completed run",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text",
		"Report format (text, csv, json)")
}

func runReport(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return err
	}

	db, err := storage.Initialize(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	gen := report.NewGenerator(storage.NewResultStore(db), cfg.ReportOutputDir)
	path, err := gen.Generate(kind, reportFormat)
	if err != nil {
		return err
	}

	fmt.Printf("Report written: %s\n", path)
	return nil
}
