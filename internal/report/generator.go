// Package report renders batch run results into files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/storage"
	"github.com/user/meshwatch/internal/util"
)

// Generator writes reports for completed runs.
type Generator struct {
	store     *storage.ResultStore
	outputDir string
}

// NewGenerator creates a report generator writing into outputDir.
func NewGenerator(store *storage.ResultStore, outputDir string) *Generator {
	return &Generator{store: store, outputDir: outputDir}
}

// Data holds everything a single report renders.
type Data struct {
	Kind        model.Kind             `json:"kind"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     storage.StoredSummary  `json:"summary"`
	Results     []storage.StoredResult `json:"results"`
}

// Collect gathers the latest completed run of a kind.
func (g *Generator) Collect(kind model.Kind) (*Data, error) {
	summary, ok, err := g.store.LatestSummary(kind)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no completed %s run to report", kind)
	}

	results, err := g.store.ResultsSince(kind, summary.StartedAt)
	if err != nil {
		return nil, err
	}

	return &Data{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Summary:     summary,
		Results:     results,
	}, nil
}

// Generate renders the latest run of a kind in the given format (text, csv
// or json) and returns the written file path.
func (g *Generator) Generate(kind model.Kind, format string) (string, error) {
	data, err := g.Collect(kind)
	if err != nil {
		return "", err
	}

	if err := util.EnsureDir(g.outputDir); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}

	stamp := data.GeneratedAt.Format("20060102_150405")
	switch format {
	case "text", "txt", "":
		path := filepath.Join(g.outputDir, fmt.Sprintf("%s_report_%s.txt", kind, stamp))
		return path, g.writeText(path, data)
	case "csv":
		path := filepath.Join(g.outputDir, fmt.Sprintf("%s_report_%s.csv", kind, stamp))
		return path, g.writeCSV(path, data)
	case "json":
		path := filepath.Join(g.outputDir, fmt.Sprintf("%s_report_%s.json", kind, stamp))
		return path, g.writeJSON(path, data)
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func (g *Generator) writeText(path string, data *Data) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s TEST REPORT\n", strings.ToUpper(string(data.Kind)))
	fmt.Fprintf(&b, "Generated: %s\n", data.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run: %s - %s\n",
		data.Summary.StartedAt.Format("2006-01-02 15:04:05"),
		data.Summary.EndedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n\n", data.Summary.Summary)

	keys := fieldKeys(data.Results)
	for i, r := range data.Results {
		fmt.Fprintf(&b, "%3d. %s (%s)\n", i+1, r.Label, r.Address)
		fmt.Fprintf(&b, "     Hop count: %s | Status: %s\n", r.HopCount, r.Status)
		for _, k := range keys {
			if v, ok := r.Fields[k]; ok {
				fmt.Fprintf(&b, "     %s: %s\n", k, v)
			}
		}
		b.WriteString("\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func (g *Generator) writeCSV(path string, data *Data) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	keys := fieldKeys(data.Results)
	header := append([]string{"sr_no", "label", "address", "hop_count", "status"}, keys...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, r := range data.Results {
		row := []string{strconv.Itoa(i + 1), r.Label, r.Address, r.HopCount, r.Status}
		for _, k := range keys {
			row = append(row, r.Fields[k])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeJSON(path string, data *Data) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

// fieldKeys returns the sorted union of field names across all results, so
// tabular formats have a stable column set.
func fieldKeys(results []storage.StoredResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for k := range r.Fields {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
