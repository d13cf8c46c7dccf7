package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scsim/adapters/export"
	"scsim/adapters/refdata"
	"scsim/app"
	"scsim/domain/sim"
	"scsim/internal/engine"
	"scsim/internal/report"
	"scsim/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scsim",
		Short: "Ground-truth-labelled single-cell count simulator",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newEstimateCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	var (
		genesFile  string
		cellsFile  string
		refFile    string
		genes      int
		cells      string
		pdd        string
		fc         float64
		seed       int64
		workers    int
		outDir     string
		xlsxPath   string
		reportPath string
		label      string
		alpha      float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a labelled count matrix from a reference",
		Long: `Simulate a count matrix with per-gene ground-truth labels from an
estimated reference.

The reference is two tables: genes (gene, log_mean, dispersion) and cells
(cell, cluster, sample, log_offset), each CSV or XLSX. A single workbook
holding "genes" and "cells" sheets can be passed with --ref instead.

Example: scsim simulate --ref ref.xlsx --genes 2000 --cells 40:60 \
    --pdd 0.9,0.02,0.02,0.02,0.02,0.02 --fc 2.5 --seed 7 --out run1/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refFile != "" {
				genesFile, cellsFile = refFile, refFile
			}
			if genesFile == "" || cellsFile == "" {
				return fmt.Errorf("provide --genes-file and --cells-file, or --ref")
			}

			cellCount, err := parseCells(cells)
			if err != nil {
				return err
			}
			probs, err := parsePDD(pdd)
			if err != nil {
				return err
			}

			params := sim.Params{
				NGenes:     genes,
				Cells:      cellCount,
				PDD:        probs,
				FoldChange: fc,
				Seed:       seed,
			}
			return runSimulate(cmd.Context(), genesFile, cellsFile, params, workers,
				label, alpha, outDir, xlsxPath, reportPath)
		},
	}

	cmd.Flags().StringVar(&genesFile, "genes-file", "", "Gene parameter table (csv or xlsx)")
	cmd.Flags().StringVar(&cellsFile, "cells-file", "", "Cell annotation table (csv or xlsx)")
	cmd.Flags().StringVar(&refFile, "ref", "", "Single workbook with genes and cells sheets")
	cmd.Flags().IntVar(&genes, "genes", 1000, "Genes to simulate per cluster")
	cmd.Flags().StringVar(&cells, "cells", "100", `Cells per group: "50" or "40:60"`)
	cmd.Flags().StringVar(&pdd, "pdd", "0.9,0.02,0.02,0.02,0.02,0.02", "Category probabilities ee,ep,de,dp,dm,db")
	cmd.Flags().Float64Var(&fc, "fc", 2, "Mean fold-change magnitude (> 1)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().IntVar(&workers, "workers", 1, "Parallel count-generator workers")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for CSV exports")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Workbook path for XLSX export")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (.html renders, otherwise markdown)")
	cmd.Flags().StringVar(&label, "label", "", "Free-form run name")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "QC significance level (0 for default)")

	return cmd
}

func newEstimateCmd() *cobra.Command {
	var counts, cells, outGenes, outCells string

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate reference parameters from a raw count table",
		Long: `Estimate per-gene means and dispersions and per-cell offsets from a raw
count table, writing the two reference tables the simulate command reads.

The counts table has a leading gene column and one column per cell; the
cells table maps each cell to its cluster and sample.

Example: scsim estimate --counts raw.csv --cells anno.csv --out-genes genes.csv --out-cells cells.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(counts, cells, outGenes, outCells)
		},
	}

	cmd.Flags().StringVar(&counts, "counts", "", "Raw counts table (gene column + one column per cell)")
	cmd.Flags().StringVar(&cells, "cells", "", "Cell annotation table (cell, cluster, sample)")
	cmd.Flags().StringVar(&outGenes, "out-genes", "genes.csv", "Output gene table")
	cmd.Flags().StringVar(&outCells, "out-cells", "cells.csv", "Output cell table")
	_ = cmd.MarkFlagRequired("counts")
	_ = cmd.MarkFlagRequired("cells")

	return cmd
}

func newDemoCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in reference with default parameters",
		Long:  "Simulate against a synthetic built-in reference and print the run report. Useful as a smoke check.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), seed)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic operations")

	return cmd
}

func runSimulate(ctx context.Context, genesFile, cellsFile string, params sim.Params, workers int,
	label string, alpha float64, outDir, xlsxPath, reportPath string) error {

	reader := refdata.NewReader(genesFile, cellsFile)
	svc := app.NewSimulationService(reader, testkit.NewMemoryRunRepository(),
		engine.New(engine.WithWorkers(workers)))

	outcome, err := svc.Run(ctx, app.SimulationRequest{Params: params, Label: label, Alpha: alpha})
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	res := outcome.Result

	fmt.Printf("\n=== SIMULATION RESULTS ===\n")
	fmt.Printf("Run ID: %s\n", outcome.RunID)
	if label != "" {
		fmt.Printf("Label: %s\n", label)
	}
	fmt.Printf("Matrix: %d genes x %d cells\n", res.Manifest.Rows, res.Manifest.Cols)
	fmt.Printf("Clusters: %d | Samples: %d | Seed: %d\n",
		res.Manifest.Clusters, res.Manifest.Samples, res.Manifest.Seed)
	fmt.Printf("Runtime: %d ms\n", outcome.RuntimeMs)

	fmt.Printf("\n=== CATEGORY ALLOCATION ===\n")
	for _, cat := range sim.Categories {
		fmt.Printf("%-3s %d\n", cat, res.Manifest.CategoryCounts.For(cat))
	}

	if outcome.Summary != nil {
		fmt.Printf("\n=== QUALITY DIGEST ===\n")
		fmt.Printf("Library size: mean %.1f, median %.1f [%.0f, %.0f]\n",
			outcome.Summary.Libraries.Mean, outcome.Summary.Libraries.Median,
			outcome.Summary.Libraries.Min, outcome.Summary.Libraries.Max)
		fmt.Printf("Detection rate: %.3f\n", outcome.Summary.DetectionRate)
		for _, p := range outcome.Summary.Power {
			if p.Tested == 0 {
				continue
			}
			fmt.Printf("%-3s %d/%d groups separated at alpha %.2g\n",
				p.Category, p.Significant, p.Tested, outcome.Summary.Alpha)
		}
	}

	fmt.Printf("\n=== FINGERPRINT ===\n")
	fmt.Printf("Reference Hash: %s\n", res.Manifest.ReferenceHash)
	fmt.Printf("Run Fingerprint: %s\n", res.Manifest.Fingerprint)

	if outDir != "" {
		if err := export.WriteCSVDir(res, outDir); err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
		fmt.Printf("\nCSV tables written to %s\n", outDir)
	}
	if xlsxPath != "" {
		if err := export.WriteXLSX(res, xlsxPath); err != nil {
			return fmt.Errorf("XLSX export failed: %w", err)
		}
		fmt.Printf("Workbook written to %s\n", xlsxPath)
	}
	if reportPath != "" {
		body := []byte(outcome.Report)
		if strings.HasSuffix(strings.ToLower(reportPath), ".html") {
			body = report.RenderHTML(outcome.Report)
		}
		if err := os.WriteFile(reportPath, body, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}

	return nil
}

func runEstimate(countsPath, cellsPath, outGenes, outCells string) error {
	raw, err := refdata.LoadRawDataset(countsPath, cellsPath)
	if err != nil {
		return fmt.Errorf("loading raw dataset: %w", err)
	}
	ref, st, err := refdata.Estimate(raw)
	if err != nil {
		return fmt.Errorf("estimating reference: %w", err)
	}
	if err := refdata.WriteReference(ref, outGenes, outCells); err != nil {
		return fmt.Errorf("writing reference: %w", err)
	}

	fmt.Printf("\n=== REFERENCE ESTIMATE ===\n")
	fmt.Printf("Genes kept: %d (dropped %d all-zero)\n", st.GenesKept, st.GenesDropped)
	fmt.Printf("Cells: %d | Clusters: %d | Samples: %d\n",
		len(ref.Cells), len(ref.Clusters), len(ref.Samples))
	fmt.Printf("Written: %s, %s\n", outGenes, outCells)
	return nil
}

func runDemo(ctx context.Context, seed int64) error {
	params := sim.DefaultParams()
	params.Seed = seed

	ref := testkit.Reference(1200, 2, 2, 250)
	svc := app.NewSimulationService(&testkit.StaticReference{Ref: ref},
		testkit.NewMemoryRunRepository(), engine.New())

	outcome, err := svc.Run(ctx, app.SimulationRequest{Params: params, Label: "demo"})
	if err != nil {
		return fmt.Errorf("demo run failed: %w", err)
	}
	fmt.Println(outcome.Report)
	return nil
}

// parseCells reads a group size: a single integer or a "low:high" range.
func parseCells(s string) (sim.CellCount, error) {
	s = strings.TrimSpace(s)
	if lo, hi, ok := strings.Cut(s, ":"); ok {
		low, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return sim.CellCount{}, fmt.Errorf("invalid --cells range %q: %w", s, err)
		}
		high, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return sim.CellCount{}, fmt.Errorf("invalid --cells range %q: %w", s, err)
		}
		return sim.CellRange(low, high), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return sim.CellCount{}, fmt.Errorf("invalid --cells %q: %w", s, err)
	}
	return sim.FixedCells(n), nil
}

// parsePDD reads the six comma-separated category probabilities.
func parsePDD(s string) (sim.CategoryProbs, error) {
	var probs sim.CategoryProbs
	parts := strings.Split(s, ",")
	if len(parts) != len(probs) {
		return probs, fmt.Errorf("--pdd needs %d comma-separated values, got %d", len(probs), len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return probs, fmt.Errorf("invalid --pdd entry %q: %w", part, err)
		}
		probs[i] = v
	}
	return probs, nil
}
