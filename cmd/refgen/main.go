package main

import (
	"flag"
	"fmt"
	"os"

	"scsim/adapters/refdata"
	"scsim/internal/refgen"
)

func main() {
	outGenes := flag.String("out-genes", "genes.csv", "output gene table path")
	outCells := flag.String("out-cells", "cells.csv", "output cell table path")
	genes := flag.Int("genes", 2000, "number of reference genes")
	cells := flag.Int("cells", 1200, "number of reference cells")
	clusters := flag.Int("clusters", 3, "number of clusters")
	samples := flag.Int("samples", 2, "number of samples")
	seed := flag.Uint64("seed", 42, "RNG seed (deterministic)")
	offsetSD := flag.Float64("offset-sd", 0.25, "spread of per-cell log offsets")
	flag.Parse()

	cfg := refgen.DefaultConfig()
	cfg.Genes = *genes
	cfg.Cells = *cells
	cfg.Clusters = *clusters
	cfg.Samples = *samples
	cfg.Seed = *seed
	cfg.OffsetSD = *offsetSD

	ref, err := refgen.Generate(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error generating reference:", err)
		os.Exit(1)
	}

	if err := refdata.WriteReference(ref, *outGenes, *outCells); err != nil {
		fmt.Fprintln(os.Stderr, "error writing reference:", err)
		os.Exit(1)
	}

	fmt.Printf("Reference written: %s, %s\n", *outGenes, *outCells)
	fmt.Printf("Genes: %d | Cells: %d | Clusters: %d | Samples: %d\n",
		len(ref.Genes), len(ref.Cells), len(ref.Clusters), len(ref.Samples))
}
