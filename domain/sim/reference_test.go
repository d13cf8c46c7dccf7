package sim

import (
	"math"
	"testing"

	"scsim/domain/core"
)

func validGenes() []GeneParam {
	return []GeneParam{
		{ID: "g1", LogMean: 1.0, Dispersion: 0.5},
		{ID: "g2", LogMean: 2.5, Dispersion: 0.1},
	}
}

func TestNewReferenceFactorLevelOrder(t *testing.T) {
	cells := []CellParam{
		{ID: "c1", Cluster: "beta", Sample: "s2"},
		{ID: "c2", Cluster: "alpha", Sample: "s1"},
		{ID: "c3", Cluster: "beta", Sample: "s1"},
	}
	ref, err := NewReference(validGenes(), cells)
	if err != nil {
		t.Fatalf("new reference: %v", err)
	}

	if len(ref.Clusters) != 2 || ref.Clusters[0] != "beta" || ref.Clusters[1] != "alpha" {
		t.Fatalf("clusters = %v, want first-appearance order [beta alpha]", ref.Clusters)
	}
	if len(ref.Samples) != 2 || ref.Samples[0] != "s2" || ref.Samples[1] != "s1" {
		t.Fatalf("samples = %v, want first-appearance order [s2 s1]", ref.Samples)
	}

	counts := ref.BucketCounts()
	want := [][]int{{1, 1}, {0, 1}}
	for i := range want {
		for j := range want[i] {
			if counts[i][j] != want[i][j] {
				t.Fatalf("bucket counts = %v, want %v", counts, want)
			}
		}
	}
}

func TestReferenceValidateRejections(t *testing.T) {
	cell := func() CellParam {
		return CellParam{ID: "c1", Cluster: "cluster1", Sample: "sample1"}
	}

	cases := []struct {
		name  string
		genes []GeneParam
		cells []CellParam
	}{
		{"no genes", nil, []CellParam{cell()}},
		{"no cells", validGenes(), nil},
		{"blank gene id", []GeneParam{{ID: "  ", LogMean: 1}}, []CellParam{cell()}},
		{"nan log mean", []GeneParam{{ID: "g1", LogMean: math.NaN()}}, []CellParam{cell()}},
		{"blank cluster", validGenes(), []CellParam{{ID: "c1", Sample: "sample1"}}},
		{"blank sample", validGenes(), []CellParam{{ID: "c1", Cluster: "cluster1"}}},
		{"infinite offset", validGenes(), []CellParam{{ID: "c1", Cluster: "cluster1", Sample: "sample1", LogOffset: math.Inf(1)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewReference(tc.genes, tc.cells); !core.IsReferenceError(err) {
				t.Fatalf("expected reference error, got %v", err)
			}
		})
	}
}

func TestReferenceFingerprint(t *testing.T) {
	cells := []CellParam{{ID: "c1", Cluster: "cluster1", Sample: "sample1", LogOffset: 0.1}}

	a, err := NewReference(validGenes(), cells)
	if err != nil {
		t.Fatalf("new reference: %v", err)
	}
	b, err := NewReference(validGenes(), cells)
	if err != nil {
		t.Fatalf("new reference: %v", err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("same content, different fingerprints")
	}

	genes := validGenes()
	genes[1].Dispersion += 1e-9
	c, err := NewReference(genes, cells)
	if err != nil {
		t.Fatalf("new reference: %v", err)
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("dispersion change not reflected in fingerprint")
	}
}
