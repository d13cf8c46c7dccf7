package qc

import (
	"github.com/montanaflynn/stats"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// defaultAlpha is the per-test significance level for the calibration table.
const defaultAlpha = 0.05

// LibraryStats summarizes the per-cell total count distribution.
type LibraryStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// CategoryPower reports, for one category, how many (cluster, gene) truth
// rows a Welch's t-test between the groups called significant. EE rows
// estimate the false positive rate; mean-shifted categories estimate power.
// EP shifts proportions while keeping group means equal, so a mean test
// should stay near alpha for it too.
type CategoryPower struct {
	Category    sim.Category `json:"category"`
	Tested      int          `json:"tested"`
	Significant int          `json:"significant"`
}

// Rate returns the significant fraction, or 0 when nothing was tested.
func (c CategoryPower) Rate() float64 {
	if c.Tested == 0 {
		return 0
	}
	return float64(c.Significant) / float64(c.Tested)
}

// Summary is the quality-control digest of one simulation result.
type Summary struct {
	Alpha         float64         `json:"alpha"`
	Libraries     LibraryStats    `json:"libraries"`
	DetectionRate float64         `json:"detection_rate"`
	Power         []CategoryPower `json:"power"`
}

// Summarize computes the digest. alpha outside (0, 1) selects the 0.05
// default.
func Summarize(res *sim.Result, alpha float64) (*Summary, error) {
	if res == nil || res.Counts == nil {
		return nil, core.NewArgumentError("result", "must not be nil")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = defaultAlpha
	}

	libs := make([]float64, res.Counts.Cols())
	for c := range libs {
		libs[c] = float64(res.Counts.ColSum(c))
	}
	nonzero := 0
	for _, row := range res.Counts.Data {
		for _, v := range row {
			if v > 0 {
				nonzero++
			}
		}
	}

	libStats, err := libraryStats(libs)
	if err != nil {
		return nil, err
	}
	power, err := categoryPower(res, alpha)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Alpha:         alpha,
		Libraries:     libStats,
		DetectionRate: float64(nonzero) / float64(res.Counts.Rows()*res.Counts.Cols()),
		Power:         power,
	}, nil
}

func libraryStats(libs []float64) (LibraryStats, error) {
	mean, err := stats.Mean(libs)
	if err != nil {
		return LibraryStats{}, err
	}
	sd, err := stats.StandardDeviation(libs)
	if err != nil {
		return LibraryStats{}, err
	}
	min, err := stats.Min(libs)
	if err != nil {
		return LibraryStats{}, err
	}
	q25, err := stats.Percentile(libs, 25)
	if err != nil {
		return LibraryStats{}, err
	}
	median, err := stats.Median(libs)
	if err != nil {
		return LibraryStats{}, err
	}
	q75, err := stats.Percentile(libs, 75)
	if err != nil {
		return LibraryStats{}, err
	}
	max, err := stats.Max(libs)
	if err != nil {
		return LibraryStats{}, err
	}
	return LibraryStats{Mean: mean, StdDev: sd, Min: min, Q25: q25, Median: median, Q75: q75, Max: max}, nil
}

// categoryPower runs one Welch test per truth row, splitting that cluster's
// columns by group. Rows whose groups hold fewer than two cells are skipped.
func categoryPower(res *sim.Result, alpha float64) ([]CategoryPower, error) {
	colsByGroup := make(map[core.ClusterID]map[sim.Group][]int)
	for c, cell := range res.Cells {
		byGroup, ok := colsByGroup[cell.Cluster]
		if !ok {
			byGroup = make(map[sim.Group][]int)
			colsByGroup[cell.Cluster] = byGroup
		}
		byGroup[cell.Group] = append(byGroup[cell.Group], c)
	}

	tallies := make(map[sim.Category]*CategoryPower, len(sim.Categories))
	for _, category := range sim.Categories {
		tallies[category] = &CategoryPower{Category: category}
	}

	for _, row := range res.Truth {
		byGroup := colsByGroup[row.Cluster]
		a := geneValues(res.Counts, row.GeneIndex-1, byGroup[sim.GroupA])
		b := geneValues(res.Counts, row.GeneIndex-1, byGroup[sim.GroupB])
		if len(a) < 2 || len(b) < 2 {
			continue
		}
		test, err := WelchTTest(a, b)
		if err != nil {
			return nil, err
		}
		tally := tallies[row.Category]
		tally.Tested++
		if test.P < alpha {
			tally.Significant++
		}
	}

	power := make([]CategoryPower, 0, len(sim.Categories))
	for _, category := range sim.Categories {
		power = append(power, *tallies[category])
	}
	return power, nil
}

func geneValues(m *sim.CountMatrix, gene int, cols []int) []float64 {
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = float64(m.At(gene, c))
	}
	return out
}
