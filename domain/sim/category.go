package sim

import (
	"fmt"
	"strings"
)

// Category labels one of the six expression-change classes a simulated gene
// can belong to within a cluster.
type Category string

const (
	// CategoryEE - equivalent expression: no change between groups.
	CategoryEE Category = "ee"
	// CategoryEP - equivalent proportion: bimodal in both groups, no group effect.
	CategoryEP Category = "ep"
	// CategoryDE - differential expression: unimodal mean shift in group B.
	CategoryDE Category = "de"
	// CategoryDP - differential proportion: same components, mixture weight flips between groups.
	CategoryDP Category = "dp"
	// CategoryDM - differential modality: unimodal in group A, bimodal in group B.
	CategoryDM Category = "dm"
	// CategoryDB - differential both: bimodal in both groups with shifted component positions.
	CategoryDB Category = "db"
)

// Categories is the canonical category order. Probability vectors, tallies and
// draw sequences all follow this order.
var Categories = [6]Category{CategoryEE, CategoryEP, CategoryDE, CategoryDP, CategoryDM, CategoryDB}

// Index returns the canonical position of the category, or -1 if unknown.
func (c Category) Index() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return -1
}

// HasFoldChange reports whether genes of this category carry a sampled
// fold-change. Only EE genes go without one.
func (c Category) HasFoldChange() bool {
	return c != CategoryEE
}

// String returns the lowercase label.
func (c Category) String() string {
	return string(c)
}

// ParseCategory parses a category label case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Index() < 0 {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Group identifies one of the two simulated experimental groups.
type Group string

const (
	GroupA Group = "A"
	GroupB Group = "B"
)

// Groups in column order within a bucket: group A cells precede group B cells.
var Groups = [2]Group{GroupA, GroupB}

// String returns the group label.
func (g Group) String() string {
	return string(g)
}

// CategoryTally holds per-category gene counts in canonical category order.
type CategoryTally [6]int

// For returns the count for a category.
func (t CategoryTally) For(c Category) int {
	i := c.Index()
	if i < 0 {
		return 0
	}
	return t[i]
}

// Total sums the tally across categories.
func (t CategoryTally) Total() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}

// Add returns the element-wise sum of two tallies.
func (t CategoryTally) Add(u CategoryTally) CategoryTally {
	var out CategoryTally
	for i := range t {
		out[i] = t[i] + u[i]
	}
	return out
}
