package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"scsim/domain/sim"
	"scsim/internal/qc"
)

// Build renders a run report as Markdown: parameter echo, category tallies,
// combined sample sizes, and the optional quality-control digest.
func Build(res *sim.Result, summary *qc.Summary) string {
	var b strings.Builder
	m := res.Manifest

	fp := m.Fingerprint.String()
	if len(fp) > 12 {
		fp = fp[:12]
	}
	fmt.Fprintf(&b, "# Simulation run %s\n\n", fp)
	if !m.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Generated %s\n\n", m.CreatedAt.Time().UTC().Format(time.RFC3339))
	}

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Seed | %d |\n", m.Seed)
	fmt.Fprintf(&b, "| Genes | %d |\n", m.NGenes)
	fmt.Fprintf(&b, "| Matrix | %d x %d |\n", m.Rows, m.Cols)
	fmt.Fprintf(&b, "| Clusters | %d |\n", m.Clusters)
	fmt.Fprintf(&b, "| Samples | %d |\n", m.Samples)
	fmt.Fprintf(&b, "| Cells per group | %s |\n", res.Params.Cells.String())
	fmt.Fprintf(&b, "| Fold-change | %g |\n", res.Params.FoldChange)
	b.WriteString("\n")

	b.WriteString("## Category allocation\n\n")
	b.WriteString("| Category | Genes |\n|---|---|\n")
	for _, category := range sim.Categories {
		fmt.Fprintf(&b, "| %s | %d |\n", category, m.CategoryCounts.For(category))
	}
	b.WriteString("\n")

	if len(res.SampleSizes) > 0 {
		b.WriteString("## Cells per combined sample\n\n")
		b.WriteString("| Sample | Cells |\n|---|---|\n")
		for _, s := range res.SampleSizes {
			fmt.Fprintf(&b, "| %s | %d |\n", s.Label, s.Cells)
		}
		b.WriteString("\n")
	}

	if summary != nil {
		b.WriteString("## Library sizes\n\n")
		b.WriteString("| Mean | SD | Min | Q25 | Median | Q75 | Max |\n|---|---|---|---|---|---|---|\n")
		l := summary.Libraries
		fmt.Fprintf(&b, "| %.1f | %.1f | %.0f | %.1f | %.1f | %.1f | %.0f |\n\n",
			l.Mean, l.StdDev, l.Min, l.Q25, l.Median, l.Q75, l.Max)
		fmt.Fprintf(&b, "Detection rate: %.1f%% nonzero entries.\n\n", 100*summary.DetectionRate)

		b.WriteString("## Group separation (Welch)\n\n")
		fmt.Fprintf(&b, "Per-gene two-group t-tests at alpha %g. EE and EP keep group means equal, so their rates estimate the false positive level.\n\n", summary.Alpha)
		b.WriteString("| Category | Tested | Significant | Rate |\n|---|---|---|---|\n")
		for _, p := range summary.Power {
			if p.Tested == 0 {
				continue
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %.2f |\n", p.Category, p.Tested, p.Significant, p.Rate())
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Reference hash: `%s`\n\n", m.ReferenceHash)
	fmt.Fprintf(&b, "Run fingerprint: `%s`\n", m.Fingerprint)
	return b.String()
}

// RenderHTML converts a Markdown report into a standalone HTML page.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.Render(doc, renderer)
}
