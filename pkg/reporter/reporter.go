package reporter

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opscart/node-cost-optimizer/pkg/estimator"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ErrUnknownFormat is returned for an unsupported report format
var ErrUnknownFormat = errors.New("unknown report format")

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatMarkdown ReportFormat = "markdown"
	FormatCSV      ReportFormat = "csv"
	FormatHTML     ReportFormat = "html"
)

// noPlanMessage is printed in place of the plan section when no scenario was run
const noPlanMessage = "No consolidation scenario calculated in this run."

// ParseFormat resolves a format name, accepting "md" and "txt" as aliases
func ParseFormat(name string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w '%s' (available: text, markdown, csv, html)", ErrUnknownFormat, name)
}

// Report contains all data for generating reports
type Report struct {
	GeneratedAt      time.Time
	NodeCount        int
	WorkloadCount    int
	TotalWatts       float64
	TotalKWhMonth    float64
	TotalMonthlyCost float64
	Currency         string
	Nodes            []NodeRow
	// Plan is nil when no consolidation scenario was run
	Plan *models.ConsolidationPlan
	// Summary is an optional narrative appended to the report
	Summary string
}

// NodeRow joins the power and cost figures of one node
type NodeRow struct {
	Name        string
	Kind        string
	Workloads   int
	Watts       float64
	KWhMonth    float64
	MonthlyCost float64
	PoweredDown bool
}

// Reporter generates energy and consolidation reports
type Reporter struct {
	format ReportFormat
	// markdownTemplate is a path to a text/template file; empty uses the built-in layout
	markdownTemplate string
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// WithMarkdownTemplate renders markdown reports through a custom template file.
// "default" and "" keep the built-in layout.
func (r *Reporter) WithMarkdownTemplate(path string) *Reporter {
	if path == "default" {
		path = ""
	}
	r.markdownTemplate = path
	return r
}

// Generate assembles a report. Power and cost entries are paired by position, as
// the cost report is built from the power report.
func (r *Reporter) Generate(inv *models.Inventory, power *estimator.PowerReport, cost *estimator.CostReport, plan *models.ConsolidationPlan) *Report {
	report := &Report{
		GeneratedAt:      time.Now(),
		NodeCount:        len(inv.Nodes),
		WorkloadCount:    len(inv.Workloads),
		TotalWatts:       power.TotalWatts(),
		TotalKWhMonth:    cost.TotalKWhMonth(),
		TotalMonthlyCost: cost.TotalMonthlyCost(),
		Currency:         cost.Currency,
		Plan:             plan,
	}

	poweredDown := make(map[string]bool)
	if plan != nil {
		for _, name := range plan.PoweredDownNodes {
			poweredDown[name] = true
		}
	}
	grouped := inv.GroupWorkloadsByNode()

	for i, entry := range power.PerNode {
		row := NodeRow{
			Name:        entry.Node.Name,
			Kind:        entry.Node.Kind,
			Workloads:   len(grouped[entry.Node.Name]),
			Watts:       entry.Watts,
			PoweredDown: poweredDown[entry.Node.Name],
		}
		if i < len(cost.PerNode) {
			row.KWhMonth = cost.PerNode[i].KWhMonth
			row.MonthlyCost = cost.PerNode[i].MonthlyCost
		}
		report.Nodes = append(report.Nodes, row)
	}

	return report
}

// Write renders the report in the reporter's format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatText, "":
		return GenerateText(report, w)
	case FormatMarkdown:
		if r.markdownTemplate != "" {
			return GenerateMarkdownFromFile(report, r.markdownTemplate, w)
		}
		return GenerateMarkdown(report, w)
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	}
	return fmt.Errorf("%w '%s'", ErrUnknownFormat, r.format)
}

func poweredDownList(plan *models.ConsolidationPlan) string {
	if len(plan.PoweredDownNodes) == 0 {
		return "none"
	}
	return strings.Join(plan.PoweredDownNodes, ", ")
}
