package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const markdownTemplate = `# Node Cost Optimizer Summary

**Nodes**: {{.NodeCount}} | **Workloads**: {{.WorkloadCount}}
**Power draw**: {{f2 .TotalWatts}} W | **Monthly cost**: {{f2 .TotalMonthlyCost}} {{.Currency}}

## Per-node energy & cost
| Node | Kind | Workloads | Watts | kWh/month | Monthly cost |
| --- | --- | ---: | ---: | ---: | ---: |
{{range .Nodes}}| {{.Name}}{{if .PoweredDown}} (power down){{end}} | {{.Kind}} | {{.Workloads}} | {{f2 .Watts}} | {{f2 .KWhMonth}} | {{f2 .MonthlyCost}} {{$.Currency}} |
{{end}}
{{with .Plan}}## Consolidation scenario: {{.Scenario}}
**Nodes to power down**: {{poweredDown .}}
**Estimated savings**: {{f2 .EstimatedWattsSaved}} W / {{f2 .EstimatedMonthlySavings}} {{.Currency}} per month
{{if .Moves}}
### Proposed workload moves
| Workload | Type | From | To |
| --- | --- | --- | --- |
{{range .Moves}}| {{.Workload.Name}} | {{.Workload.WorkloadType}} | {{.SourceNode}} | {{.TargetNode}} |
{{end}}{{end}}{{if .Notes}}
> {{.Notes}}
{{end}}{{else}}{{noPlan}}
{{end}}{{if .Summary}}
## Summary

{{.Summary}}
{{end}}`

var markdownFuncs = template.FuncMap{
	"f2":          func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"poweredDown": func(p *models.ConsolidationPlan) string { return poweredDownList(p) },
	"noPlan":      func() string { return noPlanMessage },
}

// GenerateMarkdown writes a markdown report using the built-in layout
func GenerateMarkdown(report *Report, writer io.Writer) error {
	tmpl, err := template.New("markdown").Funcs(markdownFuncs).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return executeMarkdown(tmpl, report, writer)
}

// GenerateMarkdownFromFile renders the report through a user-supplied template.
// The template sees the Report fields and the f2, poweredDown and noPlan helpers.
func GenerateMarkdownFromFile(report *Report, path string, writer io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read markdown template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(markdownFuncs).Parse(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return executeMarkdown(tmpl, report, writer)
}

func executeMarkdown(tmpl *template.Template, report *Report, writer io.Writer) error {
	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
