package reporter

import (
	"fmt"
	"html/template"
	"io"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Node Cost Optimizer Report</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 8px; }
        .header { background: #2f6b3a; color: white; padding: 32px 40px; border-radius: 8px 8px 0 0; }
        .summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 20px; padding: 30px 40px; }
        .summary-card { padding: 20px; border-radius: 8px; background: #f8f9fa; }
        .summary-card .value { font-size: 1.8em; font-weight: 600; }
        .section { padding: 0 40px 30px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 10px 12px; border-bottom: 1px solid #e4e7eb; text-align: left; }
        td.num { text-align: right; }
        tr.powered-down td { color: #9aa0a6; text-decoration: line-through; }
        .note { color: #5f6368; font-style: italic; }
        .footer { padding: 20px 40px; color: #5f6368; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Node Cost Optimizer Report</h1>
            <p><strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
        </div>

        <div class="summary">
            <div class="summary-card"><div>Nodes / Workloads</div><div class="value">{{.NodeCount}} / {{.WorkloadCount}}</div></div>
            <div class="summary-card"><div>Power Draw</div><div class="value">{{f2 .TotalWatts}} W</div></div>
            <div class="summary-card"><div>Monthly Cost</div><div class="value">{{f2 .TotalMonthlyCost}} {{.Currency}}</div></div>
            {{with .Plan}}<div class="summary-card"><div>Potential Savings</div><div class="value">{{f2 .EstimatedMonthlySavings}} {{.Currency}}</div></div>{{end}}
        </div>

        <div class="section">
            <h2>Per-node Energy &amp; Cost</h2>
            <table>
                <thead><tr><th>Node</th><th>Kind</th><th>Workloads</th><th>Watts</th><th>kWh/month</th><th>Monthly Cost</th></tr></thead>
                <tbody>
                    {{range .Nodes}}
                    <tr class="{{if .PoweredDown}}powered-down{{end}}">
                        <td><strong>{{.Name}}</strong></td>
                        <td>{{.Kind}}</td>
                        <td class="num">{{.Workloads}}</td>
                        <td class="num">{{f2 .Watts}}</td>
                        <td class="num">{{f2 .KWhMonth}}</td>
                        <td class="num">{{f2 .MonthlyCost}} {{$.Currency}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        <div class="section">
            {{with .Plan}}
            <h2>Consolidation Scenario: {{.Scenario}}</h2>
            <p><strong>Nodes to power down:</strong> {{poweredDown .}}</p>
            <p><strong>Estimated savings:</strong> {{f2 .EstimatedWattsSaved}} W / {{f2 .EstimatedMonthlySavings}} {{.Currency}} per month</p>
            {{if .Moves}}
            <table>
                <thead><tr><th>Workload</th><th>Type</th><th>From</th><th>To</th></tr></thead>
                <tbody>
                    {{range .Moves}}
                    <tr><td>{{.Workload.Name}}</td><td>{{.Workload.WorkloadType}}</td><td>{{.SourceNode}}</td><td>{{.TargetNode}}</td></tr>
                    {{end}}
                </tbody>
            </table>
            {{end}}
            {{if .Notes}}<p class="note">{{.Notes}}</p>{{end}}
            {{else}}
            <p>{{noPlan}}</p>
            {{end}}
            {{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}
        </div>

        <div class="footer">
            <p>Generated by <strong>node-cost-optimizer</strong></p>
        </div>
    </div>
</body>
</html>
`

// GenerateHTML creates an HTML report
func GenerateHTML(report *Report, writer io.Writer) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap(markdownFuncs)).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}
