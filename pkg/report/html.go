package report

import (
	"html/template"
	"io"

	"github.com/ja7ad/carbonrun/pkg/summary"
)

// Derived returns the offset metrics present in s.
func Derived(s *summary.Summary) []Field {
	var out []Field
	add := func(key string, p *float64, unit string) {
		if p != nil {
			out = append(out, Field{Key: key, Value: *p, Unit: unit})
		}
	}
	add("trees_needed_per_year_equiv", s.TreesNeededPerYearEquiv, "trees")
	add("hours_compensated_tree_young", s.HoursCompensatedTreeYoung, "h")
	add("hours_compensated_tree_adult", s.HoursCompensatedTreeAdult, "h")
	return out
}

var htmlTpl = template.Must(template.New("rep").Funcs(funcs).Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Carbon Run Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px;margin-bottom:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
code{background:#f5f5f5;padding:2px 4px;border-radius:4px}
.small{color:#555}
.badge{display:inline-block;background:#eef;border:1px solid #ccd;padding:2px 6px;border-radius:6px;margin-right:6px;}
.error{color:#a00}
</style>

<h1>Carbon Run Report</h1>

<p class="small">
<span class="badge">{{.S.Task}}</span>
<span class="badge">{{.S.Mode}}</span>
{{if .S.Country}}<span class="badge">{{.S.Country}}</span>{{end}}
{{utc .S.Timestamp}} &nbsp;|&nbsp;
Project: {{.S.ProjectName}}
{{if .S.RunID}}&nbsp;|&nbsp; Run: <code>{{.S.RunID}}</code>{{end}}
</p>

<h2>Run</h2>
<table>
<tr><th>field</th><th>value</th></tr>
<tr><td>duration</td><td>{{num .S.DurationS}} s (requested {{.S.Seconds}} s)</td></tr>
<tr><td>work</td><td>{{.S.Units}} {{.S.Unit}}</td></tr>
<tr><td>emissions</td><td>{{with .S.EmissionsKg}}{{num (deref .)}} kg CO₂eq{{else}}n/a{{end}}</td></tr>
{{with .S.EnergyConsumed}}<tr><td>energy consumed</td><td>{{num (deref .)}} kWh</td></tr>{{end}}
</table>

{{if .Components}}
<h2>Components</h2>
<table>
<tr><th>field</th><th>value</th></tr>
{{range .Components}}<tr><td>{{.Key}}</td><td>{{num .Value}} {{.Unit}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Derived}}
<h2>Offsets</h2>
<table>
<tr><th>field</th><th>value</th></tr>
{{range .Derived}}<tr><td>{{.Key}}</td><td>{{num .Value}} {{.Unit}}</td></tr>
{{end}}
</table>
{{end}}

{{if .S.Error}}<p class="error">Workload error: <code>{{.S.Error}}</code></p>{{end}}

<p class="small">Detailed samples: <code>{{base .S.OutputCSV}}</code></p>
</html>`))

// HTML writes a styled single-page version of the summary.
func HTML(w io.Writer, s *summary.Summary) error {
	return htmlTpl.Execute(w, struct {
		S          *summary.Summary
		Components []Field
		Derived    []Field
	}{s, Components(s), Derived(s)})
}
