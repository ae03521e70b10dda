package report

import (
	"io"
	"path/filepath"
	"text/template"
	"time"

	"github.com/ja7ad/carbonrun/pkg/summary"
	"github.com/ja7ad/carbonrun/pkg/system/util"
)

// Field is one present measurement with its unit.
type Field struct {
	Key   string
	Value float64
	Unit  string
}

// sampledUnits are the per-component lines of the narrative, in order.
var sampledUnits = []struct{ key, unit string }{
	{"cpu_power", "W"},
	{"gpu_power", "W"},
	{"ram_power", "W"},
	{"cpu_energy", "kWh"},
	{"gpu_energy", "kWh"},
	{"ram_energy", "kWh"},
}

// Components returns the per-component power and energy fields present in s.
func Components(s *summary.Summary) []Field {
	var out []Field
	for _, c := range sampledUnits {
		if v, ok := s.Sampled(c.key); ok {
			out = append(out, Field{Key: c.key, Value: v, Unit: c.unit})
		}
	}
	return out
}

// funcs is shared by the text and HTML templates.
var funcs = map[string]any{
	"num":   util.FmtFloat,
	"deref": func(p *float64) float64 { return *p },
	"utc":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"base":  filepath.Base,
}

var mdTpl = template.Must(template.New("md").Funcs(funcs).Parse(`# Run summary (carbonrun)

- Date (UTC): **{{utc .S.Timestamp}}**
- Task: **{{.S.Task}}** | Mode: **{{.S.Mode}}**
{{- if .S.Country}}
- Country (intensity): **{{.S.Country}}**
{{- end}}
- Duration: **{{num .S.DurationS}} s** (requested: {{.S.Seconds}} s)
{{- if .S.Unit}}
- Work done: **{{.S.Units}} {{.S.Unit}}**
{{- end}}
- Estimated emissions: **{{with .S.EmissionsKg}}{{num (deref .)}}{{else}}n/a{{end}} kg CO₂eq**
{{- with .S.EnergyConsumed}}
- Energy consumed: **{{num (deref .)}} kWh**
{{- end}}
{{- range .Components}}
- {{.Key}}: **{{num .Value}} {{.Unit}}**
{{- end}}
{{- with .S.TreesNeededPerYearEquiv}}
- Trees needed (approx.): **{{num (deref .)}}**
  (assuming 1 tree ≈ 300 kg CO₂/year)
{{- end}}
{{- with .S.HoursCompensatedTreeYoung}}
- Hours compensated (young tree, 30 kg/year): **{{num (deref .)}} h**
{{- end}}
{{- with .S.HoursCompensatedTreeAdult}}
- Hours compensated (adult tree, 300 kg/year): **{{num (deref .)}} h**
{{- end}}
{{- if .S.Error}}
- Workload error: ` + "`{{.S.Error}}`" + `
{{- end}}

Detailed samples: ` + "`{{base .S.OutputCSV}}`" + `
`))

// Markdown writes the narrative summary.
func Markdown(w io.Writer, s *summary.Summary) error {
	return mdTpl.Execute(w, struct {
		S          *summary.Summary
		Components []Field
	}{s, Components(s)})
}
