package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/carbonrun/pkg/summary"
)

func sample() *summary.Summary {
	s := &summary.Summary{
		Timestamp:   time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Task:        "cpu",
		Mode:        "offline",
		Country:     "ARG",
		Seconds:     20,
		IntervalS:   1,
		ProjectName: "TP_Green_Software",
		OutputDir:   "results",
		OutputCSV:   "results/emissions.csv",
		DurationS:   20.012,
		Units:       42,
		Unit:        "matrix multiplications",
		EmissionsKg: summary.Float(0.006),
		CPUPower:    summary.Float(0),
		RAMPower:    summary.Float(1.5),
	}
	summary.Derive(s)
	return s
}

func TestJSON_OmitsAbsentKeepsZero(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, 0.0, got["cpu_power"], "measured zero is kept")
	assert.Equal(t, 1.5, got["ram_power"])
	assert.NotContains(t, got, "gpu_power")
	assert.NotContains(t, got, "energy_consumed")
	assert.NotContains(t, got, "error")
	assert.Equal(t, 0.00002, got["trees_needed_per_year_equiv"])
	assert.Contains(t, got, "hours_compensated_tree_young")
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""), "indented")
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sample()))
	md := buf.String()
	t.Logf("\n%s", md)

	assert.Contains(t, md, "# Run summary (carbonrun)")
	assert.Contains(t, md, "- Date (UTC): **2026-10-19T12:00:00Z**")
	assert.Contains(t, md, "- Country (intensity): **ARG**")
	assert.Contains(t, md, "- Duration: **20.012 s** (requested: 20 s)")
	assert.Contains(t, md, "- Work done: **42 matrix multiplications**")
	assert.Contains(t, md, "- Estimated emissions: **0.006 kg CO₂eq**")
	assert.Contains(t, md, "- cpu_power: **0 W**")
	assert.Contains(t, md, "- ram_power: **1.5 W**")
	assert.Contains(t, md, "- Trees needed (approx.): **2e-05**")
	assert.Contains(t, md, "Detailed samples: `emissions.csv`")
	assert.NotContains(t, md, "gpu_power")
	assert.NotContains(t, md, "Energy consumed")
	assert.NotContains(t, md, "\n\n\n")
}

func TestMarkdown_AbsentEmissions(t *testing.T) {
	s := &summary.Summary{Task: "io", Mode: "online", Seconds: 5, Error: "disk full"}
	summary.Derive(s)

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, s))
	md := buf.String()

	assert.Contains(t, md, "**n/a kg CO₂eq**")
	assert.Contains(t, md, "- Workload error: `disk full`")
	assert.NotContains(t, md, "Country")
	assert.NotContains(t, md, "Trees")
	assert.NotContains(t, md, "Hours compensated")
}

func TestHTML_Escapes(t *testing.T) {
	s := sample()
	s.ProjectName = "<script>x</script>"

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "<title>Carbon Run Report</title>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "hours_compensated_tree_adult")
	assert.NotContains(t, out, "gpu_power")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	a, err := Write(dir, sample(), Options{HTML: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, JSONFile),
		filepath.Join(dir, MarkdownFile),
		filepath.Join(dir, HTMLFile),
	}, a.Paths())
	for _, p := range a.Paths() {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, fi.Size(), int64(0))
	}
}

func TestWrite_NoHTMLByDefault(t *testing.T) {
	dir := t.TempDir()
	a, err := Write(dir, sample(), Options{})
	require.NoError(t, err)
	assert.Empty(t, a.HTML)

	_, err = os.Stat(filepath.Join(dir, HTMLFile))
	assert.True(t, os.IsNotExist(err))
}

func TestWrite_FailuresNameEachArtifact(t *testing.T) {
	dir := t.TempDir()
	// a directory where the markdown file should go
	require.NoError(t, os.Mkdir(filepath.Join(dir, MarkdownFile), 0o755))

	a, err := Write(dir, sample(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), MarkdownFile)
	assert.NotContains(t, err.Error(), JSONFile)
	assert.NotEmpty(t, a.JSON, "artifacts written before the failure are kept")
	assert.Empty(t, a.Markdown)

	_, err = Write(filepath.Join(dir, "missing"), sample(), Options{HTML: true})
	require.Error(t, err)
	for _, name := range []string{JSONFile, MarkdownFile, HTMLFile} {
		assert.Contains(t, err.Error(), name)
	}
}
