package correlate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emissions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLast_MissingFile(t *testing.T) {
	row, ok, err := Last(filepath.Join(t.TempDir(), "emissions.csv"), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, row)
}

func TestLast_EmptyAndHeaderOnly(t *testing.T) {
	for name, content := range map[string]string{
		"empty":       "",
		"header_only": "timestamp,run_id,emissions\n",
		"blank_lines": "\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := Last(writeFile(t, content), "abc")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLast_NoRunIDColumn_ReturnsLastRow(t *testing.T) {
	path := writeFile(t, "timestamp,emissions\nt1,0.1\nt2,0.2\nt3,0.3\n")

	for _, id := range []string{"", "whatever"} {
		row, ok, err := Last(path, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "t3", row["timestamp"], "run id %q", id)
	}
}

func TestLast_MatchingRunIDWinsOverLastRow(t *testing.T) {
	path := writeFile(t, strings.Join([]string{
		"timestamp,run_id,emissions",
		"t1,aaa,0.1",
		"t2,bbb,0.2",
		"t3,ccc,0.3",
	}, "\n")+"\n")

	row, ok, err := Last(path, "bbb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t2", row["timestamp"])
}

func TestLast_LastOfSeveralMatches(t *testing.T) {
	path := writeFile(t, "timestamp,run_id\nt1,aaa\nt2,bbb\nt3,aaa\nt4,ccc\n")
	row, ok, err := Last(path, "aaa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t3", row["timestamp"])
}

func TestLast_NoMatchFallsBackToUnfiltered(t *testing.T) {
	path := writeFile(t, "timestamp,run_id\nt1,aaa\nt2,bbb\n")
	row, ok, err := Last(path, "zzz")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t2", row["timestamp"])
}

func TestLast_Deterministic(t *testing.T) {
	path := writeFile(t, "timestamp,run_id\nt1,aaa\nt2,bbb\n")
	first, _, err := Last(path, "aaa")
	require.NoError(t, err)
	second, _, err := Last(path, "aaa")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestRead_RaggedRows(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b,c\n1,2\n4,5,6,7\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	want := []Row{
		{"a": "1", "b": "2"},
		{"a": "4", "b": "5", "c": "6"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	_, ok := tbl.Rows[0].Get("c")
	assert.False(t, ok)
}

func TestRead_Malformed(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)

	_, _, err = Last(writeFile(t, "a,b\n\"unterminated,1\n"), "")
	assert.Error(t, err)
}

func TestSelect_EmptyTable(t *testing.T) {
	_, ok := Select(Table{}, "x")
	assert.False(t, ok)
}

func TestRow_Float(t *testing.T) {
	r := Row{
		"num":   " 0.0123 ",
		"sci":   "1.5e-05",
		"zero":  "0",
		"none":  "None",
		"empty": "",
		"text":  "Argentina",
		"nan":   "nan",
		"inf":   "inf",
	}
	v, ok := r.Float("num")
	assert.True(t, ok)
	assert.InDelta(t, 0.0123, v, 1e-15)

	v, ok = r.Float("sci")
	assert.True(t, ok)
	assert.InDelta(t, 1.5e-5, v, 1e-20)

	v, ok = r.Float("zero")
	assert.True(t, ok, "a measured zero is present")
	assert.Zero(t, v)

	for _, key := range []string{"none", "empty", "text", "nan", "inf", "missing"} {
		_, ok := r.Float(key)
		assert.False(t, ok, key)
	}
}

func TestRow_RunID(t *testing.T) {
	assert.Equal(t, "abc", Row{"run_id": " abc "}.RunID())
	assert.Empty(t, Row{}.RunID())
}
