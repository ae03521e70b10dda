// Package report writes the human and machine readable artifacts of a run.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ja7ad/carbonrun/pkg/summary"
)

const (
	JSONFile     = "summary.json"
	MarkdownFile = "summary.md"
	HTMLFile     = "summary.html"
)

// Options selects the optional artifacts.
type Options struct {
	HTML bool
}

// Artifacts are the paths that were written; empty when skipped or failed.
type Artifacts struct {
	JSON     string
	Markdown string
	HTML     string
}

// Paths lists the written artifacts in write order.
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.JSON, a.Markdown, a.HTML} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Write renders s into dir. Every artifact is attempted; failures are joined
// and each names its file. Artifacts written before a failure are kept.
func Write(dir string, s *summary.Summary, o Options) (Artifacts, error) {
	var (
		a    Artifacts
		errs []error
	)
	save := func(name string, render func(io.Writer, *summary.Summary) error, dst *string) {
		path, err := writeFile(dir, name, s, render)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = path
	}

	save(JSONFile, JSON, &a.JSON)
	save(MarkdownFile, Markdown, &a.Markdown)
	if o.HTML {
		save(HTMLFile, HTML, &a.HTML)
	}
	return a, errors.Join(errs...)
}

// writeFile renders into memory first so a render error leaves no partial
// file behind.
func writeFile(dir, name string, s *summary.Summary, render func(io.Writer, *summary.Summary) error) (string, error) {
	var buf bytes.Buffer
	if err := render(&buf, s); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// JSON writes s as indented JSON. Absent measurements are omitted.
func JSON(w io.Writer, s *summary.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(s)
}
