// Package reports renders an AnalysisResult into its output formats:
// CSV, a self-contained HTML report, and a colorized console summary.
package reports

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"tspm/pkg/riskposture"
)

//go:embed templates/report.html
var templatesFS embed.FS

// RenderIOError is a per-format output failure. It does not affect other
// requested formats.
type RenderIOError struct {
	Format string
	Path   string
	Err    error
}

func (e *RenderIOError) Error() string {
	return fmt.Sprintf("write %s report to %s: %v", e.Format, e.Path, e.Err)
}

func (e *RenderIOError) Unwrap() error { return e.Err }

func reportTemplate() (*template.Template, error) {
	tplBytes, err := templatesFS.ReadFile("templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	tpl, err := template.New("report").Funcs(template.FuncMap{
		// Percent helper for the summary bars.
		"pct": func(part, total int) int {
			if total <= 0 {
				return 0
			}
			return int(float64(part) / float64(total) * 100.0)
		},
		"lower": strings.ToLower,
	}).Parse(string(tplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return tpl, nil
}

// RenderHTML serializes a result to a self-contained HTML document, UTF-8
// with BOM. Pure and deterministic; display names are escaped by the
// template engine.
func RenderHTML(res riskposture.AnalysisResult) ([]byte, error) {
	tpl, err := reportTemplate()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	if err := tpl.Execute(&buf, BuildReportView(res)); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders and writes the HTML report. Single writer: the file
// is created, written fully, and closed.
func WriteHTML(res riskposture.AnalysisResult, outputPath string) error {
	data, err := RenderHTML(res)
	if err != nil {
		return err
	}
	return writeFile("html", outputPath, data)
}

// WriteCSV renders and writes the CSV report.
func WriteCSV(res riskposture.AnalysisResult, outputPath string) error {
	return writeFile("csv", outputPath, RenderCSV(res))
}

func writeFile(format, path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return &RenderIOError{Format: format, Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &RenderIOError{Format: format, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &RenderIOError{Format: format, Path: path, Err: err}
	}
	return nil
}
