package reports

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fatih/color"

	"tspm/pkg/riskposture"
)

// PrintSummary writes a colorized summary of one analysis run to the
// terminal.
func PrintSummary(res riskposture.AnalysisResult) {
	view := BuildReportView(res)

	color.New(color.FgHiWhite, color.Bold).Printf("%s\n", view.Title)
	fmt.Printf("Generated %s (run %s)\n\n", view.GeneratedAt, view.RunID)

	if view.TierNotice {
		color.New(color.FgYellow).Println("Note: sign-in activity is not available at this subscription tier.")
	}
	if res.ErrorMessage != "" {
		color.New(color.FgRed).Printf("Errors: %s\n", res.ErrorMessage)
	}

	for _, c := range view.Counts {
		levelColor(c.Name).Printf("%-10s %s\n", c.Name, c.Value)
	}
	fmt.Println()
	for _, m := range view.Metrics {
		fmt.Printf("%-35s %s\n", m.Name, m.Value)
	}
}

// PrintRecordTable writes the classified records as a terminal table,
// severity colorized, in report section order.
func PrintRecordTable(res riskposture.AnalysisResult) {
	headerFormat := "%-30s %-12s %-12s %s\n"
	header := fmt.Sprintf(headerFormat,
		color.HiBlueString("Name"),
		color.HiBlueString("Level"),
		color.HiBlueString("Detail"),
		color.HiBlueString("Reasons"))
	fmt.Print(header)
	fmt.Println(strings.Repeat("-", 80))

	view := BuildReportView(res)
	for _, sec := range view.Sections {
		for _, row := range sec.Rows {
			levelColor(row.Level).Printf("%-30s %-12s %-12s %s\n", row.Name, row.Level, row.Detail, row.Reasons)
		}
	}
}

func levelColor(level string) *color.Color {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return color.New(color.FgHiRed, color.Bold)
	case "HIGH":
		return color.New(color.FgRed)
	case "MEDIUM":
		return color.New(color.FgYellow)
	case "LOW":
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}

// ServeHTML writes the HTML report to outputPath and serves it on the
// given port until the listener fails or the process exits.
func ServeHTML(res riskposture.AnalysisResult, outputPath, port string) error {
	if err := WriteHTML(res, outputPath); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, outputPath)
	})

	fmt.Printf("Serving HTML report at http://localhost:%s\n", port)
	return http.ListenAndServe(":"+port, mux)
}
