package reports

import (
	"fmt"
	"sort"
	"strings"

	"tspm/pkg/riskposture"
)

// Metric is one named summary value shown in the report header panel.
type Metric struct {
	Name  string
	Value string
}

// Row is one record prepared for rendering.
type Row struct {
	ID       string
	Name     string
	Detail   string
	Level    string
	BadgeCls string
	Reasons  string
	Failed   bool
}

// Section is a severity-ordered group of rows.
type Section struct {
	Title    string
	BadgeCls string
	Rows     []Row
}

// ReportView is the render-ready shape of an AnalysisResult, shared by
// the HTML template and the console printer.
type ReportView struct {
	Title       string
	Domain      string
	GeneratedAt string
	RunID       string

	Total      int
	Counts     []Metric
	Metrics    []Metric
	Thresholds []Metric
	TierNotice bool

	Sections []Section
}

func badgeClass(l riskposture.RiskLevel) string {
	switch l {
	case riskposture.RiskCritical:
		return "badge critical"
	case riskposture.RiskHigh:
		return "badge high"
	case riskposture.RiskMedium:
		return "badge medium"
	case riskposture.RiskLow:
		return "badge low"
	default:
		return "badge unknown"
	}
}

// sectionOrder lists sections highest severity first; the compliant
// listing comes last.
var sectionOrder = []struct {
	Level riskposture.RiskLevel
	Title string
}{
	{riskposture.RiskCritical, "Critical Risk"},
	{riskposture.RiskHigh, "High Risk"},
	{riskposture.RiskMedium, "Medium Risk"},
	{riskposture.RiskUnknown, "Needs Verification"},
	{riskposture.RiskLow, "Compliant"},
}

// BuildReportView converts a result into its render-ready view. Pure:
// the same result always yields the same view.
func BuildReportView(res riskposture.AnalysisResult) ReportView {
	s := res.Summary
	view := ReportView{
		Title:       res.Domain.Title(),
		Domain:      string(res.Domain),
		GeneratedAt: res.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		RunID:       res.RunID,
		Total:       s.Total,
		TierNotice:  !s.SignInSupported,
	}

	view.Counts = []Metric{
		{"Critical", fmt.Sprintf("%d", s.CriticalCount)},
		{"High", fmt.Sprintf("%d", s.HighCount)},
		{"Medium", fmt.Sprintf("%d", s.MediumCount)},
		{"Low", fmt.Sprintf("%d", s.LowCount)},
		{"Unknown", fmt.Sprintf("%d", s.UnknownCount)},
	}

	view.Metrics = []Metric{
		{"Total entities", fmt.Sprintf("%d", s.Total)},
		{"Urgent (active and failing)", fmt.Sprintf("%d (%.2f%%)", s.UrgentCount, s.UrgentPercent)},
		{"Records with fetch errors", fmt.Sprintf("%d", s.FetchErrorCount)},
	}
	switch res.Domain {
	case riskposture.DomainStorage:
		view.Metrics = append(view.Metrics, Metric{"Average usage", fmt.Sprintf("%.2f%%", s.AverageUsagePercent)})
	case riskposture.DomainLicense:
		view.Metrics = append(view.Metrics, Metric{"Estimated monthly license cost", fmt.Sprintf("$%.2f", s.MonthlyLicenseCost)})
	}

	view.Thresholds = []Metric{
		{"Password warning window", fmt.Sprintf("%d days", res.Rules.WarningDays)},
		{"Storage warning threshold", fmt.Sprintf("%.0f%%", res.Rules.StorageWarningPercent)},
		{"Storage critical threshold", fmt.Sprintf("%.0f%%", res.Rules.StorageCriticalPercent)},
	}

	for _, sec := range sectionOrder {
		rows := rowsForLevel(res.Records, sec.Level)
		if len(rows) == 0 {
			continue
		}
		view.Sections = append(view.Sections, Section{
			Title:    sec.Title,
			BadgeCls: badgeClass(sec.Level),
			Rows:     rows,
		})
	}
	return view
}

func rowsForLevel(records []riskposture.ClassifiedRecord, level riskposture.RiskLevel) []Row {
	var rows []Row
	for _, rec := range records {
		if rec.Level != level {
			continue
		}
		rows = append(rows, Row{
			ID:       rec.Record.RecordID(),
			Name:     rec.Record.Name(),
			Detail:   rec.Detail,
			Level:    rec.Level.String(),
			BadgeCls: badgeClass(rec.Level),
			Reasons:  strings.Join(rec.Reasons, "; "),
			Failed:   rec.Record.FetchFailed(),
		})
	}
	// Display name ascending within a section, id as tie-break.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
