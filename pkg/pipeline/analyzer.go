// Package pipeline sequences one tenant posture analysis: fetch entities,
// classify each, aggregate, then optionally render the requested report
// formats.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tspm/pkg/reports"
	"tspm/pkg/riskposture"
)

// State is the coordinator's position in the run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateClassifying
	StateAggregating
	StateRendering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateClassifying:
		return "classifying"
	case StateAggregating:
		return "aggregating"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// Format names a report output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Clock abstraction so tests can pin the generation timestamp.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Analyzer coordinates one analysis run. Each Run invocation is
// independent; the only side effects are its own output files.
type Analyzer struct {
	Fetcher  Fetcher
	Rules    riskposture.Rules
	Progress ProgressHandler
	Clock    Clock
}

// Run executes fetch, classify, aggregate, and render for each requested
// format, writing files into outDir. Per-entity and per-format failures
// are recovered into the result; only a primary-listing failure comes
// back as a hard error.
func (a *Analyzer) Run(ctx context.Context, formats []Format, outDir string) (riskposture.AnalysisResult, error) {
	clock := a.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	rules := a.Rules
	if rules.AsOf.IsZero() {
		rules.AsOf = clock.Now()
	}

	domain := a.Fetcher.Domain()
	res := riskposture.AnalysisResult{
		RunID:       uuid.NewString(),
		Domain:      domain,
		GeneratedAt: clock.Now(),
		Rules:       rules,
	}

	state := StateIdle
	a.transition(&state, StateFetching)
	records, signInSupported, err := a.Fetcher.FetchAll(ctx)
	if err != nil {
		a.transition(&state, StateFailed)
		res.ErrorMessage = err.Error()
		return res, fmt.Errorf("fetch %s entities: %w", domain, err)
	}

	a.transition(&state, StateClassifying)
	res.Records = riskposture.ClassifyAll(domain, records, rules)

	a.transition(&state, StateAggregating)
	summary := riskposture.Aggregate(res.Records, rules)
	if !signInSupported {
		summary.SignInSupported = false
	}
	res.Summary = summary
	res.Success = true

	if len(formats) > 0 {
		a.transition(&state, StateRendering)
		var renderErrs []string
		for _, format := range formats {
			if err := writeFormat(res, format, outDir); err != nil {
				renderErrs = append(renderErrs, fmt.Sprintf("%s: %v", format, err))
			}
		}
		// A failed format does not roll back the others.
		if len(renderErrs) > 0 {
			res.Success = false
			res.ErrorMessage = strings.Join(renderErrs, "; ")
			a.transition(&state, StateFailed)
			return res, nil
		}
	}

	a.transition(&state, StateDone)
	return res, nil
}

// OutputFile is the file name a format renders to for a domain.
func OutputFile(domain riskposture.Domain, format Format) string {
	return fmt.Sprintf("%s-report.%s", domain, format)
}

func writeFormat(res riskposture.AnalysisResult, format Format, outDir string) error {
	if outDir == "" {
		outDir = "."
	}
	path := filepath.Join(outDir, OutputFile(res.Domain, format))
	switch format {
	case FormatCSV:
		return reports.WriteCSV(res, path)
	case FormatHTML:
		return reports.WriteHTML(res, path)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func (a *Analyzer) transition(state *State, next State) {
	*state = next
	if a.Progress != nil {
		a.Progress.HandleProgress(ProgressEvent{
			Stage:   next,
			Message: "stage " + next.String(),
		})
	}
}
