package reports

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tspm/pkg/entity"
	"tspm/pkg/riskposture"
)

func sharingResult(t *testing.T) riskposture.AnalysisResult {
	t.Helper()
	rules := riskposture.DefaultRules()

	anon, err := entity.NewStorageRecord("s1", "Public Drop", entity.KindSite)
	require.NoError(t, err)
	anon.SharingLinks = []entity.SharingLink{{Scope: "anyone"}}

	clean, err := entity.NewStorageRecord("s2", "Internal Wiki", entity.KindSite)
	require.NoError(t, err)

	classified := riskposture.ClassifyAll(riskposture.DomainSharing, []entity.Record{anon, clean}, rules)
	return riskposture.AnalysisResult{
		RunID:       "run-html",
		Domain:      riskposture.DomainSharing,
		GeneratedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Success:     true,
		Summary:     riskposture.Aggregate(classified, rules),
		Records:     classified,
		Rules:       rules,
	}
}

func TestRenderHTMLSections(t *testing.T) {
	out, err := RenderHTML(sharingResult(t))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	html := string(out)
	assert.Contains(t, html, "High Risk")
	assert.Contains(t, html, "Compliant")
	// Empty severity sections are omitted entirely.
	assert.NotContains(t, html, "Critical Risk")
	assert.NotContains(t, html, "Medium Risk")
	assert.Contains(t, html, "External Sharing Report")
	assert.Contains(t, html, "2026-03-01 09:00:00 UTC")
}

func TestRenderHTMLEscapesDisplayNames(t *testing.T) {
	rules := riskposture.DefaultRules()
	u, err := entity.NewUserRecord("u1", `<script>alert("x")</script>`)
	require.NoError(t, err)

	classified := riskposture.ClassifyAll(riskposture.DomainMFA, []entity.Record{u}, rules)
	res := riskposture.AnalysisResult{
		Domain:  riskposture.DomainMFA,
		Summary: riskposture.Aggregate(classified, rules),
		Records: classified,
		Rules:   rules,
	}

	out, err := RenderHTML(res)
	require.NoError(t, err)

	html := string(out)
	assert.NotContains(t, html, "<script>alert")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderHTMLTierNotice(t *testing.T) {
	rules := riskposture.DefaultRules()
	u, err := entity.NewUserRecord("u1", "User 1")
	require.NoError(t, err)
	u.SignInSupported = false

	classified := riskposture.ClassifyAll(riskposture.DomainMFA, []entity.Record{u}, rules)
	res := riskposture.AnalysisResult{
		Domain:  riskposture.DomainMFA,
		Summary: riskposture.Aggregate(classified, rules),
		Records: classified,
		Rules:   rules,
	}

	out, err := RenderHTML(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), "subscription tier")

	supported := sharingResult(t)
	out, err = RenderHTML(supported)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "subscription tier")
}

func TestRenderHTMLThresholdsPanel(t *testing.T) {
	out, err := RenderHTML(sharingResult(t))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "30 days")
	assert.Contains(t, html, "80%")
	assert.Contains(t, html, "90%")
}

func TestRenderHTMLDeterministic(t *testing.T) {
	res := sharingResult(t)

	first, err := RenderHTML(res)
	require.NoError(t, err)
	second, err := RenderHTML(res)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
}

func TestBuildReportViewSortsRowsByName(t *testing.T) {
	rules := riskposture.DefaultRules()
	var recs []entity.Record
	for _, name := range []string{"Zeta", "Alpha", "Mike"} {
		u, err := entity.NewUserRecord("id-"+name, name)
		require.NoError(t, err)
		recs = append(recs, u)
	}

	classified := riskposture.ClassifyAll(riskposture.DomainMFA, recs, rules)
	view := BuildReportView(riskposture.AnalysisResult{
		Domain:  riskposture.DomainMFA,
		Summary: riskposture.Aggregate(classified, rules),
		Records: classified,
		Rules:   rules,
	})

	require.Len(t, view.Sections, 1)
	rows := view.Sections[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Alpha", rows[0].Name)
	assert.Equal(t, "Mike", rows[1].Name)
	assert.Equal(t, "Zeta", rows[2].Name)
}

func TestWriteHTMLCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharing-report.html")

	require.NoError(t, WriteHTML(sharingResult(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
}

func TestWriteCSVReportsIOError(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path forces the create to fail.
	blocked := filepath.Join(dir, "mfa-report.csv")
	require.NoError(t, os.Mkdir(blocked, 0o755))

	err := WriteCSV(sharingResult(t), blocked)
	require.Error(t, err)

	var ioErr *RenderIOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "csv", ioErr.Format)
	assert.Equal(t, blocked, ioErr.Path)
}
