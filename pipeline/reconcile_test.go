package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

func hashed(url, hash string) *models.Product {
	p := testProduct(url)
	p.ContentHash = hash
	return p
}

func TestReconcile(t *testing.T) {
	previous := map[string]*models.Product{
		"http://example.test/product/same/":    hashed("http://example.test/product/same/", "h1"),
		"http://example.test/product/changed/": hashed("http://example.test/product/changed/", "h2"),
		"http://example.test/product/gone/":    hashed("http://example.test/product/gone/", "h3"),
	}
	current := []*models.Product{
		hashed("http://example.test/product/same/", "h1"),
		hashed("http://example.test/product/changed/", "h2b"),
		hashed("http://example.test/product/fresh/", "h4"),
		nil,
	}

	r := Reconcile(previous, current, Coverage{})

	assert.Equal(t, []string{"http://example.test/product/fresh/"}, r.New)
	assert.Equal(t, []string{"http://example.test/product/changed/"}, r.Changed)
	assert.Equal(t, []string{"http://example.test/product/same/"}, r.Unchanged)
	assert.Equal(t, []string{"http://example.test/product/gone/"}, r.Discontinued)
	assert.Empty(t, r.Unverified)
	assert.Equal(t, ReconcileCounts{New: 1, Changed: 1, Unchanged: 1, Discontinued: 1}, r.Counts())
}

func TestReconcileFailedURLIsUnverified(t *testing.T) {
	previous := map[string]*models.Product{
		"http://example.test/product/a/": hashed("http://example.test/product/a/", "ha"),
		"http://example.test/product/b/": hashed("http://example.test/product/b/", "hb"),
		"http://example.test/product/c/": hashed("http://example.test/product/c/", "hc"),
	}
	current := []*models.Product{hashed("http://example.test/product/a/", "ha")}
	cov := Coverage{Failed: []string{"http://example.test/product/b/"}}

	r := Reconcile(previous, current, cov)

	assert.Equal(t, []string{"http://example.test/product/b/"}, r.Unverified)
	assert.Equal(t, []string{"http://example.test/product/c/"}, r.Discontinued)
}

func TestReconcilePartialRunDiscontinuesNothing(t *testing.T) {
	previous := map[string]*models.Product{
		"http://example.test/product/a/": hashed("http://example.test/product/a/", "ha"),
		"http://example.test/product/b/": hashed("http://example.test/product/b/", "hb"),
	}
	current := []*models.Product{hashed("http://example.test/product/a/", "ha")}

	r := Reconcile(previous, current, Coverage{Partial: true})

	assert.Empty(t, r.Discontinued)
	assert.Equal(t, []string{"http://example.test/product/b/"}, r.Unverified)
	assert.Equal(t, 1, r.Counts().Unverified)
}

func TestCoverageOf(t *testing.T) {
	tests := []struct {
		name        string
		res         *models.ScraperResult
		wantPartial bool
		wantFailed  []string
	}{
		{
			name: "complete run",
			res:  &models.ScraperResult{},
		},
		{
			name: "failed detail page",
			res: &models.ScraperResult{Errors: []models.FailedRequest{
				{URL: "http://example.test/product/b/", Kind: models.PageDetail, Stage: models.StageFetch},
			}},
			wantFailed: []string{"http://example.test/product/b/"},
		},
		{
			name: "failed listing page",
			res: &models.ScraperResult{Errors: []models.FailedRequest{
				{URL: "http://example.test/fabric/page/2/", Kind: models.PageListing, Stage: models.StageFetch},
			}},
			wantPartial: true,
			wantFailed:  []string{"http://example.test/fabric/page/2/"},
		},
		{name: "unvisited requests", res: &models.ScraperResult{Unvisited: 2}, wantPartial: true},
		{name: "ceiling reached", res: &models.ScraperResult{Truncated: true}, wantPartial: true},
		{name: "halted", res: &models.ScraperResult{Halted: true}, wantPartial: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := CoverageOf(tt.res)
			assert.Equal(t, tt.wantPartial, cov.Partial)
			assert.Equal(t, tt.wantFailed, cov.Failed)
		})
	}
}

func TestCarriedRecordsSurviveSnapshotRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw-products.jsonl")
	previous := map[string]*models.Product{
		"http://example.test/product/a/": hashed("http://example.test/product/a/", "ha"),
		"http://example.test/product/b/": hashed("http://example.test/product/b/", "hb"),
	}
	current := []*models.Product{hashed("http://example.test/product/a/", "ha2")}

	r := Reconcile(previous, current, Coverage{Failed: []string{"http://example.test/product/b/"}})
	carried := r.Carried(previous)
	require.Len(t, carried, 1)

	w, err := NewJSONLWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(current))
	require.NoError(t, w.Write(carried))
	require.NoError(t, w.Close())

	next, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "ha2", next["http://example.test/product/a/"].ContentHash)
	assert.Equal(t, "hb", next["http://example.test/product/b/"].ContentHash)

	// The next complete run that sees b again reports it unchanged, not new.
	again := Reconcile(next, []*models.Product{hashed("http://example.test/product/b/", "hb")}, Coverage{})
	assert.Equal(t, []string{"http://example.test/product/b/"}, again.Unchanged)
	assert.Empty(t, again.New)
}

func TestReconcileFirstRun(t *testing.T) {
	r := Reconcile(map[string]*models.Product{}, []*models.Product{hashed("http://example.test/product/a/", "h")}, Coverage{})
	assert.Len(t, r.New, 1)
	assert.Empty(t, r.Discontinued)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	snapshot, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestLoadSnapshotMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw-products.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"url\":\"http://example.test/product/a/\"}\n\n{broken\n"), 0o644))

	_, err := LoadSnapshot(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestWriteRunSummary(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.ScraperResult{
		RunID:          "run-1",
		StartTime:      start,
		EndTime:        start.Add(90 * time.Second),
		Authenticated:  true,
		PagesCrawled:   4,
		ProductsParsed: 60,
		ProductsValid:  59,
		ErrorsByType:   map[string]int{"timeout": 3},
	}
	for i := 0; i < 70; i++ {
		res.Errors = append(res.Errors, models.FailedRequest{
			URL:        "http://example.test/product/x/",
			Kind:       models.PageDetail,
			Stage:      models.StageFetch,
			Error:      "timeout",
			RetryCount: 3,
		})
	}

	summary := NewRunSummary(res, 58)
	summary.Reconciliation = &ReconcileCounts{New: 58}
	path := filepath.Join(t.TempDir(), "output", "last-run.json")
	require.NoError(t, WriteRunSummary(path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["runId"])
	assert.EqualValues(t, 4, got["pagesCrawled"])
	assert.EqualValues(t, 60, got["productsScraped"])
	assert.EqualValues(t, 59, got["productsValid"])
	assert.EqualValues(t, 58, got["productsExported"])
	assert.EqualValues(t, 70, got["errors"])
	assert.EqualValues(t, 90, got["durationSeconds"])
	assert.Len(t, got["errorDetails"], maxErrorDetails)
	assert.Equal(t, "2026-03-01T12:01:30Z", got["timestamp"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestRunSummaryWithoutErrors(t *testing.T) {
	summary := NewRunSummary(&models.ScraperResult{RunID: "r"}, 0)
	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"errorDetails":[]`)
}
