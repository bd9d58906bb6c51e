package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

const maxSnapshotLine = 16 << 20

// LoadSnapshot reads a JSONL product snapshot keyed by URL. A missing file
// is an empty snapshot.
func LoadSnapshot(path string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSnapshotLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var p models.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		if p.URL == "" {
			continue
		}
		out[p.URL] = &p
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return out, nil
}

// Coverage describes which absences a run can vouch for.
type Coverage struct {
	// Failed holds URLs whose requests failed for good this run.
	Failed []string
	// Partial is set when the run did not see the whole catalog.
	Partial bool
}

// CoverageOf derives the coverage of a finished crawl.
func CoverageOf(res *models.ScraperResult) Coverage {
	cov := Coverage{Partial: !res.Complete()}
	for _, f := range res.Errors {
		cov.Failed = append(cov.Failed, f.URL)
	}
	return cov
}

// Reconciliation classifies the products of a run against the previous
// snapshot. Every list holds URLs in ascending order.
type Reconciliation struct {
	New       []string
	Changed   []string
	Unchanged []string
	// Discontinued products were in the snapshot and are absent from a
	// complete run without having failed. They are reported, never removed.
	Discontinued []string
	// Unverified products were in the snapshot but this run could not
	// check them: their request failed or the run was partial.
	Unverified []string
}

// ReconcileCounts is the summary form of a Reconciliation.
type ReconcileCounts struct {
	New          int `json:"new"`
	Changed      int `json:"changed"`
	Unchanged    int `json:"unchanged"`
	Discontinued int `json:"discontinued"`
	Unverified   int `json:"unverified"`
}

// Reconcile compares current against previous by URL and ContentHash.
func Reconcile(previous map[string]*models.Product, current []*models.Product, cov Coverage) *Reconciliation {
	r := &Reconciliation{}
	seen := make(map[string]struct{}, len(current))

	for _, p := range current {
		if p == nil {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}

		old, ok := previous[p.URL]
		switch {
		case !ok:
			r.New = append(r.New, p.URL)
		case old.ContentHash != p.ContentHash:
			r.Changed = append(r.Changed, p.URL)
		default:
			r.Unchanged = append(r.Unchanged, p.URL)
		}
	}

	failed := make(map[string]struct{}, len(cov.Failed))
	for _, u := range cov.Failed {
		failed[u] = struct{}{}
	}
	for url := range previous {
		if _, ok := seen[url]; ok {
			continue
		}
		if _, ok := failed[url]; ok || cov.Partial {
			r.Unverified = append(r.Unverified, url)
			continue
		}
		r.Discontinued = append(r.Discontinued, url)
	}

	sort.Strings(r.New)
	sort.Strings(r.Changed)
	sort.Strings(r.Unchanged)
	sort.Strings(r.Discontinued)
	sort.Strings(r.Unverified)
	return r
}

// Carried returns the previous records of unverified products so the next
// snapshot still holds them.
func (r *Reconciliation) Carried(previous map[string]*models.Product) []*models.Product {
	out := make([]*models.Product, 0, len(r.Unverified))
	for _, url := range r.Unverified {
		if p, ok := previous[url]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Reconciliation) Counts() ReconcileCounts {
	return ReconcileCounts{
		New:          len(r.New),
		Changed:      len(r.Changed),
		Unchanged:    len(r.Unchanged),
		Discontinued: len(r.Discontinued),
		Unverified:   len(r.Unverified),
	}
}
