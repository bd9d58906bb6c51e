package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

// maxErrorDetails caps the failures copied into a run summary.
const maxErrorDetails = 50

// RunSummary is the last-run.json document.
type RunSummary struct {
	Timestamp        time.Time              `json:"timestamp"`
	RunID            string                 `json:"runId"`
	Authenticated    bool                   `json:"authenticated"`
	PagesCrawled     int                    `json:"pagesCrawled"`
	ProductsParsed   int                    `json:"productsScraped"`
	ProductsValid    int                    `json:"productsValid"`
	ProductsExported int                    `json:"productsExported"`
	Unvisited        int                    `json:"unvisited"`
	Errors           int                    `json:"errors"`
	ErrorsByType     map[string]int         `json:"errorsByType,omitempty"`
	ErrorDetails     []models.FailedRequest `json:"errorDetails"`
	DurationSeconds  float64                `json:"durationSeconds"`
	Reconciliation   *ReconcileCounts       `json:"reconciliation,omitempty"`
}

// NewRunSummary builds a summary of res with exported products.
func NewRunSummary(res *models.ScraperResult, exported int) *RunSummary {
	details := res.Errors
	if len(details) > maxErrorDetails {
		details = details[:maxErrorDetails]
	}
	if details == nil {
		details = []models.FailedRequest{}
	}

	return &RunSummary{
		Timestamp:        res.EndTime.UTC(),
		RunID:            res.RunID,
		Authenticated:    res.Authenticated,
		PagesCrawled:     res.PagesCrawled,
		ProductsParsed:   res.ProductsParsed,
		ProductsValid:    res.ProductsValid,
		ProductsExported: exported,
		Unvisited:        res.Unvisited,
		Errors:           len(res.Errors),
		ErrorsByType:     res.ErrorsByType,
		ErrorDetails:     details,
		DurationSeconds:  res.EndTime.Sub(res.StartTime).Seconds(),
	}
}

// WriteRunSummary writes s to path through a temporary file so readers
// never see a partial document.
func WriteRunSummary(path string, s *RunSummary) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".last-run-*.json")
	if err != nil {
		return fmt.Errorf("create run summary: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write run summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close run summary: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename run summary: %w", err)
	}
	return nil
}
