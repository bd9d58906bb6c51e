package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-fabrics/models"
)

type namedWriter struct {
	name string
	w    OutputWriter
}

// MultiWriter fans every batch out to a set of named writers.
type MultiWriter struct {
	writers []namedWriter
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{}
}

// Add registers w under name. Errors from w are prefixed with name.
func (mw *MultiWriter) Add(name string, w OutputWriter) *MultiWriter {
	mw.writers = append(mw.writers, namedWriter{name: name, w: w})
	return mw
}

// Write stops at the first writer that fails.
func (mw *MultiWriter) Write(products []*models.Product) error {
	for _, nw := range mw.writers {
		if err := nw.w.Write(products); err != nil {
			return fmt.Errorf("%s write failed: %w", nw.name, err)
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, nw := range mw.writers {
		if err := nw.w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close failed: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks every writer and joins their errors.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, nw := range mw.writers {
		if err := nw.w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s validation failed: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}
