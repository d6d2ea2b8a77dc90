package controllers

import (
	"errors"
	"fmt"

	"github.com/amaumene/mediastash/internal/models"
)

// PipelineError carries the stable error category alongside the cause.
// The orchestrator stores the category on the item; the detail goes to
// the item log only.
type PipelineError struct {
	Category models.ErrorCategory
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a stable category
func NewPipelineError(category models.ErrorCategory, err error) *PipelineError {
	return &PipelineError{Category: category, Err: err}
}

// CategoryOf returns the category of err, or download_failed when the
// error carries no category of its own
func CategoryOf(err error) models.ErrorCategory {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Category
	}
	return models.ErrDownloadFailed
}
