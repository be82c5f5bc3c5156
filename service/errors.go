package service

import "errors"

// Sentinel errors shared across the service layer. Handlers map these to
// HTTP status codes.
var (
	// ErrNotFound means the requested document, analysis or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the caller supplied a bad file type, an oversized
	// file or missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtractionFailed means text could not be extracted from the uploaded file.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrAnalysisFailed means the analysis collaborator failed or timed out.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrInvalidTransition means a document status change violates the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
