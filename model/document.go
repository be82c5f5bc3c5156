package model

import (
	"time"
)

// Document represents an uploaded legal document and its lifecycle state.
type Document struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	DocumentType     string    `gorm:"size:32;index" json:"document_type"`
	UserNotes        string    `gorm:"type:text" json:"user_notes"`
	Status           string    `gorm:"size:16;index" json:"status"` // uploaded, analyzing, analyzed, error
	ContentText      string    `gorm:"type:text" json:"-"`
	ObjectName       string    `gorm:"size:512" json:"-"`
	FileSize         int64     `json:"file_size"`
	ErrorMsg         string    `gorm:"type:text" json:"error_msg,omitempty"`
	UploadDate       time.Time `gorm:"index" json:"upload_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Document status constants
const (
	StatusUploaded  = "uploaded"
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
	StatusError     = "error"
)

// Document type constants
const (
	TypeContract = "contract"
	TypeLease    = "lease"
	TypeLoan     = "loan"
	TypeNDA      = "nda"
	TypeTerms    = "terms"
	TypeOther    = "other"
)

// validTransitions encodes the document lifecycle: uploaded -> analyzing ->
// analyzed, with error reachable from any non-terminal state. analyzed and
// error are terminal.
var validTransitions = map[string][]string{
	StatusUploaded:  {StatusAnalyzing, StatusError},
	StatusAnalyzing: {StatusAnalyzed, StatusError},
	StatusAnalyzed:  {},
	StatusError:     {},
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known document status.
func IsValidStatus(s string) bool {
	_, ok := validTransitions[s]
	return ok
}

// IsValidDocumentType reports whether t is an allowed document type.
func IsValidDocumentType(t string) bool {
	switch t {
	case TypeContract, TypeLease, TypeLoan, TypeNDA, TypeTerms, TypeOther:
		return true
	}
	return false
}
