package domain

import "fmt"

// ValidationStatus is the review state of an extraction result.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending_validation"
	ValidationValidated ValidationStatus = "validated"
	ValidationRejected  ValidationStatus = "rejected"
)

// ParseValidationStatus accepts only the statuses a reviewer may set.
func ParseValidationStatus(s string) (ValidationStatus, error) {
	switch ValidationStatus(s) {
	case ValidationValidated, ValidationRejected:
		return ValidationStatus(s), nil
	}
	return "", &OpError{
		Op:   "domain.parse_validation_status",
		Kind: KindInvalidConfig,
		Err:  fmt.Errorf("unsupported validation status %q (expected validated|rejected): %w", s, ErrInvalidRequest),
	}
}

// ExtractionResult holds the fields extracted from one processed document.
type ExtractionResult struct {
	ID               int64             `json:"id"`
	DocumentID       int64             `json:"document_id"`
	Fields           map[string]string `json:"fields"`
	ConfidenceScore  float64           `json:"confidence_score"`
	ValidationStatus ValidationStatus  `json:"status"`
	ValidatedBy      *int64            `json:"validated_by,omitempty"`
	ValidatedAt      *Timestamp        `json:"validated_date,omitempty"`
	Notes            string            `json:"validation_notes,omitempty"`
	ProcessingTime   *float64          `json:"processing_time,omitempty"`
	CreatedAt        Timestamp         `json:"created_date"`

	// Raw is the unmodified server payload; Fields are extracted from it.
	Raw map[string]any `json:"-"`
}

// ResultPatch carries the editable result fields.
type ResultPatch struct {
	InvoiceNumber *string  `json:"invoice_number,omitempty"`
	VendorName    *string  `json:"vendor_name,omitempty"`
	InvoiceDate   *string  `json:"invoice_date,omitempty"`
	DueDate       *string  `json:"due_date,omitempty"`
	TotalAmount   *float64 `json:"total_amount,omitempty"`
	Notes         *string  `json:"validation_notes,omitempty"`
}

// ValidationRequest is the body of a validate call.
type ValidationRequest struct {
	Status ValidationStatus `json:"status"`
	Notes  string           `json:"notes,omitempty"`
}
