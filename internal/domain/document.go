package domain

import "fmt"

// DocumentStatus is the server-owned processing state of a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// Action is a transition the client may ask the service to perform.
type Action string

const (
	ActionProcess   Action = "process"
	ActionReprocess Action = "reprocess"
	ActionDelete    Action = "delete"
)

// Document is an uploaded file tracked by the processing service.
type Document struct {
	ID            int64          `json:"id"`
	Filename      string         `json:"filename"`
	ContentType   string         `json:"content_type,omitempty"`
	FileSizeBytes int64          `json:"file_size,omitempty"`
	UploadedBy    int64          `json:"uploaded_by,omitempty"`
	UploadedAt    Timestamp      `json:"uploaded_date"`
	ModifiedAt    *Timestamp     `json:"modified_date,omitempty"`
	Status        DocumentStatus `json:"status"`
}

// DocumentPatch carries the mutable document fields.
type DocumentPatch struct {
	Status *DocumentStatus `json:"status,omitempty"`
}

// Terminal reports whether the status is final for display purposes.
// Terminal documents remain reprocessable.
func (s DocumentStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Known reports whether s is one of the lifecycle states.
func (s DocumentStatus) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// CanRequest reports whether the client may ask for action while the document is
// observed in status s. The server still decides; this only gates what the client issues.
func CanRequest(s DocumentStatus, a Action) error {
	ok := false
	switch a {
	case ActionProcess:
		ok = s == StatusPending
	case ActionReprocess:
		ok = s.Terminal()
	case ActionDelete:
		ok = s != StatusProcessing
	}
	if ok {
		return nil
	}
	return &OpError{
		Op:   "domain.can_request",
		Kind: KindInvalidTransition,
		Err:  fmt.Errorf("%s while %s: %w", a, s, ErrInvalidTransition),
	}
}

// ValidObservation reports whether moving from prev to next, as seen across two
// successful fetches, is consistent with the lifecycle. Skipped intermediate states are
// fine (a fast worker can go pending -> processed between polls).
func ValidObservation(prev, next DocumentStatus) bool {
	if prev == next || prev == "" {
		return true
	}
	switch prev {
	case StatusPending:
		return next == StatusProcessing || next.Terminal()
	case StatusProcessing:
		return next.Terminal()
	case StatusProcessed, StatusFailed:
		// reprocess goes back through processing and may already be done again.
		return next == StatusProcessing || next.Terminal()
	}
	return false
}

// QueueCounts is the queue read model: documents grouped by status.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// CountByStatus recomputes the queue read model from a document snapshot.
func CountByStatus(docs []Document) QueueCounts {
	var c QueueCounts
	for _, d := range docs {
		switch d.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusProcessed:
			c.Processed++
		case StatusFailed:
			c.Failed++
		}
		c.Total++
	}
	return c
}

// FilterByStatus returns the documents currently observed in one of the statuses.
func FilterByStatus(docs []Document, statuses ...DocumentStatus) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		for _, s := range statuses {
			if d.Status == s {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// DocumentStatusReport is the composite status view of one document.
type DocumentStatusReport struct {
	DocumentID      int64          `json:"document_id"`
	Filename        string         `json:"filename"`
	Status          DocumentStatus `json:"status"`
	UploadedAt      *Timestamp     `json:"upload_date,omitempty"`
	QueueID         *int64         `json:"queue_id,omitempty"`
	QueueStatus     *string        `json:"queue_status,omitempty"`
	ProcessStart    *Timestamp     `json:"process_start,omitempty"`
	ProcessEnd      *Timestamp     `json:"process_end,omitempty"`
	ProcessingTime  *float64       `json:"processing_time,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	ResultID        *int64         `json:"result_id,omitempty"`
	ResultStatus    *string        `json:"result_status,omitempty"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	ExtractedFields map[string]any `json:"extracted_fields,omitempty"`
}
