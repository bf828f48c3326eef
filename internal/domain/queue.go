package domain

// QueueItem is a server-side processing queue entry for a document.
type QueueItem struct {
	ID           int64      `json:"id"`
	DocumentID   int64      `json:"document_id"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    Timestamp  `json:"created_date"`
	ModifiedAt   *Timestamp `json:"modified_date,omitempty"`
	ProcessStart *Timestamp `json:"process_start_time,omitempty"`
	ProcessEnd   *Timestamp `json:"process_end_time,omitempty"`
}

// QueueItemCreate is the body for creating a queue item.
type QueueItemCreate struct {
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status,omitempty"`
	Priority   int    `json:"priority,omitempty"`
}

// QueueItemPatch carries the mutable queue item fields.
type QueueItemPatch struct {
	Status       *string `json:"status,omitempty"`
	Priority     *int    `json:"priority,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Priority bounds accepted by process/reprocess.
const (
	MinPriority = 1
	MaxPriority = 5
)

// ClampPriority keeps p within the accepted range.
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}
