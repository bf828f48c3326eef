package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const pyLayout = "2006-01-02T15:04:05.000000"

// pyTime marshals like a naive Python datetime: no zone suffix.
type pyTime time.Time

func (t pyTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(pyLayout) + `"`), nil
}

func stamp(t time.Time) *pyTime {
	p := pyTime(t)
	return &p
}

type document struct {
	ID          int64   `json:"id"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	FileSize    int64   `json:"file_size"`
	UploadedBy  int64   `json:"uploaded_by"`
	UploadedAt  pyTime  `json:"uploaded_date"`
	ModifiedAt  *pyTime `json:"modified_date"`
	Status      string  `json:"status"`

	content []byte
	gen     int
}

type queueItem struct {
	ID           int64   `json:"id"`
	DocumentID   int64   `json:"document_id"`
	Status       string  `json:"status"`
	Priority     int     `json:"priority"`
	ErrorMessage *string `json:"error_message"`
	CreatedAt    pyTime  `json:"created_date"`
	ModifiedAt   *pyTime `json:"modified_date"`
	ProcessStart *pyTime `json:"process_start_time"`
	ProcessEnd   *pyTime `json:"process_end_time"`
}

type result struct {
	ID              int64          `json:"id"`
	DocumentID      int64          `json:"document_id"`
	InvoiceNumber   *string        `json:"invoice_number"`
	VendorName      *string        `json:"vendor_name"`
	InvoiceDate     *pyTime        `json:"invoice_date"`
	DueDate         *pyTime        `json:"due_date"`
	TotalAmount     *float64       `json:"total_amount"`
	ConfidenceScore float64        `json:"confidence_score"`
	ProcessingTime  float64        `json:"processing_time"`
	OCRTime         float64        `json:"ocr_time"`
	NLPTime         float64        `json:"nlp_extraction_time"`
	DBTime          float64        `json:"db_operation_time"`
	Status          string         `json:"status"`
	Notes           *string        `json:"validation_notes"`
	ValidatedBy     *int64         `json:"validated_by"`
	ValidatedAt     *pyTime        `json:"validated_date"`
	CreatedAt       pyTime         `json:"created_date"`
	ModifiedAt      *pyTime        `json:"modified_date"`
	RawExtraction   map[string]any `json:"raw_extraction_data"`
}

// state is the in-memory database of the fake service. All access holds mu.
type state struct {
	mu      sync.Mutex
	nextID  map[string]int64
	docs    map[int64]*document
	queue   map[int64]*queueItem
	results map[int64]*result
}

func newState() *state {
	return &state{
		nextID:  map[string]int64{},
		docs:    map[int64]*document{},
		queue:   map[int64]*queueItem{},
		results: map[int64]*result{},
	}
}

func (s *state) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *state) sortedDocs() []*document {
	out := make([]*document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) sortedQueue() []*queueItem {
	out := make([]*queueItem, 0, len(s.queue))
	for _, q := range s.queue {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) sortedResults() []*result {
	out := make([]*result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// latestQueueItem returns the newest queue item of a document, or nil.
func (s *state) latestQueueItem(docID int64) *queueItem {
	var latest *queueItem
	for _, q := range s.queue {
		if q.DocumentID == docID && (latest == nil || q.ID > latest.ID) {
			latest = q
		}
	}
	return latest
}

// latestResult returns the newest result of a document, or nil.
func (s *state) latestResult(docID int64) *result {
	var latest *result
	for _, r := range s.results {
		if r.DocumentID == docID && (latest == nil || r.ID > latest.ID) {
			latest = r
		}
	}
	return latest
}

func (s *state) removeDocument(id int64) {
	delete(s.docs, id)
	for qid, q := range s.queue {
		if q.DocumentID == id {
			delete(s.queue, qid)
		}
	}
	for rid, r := range s.results {
		if r.DocumentID == id {
			delete(s.results, rid)
		}
	}
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// failsProcessing decides the simulated outcome: files named like "*fail*" fail.
func failsProcessing(filename string) bool {
	return strings.Contains(strings.ToLower(filename), "fail")
}
