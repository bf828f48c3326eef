package mockapi

import (
	"fmt"
	"time"
)

// startProcessing moves a document into processing under queue item q and schedules
// its completion. Callers hold s.db.mu.
func (s *Server) startProcessing(d *document, q *queueItem) {
	now := s.now()
	d.gen++
	d.Status = "processing"
	d.ModifiedAt = stamp(now)
	q.Status = "processing"
	q.ErrorMessage = nil
	q.ProcessStart = stamp(now)
	q.ProcessEnd = nil
	q.ModifiedAt = stamp(now)

	docID, qID, gen := d.ID, q.ID, d.gen
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[docID]; ok {
		prev.Stop()
	}
	s.timers[docID] = time.AfterFunc(s.cfg.ProcessDelay, func() {
		s.finishProcessing(docID, qID, gen)
	})
}

// finishProcessing records the simulated outcome unless the document was deleted or
// restarted in the meantime.
func (s *Server) finishProcessing(docID, qID int64, gen int) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	d, ok := s.db.docs[docID]
	if !ok || d.gen != gen {
		return
	}
	s.timersMu.Lock()
	delete(s.timers, docID)
	s.timersMu.Unlock()

	now := s.now()
	q := s.db.queue[qID]
	d.ModifiedAt = stamp(now)
	if failsProcessing(d.Filename) {
		d.Status = "failed"
		if q != nil {
			msg := "text recognition produced no readable content"
			q.Status = "failed"
			q.ErrorMessage = &msg
			q.ProcessEnd = stamp(now)
			q.ModifiedAt = stamp(now)
		}
		s.log.Info("mockapi.process.failed", "document_id", docID)
		return
	}

	d.Status = "processed"
	if q != nil {
		q.Status = "completed"
		q.ProcessEnd = stamp(now)
		q.ModifiedAt = stamp(now)
	}
	rid := s.db.id("results")
	s.db.results[rid] = extractInvoice(rid, d, now)
	s.log.Info("mockapi.process.done", "document_id", docID, "result_id", rid)
}

func extractInvoice(id int64, d *document, now time.Time) *result {
	number := fmt.Sprintf("INV-%05d", d.ID)
	vendor := "Acme Supplies Ltd"
	issued := now.AddDate(0, 0, -14).Truncate(24 * time.Hour)
	due := issued.AddDate(0, 0, 30)
	total := float64(100+d.ID*37%900) + 0.5
	conf := 0.85 + float64(d.ID%10)/100

	return &result{
		ID:              id,
		DocumentID:      d.ID,
		InvoiceNumber:   &number,
		VendorName:      &vendor,
		InvoiceDate:     stamp(issued),
		DueDate:         stamp(due),
		TotalAmount:     &total,
		ConfidenceScore: conf,
		ProcessingTime:  3.4,
		OCRTime:         1.2,
		NLPTime:         1.8,
		DBTime:          0.4,
		Status:          "pending_validation",
		CreatedAt:       pyTime(now),
		RawExtraction: map[string]any{
			"invoice_number": number,
			"vendor_name":    vendor,
			"invoice_date":   issued.Format("2006-01-02"),
			"due_date":       due.Format("2006-01-02"),
			"total_amount":   total,
			"source":         d.Filename,
		},
	}
}
