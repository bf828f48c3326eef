package mockapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const recentLimit = 5

func (s *Server) registerStatus(rg *gin.RouterGroup) {
	rg.GET("/status/document/:id", s.documentStatus)
	rg.GET("/status/stats", s.stats)
	rg.GET("/status/processing_metrics", s.processingMetrics)
}

func (s *Server) documentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, found := s.db.docs[id]
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}

	out := gin.H{
		"document_id":      d.ID,
		"filename":         d.Filename,
		"status":           d.Status,
		"upload_date":      d.UploadedAt,
		"queue_status":     nil,
		"process_start":    nil,
		"process_end":      nil,
		"processing_time":  nil,
		"error_message":    nil,
		"result_status":    nil,
		"confidence_score": nil,
		"extracted_fields": gin.H{},
	}
	if q := s.db.latestQueueItem(id); q != nil {
		out["queue_id"] = q.ID
		out["queue_status"] = q.Status
		out["process_start"] = q.ProcessStart
		out["process_end"] = q.ProcessEnd
		out["error_message"] = q.ErrorMessage
	}
	if r := s.db.latestResult(id); r != nil {
		out["result_id"] = r.ID
		out["result_status"] = r.Status
		out["confidence_score"] = r.ConfidenceScore
		out["processing_time"] = r.ProcessingTime
		out["extracted_fields"] = gin.H{
			"invoice_number": r.InvoiceNumber,
			"vendor_name":    r.VendorName,
			"invoice_date":   r.InvoiceDate,
			"due_date":       r.DueDate,
			"total_amount":   r.TotalAmount,
		}
	}
	c.JSON(http.StatusOK, out)
}

type documentCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

type queueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

type recentResult struct {
	DocumentID int64   `json:"document_id"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) stats(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var docs documentCounts
	var queue queueCounts
	for _, d := range s.db.docs {
		switch d.Status {
		case "pending":
			docs.Pending++
		case "processing":
			docs.Processing++
		case "processed":
			docs.Processed++
		case "failed":
			docs.Failed++
		}
	}
	docs.Total = docs.Pending + docs.Processing + docs.Processed + docs.Failed
	for _, q := range s.db.queue {
		switch q.Status {
		case "pending":
			queue.Pending++
		case "processing":
			queue.Processing++
		case "completed":
			queue.Completed++
		case "failed":
			queue.Failed++
		}
	}
	queue.Total = queue.Pending + queue.Processing + queue.Completed + queue.Failed

	results := s.db.sortedResults()
	var confSum, timeSum float64
	for _, r := range results {
		confSum += r.ConfidenceScore
		timeSum += r.ProcessingTime
	}
	avgConf, avgTime := 0.0, 0.0
	if n := float64(len(results)); n > 0 {
		avgConf, avgTime = confSum/n, timeSum/n
	}

	sorted := s.db.sortedDocs()
	recentDocs := []string{}
	for i := len(sorted) - 1; i >= 0 && len(recentDocs) < recentLimit; i-- {
		recentDocs = append(recentDocs, sorted[i].Filename)
	}
	recentResults := []recentResult{}
	for i := len(results) - 1; i >= 0 && len(recentResults) < recentLimit; i-- {
		r := results[i]
		recentResults = append(recentResults, recentResult{DocumentID: r.DocumentID, Status: r.Status, Confidence: r.ConfidenceScore})
	}

	c.JSON(http.StatusOK, gin.H{
		"document_counts": docs,
		"queue_counts":    queue,
		"processing_metrics": gin.H{
			"avg_confidence":      avgConf,
			"avg_processing_time": avgTime,
		},
		"recent_activity": gin.H{
			"documents": recentDocs,
			"results":   recentResults,
		},
	})
}

// processingMetrics reports stage timings and the upload volume of the current week.
// Stage timings are omitted until at least one result exists.
func (s *Server) processingMetrics(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := gin.H{}
	results := s.db.sortedResults()
	if n := float64(len(results)); n > 0 {
		var ocr, nlp, db, total, conf float64
		for _, r := range results {
			ocr += r.OCRTime
			nlp += r.NLPTime
			db += r.DBTime
			total += r.ProcessingTime
			conf += r.ConfidenceScore
		}
		out["processing_time"] = gin.H{
			"ocr_time":            ocr / n,
			"nlp_extraction_time": nlp / n,
			"db_operation_time":   db / n,
			"total_time":          total / n,
		}
		out["accuracy"] = gin.H{"avg_confidence": conf / n}
	}

	failed := 0
	for _, d := range s.db.docs {
		if d.Status == "failed" {
			failed++
		}
	}
	if len(s.db.docs) > 0 {
		out["error_distribution"] = gin.H{"other": float64(failed) / float64(len(s.db.docs))}
	}

	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	volume := map[time.Weekday]int{}
	for _, d := range s.db.docs {
		volume[time.Time(d.UploadedAt).Weekday()]++
	}
	history := make([]gin.H, 0, len(days))
	for _, wd := range days {
		history = append(history, gin.H{"name": wd.String()[:3], "volume": volume[wd]})
	}
	out["historical_data"] = history

	c.JSON(http.StatusOK, out)
}
