package mockapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerResults(rg *gin.RouterGroup) {
	rg.GET("/results", s.listResults)
	rg.GET("/results/:id", s.getResult)
	rg.PUT("/results/:id", s.updateResult)
	rg.PUT("/results/:id/validate", s.validateResult)
	rg.GET("/results/document/:id", s.resultByDocument)
}

func (s *Server) listResults(c *gin.Context) {
	skip, limit, ok := paging(c)
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.JSON(http.StatusOK, window(s.db.sortedResults(), skip, limit))
}

func (s *Server) getResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, found := s.db.results[id]
	if !found {
		detail(c, http.StatusNotFound, "Result not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) resultByDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, found := s.db.docs[id]; !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	r := s.db.latestResult(id)
	if r == nil {
		detail(c, http.StatusNotFound, "Result not found for this document")
		return
	}
	c.JSON(http.StatusOK, r)
}

type validateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// validateResult accepts status/notes as JSON or as query parameters.
func (s *Server) validateResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in := validateRequest{Status: c.Query("status"), Notes: c.Query("notes")}
	if c.Request.ContentLength != 0 {
		var body validateRequest
		if err := c.ShouldBindJSON(&body); err == nil {
			if body.Status != "" {
				in.Status = body.Status
			}
			if body.Notes != "" {
				in.Notes = body.Notes
			}
		}
	}
	if in.Status == "" {
		unprocessable(c, fieldError{Loc: []string{"query", "status"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	if in.Status != "validated" && in.Status != "rejected" {
		detail(c, http.StatusBadRequest, "Invalid status value")
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, found := s.db.results[id]
	if !found {
		detail(c, http.StatusNotFound, "Result not found")
		return
	}
	now := s.now()
	by := c.GetInt64(userIDKey)
	r.Status = in.Status
	r.ValidatedBy = &by
	r.ValidatedAt = stamp(now)
	r.ModifiedAt = stamp(now)
	if in.Notes != "" {
		notes := in.Notes
		r.Notes = &notes
	}
	c.JSON(http.StatusOK, r)
}

type resultUpdate struct {
	InvoiceNumber *string  `json:"invoice_number"`
	VendorName    *string  `json:"vendor_name"`
	InvoiceDate   *string  `json:"invoice_date"`
	DueDate       *string  `json:"due_date"`
	TotalAmount   *float64 `json:"total_amount"`
	Status        *string  `json:"status"`
	Notes         *string  `json:"validation_notes"`
}

func (s *Server) updateResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in resultUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid request body", Type: "value_error.jsondecode"})
		return
	}
	invoiceDate, ok := parseDate(c, "invoice_date", in.InvoiceDate)
	if !ok {
		return
	}
	dueDate, ok := parseDate(c, "due_date", in.DueDate)
	if !ok {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, found := s.db.results[id]
	if !found {
		detail(c, http.StatusNotFound, "Result not found")
		return
	}
	if in.InvoiceNumber != nil {
		r.InvoiceNumber = in.InvoiceNumber
	}
	if in.VendorName != nil {
		r.VendorName = in.VendorName
	}
	if invoiceDate != nil {
		r.InvoiceDate = invoiceDate
	}
	if dueDate != nil {
		r.DueDate = dueDate
	}
	if in.TotalAmount != nil {
		r.TotalAmount = in.TotalAmount
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.Notes != nil {
		r.Notes = in.Notes
	}
	r.ModifiedAt = stamp(s.now())
	c.JSON(http.StatusOK, r)
}

func parseDate(c *gin.Context, field string, v *string) (*pyTime, bool) {
	if v == nil || *v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, pyLayout, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *v); err == nil {
			return stamp(t), true
		}
	}
	unprocessable(c, fieldError{Loc: []string{"body", field}, Msg: "invalid datetime format", Type: "value_error.datetime"})
	return nil, false
}
