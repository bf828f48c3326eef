package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerQueue(rg *gin.RouterGroup) {
	rg.GET("/queue", s.listQueue)
	rg.POST("/queue", s.createQueueItem)
	rg.GET("/queue/:id", s.getQueueItem)
	rg.PUT("/queue/:id", s.updateQueueItem)
	rg.DELETE("/queue/:id", s.deleteQueueItem)
	rg.POST("/queue/:id/reprocess", s.reprocessQueueItem)
}

func (s *Server) listQueue(c *gin.Context) {
	skip, limit, ok := paging(c)
	if !ok {
		return
	}
	status := c.Query("status")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	items := s.db.sortedQueue()
	if status != "" {
		filtered := items[:0]
		for _, q := range items {
			if q.Status == status {
				filtered = append(filtered, q)
			}
		}
		items = filtered
	}
	c.JSON(http.StatusOK, window(items, skip, limit))
}

func (s *Server) getQueueItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, found := s.db.queue[id]
	if !found {
		detail(c, http.StatusNotFound, "Queue item not found")
		return
	}
	c.JSON(http.StatusOK, q)
}

type queueCreate struct {
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status"`
	Priority   int    `json:"priority"`
}

func (s *Server) createQueueItem(c *gin.Context) {
	var in queueCreate
	if err := c.ShouldBindJSON(&in); err != nil || in.DocumentID == 0 {
		unprocessable(c, fieldError{Loc: []string{"body", "document_id"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	if in.Status == "" {
		in.Status = "pending"
	}
	if in.Priority == 0 {
		in.Priority = 1
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, found := s.db.docs[in.DocumentID]; !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	q := &queueItem{
		ID:         s.db.id("queue"),
		DocumentID: in.DocumentID,
		Status:     in.Status,
		Priority:   in.Priority,
		CreatedAt:  pyTime(s.now()),
	}
	s.db.queue[q.ID] = q
	c.JSON(http.StatusOK, q)
}

type queueUpdate struct {
	Status       *string `json:"status"`
	Priority     *int    `json:"priority"`
	ErrorMessage *string `json:"error_message"`
}

func (s *Server) updateQueueItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in queueUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid request body", Type: "value_error.jsondecode"})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, found := s.db.queue[id]
	if !found {
		detail(c, http.StatusNotFound, "Queue item not found")
		return
	}
	if in.Status != nil {
		q.Status = *in.Status
	}
	if in.Priority != nil {
		q.Priority = *in.Priority
	}
	if in.ErrorMessage != nil {
		q.ErrorMessage = in.ErrorMessage
	}
	q.ModifiedAt = stamp(s.now())
	c.JSON(http.StatusOK, q)
}

func (s *Server) deleteQueueItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, found := s.db.queue[id]
	if !found {
		detail(c, http.StatusNotFound, "Queue item not found")
		return
	}
	delete(s.db.queue, id)
	c.JSON(http.StatusOK, q)
}

func (s *Server) reprocessQueueItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, found := s.db.queue[id]
	if !found {
		detail(c, http.StatusNotFound, "Queue item not found")
		return
	}
	d, found := s.db.docs[q.DocumentID]
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	if d.Status == "processing" {
		detail(c, http.StatusConflict, "Document is already being processed")
		return
	}
	s.startProcessing(d, q)
	c.JSON(http.StatusOK, q)
}
