package mockapi

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 32 << 20

func (s *Server) registerDocuments(rg *gin.RouterGroup) {
	rg.GET("/documents", s.listDocuments)
	rg.POST("/documents", s.uploadDocument)
	rg.GET("/documents/:id", s.getDocument)
	rg.PUT("/documents/:id", s.updateDocument)
	rg.DELETE("/documents/:id", s.deleteDocument)
	rg.GET("/documents/:id/download", s.downloadDocument)
	rg.POST("/documents/:id/process", s.processDocument)
	rg.POST("/documents/:id/reprocess", s.reprocessDocument)
}

// pathID parses the :id route parameter, writing a 422 when it is not an integer.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		unprocessable(c, fieldError{Loc: []string{"path", name}, Msg: "value is not a valid integer", Type: "type_error.integer"})
		return 0, false
	}
	return id, true
}

// paging reads skip/limit with the service defaults 0/100.
func paging(c *gin.Context) (int, int, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		unprocessable(c, fieldError{Loc: []string{"query", "skip"}, Msg: "value is not a valid integer", Type: "type_error.integer"})
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		unprocessable(c, fieldError{Loc: []string{"query", "limit"}, Msg: "value is not a valid integer", Type: "type_error.integer"})
		return 0, 0, false
	}
	return skip, limit, true
}

type priorityRequest struct {
	Priority int `json:"priority"`
}

// priority reads the requested priority from the JSON body or the query, default 1.
func priority(c *gin.Context) int {
	p := 1
	if q := c.Query("priority"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			p = n
		}
	}
	var body priorityRequest
	if c.Request.ContentLength != 0 && c.ShouldBindJSON(&body) == nil && body.Priority != 0 {
		p = body.Priority
	}
	return p
}

func (s *Server) listDocuments(c *gin.Context) {
	skip, limit, ok := paging(c)
	if !ok {
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.JSON(http.StatusOK, window(s.db.sortedDocs(), skip, limit))
}

func (s *Server) getDocument(c *gin.Context) {
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
	c.JSON(http.StatusOK, d)
}

func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	fh, err := c.FormFile("file")
	if err != nil {
		unprocessable(c, fieldError{Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/pdf" {
		detail(c, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	f, err := fh.Open()
	if err != nil {
		detail(c, http.StatusInternalServerError, "Error uploading document: "+err.Error())
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Error uploading document: "+err.Error())
		return
	}

	now := s.now()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d := &document{
		ID:          s.db.id("documents"),
		Filename:    fh.Filename,
		ContentType: "application/pdf",
		FileSize:    int64(len(content)),
		UploadedBy:  c.GetInt64(userIDKey),
		UploadedAt:  pyTime(now),
		Status:      "pending",
		content:     content,
	}
	s.db.docs[d.ID] = d
	q := &queueItem{
		ID:         s.db.id("queue"),
		DocumentID: d.ID,
		Status:     "pending",
		Priority:   1,
		CreatedAt:  pyTime(now),
	}
	s.db.queue[q.ID] = q
	c.JSON(http.StatusOK, d)
}

type documentUpdate struct {
	Filename *string `json:"filename"`
	Status   *string `json:"status"`
}

func (s *Server) updateDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in documentUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid request body", Type: "value_error.jsondecode"})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, found := s.db.docs[id]
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	if in.Filename != nil {
		d.Filename = *in.Filename
	}
	if in.Status != nil {
		d.Status = *in.Status
	}
	d.ModifiedAt = stamp(s.now())
	c.JSON(http.StatusOK, d)
}

func (s *Server) deleteDocument(c *gin.Context) {
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
	s.db.removeDocument(id)
	c.JSON(http.StatusOK, d)
}

func (s *Server) downloadDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.db.mu.Lock()
	d, found := s.db.docs[id]
	var content []byte
	var name, ct string
	if found {
		content, name, ct = d.content, d.Filename, d.ContentType
	}
	s.db.mu.Unlock()
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, ct, content)
}

func (s *Server) processDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := priority(c)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, found := s.db.docs[id]
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	switch d.Status {
	case "processed":
		c.JSON(http.StatusOK, d)
		return
	case "processing":
		detail(c, http.StatusConflict, "Document is already being processed")
		return
	}

	q := s.db.latestQueueItem(id)
	if q == nil {
		q = &queueItem{ID: s.db.id("queue"), DocumentID: id, CreatedAt: pyTime(s.now())}
		s.db.queue[q.ID] = q
	}
	q.Priority = p
	s.startProcessing(d, q)
	c.JSON(http.StatusOK, d)
}

func (s *Server) reprocessDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := priority(c)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, found := s.db.docs[id]
	if !found {
		detail(c, http.StatusNotFound, "Document not found")
		return
	}
	if d.Status == "processing" {
		detail(c, http.StatusConflict, "Document is already being processed")
		return
	}
	q := &queueItem{ID: s.db.id("queue"), DocumentID: id, Priority: p, CreatedAt: pyTime(s.now())}
	s.db.queue[q.ID] = q
	s.startProcessing(d, q)
	c.JSON(http.StatusOK, d)
}
