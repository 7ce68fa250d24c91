package server

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/core/services"
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

// documentView is the JSON form of a document. Extracted text is omitted.
type documentView struct {
	ID              string                  `json:"id"`
	OwnerID         string                  `json:"ownerId"`
	Title           string                  `json:"title"`
	Filename        string                  `json:"filename"`
	MIMEType        string                  `json:"mimeType"`
	Type            domain.DocumentType     `json:"type"`
	TextMethod      domain.ExtractionMethod `json:"textMethod,omitempty"`
	PageCount       int                     `json:"pageCount"`
	Processed       bool                    `json:"processed"`
	PipelineVersion string                  `json:"pipelineVersion,omitempty"`
	AnalysisID      string                  `json:"analysisId,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

func newDocumentView(d *domain.Document) documentView {
	return documentView{
		ID:              d.ID,
		OwnerID:         d.OwnerID,
		Title:           d.DisplayTitle(),
		Filename:        d.Filename,
		MIMEType:        d.MIMEType,
		Type:            d.Type,
		TextMethod:      d.TextMethod,
		PageCount:       d.PageCount,
		Processed:       !d.IsStale(),
		PipelineVersion: d.PipelineVersion,
		AnalysisID:      d.AnalysisID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// handleUpload stores a multipart "file" for the owner. Optional form
// fields: "type" (label or slug), "title", and "process=true" to index
// the document before responding.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadSize+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Missing multipart file field \"file\"", err))
		return
	}
	docType, err := domain.ParseDocumentType(c.PostForm("type"))
	if err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Unknown document type", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Could not read upload", err))
		return
	}

	doc, err := s.svc.Documents.Upload(c.Request.Context(), driving.UploadRequest{
		OwnerID:  c.Param("ownerId"),
		Title:    c.PostForm("title"),
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Type:     docType,
		Content:  content,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	resp := gin.H{"document": newDocumentView(doc)}
	if process, _ := strconv.ParseBool(c.PostForm("process")); process {
		result, err := s.svc.Documents.Process(c.Request.Context(), doc.ID)
		if err != nil {
			resp["processError"] = err.Error()
		} else {
			resp["process"] = result
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.svc.Documents.List(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		handleError(c, err)
		return
	}
	views := make([]documentView, 0, len(docs))
	for i := range docs {
		views = append(views, newDocumentView(&docs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"documents": views})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.svc.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentView(doc))
}

// handleProcessOwner processes every document of the owner. Per-document
// failures are reported in the results rather than failing the request.
func (s *Server) handleProcessOwner(c *gin.Context) {
	results, err := s.svc.Documents.ProcessOwner(c.Request.Context(), c.Param("ownerId"))
	if err != nil && results == nil {
		handleError(c, err)
		return
	}
	resp := gin.H{"results": results}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProcessDocument(c *gin.Context) {
	result, err := s.svc.Documents.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.svc.Documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSignedURL returns a time-limited download link. ?ttl accepts a
// Go duration such as "10m".
func (s *Server) handleSignedURL(c *gin.Context) {
	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			handleError(c, NewAppError(http.StatusBadRequest, "Invalid ttl", err))
			return
		}
		ttl = parsed
	}
	url, err := s.svc.Documents.SignedURL(c.Request.Context(), c.Param("id"), ttl)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// handleBlob serves a blob addressed by a signed link.
func (s *Server) handleBlob(c *gin.Context) {
	if s.svc.Blobs == nil {
		handleError(c, NewAppError(http.StatusNotFound, "Blob serving is disabled", nil))
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		handleError(c, NewAppError(http.StatusForbidden, "Invalid or expired link", domain.ErrInvalidSignature))
		return
	}
	if err := s.svc.Blobs.Verify(key, expires, c.Query("signature")); err != nil {
		handleError(c, err)
		return
	}

	data, err := s.svc.Blobs.Fetch(c.Request.Context(), key)
	if err != nil {
		handleError(c, err)
		return
	}
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	c.Data(http.StatusOK, contentType, data)
}
