package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/logger"
)

type searchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"topK"`
	Documents bool   `json:"documents"`
}

type searchHit struct {
	DocumentID string                `json:"documentId"`
	Title      string                `json:"title"`
	Type       domain.DocumentType   `json:"type"`
	ChunkIndex *int                  `json:"chunkIndex,omitempty"`
	Section    string                `json:"section,omitempty"`
	Content    string                `json:"content,omitempty"`
	Score      float64               `json:"score"`
	Breakdown  domain.ScoreBreakdown `json:"breakdown"`
}

// handleSearch ranks the owner's chunks, or whole documents when
// "documents" is set.
func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	ownerID := c.Param("ownerId")

	if req.Documents {
		ranked, err := s.svc.Search.RankDocuments(c.Request.Context(), ownerID, req.Query, req.TopK)
		if err != nil {
			handleError(c, err)
			return
		}
		hits := make([]searchHit, 0, len(ranked))
		for _, r := range ranked {
			hits = append(hits, searchHit{
				DocumentID: r.Document.ID,
				Title:      r.Document.DisplayTitle(),
				Type:       r.Document.Type,
				Score:      r.Score,
				Breakdown:  r.Breakdown,
			})
		}
		c.JSON(http.StatusOK, gin.H{"results": hits})
		return
	}

	results, err := s.svc.Search.Search(c.Request.Context(), ownerID, req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		index := r.Chunk.Index
		hits = append(hits, searchHit{
			DocumentID: r.Document.ID,
			Title:      r.Document.DisplayTitle(),
			Type:       r.Document.Type,
			ChunkIndex: &index,
			Section:    r.Chunk.Section,
			Content:    r.Chunk.Content,
			Score:      r.Score,
			Breakdown:  r.Breakdown,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func (s *Server) handleGetEntity(c *gin.Context) {
	entity, err := s.svc.Entities.Get(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// handlePutEntity replaces the owner's entity record. The path owner wins
// over any id in the body.
func (s *Server) handlePutEntity(c *gin.Context) {
	var entity domain.Entity
	if err := c.ShouldBindJSON(&entity); err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	entity.ID = c.Param("ownerId")
	if err := s.svc.Entities.Update(c.Request.Context(), &entity); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

type analyzeRequest struct {
	ForceRefresh bool `json:"forceRefresh"`
	Wait         bool `json:"wait"`
}

// handleAnalyze starts analysis. With "wait" the request blocks until the
// run finishes; otherwise it returns 202 with the queued snapshot and the
// client polls the analysis route.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleError(c, NewAppError(http.StatusBadRequest, "Invalid request body", err))
			return
		}
	}
	id := c.Param("id")

	if req.Wait {
		snap, err := s.svc.Analysis.StartOrRefresh(c.Request.Context(), id, req.ForceRefresh)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
		return
	}

	snap, err := s.svc.Analysis.Enqueue(c.Request.Context(), id, req.ForceRefresh)
	if err != nil {
		handleError(c, err)
		return
	}
	status := http.StatusAccepted
	if snap.Status.IsTerminal() {
		status = http.StatusOK
	}
	c.JSON(status, snap)
}

func (s *Server) handleAnalysisStatus(c *gin.Context) {
	snap, err := s.svc.Analysis.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type chatRequest struct {
	OwnerID  string            `json:"ownerId"`
	Question string            `json:"question"`
	History  []domain.ChatTurn `json:"history"`
}

// handleChat streams the answer as server-sent events named after the
// event type. Validation and retrieval failures return a JSON error before
// the stream starts. A client disconnect cancels generation.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	events, err := s.svc.Chat.Answer(ctx, domain.ChatRequest{
		OwnerID:  req.OwnerID,
		Question: req.Question,
		History:  req.History,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev)
			c.Writer.Flush()
		case <-ctx.Done():
			logger.Debug("Chat client disconnected")
			return
		}
	}
}
