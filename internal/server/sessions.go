package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mosaicdev/chorus/internal/orchestrator"
	"github.com/mosaicdev/chorus/internal/provider"
)

// createSessionRequest is the POST /api/sessions body.
type createSessionRequest struct {
	ProjectID string            `json:"projectId"`
	Input     string            `json:"input" binding:"required"`
	History   []provider.Turn   `json:"history"`
	Overrides map[string]string `json:"overrides"`
}

// handleCreateSession runs one orchestration session and streams its events
// until session_done. The response format follows the Accept header:
// text/event-stream selects SSE, anything else gets NDJSON. Events keep their
// emitter-assigned sequence ids, so consumers can detect gaps from drops.
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runner := s.newRunner()

	// The run owns its lifetime: client disconnect detaches the stream but
	// lets in-flight provider calls finish, so the request context is not
	// passed to Run.
	go func() {
		// Errors surface on the stream as leader_error/session_done events.
		_, _ = runner.Run(context.Background(), orchestrator.RunRequest{
			ProjectID: req.ProjectID,
			Input:     req.Input,
			History:   req.History,
			Overrides: req.Overrides,
		})
	}()

	useSSE := strings.Contains(c.GetHeader("Accept"), "text/event-stream")
	if useSSE {
		s.streamSSE(c, runner)
		return
	}
	s.streamNDJSON(c, runner)
}

// streamSSE writes events in SSE wire format (event: type, data: json).
func (s *Server) streamSSE(c *gin.Context, runner SessionRunner) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		runner.CloseEvents()
		return
	}

	clientGone := c.Request.Context().Done()
	for {
		select {
		case event, ok := <-runner.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				runner.CloseEvents()
				return
			}
			flusher.Flush()
		case <-clientGone:
			runner.CloseEvents()
			return
		}
	}
}

// streamNDJSON writes one JSON event per line.
func (s *Server) streamNDJSON(c *gin.Context, runner SessionRunner) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")

	flusher, _ := c.Writer.(http.Flusher)
	enc := json.NewEncoder(c.Writer)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case event, ok := <-runner.Events():
			if !ok {
				return
			}
			if err := enc.Encode(event); err != nil {
				runner.CloseEvents()
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-clientGone:
			runner.CloseEvents()
			return
		}
	}
}
