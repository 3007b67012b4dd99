package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/pipeline"
	"github.com/Iron-Ham/codepair/internal/util"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleOllamaModels(c *gin.Context) {
	if s.discoverer == nil {
		c.JSON(http.StatusOK, gin.H{"available": false, "models": []string{}})
		return
	}
	c.JSON(http.StatusOK, s.discoverer.Discover(c.Request.Context()))
}

// handleCollaborate validates the request, then streams the run as SSE.
// Nothing is streamed for an invalid request.
func (s *Server) handleCollaborate(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	// Run IDs name transcript files and NATS subjects; clients don't pick them.
	req.RunID = ""

	runner := s.currentRunner()
	req, err := runner.Prepare(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log := s.logger.WithRun(req.RunID)
	bus := event.NewBus(log)
	closeSinks := s.attachSinks(bus, req.RunID, log)
	defer closeSinks()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Run-ID", req.RunID)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	log.Info("stream opened", "prompt", util.Clip(req.Prompt, 80),
		"max_turns", req.MaxTurns, "debate", req.DebateEnabled())
	for ev := range runner.Run(c.Request.Context(), req) {
		bus.Publish(ev)
		c.SSEvent(string(ev.EventType()), ev)
		c.Writer.Flush()
	}
	log.Info("stream closed")
}

// attachSinks subscribes the configured mirrors to bus and returns a
// function that releases them.
func (s *Server) attachSinks(bus *event.Bus, runID string, log *logging.Logger) func() {
	var closers []func()

	if s.publisher != nil {
		mirror := event.NewNATSMirror(s.publisher, s.subjectPrefix, runID, log)
		bus.SubscribeAll(mirror.Handle)
	}

	if s.transcriptDir != "" {
		recorder, file, err := openTranscript(s.transcriptDir, runID)
		if err != nil {
			log.Warn("transcript disabled for run", "error", err)
		} else {
			bus.SubscribeAll(recorder.Handle)
			closers = append(closers, func() {
				if err := recorder.Close(); err != nil {
					log.Warn("transcript write failed", "error", err)
				}
				_ = file.Close()
			})
		}
	}

	return func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

func openTranscript(dir, runID string) (*event.Recorder, *os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create transcript directory: %w", err)
	}
	file, err := os.Create(filepath.Join(dir, runID+".jsonl"))
	if err != nil {
		return nil, nil, fmt.Errorf("create transcript: %w", err)
	}
	return event.NewRecorder(file, runID), file, nil
}
