package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/compression"
)

// streamSession owns exactly one StreamCompressor. The compressor itself
// is not safe to share, so the session mutex serializes the HTTP requests
// that feed it; distinct sessions never contend.
type streamSession struct {
	mu sync.Mutex
	sc *compression.StreamCompressor
}

// streamRegistry tracks in-flight stream sessions by ID.
type streamRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*streamSession
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{sessions: make(map[string]*streamSession)}
}

func (r *streamRegistry) create(sc *compression.StreamCompressor) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &streamSession{sc: sc}
	r.mu.Unlock()
	return id
}

func (r *streamRegistry) get(id string) (*streamSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *streamRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// StreamCreateRequest is the request body for POST /api/v1/streams.
type StreamCreateRequest struct {
	Mode              string `json:"mode,omitempty"`
	SentenceThreshold int    `json:"sentence_threshold,omitempty"`
}

// StreamCreateResponse is the response body for POST /api/v1/streams.
type StreamCreateResponse struct {
	StreamID string `json:"stream_id"`
}

// StreamChunkRequest is the request body for chunk submission.
type StreamChunkRequest struct {
	Chunk string `json:"chunk"`
}

// StreamOutput carries the text to forward to the client.
type StreamOutput struct {
	Output string `json:"output"`
}

// handleStreamCreate opens a stream session with its own compressor.
func (s *Server) handleStreamCreate(c echo.Context) error {
	var req StreamCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	mode := compression.Mode(req.Mode)
	if req.Mode == "" {
		mode = compression.ModeLight
	} else if !mode.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown compression mode")
	}

	threshold := req.SentenceThreshold
	if threshold <= 0 {
		threshold = s.config.StreamSentenceThreshold
	}

	id := s.streams.create(s.engine.NewStream(mode, threshold))
	s.logger.Debug("stream session opened",
		zap.String("stream_id", id),
		zap.String("mode", string(mode)),
		zap.Int("sentence_threshold", threshold),
	)

	return c.JSON(http.StatusOK, StreamCreateResponse{StreamID: id})
}

// handleStreamChunk feeds one raw chunk through the session's compressor
// and returns the text to forward.
func (s *Server) handleStreamChunk(c echo.Context) error {
	session, ok := s.streams.get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream")
	}

	var req StreamChunkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session.mu.Lock()
	out := session.sc.ProcessChunk(req.Chunk)
	session.mu.Unlock()

	return c.JSON(http.StatusOK, StreamOutput{Output: out})
}

// handleStreamFlush returns the compressed remainder and ends the session.
func (s *Server) handleStreamFlush(c echo.Context) error {
	id := c.Param("id")
	session, ok := s.streams.get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream")
	}

	session.mu.Lock()
	out := session.sc.Flush()
	session.mu.Unlock()

	s.streams.remove(id)
	s.logger.Debug("stream session flushed", zap.String("stream_id", id))

	return c.JSON(http.StatusOK, StreamOutput{Output: out})
}

// handleStreamDelete discards a session without flushing. Aborted streams
// have nothing to clean up beyond the registry entry.
func (s *Server) handleStreamDelete(c echo.Context) error {
	id := c.Param("id")
	if _, ok := s.streams.get(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream")
	}

	s.streams.remove(id)
	s.logger.Debug("stream session discarded", zap.String("stream_id", id))

	return c.NoContent(http.StatusNoContent)
}
