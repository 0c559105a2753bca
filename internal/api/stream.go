package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/vitals/internal/errors"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is the CORS setting's job; streams carry no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes a snapshot frame every poll interval. The stream ends
// with an error frame and a close message once the connection is gone.
// Transient fetch errors are sent as error frames and polling continues.
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("connectionId")
	if _, err := s.reg.Get(id); err != nil {
		respondError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("%s: websocket upgrade failed: %v", id, err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(s.done)
	defer cancel()

	// Reading is required to process control frames; any read error means
	// the client went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug("%s: stream read error: %v", id, err)
				}
				return
			}
		}
	}()

	s.log.Debug("%s: stream opened from %s", id, c.ClientIP())
	defer s.log.Debug("%s: stream closed", id)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for s.pushFrame(ctx, ws, id) {
		select {
		case <-ctx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	if s.done.Err() != nil {
		s.closeStream(ws, websocket.CloseGoingAway, "server shutting down")
	}
}

// pushFrame fetches and writes one frame. It reports false when the stream
// should end.
func (s *Server) pushFrame(ctx context.Context, ws *websocket.Conn, id string) bool {
	snap, err := s.sampler.FetchSnapshot(ctx, id)
	if ctx.Err() != nil {
		return false
	}

	frame := envelope{Success: true, Data: snap}
	if err != nil {
		frame = failure(err)
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(frame); err != nil {
		s.log.Debug("%s: stream write failed: %v", id, err)
		return false
	}

	switch errors.CodeOf(err) {
	case errors.ErrNotFound, errors.ErrConnectionLost:
		s.closeStream(ws, websocket.CloseNormalClosure, errors.CodeOf(err))
		return false
	}
	return true
}

func (s *Server) closeStream(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
