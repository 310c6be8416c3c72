package mirror

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// StreamMessage is what the /ws endpoint sends each push.
type StreamMessage struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Sources   []SeriesView `json:"sources"`
}

// MessageTypeSeries tags StreamMessage values carrying series data.
const MessageTypeSeries = "series"

const writeWait = 10 * time.Second

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sources": len(s.monitors),
	})
}

func (s *Server) handleSources(c *gin.Context) {
	out := make([]SourceView, len(s.monitors))
	for i, m := range s.monitors {
		out[i] = sourceView(m)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSource(c *gin.Context) {
	name := telemetry.MonitorName(c.Param("panel"), kindFromParam(c.Param("kind")))
	mon, ok := s.monitor(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source " + c.Param("panel") + "/" + c.Param("kind")})
		return
	}
	c.JSON(http.StatusOK, seriesView(mon))
}

// kindFromParam maps a path segment to a Kind. Unknown segments map to a
// kind no monitor has, so the lookup fails.
func kindFromParam(p string) telemetry.Kind {
	switch p {
	case telemetry.KindGPU.String():
		return telemetry.KindGPU
	case telemetry.KindHost.String():
		return telemetry.KindHost
	default:
		return telemetry.Kind(-1)
	}
}

// handleStream upgrades to a websocket and pushes every source's series
// immediately and then each push interval, until the client goes away or
// the server shuts down.
func (s *Server) handleStream(c *gin.Context) {
	if !s.beginStream() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mirror is shutting down"})
		return
	}
	defer s.streams.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("mirror: websocket upgrade from %s failed: %v", c.ClientIP(), err)
		return
	}
	defer ws.Close()

	client := c.ClientIP()
	s.log.Debug("mirror: stream opened by %s", client)

	// Reads only detect the close; clients have nothing to say.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug("mirror: stream from %s: %v", client, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.push)
	defer ticker.Stop()

	for {
		msg := StreamMessage{
			Type:      MessageTypeSeries,
			Timestamp: time.Now(),
			Sources:   s.allSeries(),
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(msg); err != nil {
			s.log.Debug("mirror: stream to %s ended: %v", client, err)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			s.log.Debug("mirror: stream closed by %s", client)
			return
		case <-s.done:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
