package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const feedWriteTimeout = 5 * time.Second

// Feed pushes bus events to connected websocket clients.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		clients: make(map[*websocket.Conn]struct{}),
		log:     logger.With(zap.String("component", "feed")),
	}
}

// Serve upgrades the request and keeps the connection registered until the client goes away.
func (f *Feed) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.log.Warn("feed_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		f.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Len returns the number of connected clients.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Broadcast is a bus Handler that sends e as a JSON frame to every client.
// Clients that fail to receive are dropped.
func (f *Feed) Broadcast(_ context.Context, e Event) error {
	data, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  Event  `json:"data"`
	}{Event: e.EventName(), Data: e})
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.log.Debug("feed_client_dropped", zap.Error(err))
			_ = conn.Close()
			delete(f.clients, conn)
		}
	}
	return nil
}
