// Package websocket broadcasts solver progress to clients watching a
// particular schedule run.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressUpdate is what gets pushed to a run's subscribers.
type ProgressUpdate struct {
	RunID         string  `json:"run_id"`
	NodesExplored int64   `json:"nodes_explored"`
	ElapsedMillis int64   `json:"elapsed_millis"`
	BestObjective float64 `json:"best_objective"`
	Done          bool    `json:"done"`
}

// Client is a single websocket connection subscribed to one run.
type Client struct {
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
}

// Hub fans solve-progress updates out to every client watching a run.
type Hub struct {
	clients   map[*Client]bool
	byRun     map[string][]*Client
	broadcast chan runMessage
	register  chan *Client
	unregister chan *Client
	logger    *logrus.Entry
	mutex     sync.RWMutex
}

type runMessage struct {
	runID string
	data  []byte
}

// NewHub constructs a Hub; call Run in a goroutine to start it.
func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byRun:      make(map[string][]*Client),
		broadcast:  make(chan runMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.byRun[client.RunID] = append(h.byRun[client.RunID], client)
			h.mutex.Unlock()
			logger.WithRun(client.RunID).Info("progress subscriber connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				peers := h.byRun[client.RunID]
				for i, c := range peers {
					if c == client {
						h.byRun[client.RunID] = append(peers[:i], peers[i+1:]...)
						break
					}
				}
				if len(h.byRun[client.RunID]) == 0 {
					delete(h.byRun, client.RunID)
				}
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.RLock()
			for _, client := range h.byRun[msg.runID] {
				select {
				case client.Send <- msg.data:
				default:
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// HandleWebSocket upgrades a request and subscribes it to :run_id's
// progress stream.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade websocket connection")
		return
	}

	client := &Client{RunID: runID, Conn: conn, Send: make(chan []byte, 64), Hub: h}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastProgress sends an update to every subscriber of update.RunID.
func (h *Hub) BroadcastProgress(update ProgressUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal progress update")
		return
	}
	h.broadcast <- runMessage{runID: update.RunID, data: data}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("failed to write progress update")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
