package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/internal/flow"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// pingPeriod must stay below pongWait.
	pingPeriod = (pongWait * 9) / 10

	// A base64 image plus the JSON envelope.
	maxMessageSize = 16 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Analyzer is the relay operation served over the socket.
type Analyzer interface {
	AnalyzePayload(ctx context.Context, image, zodiac string) (entities.AnalysisResult, error)
}

// Hub tracks open analysis connections.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	analyzer Analyzer
	interval time.Duration
	logger   *zap.Logger
}

// NewHub creates a hub serving analyzer.
func NewHub(analyzer Analyzer, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		analyzer:   analyzer,
		interval:   flow.DefaultRotationInterval,
		logger:     logger,
	}
}

// WithProgressInterval overrides how often progress messages are sent.
func (h *Hub) WithProgressInterval(d time.Duration) *Hub {
	h.interval = d
	return h
}

// Run starts the hub's main loop. When ctx ends every open connection is
// closed and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, client := range h.clients {
			client.shutdown()
			delete(h.clients, id)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.shutdown()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// frame is one queued write: websocket.TextMessage or websocket.CloseMessage.
type frame struct {
	kind    int
	payload []byte
}

// Client is one analysis connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	send chan frame

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	analyzing bool

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and serves one analysis stream.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    hub,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan frame, 64),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(zap.String("requestID", c.Response().Header().Get(echo.HeaderXRequestID))),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump reads client messages until the connection ends.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.enqueue(NewErrorMessage(domain.Wrap(domain.ErrValidation, "read message", "only text frames are accepted", nil)))
			continue
		}
		c.processMessage(message)
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.kind, message.payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}
			if message.kind == websocket.CloseMessage {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processMessage(data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		c.logger.Warn("Rejected client message", zap.Error(err))
		c.enqueue(NewErrorMessage(err))
		return
	}

	switch m := msg.(type) {
	case AnalyzeMessage:
		c.mu.Lock()
		busy := c.analyzing
		c.analyzing = true
		c.mu.Unlock()
		if busy {
			c.enqueue(NewErrorMessage(domain.Wrap(domain.ErrValidation, "analyze", "an analysis is already running", nil)))
			return
		}
		go c.analyze(m)
	case BaseMessage:
		c.enqueue(PongMessage{BaseMessage: newBase(MessageTypePong)})
	}
}

// analyze runs one analysis, streaming progress until it settles, then sends
// the outcome and closes the connection.
func (c *Client) analyze(msg AnalyzeMessage) {
	progressCtx, stopProgress := context.WithCancel(c.ctx)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		flow.RunRotation(progressCtx, c.hub.interval, func(text string) {
			c.enqueue(NewProgressMessage(text))
		})
	}()

	result, err := c.hub.analyzer.AnalyzePayload(c.ctx, msg.Image, msg.Zodiac)
	stopProgress()
	<-progressDone

	if err != nil {
		c.logger.Warn("Streaming analysis failed",
			zap.String("kind", domain.Kind(err)),
			zap.Error(err))
		c.enqueue(NewErrorMessage(err))
	} else {
		c.enqueue(NewResultMessage(result))
	}
	c.enqueueRaw(frame{
		kind:    websocket.CloseMessage,
		payload: websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
	})
}

func (c *Client) enqueue(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueueRaw(frame{kind: websocket.TextMessage, payload: payload})
}

func (c *Client) enqueueRaw(data frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

// shutdown stops the client's work and closes its send channel once.
func (c *Client) shutdown() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
