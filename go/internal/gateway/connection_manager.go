package gateway

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/broadcast"
)

// ConnectionManager upgrades listener requests to WebSocket connections and
// keeps track of the ones still open.
type ConnectionManager struct {
	conns map[*Connection]struct{}
	mu    sync.Mutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// Connection is one WebSocket listener. It satisfies io.WriteCloser so it can
// be registered as a broadcaster sink: every frame becomes one text message.
type Connection struct {
	ID          string
	Override    string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	manager *ConnectionManager

	// writeMu serialises frames and pings; gorilla allows one writer at a time.
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and starts its
// read and ping pumps. On failure the upgrader has already replied to the client.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, override string) (*Connection, error) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Override:    override,
		Conn:        ws,
		ConnectedAt: time.Now(),
		manager:     cm,
		done:        make(chan struct{}),
	}
	cm.register(c)

	c.wg.Add(2)
	go c.readPump()
	go c.pingPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("override", override).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket listener connected")

	return c, nil
}

func (cm *ConnectionManager) register(c *Connection) {
	cm.mu.Lock()
	cm.conns[c] = struct{}{}
	total := len(cm.conns)
	cm.mu.Unlock()

	log.Debug().Str("connection_id", c.ID).Int("total_connections", total).Msg("connection registered")
}

func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	delete(cm.conns, c)
	cm.mu.Unlock()
}

// Count returns the number of open connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.conns)
}

// CloseAll closes every open connection and waits for their pumps to exit.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	conns := make([]*Connection, 0, len(cm.conns))
	for c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
		c.wg.Wait()
	}
}

// Write sends one frame as a text message, dropping the frame terminator.
func (c *Connection) Write(p []byte) (int, error) {
	msg := bytes.TrimSuffix(p, []byte{broadcast.FrameTerminator})

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return 0, websocket.ErrCloseSent
	default:
	}

	_ = c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
	if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.manager.unregister(c)

		c.writeMu.Lock()
		_ = c.Conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.Conn.Close()
		log.Info().Str("connection_id", c.ID).Msg("websocket listener disconnected")
	})
	return err
}

// readPump discards client messages. A read error closes the connection so
// the next frame fails and the broadcaster drops the sink.
func (c *Connection) readPump() {
	defer c.wg.Done()
	defer c.Close()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.PongTimeout))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.PongTimeout))
	}
}

func (c *Connection) pingPump() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				_ = c.Close()
				return
			}
		}
	}
}
