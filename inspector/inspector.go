// Package inspector serves a live debug view of a running controller:
// Prometheus metrics, a websocket stream of per-agent behavior rows and the
// current heat map as a PNG.
package inspector

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/game"
	"github.com/pthm-cable/swarmmind/telemetry"
)

const (
	writeWait = time.Second
	sendQueue = 8
)

// Frame is one published view of the controller.
type Frame struct {
	SessionID string                        `json:"session_id"`
	Tick      int64                         `json:"tick"`
	NowMs     int64                         `json:"now_ms"`
	Profile   telemetry.ProfileState        `json:"profile"`
	Zones     []telemetry.ZoneState         `json:"zones"`
	Agents    []components.BehaviorSnapshot `json:"agents"`
}

// FrameFrom captures the controller's last tick.
func FrameFrom(c *game.Controller) Frame {
	last := c.Last()
	return Frame{
		SessionID: c.SessionID().String(),
		Tick:      last.Tick,
		NowMs:     last.Now,
		Profile:   telemetry.ProfileStateFrom(c.Profile()),
		Zones:     telemetry.ZoneStatesFrom(c.ActiveZones()),
		Agents:    last.Snapshots,
	}
}

// Inspector holds the latest published frame and fans it out to overlay
// subscribers. The runner publishes; HTTP handlers only read.
type Inspector struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*overlayClient
	frame   Frame
	encoded []byte
	heatmap image.Image
	logger  *slog.Logger
}

// overlayClient is one subscriber with its own outbound queue. Only its
// write loop touches the connection's writer.
type overlayClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewInspector creates an inspector with no frame published yet.
func NewInspector(logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{
		clients: make(map[*websocket.Conn]*overlayClient),
		logger:  logger,
	}
}

// Publish stores a frame and queues it for every subscriber. It never
// blocks on the network; a subscriber whose queue is full skips the frame.
func (ins *Inspector) Publish(f Frame, heatmap image.Image) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	ins.frame = f
	ins.encoded = data
	if heatmap != nil {
		ins.heatmap = heatmap
	}

	for _, cl := range ins.clients {
		select {
		case cl.send <- data:
		default:
			ins.logger.Debug("overlay frame skipped", "remote", cl.conn.RemoteAddr().String(), "tick", f.Tick)
		}
	}
	return nil
}

// Subscribers returns the number of connected overlay clients.
func (ins *Inspector) Subscribers() int {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return len(ins.clients)
}

// Agent returns the latest row for one agent.
func (ins *Inspector) Agent(id uint32) (components.BehaviorSnapshot, bool) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	for _, row := range ins.frame.Agents {
		if row.AgentID == id {
			return row, true
		}
	}
	return components.BehaviorSnapshot{}, false
}

// Heatmap returns the latest heat map image, or nil.
func (ins *Inspector) Heatmap() image.Image {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.heatmap
}

// subscribe registers a connection, queues the latest frame for it and
// starts its write loop.
func (ins *Inspector) subscribe(conn *websocket.Conn) {
	cl := &overlayClient{conn: conn, send: make(chan []byte, sendQueue)}

	ins.mu.Lock()
	if ins.encoded != nil {
		cl.send <- ins.encoded
	}
	ins.clients[conn] = cl
	ins.mu.Unlock()

	go ins.writeLoop(cl)
}

// writeLoop drains a client's queue until unsubscribe closes it or a write fails.
func (ins *Inspector) writeLoop(cl *overlayClient) {
	for data := range cl.send {
		if err := writeFrame(cl.conn, data); err != nil {
			ins.logger.Debug("overlay client dropped", "remote", cl.conn.RemoteAddr().String(), "error", err)
			ins.unsubscribe(cl.conn)
			return
		}
	}
}

func (ins *Inspector) unsubscribe(conn *websocket.Conn) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if cl, ok := ins.clients[conn]; ok {
		delete(ins.clients, conn)
		close(cl.send)
		conn.Close()
	}
}

// Close disconnects every subscriber.
func (ins *Inspector) Close() {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	for conn, cl := range ins.clients {
		delete(ins.clients, conn)
		close(cl.send)
		conn.Close()
	}
}

func writeFrame(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
