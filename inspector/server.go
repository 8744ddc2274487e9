package inspector

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/pthm-cable/swarmmind/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewRouter builds the inspector routes. metrics may be nil.
func NewRouter(ins *Inspector, metrics *telemetry.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/overlay", ins.handleOverlay)
	r.Get("/heatmap.png", ins.handleHeatmap)
	r.Get("/agents/{id}", ins.handleAgent)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// handleOverlay upgrades to a websocket and streams frames until the client leaves.
func (ins *Inspector) handleOverlay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ins.logger.Warn("overlay upgrade failed", "error", err)
		return
	}
	ins.subscribe(conn)
	ins.logger.Debug("overlay client connected", "remote", r.RemoteAddr)

	// Overlay is push-only; reads just detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	ins.unsubscribe(conn)
}

func (ins *Inspector) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	img := ins.Heatmap()
	if img == nil {
		http.Error(w, "no heatmap published", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := telemetry.EncodeHeatmapPNG(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (ins *Inspector) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	row, ok := ins.Agent(uint32(id))
	if !ok {
		http.Error(w, "agent not in last frame", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(row)
}
