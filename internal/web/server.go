// Package web exposes the session over HTTP: JSON endpoints for editing
// bindings and playlists, and a websocket feed of resolved frame snapshots.
package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guidoenr/vizbind/internal/binding"
	"github.com/guidoenr/vizbind/internal/blend"
	"github.com/guidoenr/vizbind/internal/curve"
	"github.com/guidoenr/vizbind/internal/cycling"
	"github.com/guidoenr/vizbind/internal/engine"
	"github.com/guidoenr/vizbind/internal/envelope"
	"github.com/guidoenr/vizbind/internal/mapping"
	"github.com/guidoenr/vizbind/internal/project"
)

// Session is the slice of the running app the server talks to.
type Session interface {
	Registry() *binding.Registry
	Cycler() *cycling.Engine
	Engine() *engine.Engine
	Latest() engine.Snapshot
}

// Config configures the server.
type Config struct {
	Session     Session
	Log         *log.Logger
	ProjectPath string
}

type Server struct {
	session     Session
	log         *log.Logger
	projectPath string

	mu        sync.RWMutex
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "[web] ", log.LstdFlags)
	}
	s := &Server{
		session:     cfg.Session,
		log:         cfg.Log,
		projectPath: cfg.ProjectPath,
		clients:     make(map[*websocketClient]bool),
		broadcast:   make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/bindings", s.handleBindings)
	s.mux.HandleFunc("/api/bindings/update", s.handleBindingUpdate)
	s.mux.HandleFunc("/api/bindings/delete", s.handleBindingDelete)
	s.mux.HandleFunc("/api/bindings/test", s.handleBindingTest)
	s.mux.HandleFunc("/api/playlists", s.handlePlaylists)
	s.mux.HandleFunc("/api/playlists/assets", s.handlePlaylistAssets)
	s.mux.HandleFunc("/api/playlists/advance", s.handlePlaylistAdvance)
	s.mux.HandleFunc("/api/playlists/shuffle", s.handlePlaylistShuffle)
	s.mux.HandleFunc("/api/base", s.handleBaseValue)
	s.mux.HandleFunc("/api/features", s.handleFeatures)
	s.mux.HandleFunc("/api/project/save", s.handleProjectSave)
	s.mux.HandleFunc("/api/project/load", s.handleProjectLoad)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the route table, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the broadcast loops and blocks serving HTTP.
func (s *Server) Start(addr string) error {
	s.log.Printf("control server on http://%s", addr)
	go s.broadcastLoop()
	go s.snapshotLoop()
	return http.ListenAndServe(addr, s.mux)
}

// StatusResponse summarizes the session for the editor landing view.
type StatusResponse struct {
	Time         float64 `json:"time"`
	BindingCount int     `json:"bindingCount"`
	LayerCount   int     `json:"layerCount"`
	StaleCount   int     `json:"staleCount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Latest()
	writeJSON(w, StatusResponse{
		Time:         snap.Time,
		BindingCount: s.session.Registry().Count(),
		LayerCount:   len(s.session.Registry().LayerIDs()),
		StaleCount:   len(snap.Stale),
	})
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.session.Registry().All())
	case http.MethodPost:
		var b binding.Binding
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.session.Registry().Register(b); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeOK(w)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// BindingUpdate is a partial update: only non-nil fields are applied.
type BindingUpdate struct {
	ID       string           `json:"id"`
	Enabled  *bool            `json:"enabled,omitempty"`
	Weight   *float64         `json:"weight,omitempty"`
	Blend    *blend.Mode      `json:"blendMode,omitempty"`
	Mapping  *mapping.Mapping `json:"mapping,omitempty"`
	Curve    *curve.Curve     `json:"curve,omitempty"`
	Envelope *envelope.Config `json:"envelope,omitempty"`
}

func (s *Server) handleBindingUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req BindingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, ok := s.session.Registry().Get(req.ID)
	if !ok {
		http.Error(w, fmt.Sprintf("binding %s not found", req.ID), http.StatusNotFound)
		return
	}
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}
	if req.Weight != nil {
		b.Weight = *req.Weight
	}
	if req.Blend != nil {
		b.Blend = *req.Blend
	}
	if req.Mapping != nil {
		b.Mapping = *req.Mapping
	}
	if req.Curve != nil {
		b.Curve = *req.Curve
	}
	if req.Envelope != nil {
		b.Envelope = *req.Envelope
	}
	if err := s.session.Registry().Update(b); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeOK(w)
}

func (s *Server) handleBindingDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID      string `json:"id,omitempty"`
		LayerID string `json:"layerId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch {
	case req.ID != "":
		if !s.session.Registry().Unregister(req.ID) {
			http.Error(w, fmt.Sprintf("binding %s not found", req.ID), http.StatusNotFound)
			return
		}
	case req.LayerID != "":
		s.session.Registry().RemoveLayer(req.LayerID)
		s.session.Cycler().RemoveLayer(req.LayerID)
	default:
		http.Error(w, "id or layerId required", http.StatusBadRequest)
		return
	}
	writeOK(w)
}

func (s *Server) handleBindingTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Binding binding.Binding `json:"binding"`
		Probe   float64         `json:"probe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	value, err := s.session.Engine().TestBinding(req.Binding, req.Probe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]float64{"value": value})
}

// PlaylistView pairs a playlist with its live cycling stats.
type PlaylistView struct {
	Playlist cycling.Playlist `json:"playlist"`
	Stats    cycling.Stats    `json:"stats"`
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	cycler := s.session.Cycler()
	switch r.Method {
	case http.MethodGet:
		var out []PlaylistView
		for _, layerID := range cycler.LayerIDs() {
			playlist, ok := cycler.Playlist(layerID)
			if !ok {
				continue
			}
			stats, _ := cycler.LayerStats(layerID)
			out = append(out, PlaylistView{Playlist: playlist, Stats: stats})
		}
		writeJSON(w, out)
	case http.MethodPost:
		var p cycling.Playlist
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := cycler.SetPlaylist(p); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeOK(w)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// AssetRequest edits one playlist in place. Exactly one of Add, Remove or Move
// should be set.
type AssetRequest struct {
	LayerID string `json:"layerId"`
	Add     *struct {
		AssetID  string `json:"assetId"`
		Position int    `json:"position"`
	} `json:"add,omitempty"`
	Remove *struct {
		AssetID string `json:"assetId"`
	} `json:"remove,omitempty"`
	Move *struct {
		FromIndex int `json:"fromIndex"`
		ToIndex   int `json:"toIndex"`
	} `json:"move,omitempty"`
}

func (s *Server) handlePlaylistAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cycler := s.session.Cycler()
	var ok bool
	switch {
	case req.Add != nil:
		ok = cycler.AddAsset(req.LayerID, req.Add.AssetID, req.Add.Position)
	case req.Remove != nil:
		ok = cycler.RemoveAsset(req.LayerID, req.Remove.AssetID)
	case req.Move != nil:
		ok = cycler.MoveAsset(req.LayerID, req.Move.FromIndex, req.Move.ToIndex)
	default:
		http.Error(w, "add, remove or move required", http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, fmt.Sprintf("no playlist for layer %s", req.LayerID), http.StatusNotFound)
		return
	}
	writeOK(w)
}

func (s *Server) handlePlaylistAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		LayerID  string  `json:"layerId"`
		Velocity float64 `json:"velocity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	asset, ok := s.session.Cycler().Next(req.LayerID, req.Velocity)
	if !ok {
		http.Error(w, fmt.Sprintf("no playlist for layer %s", req.LayerID), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"assetId": asset})
}

func (s *Server) handlePlaylistShuffle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		LayerID string `json:"layerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.session.Cycler().Shuffle(req.LayerID) {
		http.Error(w, fmt.Sprintf("no playlist for layer %s", req.LayerID), http.StatusNotFound)
		return
	}
	writeOK(w)
}

func (s *Server) handleBaseValue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		LayerID  string  `json:"layerId"`
		Property string  `json:"property"`
		Value    float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.LayerID == "" || req.Property == "" {
		http.Error(w, "layerId and property required", http.StatusBadRequest)
		return
	}
	s.session.Engine().SetBaseValue(req.LayerID, req.Property, req.Value)
	writeOK(w)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		FeatureID   string   `json:"featureId"`
		Decay       *float64 `json:"decay,omitempty"`
		Sensitivity *float64 `json:"sensitivity,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FeatureID == "" {
		http.Error(w, "featureId required", http.StatusBadRequest)
		return
	}
	if req.Decay != nil {
		s.session.Engine().SetFeatureDecay(req.FeatureID, *req.Decay)
	}
	if req.Sensitivity != nil {
		s.session.Engine().SetFeatureSensitivity(req.FeatureID, *req.Sensitivity)
	}
	writeOK(w)
}

func (s *Server) handleProjectSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := s.projectPathOr(r)
	p := project.Snapshot(s.session.Registry(), s.session.Cycler(), s.session.Engine())
	if err := project.Save(path, p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "path": path})
}

func (s *Server) handleProjectLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := s.projectPathOr(r)
	p, err := project.Load(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	failed := project.Apply(p, s.session.Registry(), s.session.Cycler(), s.session.Engine())
	resp := map[string]any{"status": "loaded", "path": path}
	if len(failed) > 0 {
		msgs := make([]string, len(failed))
		for i, err := range failed {
			msgs[i] = err.Error()
		}
		resp["skipped"] = msgs
	}
	writeJSON(w, resp)
}

func (s *Server) projectPathOr(r *http.Request) string {
	if p := r.URL.Query().Get("path"); p != "" {
		return p
	}
	return s.projectPath
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) broadcastLoop() {
	for message := range s.broadcast {
		s.mu.Lock()
		for client := range s.clients {
			select {
			case client.send <- message:
			default:
				close(client.send)
				delete(s.clients, client)
			}
		}
		s.mu.Unlock()
	}
}

// snapshotLoop pushes the latest resolved frame to connected editors. The feed
// is a monitor, not the render path, so 20 Hz is plenty.
func (s *Server) snapshotLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		empty := len(s.clients) == 0
		s.mu.RUnlock()
		if empty {
			continue
		}

		data, err := json.Marshal(s.session.Latest())
		if err != nil {
			continue
		}
		select {
		case s.broadcast <- data:
		default:
			// drop if channel full
		}
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.mu.Lock()
		delete(c.server.clients, c)
		c.server.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
