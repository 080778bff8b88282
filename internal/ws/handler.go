package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gugray/hanzilookup"
	"github.com/gugray/hanzilookup/internal/auth"
	"github.com/gugray/hanzilookup/internal/db"
	"github.com/gugray/hanzilookup/internal/lookupcache"
	"github.com/gorilla/websocket"
)

// defaultCanvasDimension is the client canvas size assumed when a
// "stroke" message doesn't declare CanvasWidth/CanvasHeight.
const defaultCanvasDimension = 800

// recognizeLimit bounds how many candidates a live, stroke-by-stroke
// recognize push carries; the UI only ever shows its first few anyway.
const recognizeLimit = 5

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	ID              int64   `json:"id"`
	Points          []Point `json:"points"`
	Color           string  `json:"color"`
	Width           int     `json:"width"`
	ClientID        string  `json:"clientId"`
	StartedAtUnixMs int64   `json:"startedAtUnixMs"`
}

// Candidate is the wire shape of one recognize result, mirroring
// httpapi.Candidate for clients that consume both the REST and the
// WebSocket surface.
type Candidate struct {
	Hanzi string  `json:"hanzi"`
	Score float32 `json:"score"`
}

type message struct {
	Type   string  `json:"type"`
	Stroke *Stroke `json:"stroke"`
	Delete *int64  `json:"delete"` // stroke id to delete

	// CanvasWidth/CanvasHeight accompany "stroke" messages so the pushed
	// "recognize" event can map client pixel coordinates into the
	// engine's canonical [0,255] Point space; zero defaults to
	// defaultCanvasDimension.
	CanvasWidth  int `json:"canvasWidth,omitempty"`
	CanvasHeight int `json:"canvasHeight,omitempty"`

	// UserID/Candidates are only set on outgoing "recognize" messages.
	UserID     int64       `json:"userId,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	Store   *db.Store
	Auth    *auth.Service
	Engine  *hanzilookup.Engine // nil disables live recognize pushes
	Cache   *lookupcache.Cache  // optional; nil disables memoization
}

func NewHub(store *db.Store, authSvc *auth.Service, engine *hanzilookup.Engine, cache *lookupcache.Cache) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{}), Store: store, Auth: authSvc, Engine: engine, Cache: cache}
}

func (h *Hub) add(c *websocket.Conn)    { h.mu.Lock(); h.clients[c] = struct{}{}; h.mu.Unlock() }
func (h *Hub) remove(c *websocket.Conn) { h.mu.Lock(); delete(h.clients, c); h.mu.Unlock() }

func (h *Hub) broadcast(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil { return }
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			if !isBenignNetErr(err) {
				log.Printf("ws write error: %v", err)
			}
			c.Close()
			delete(h.clients, c)
		}
	}
}

var globalHub *Hub

func Init(store *db.Store, authSvc *auth.Service, engine *hanzilookup.Engine, cache *lookupcache.Cache) {
	globalHub = NewHub(store, authSvc, engine, cache)
}

func Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	log.Printf("ws connected: %s", r.RemoteAddr)
	globalHub.add(conn)
	defer func() {
		globalHub.remove(conn)
		conn.Close()
		log.Printf("ws disconnected: %s", r.RemoteAddr)
	}()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	conn.SetCloseHandler(func(code int, text string) error {
		select { case <-done: default: close(done) }
		return nil
	})

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					if !isBenignNetErr(err) {
						log.Printf("ws ping write error: %v", err)
					}
					_ = conn.Close()
					select { case <-done: default: close(done) }
					return
				}
			}
		}
	}()

	for {
		t, data, err := conn.ReadMessage()
		if err != nil {
			if !isBenignNetErr(err) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ws read: %v", err)
			}
			select { case <-done: default: close(done) }
			return
		}
		if t != websocket.TextMessage { continue }

		var m message
		if err := json.Unmarshal(data, &m); err != nil { log.Printf("ws bad json: %v", err); continue }

		switch m.Type {
		case "stroke":
			if m.Stroke == nil { continue }
			if m.Stroke.StartedAtUnixMs == 0 { m.Stroke.StartedAtUnixMs = time.Now().UnixMilli() }
			uid, ok := globalHub.Auth.UserIDFromRequest(r)
			if ok {
				pts := make([]db.StrokePoint, 0, len(m.Stroke.Points))
				for _, p := range m.Stroke.Points { pts = append(pts, db.StrokePoint{X:p.X, Y:p.Y}) }
				id, err := globalHub.Store.SaveStroke(uid, m.Stroke.Color, m.Stroke.Width, m.Stroke.StartedAtUnixMs, pts)
				if err != nil { log.Printf("save stroke: %v", err) } else { m.Stroke.ID = id }
			}
			globalHub.broadcast(m)
			if ok {
				globalHub.pushRecognition(uid, m.CanvasWidth, m.CanvasHeight)
			}
		case "delete":
			if m.Delete == nil { continue }
			uid, ok := globalHub.Auth.UserIDFromRequest(r)
			if ok { if err := globalHub.Store.DeleteStroke(uid, *m.Delete); err != nil { log.Printf("delete stroke: %v", err) } }
			globalHub.broadcast(m)
		}
	}
}

// pushRecognition re-scores the user's current board against the
// reference database and broadcasts the result as a "recognize"
// message, giving every connected client the same stroke-by-stroke
// prediction an input method would show (spec.md §1). A nil Engine
// (no reference database loaded) or a transient lookup error is
// logged and skipped rather than propagated: recognition is a
// best-effort enrichment of the stroke feed, never a condition for it.
func (h *Hub) pushRecognition(uid int64, canvasWidth, canvasHeight int) {
	if h.Engine == nil {
		return
	}
	dbStrokes, err := h.Store.ListStrokesByUser(uid)
	if err != nil {
		log.Printf("ws recognize: list strokes: %v", err)
		return
	}
	strokes := toEngineStrokes(dbStrokes, canvasWidth, canvasHeight)
	if len(strokes) == 0 {
		return
	}

	var matches []hanzilookup.Match
	if h.Cache != nil {
		if cached, hit := h.Cache.Get(strokes, recognizeLimit); hit {
			matches = cached
		}
	}
	if matches == nil {
		matches, err = h.Engine.MatchTyped(strokes, recognizeLimit)
		if err != nil {
			log.Printf("ws recognize: match: %v", err)
			return
		}
		if h.Cache != nil {
			h.Cache.Put(strokes, recognizeLimit, matches)
		}
	}

	cands := make([]Candidate, len(matches))
	for i, c := range matches {
		cands[i] = Candidate{Hanzi: string(c.Hanzi), Score: c.Score}
	}
	h.broadcast(message{Type: "recognize", UserID: uid, Candidates: cands})
}

// toEngineStrokes maps a board's float64 stroke points (arbitrary
// client canvas coordinates) into the engine's [0,255] Point space,
// scaled by the declared canvas width/height.
func toEngineStrokes(strokes []db.Stroke, canvasWidth, canvasHeight int) []hanzilookup.Stroke {
	if canvasWidth <= 0 { canvasWidth = defaultCanvasDimension }
	if canvasHeight <= 0 { canvasHeight = defaultCanvasDimension }
	out := make([]hanzilookup.Stroke, len(strokes))
	for i, s := range strokes {
		pts := make([]hanzilookup.Point, len(s.Points))
		for j, p := range s.Points {
			pts[j] = hanzilookup.Point{
				X: clampU8(p.X / float64(canvasWidth) * 255.0),
				Y: clampU8(p.Y / float64(canvasHeight) * 255.0),
			}
		}
		out[i] = hanzilookup.Stroke{Points: pts}
	}
	return out
}

func clampU8(v float64) uint8 {
	if v < 0 { return 0 }
	if v > 255 { return 255 }
	return uint8(v)
}

func isBenignNetErr(err error) bool {
	if err == nil { return false }
	var ne *net.OpError
	if errors.As(err, &ne) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
