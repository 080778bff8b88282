package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gugray/hanzilookup"
	"github.com/gugray/hanzilookup/internal/auth"
	"github.com/gugray/hanzilookup/internal/db"
	"github.com/gugray/hanzilookup/internal/lookupcache"
	"github.com/gugray/hanzilookup/internal/preview"
)

type API struct {
	Auth   *auth.Service
	Store  *db.Store
	Engine *hanzilookup.Engine // nil if the reference database failed to load
	Cache  *lookupcache.Cache  // optional; nil disables memoization
}

type StrokePoint struct { X float64 `json:"x"`; Y float64 `json:"y"` }

type Stroke struct {
	ID int64 `json:"id"`
	Points []StrokePoint `json:"points"`
	Color string `json:"color"`
	Width int `json:"width"`
	ClientID string `json:"clientId"`
	StartedAtUnixMs int64 `json:"startedAtUnixMs"`
}

type RecognizeRequest struct {
	Limit  int `json:"limit"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Candidate struct {
	Hanzi string  `json:"hanzi"`
	Score float32 `json:"score"`
}

type RecognizeResponse struct {
	Candidates []Candidate `json:"candidates"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) ListStrokes(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.Auth.UserIDFromRequest(r)
	if !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }
	rows, err := a.Store.ListStrokesByUser(uid)
	if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
	out := make([]Stroke, 0, len(rows))
	for _, s := range rows {
		pts := make([]StrokePoint, 0, len(s.Points))
		for _, p := range s.Points { pts = append(pts, StrokePoint{X:p.X, Y:p.Y}) }
		out = append(out, Stroke{ID: s.ID, Points: pts, Color: s.Color, Width: s.Width, ClientID: "", StartedAtUnixMs: s.StartedAtUnixMs})
	}
	writeJSON(w, 200, out)
}

func (a *API) ClearStrokes(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.Auth.UserIDFromRequest(r)
	if !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }
	if err := a.Store.ClearStrokesByUser(uid); err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
	writeJSON(w, 200, map[string]string{"ok":"true"})
}

func (a *API) DeleteStroke(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.Auth.UserIDFromRequest(r)
	if !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }
	idStr := r.URL.Query().Get("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 { writeJSON(w, 400, map[string]string{"error":"bad id"}); return }
	if err := a.Store.DeleteStroke(uid, id); err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
	writeJSON(w, 200, map[string]any{"ok": true, "id": id})
}

// toUint8Canvas maps a board's float64 stroke points (arbitrary client
// canvas coordinates) into the engine's [0,255] Point space, scaled by
// the request's declared canvas width/height.
func toUint8Canvas(points []db.StrokePoint, width, height int) []hanzilookup.Point {
	if width <= 0 { width = 1 }
	if height <= 0 { height = 1 }
	out := make([]hanzilookup.Point, len(points))
	for i, p := range points {
		x := p.X / float64(width) * 255.0
		y := p.Y / float64(height) * 255.0
		out[i] = hanzilookup.Point{X: clampU8(x), Y: clampU8(y)}
	}
	return out
}

func clampU8(v float64) uint8 {
	if v < 0 { return 0 }
	if v > 255 { return 255 }
	return uint8(v)
}

func (a *API) Recognize(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.Auth.UserIDFromRequest(r)
	if !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }
	if a.Engine == nil { writeJSON(w, 503, map[string]string{"error":"recognition engine unavailable"}); return }

	var req RecognizeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	limit := req.Limit
	if limit <= 0 { limit = 5 }

	dbStrokes, err := a.Store.ListStrokesByUser(uid)
	if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }

	strokes := make([]hanzilookup.Stroke, 0, len(dbStrokes))
	for _, s := range dbStrokes {
		strokes = append(strokes, hanzilookup.Stroke{Points: toUint8Canvas(s.Points, req.Width, req.Height)})
	}

	start := time.Now()
	var matches []hanzilookup.Match
	if a.Cache != nil {
		if cached, hit := a.Cache.Get(strokes, limit); hit {
			matches = cached
		}
	}
	if matches == nil {
		matches, err = a.Engine.MatchTyped(strokes, limit)
		if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
		if a.Cache != nil { a.Cache.Put(strokes, limit, matches) }
	}
	latency := time.Since(start)

	var topHanzi string
	var topScore float64
	if len(matches) > 0 {
		topHanzi = string(matches[0].Hanzi)
		topScore = float64(matches[0].Score)
	}
	_ = a.Store.LogRecognition(&uid, len(strokes), topHanzi, topScore, latency.Milliseconds())

	cands := make([]Candidate, len(matches))
	for i, m := range matches {
		cands[i] = Candidate{Hanzi: string(m.Hanzi), Score: m.Score}
	}
	writeJSON(w, 200, RecognizeResponse{ Candidates: cands })
}

type StatusResponse struct {
	ReferenceDB        *db.ReferenceDB        `json:"referenceDb"`
	RecentRecognitions []db.RecognitionLogEntry `json:"recentRecognitions"`
}

// Status reports the currently loaded reference database and a recent
// slice of the recognition audit log, giving an operator somewhere to
// look besides the sqlite file directly.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.Auth.UserIDFromRequest(r); !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }
	refDB, err := a.Store.LatestReferenceDBLoad()
	if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
	recent, err := a.Store.RecentRecognitions(20)
	if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }
	writeJSON(w, 200, StatusResponse{ReferenceDB: refDB, RecentRecognitions: recent})
}

// StrokesPreview renders the caller's current board as a PNG debug
// bitmap, replacing the teacher's fmt.Printf ASCII-art dump.
func (a *API) StrokesPreview(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.Auth.UserIDFromRequest(r)
	if !ok { writeJSON(w, 401, map[string]string{"error":"unauthorized"}); return }

	dbStrokes, err := a.Store.ListStrokesByUser(uid)
	if err != nil { writeJSON(w, 500, map[string]string{"error":err.Error()}); return }

	width, height := 256, 256
	if v, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil && v > 0 { width = v }
	if v, err := strconv.Atoi(r.URL.Query().Get("h")); err == nil && v > 0 { height = v }

	strokes := make([]preview.Stroke, 0, len(dbStrokes))
	for _, s := range dbStrokes {
		pts := toUint8Canvas(s.Points, width, height)
		ps := make([]preview.Point, len(pts))
		for i, p := range pts { ps[i] = preview.Point{X: p.X, Y: p.Y} }
		strokes = append(strokes, preview.Stroke{Points: ps})
	}

	w.Header().Set("Content-Type", "image/png")
	if err := preview.WriteTo(w, strokes, width, height); err != nil {
		writeJSON(w, 500, map[string]string{"error": err.Error()})
	}
}
