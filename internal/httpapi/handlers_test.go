package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gugray/hanzilookup/internal/auth"
	"github.com/gugray/hanzilookup/internal/db"
	"github.com/gorilla/sessions"
)

func TestNewAPI(t *testing.T) {
	authService := &auth.Service{}
	store := &db.Store{}

	api := &API{
		Auth:  authService,
		Store: store,
	}

	if api.Auth != authService {
		t.Fatal("Auth should be set correctly")
	}
	if api.Store != store {
		t.Fatal("Store should be set correctly")
	}
	if api.Engine != nil {
		t.Fatal("Engine should default to nil when not set")
	}
	if api.Cache != nil {
		t.Fatal("Cache should default to nil when not set")
	}
}

func TestToUint8Canvas_ScalesAndClamps(t *testing.T) {
	points := []db.StrokePoint{
		{X: 0, Y: 0},
		{X: 128, Y: 256},
		{X: -10, Y: 9999},
	}
	out := toUint8Canvas(points, 256, 256)
	if out[0].X != 0 || out[0].Y != 0 {
		t.Fatalf("origin mapped to %+v, want {0 0}", out[0])
	}
	if out[1].X != 127 || out[1].Y != 255 {
		t.Fatalf("(128,256) mapped to %+v, want {127 255}", out[1])
	}
	if out[2].X != 0 || out[2].Y != 255 {
		t.Fatalf("(-10,9999) mapped to %+v, want clamped to {0 255}", out[2])
	}
}

func TestToUint8Canvas_ZeroDimensionsDoNotPanic(t *testing.T) {
	out := toUint8Canvas([]db.StrokePoint{{X: 5, Y: 5}}, 0, 0)
	if len(out) != 1 {
		t.Fatalf("expected one point, got %d", len(out))
	}
}

func TestClampU8(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-1, 0}, {0, 0}, {127.6, 127}, {255, 255}, {300, 255},
	}
	for _, c := range cases {
		if got := clampU8(c.in); got != c.want {
			t.Errorf("clampU8(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.SQL.Close() })
	return store
}

// registerAndLogin creates a fresh user through the real auth service and
// returns the session cookie it issues, the same way a browser client
// would authenticate before calling the board endpoints.
func registerAndLogin(t *testing.T, authSvc *auth.Service) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"email":"u@example.com","password":"correct-horse"}`))
	rec := httptest.NewRecorder()
	authSvc.Register(rec, req)
	if rec.Code != 200 {
		t.Fatalf("register: got status %d, body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("register did not set a session cookie")
	return nil
}

func newAuthedAPI(t *testing.T) (*API, *http.Cookie) {
	t.Helper()
	store := newTestStore(t)
	authSvc := &auth.Service{Store: store, Sessions: sessions.NewCookieStore([]byte("test-secret-key-thirty-two-bytes"))}
	cookie := registerAndLogin(t, authSvc)
	return &API{Auth: authSvc, Store: store}, cookie
}

func TestListStrokes_Unauthorized(t *testing.T) {
	api, _ := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strokes", nil)
	rec := httptest.NewRecorder()
	api.ListStrokes(rec, req)
	if rec.Code != 401 {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestListStrokes_AuthorizedEmptyBoard(t *testing.T) {
	api, cookie := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strokes", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.ListStrokes(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("got body %q, want empty array", rec.Body.String())
	}
}

func TestRecognize_EngineNilServesUnavailable(t *testing.T) {
	api, cookie := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/recognize", strings.NewReader(`{"limit":5}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.Recognize(rec, req)
	if rec.Code != 503 {
		t.Fatalf("got status %d, want 503 with no engine configured", rec.Code)
	}
}

func TestRecognize_Unauthorized(t *testing.T) {
	api, _ := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/recognize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	api.Recognize(rec, req)
	if rec.Code != 401 {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestStrokesPreview_Unauthorized(t *testing.T) {
	api, _ := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strokes/preview.png", nil)
	rec := httptest.NewRecorder()
	api.StrokesPreview(rec, req)
	if rec.Code != 401 {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestStrokesPreview_AuthorizedEmptyBoardRendersPNG(t *testing.T) {
	api, cookie := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strokes/preview.png?w=32&h=32", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.StrokesPreview(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty PNG body")
	}
}

func TestStatus_Unauthorized(t *testing.T) {
	api, _ := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	api.Status(rec, req)
	if rec.Code != 401 {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestStatus_AuthorizedReportsNoReferenceDBYet(t *testing.T) {
	api, cookie := newAuthedAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.Status(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var got StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal status response: %v", err)
	}
	if got.ReferenceDB != nil {
		t.Fatalf("got ReferenceDB %+v, want nil (none recorded yet)", got.ReferenceDB)
	}
	if len(got.RecentRecognitions) != 0 {
		t.Fatalf("got %d recognitions, want 0", len(got.RecentRecognitions))
	}
}

func TestStatus_AuthorizedReportsRecordedReferenceDB(t *testing.T) {
	api, cookie := newAuthedAPI(t)
	if _, err := api.Store.RecordReferenceDBLoad("/data/mmah.bin", 9000); err != nil {
		t.Fatalf("RecordReferenceDBLoad: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.Status(rec, req)
	if rec.Code != 200 {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var got StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal status response: %v", err)
	}
	if got.ReferenceDB == nil || got.ReferenceDB.Path != "/data/mmah.bin" || got.ReferenceDB.CharacterCount != 9000 {
		t.Fatalf("got ReferenceDB %+v, want path /data/mmah.bin, count 9000", got.ReferenceDB)
	}
}
