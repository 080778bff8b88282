package main

import (
	"bufio"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gugray/hanzilookup"
	"github.com/gugray/hanzilookup/internal/auth"
	"github.com/gugray/hanzilookup/internal/config"
	"github.com/gugray/hanzilookup/internal/db"
	"github.com/gugray/hanzilookup/internal/httpapi"
	"github.com/gugray/hanzilookup/internal/lookupcache"
	"github.com/gugray/hanzilookup/internal/ws"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

func main() {
	var configPath = flag.String("config", getEnv("CONFIG_PATH", ""), "path to an optional TOML config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		addr = flag.String("addr", getEnv("ADDR", cfg.Addr), "http service address")
		staticDir = flag.String("static", getEnv("STATIC_DIR", cfg.StaticDir), "directory to serve static files from (optional)")
		dbPath = flag.String("db", getEnv("DB_PATH", cfg.DBPath), "sqlite dsn or file path")
		cookieKey = flag.String("cookie", getEnv("COOKIE_KEY", cfg.CookieKey), "cookie auth key")
		refDBPath = flag.String("refdb", getEnv("REFDB_PATH", cfg.RefDBPath), "path to the reference character database (mmah.bin)")
		lookupCacheSize = flag.Int("lookup_cache_size", cfg.LookupCacheSize, "number of recent recognize results to memoize")
	)
	flag.Parse()

	store, err := db.Open(*dbPath)
	if err != nil { log.Fatalf("open db: %v", err) }

	sessionStore := sessions.NewCookieStore([]byte(*cookieKey))
	sessionStore.Options = &sessions.Options{ Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode }
	authSvc := &auth.Service{ Store: store, Sessions: sessionStore }

	engine := hanzilookup.NewEngine(*refDBPath)
	if err := engine.Preload(); err != nil {
		log.Printf("Warning: failed to load reference database %q: %v", *refDBPath, err)
		log.Printf("Recognition is unavailable until a valid database is configured")
		engine = nil
	} else {
		if _, err := store.RecordReferenceDBLoad(*refDBPath, engine.CharacterCount()); err != nil {
			log.Printf("Warning: failed to record reference database load: %v", err)
		}
	}

	var cache *lookupcache.Cache
	if *lookupCacheSize > 0 {
		cache, err = lookupcache.New(*lookupCacheSize)
		if err != nil { log.Fatalf("init lookup cache: %v", err) }
	}

	api := &httpapi.API{ Auth: authSvc, Store: store, Engine: engine, Cache: cache }
	ws.Init(store, authSvc, engine, cache)

	r := mux.NewRouter()

	// Auth endpoints
	r.HandleFunc("/api/register", authSvc.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", authSvc.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", authSvc.Logout).Methods(http.MethodPost)
	r.HandleFunc("/api/me", authSvc.Me).Methods(http.MethodGet)

	// Strokes endpoints
	r.Handle("/api/strokes", authSvc.RequireAuth(http.HandlerFunc(api.ListStrokes))).Methods(http.MethodGet)
	r.Handle("/api/strokes/clear", authSvc.RequireAuth(http.HandlerFunc(api.ClearStrokes))).Methods(http.MethodPost)
	r.Handle("/api/strokes/delete", authSvc.RequireAuth(http.HandlerFunc(api.DeleteStroke))).Methods(http.MethodPost)
	// Recognize
	r.Handle("/api/recognize", authSvc.RequireAuth(http.HandlerFunc(api.Recognize))).Methods(http.MethodPost)
	r.Handle("/api/strokes/preview.png", authSvc.RequireAuth(http.HandlerFunc(api.StrokesPreview))).Methods(http.MethodGet)
	r.Handle("/api/status", authSvc.RequireAuth(http.HandlerFunc(api.Status))).Methods(http.MethodGet)

	// WebSocket endpoint (auth required)
	r.Handle("/ws", authSvc.RequireAuth(http.HandlerFunc(ws.Handle)))

	// Health check
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Optionally serve static files (built frontend)
	if *staticDir != "" {
		fs := http.FileServer(http.Dir(*staticDir))
		r.PathPrefix("/").Handler(fs)
	}

	// Compose middlewares: CORS -> Router, then logging wrapper
	handler := withCORS(r)
	logged := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: 200}
		handler.ServeHTTP(rw, req)
		log.Printf("%s %s %d %v", req.Method, req.URL.Path, rw.status, time.Since(start))
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

// Implement http.Hijacker passthrough so WebSocket upgrades work through the wrapper
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
