// Package server exposes the watermark codec over an HTTP JSON API:
// apply, detect, and strip, plus a health endpoint. Configuration is
// hot-reloadable via the fsnotify Reloader.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// Config holds HTTP server configuration.
type Config struct {
	Port       int
	ConfigPath string
}

// Server serves the watermark API. The Watermarker is owned by the Server
// and swapped atomically on reload; handlers take a snapshot under RLock,
// so in-flight requests always see one consistent configuration.
type Server struct {
	cfg        Config
	mu         sync.RWMutex
	wm         *watermark.Watermarker
	configHash string
	srv        *http.Server
}

// New creates a Server with the watermark config loaded from cfg.ConfigPath
// (defaults when the file is absent).
func New(cfg Config) (*Server, error) {
	wmCfg, hash, err := watermark.LoadConfigWithHash(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark config: %w", err)
	}
	wm, err := watermark.New(wmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermarker: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		wm:         wm,
		configHash: hash,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/apply", s.handleApply)
	mux.HandleFunc("/api/v1/detect", s.handleDetect)
	mux.HandleFunc("/api/v1/strip", s.handleStrip)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s, nil
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler returns the route mux. For testing with httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ReloadConfig atomically swaps the watermarker from the config file.
// Called by the hot-reloader on file change.
func (s *Server) ReloadConfig() error {
	wmCfg, hash, err := watermark.LoadConfigWithHash(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to reload watermark config: %w", err)
	}
	wm, err := watermark.New(wmCfg)
	if err != nil {
		return fmt.Errorf("failed to rebuild watermarker: %w", err)
	}

	s.mu.Lock()
	s.wm = wm
	s.configHash = hash
	s.mu.Unlock()
	return nil
}

// ConfigHash reports the hash of the active config file, for status output.
func (s *Server) ConfigHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configHash
}

func (s *Server) watermarker() *watermark.Watermarker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wm
}

// --- Request/response bodies ---

type textRequest struct {
	Text string `json:"text"`
}

type applyResponse struct {
	WatermarkedText string `json:"watermarked_text"`
	TagCount        int    `json:"tag_count"`
}

type stripResponse struct {
	CleanText string `json:"clean_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "veilmark"})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	req, ok := readTextRequest(w, r)
	if !ok {
		return
	}
	// Blank input is a caller error at this boundary; the core itself
	// would degrade gracefully.
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text must not be empty"})
		return
	}

	wm := s.watermarker()
	tagged := wm.Apply(req.Text)
	writeJSON(w, http.StatusOK, applyResponse{
		WatermarkedText: tagged,
		TagCount:        wm.Detect(tagged).TagCount,
	})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	req, ok := readTextRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.watermarker().Detect(req.Text))
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	req, ok := readTextRequest(w, r)
	if !ok {
		return
	}
	// Stripping blank or clean text is a no-op, not an error.
	writeJSON(w, http.StatusOK, stripResponse{CleanText: s.watermarker().Strip(req.Text)})
}

func readTextRequest(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return textRequest{}, false
	}
	var req textRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return textRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
