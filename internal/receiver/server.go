package receiver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// Config holds the receiver server configuration
type Config struct {
	Host       string
	Port       int
	Token      string
	OutDir     string
	Format     string // "json" or "ndjson"
	AcceptGzip bool
}

// Server is the HTTP receiver for health payloads. It is a development
// stand-in for the production webhook: it authenticates, validates, and
// persists whatever the agent sends, and mirrors accepted payloads onto
// the live feed.
type Server struct {
	config     Config
	writer     Writer
	idempotent *IdempotencyStore
	feed       *LiveFeed
	server     *http.Server
	mu         sync.RWMutex
	stats      Stats
}

// Stats holds server statistics
type Stats struct {
	TotalReceived   int
	TotalDuplicates int
	TotalErrors     int
}

// NewServer creates a new receiver server
func NewServer(config Config, writer Writer) *Server {
	return &Server{
		config:     config,
		writer:     writer,
		idempotent: NewIdempotencyStore(),
		feed:       NewLiveFeed(),
	}
}

// Start starts the receiver server
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health/import", s.handleImport)
	mux.HandleFunc("/live", s.feed.HandleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.feed.CloseAll()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
}

// GetStats returns current server statistics
func (s *Server) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Feed exposes the live feed for callers that broadcast out of band.
func (s *Server) Feed() *LiveFeed {
	return s.feed
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service":  "healthrelay-receiver",
		"version":  "1.0.0",
		"endpoint": "/v1/health/import",
		"livefeed": "/live",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.validateAuth(r) {
		s.recordError()
		s.writeError(w, http.StatusUnauthorized, "invalid or missing authorization token")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		s.recordError()
		s.writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	body, err := s.readBody(r)
	if err != nil {
		s.recordError()
		s.writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	var payload models.HealthPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.recordError()
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := payload.Validate(); err != nil {
		s.recordError()
		s.writeError(w, http.StatusBadRequest, "payload validation failed: "+err.Error())
		return
	}

	// The agent keys each send by device and logical timestamp, so the
	// payload itself carries the idempotency identity when no header does.
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = payload.DeviceID + "@" + payload.Timestamp
	}
	isDuplicate := s.idempotent.Exists(idempotencyKey)

	if err := s.writer.Write(&payload); err != nil {
		s.recordError()
		s.writeError(w, http.StatusInternalServerError, "failed to write payload: "+err.Error())
		return
	}

	// Mark only after the payload is safely written, so a client retry
	// after a write failure is treated as a fresh delivery.
	s.idempotent.Mark(idempotencyKey)

	s.feed.Broadcast(&payload)

	s.mu.Lock()
	s.stats.TotalReceived++
	if isDuplicate {
		s.stats.TotalDuplicates++
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"receipt": map[string]any{
			"deviceId":   payload.DeviceID,
			"timestamp":  payload.Timestamp,
			"sections":   payload.Sections(),
			"duplicate":  isDuplicate,
			"receivedAt": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) recordError() {
	s.mu.Lock()
	s.stats.TotalErrors++
	s.mu.Unlock()
}

func (s *Server) validateAuth(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return false
	}

	return parts[1] == s.config.Token
}

func (s *Server) readBody(r *http.Request) ([]byte, error) {
	var reader io.Reader = r.Body

	if s.config.AcceptGzip && r.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	// Limit body size to 10MB
	limitReader := io.LimitReader(reader, 10*1024*1024)
	return io.ReadAll(limitReader)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// IdempotencyStore tracks processed payload identities
type IdempotencyStore struct {
	seen map[string]time.Time
	mu   sync.RWMutex
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		seen: make(map[string]time.Time),
	}
}

// Exists checks if an ID has been processed
func (s *IdempotencyStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[id]
	return exists
}

// Mark records an ID as processed
func (s *IdempotencyStore) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = time.Now()
}
