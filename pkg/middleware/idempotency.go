package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"medbook/pkg/logger"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayHeader         = "Idempotent-Replay"

	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"

	appointmentsPath = "/api/v1/appointments"
)

type IdempotencyStore interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, response *CachedResponse)
	Stop()
}

// CachedResponse is a completed 2xx response kept for replay. Fingerprint
// is the hash of the request body that produced it.
type CachedResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	Fingerprint string
	CreatedAt   time.Time
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*CachedResponse
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*CachedResponse),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.sweepLoop(min(ttl, time.Hour))
	return s
}

func (s *InMemoryIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.expired(cached) {
		delete(s.entries, key)
		return nil, false
	}
	return cached, true
}

func (s *InMemoryIdempotencyStore) Set(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = s.now()
	s.entries[key] = response
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *InMemoryIdempotencyStore) expired(c *CachedResponse) bool {
	return s.now().Sub(c.CreatedAt) > s.ttl
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, cached := range s.entries {
				if s.expired(cached) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// IdempotencyScope names the operation a request performs. An empty scope
// means the request is never replayed.
type IdempotencyScope func(r *http.Request) string

// AppointmentScope gives booking and every per-appointment state change its
// own scope, so a key sent to cancel appointment A cannot replay on B. Other
// mutations are scoped by method and path.
func AppointmentScope(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == appointmentsPath && r.Method == http.MethodPost {
		return "appointment:book"
	}
	if rest, ok := strings.CutPrefix(path, appointmentsPath+"/id/"); ok {
		id, action, _ := strings.Cut(rest, "/")
		switch {
		case action == "cancel" && r.Method == http.MethodPost:
			return "appointment:" + id + ":cancel"
		case action == "status" && r.Method == http.MethodPatch:
			return "appointment:" + id + ":status"
		case action == "" && r.Method == http.MethodDelete:
			return "appointment:" + id + ":delete"
		}
	}
	return r.Method + " " + path
}

type IdempotencyOptions struct {
	Header string
	Scope  IdempotencyScope
	Log    *logger.Logger
}

// Idempotency replays the stored 2xx response for a repeated key. A key
// reused with a different request body is rejected with 409 rather than
// replaying the response of another booking.
func Idempotency(store IdempotencyStore, opts IdempotencyOptions) func(http.Handler) http.Handler {
	if opts.Header == "" {
		opts.Header = IdempotencyKeyHeader
	}
	if opts.Scope == nil {
		opts.Scope = AppointmentScope
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(opts.Header)
			scope := opts.Scope(r)
			if clientKey == "" || scope == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "INVALID_INPUT", "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintOf(body)
			key := scope + " " + clientKey

			if cached, ok := store.Get(key); ok {
				if cached.Fingerprint != fingerprint {
					opts.Log.Warn("Idempotency key reused with a different request",
						"request_id", RequestIDFromContext(r.Context()),
						"scope", scope,
					)
					writeJSONError(w, http.StatusConflict, CodeIdempotencyKeyReused,
						"Idempotency key was already used for a different request")
					return
				}
				opts.Log.Info("Replaying idempotent response",
					"request_id", RequestIDFromContext(r.Context()),
					"scope", scope,
					"status", cached.StatusCode,
				)
				replay(w, cached)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			store.Set(key, &CachedResponse{
				StatusCode:  rec.statusCode,
				Headers:     w.Header().Clone(),
				Body:        rec.body.Bytes(),
				Fingerprint: fingerprint,
			})
		})
	}
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(bytes.TrimSpace(body))
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for name, values := range cached.Headers {
		if name == http.CanonicalHeaderKey(RequestIDHeader) {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
