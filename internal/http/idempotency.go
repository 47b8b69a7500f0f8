package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"agrotrack/internal/cache"
	applog "agrotrack/internal/log"
)

const (
	// IdempotencyKeyHeader names the client-chosen key that makes a POST replayable.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency cache.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	idempotencyCacheSize    = 10000
)

// storedResponse is a completed POST kept for replay.
type storedResponse struct {
	fingerprint string
	status      int
	contentType string
	body        []byte
}

// idempotency replays the first response for a repeated Idempotency-Key.
// Keys are scoped to method and path. A key reused with a different body, or
// while its first request is still running, is answered with 409.
type idempotency struct {
	responses *cache.LRUCache[storedResponse]

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newIdempotency(ttl time.Duration) *idempotency {
	return &idempotency{
		responses: cache.NewLRUCache[storedResponse](idempotencyCacheSize, ttl),
		inFlight:  make(map[string]struct{}),
	}
}

func (i *idempotency) acquire(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.inFlight[key]; busy {
		return false
	}
	i.inFlight[key] = struct{}{}
	return true
}

func (i *idempotency) release(key string) {
	i.mu.Lock()
	delete(i.inFlight, key)
	i.mu.Unlock()
}

func (i *idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			writeStatusError(w, r, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeStatusError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		scoped := r.Method + " " + r.URL.Path + " " + key
		logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)

		if prev, ok := i.responses.Get(scoped); ok {
			if prev.fingerprint != fingerprint {
				writeStatusError(w, r, http.StatusConflict, "idempotency_key_reused",
					"Idempotency-Key was already used with a different request body")
				return
			}
			logger.InfoContext(r.Context(), "Replaying idempotent response", applog.FieldIdempotentKey, key)
			replay(w, prev)
			return
		}

		if !i.acquire(scoped) {
			writeStatusError(w, r, http.StatusConflict, "idempotency_key_in_use",
				"a request with this Idempotency-Key is still being processed")
			return
		}
		defer i.release(scoped)

		// A concurrent holder may have finished between the lookup and acquire.
		if prev, ok := i.responses.Get(scoped); ok && prev.fingerprint == fingerprint {
			replay(w, prev)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Server errors are not final; the client may retry with the same key.
		if rec.status < 500 {
			i.responses.Set(scoped, storedResponse{
				fingerprint: fingerprint,
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
		}
	})
}

func replay(w http.ResponseWriter, prev storedResponse) {
	if prev.contentType != "" {
		w.Header().Set("Content-Type", prev.contentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(prev.status)
	_, _ = w.Write(prev.body)
}

// recordingWriter tees the response body while passing it through.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}
