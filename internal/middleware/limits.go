package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// Common size limits.
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize caps ordinary requests (10MB).
	DefaultMaxBodySize = 10 * MB

	// SmallMaxBodySize is for the JSON API routes; the largest legitimate
	// body is an AI query with history (1MB).
	SmallMaxBodySize = 1 * MB

	// LargeMaxBodySize is headroom for bulk payloads (50MB).
	LargeMaxBodySize = 50 * MB
)

// Common timeout values.
const (
	// DefaultTimeout is the default request timeout (30 seconds).
	DefaultTimeout = 30 * time.Second

	// ShortTimeout is for quick operations (5 seconds).
	ShortTimeout = 5 * time.Second

	// LongTimeout covers slow upstream calls like AI queries (2 minutes).
	LongTimeout = 2 * time.Minute
)

// MaxBodySize rejects request bodies larger than maxBytes with a 413 in
// the standard JSON error shape, and wraps smaller bodies in a
// MaxBytesReader so chunked requests without a Content-Length cannot
// stream past the limit either.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				respondWithError(w, r, &domain.Error{
					Code:    domain.ETOOLARGE,
					Message: "Request body too large.",
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds request processing. A handler that has not written
// anything by the deadline gets a 503 JSON error; a handler that already
// started writing is left to produce a truncated response, since the
// status line is gone.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			tw := &deadlineWriter{ResponseWriter: w, done: done}

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				if tw.wroteHeader {
					return
				}
				tw.wroteHeader = true
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "The request took too long to process.",
					"code":  "timeout",
				})
			}
		})
	}
}

// deadlineWriter serializes writes against the timeout path so the
// handler goroutine and the 503 writer never interleave on the
// underlying ResponseWriter.
type deadlineWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
	done        chan struct{}
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.wroteHeader {
		return
	}

	select {
	case <-dw.done:
		// Timed out; the 503 already went out.
		return
	default:
		dw.wroteHeader = true
		dw.ResponseWriter.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	select {
	case <-dw.done:
		return 0, context.DeadlineExceeded
	default:
		if !dw.wroteHeader {
			dw.wroteHeader = true
			dw.ResponseWriter.WriteHeader(http.StatusOK)
		}
		return dw.ResponseWriter.Write(b)
	}
}
