package httpx

import (
	"compress/gzip"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// compressibleTypes are the media types the API produces in bulk.
var compressibleTypes = map[string]bool{
	"application/json": true,
	"text/csv":         true,
	"text/plain":       true,
}

// CompressionConfig holds configuration for the compression middleware.
type CompressionConfig struct {
	Level int // gzip level; 0 means gzip.DefaultCompression
	// MinSize is the smallest body that is compressed. Smaller bodies are
	// buffered and sent as is.
	MinSize int
	Logger  *slog.Logger
}

// Compression gzips JSON and CSV responses for clients that accept gzip.
func Compression(cfg CompressionConfig) func(http.Handler) http.Handler {
	level := cfg.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := &sync.Pool{New: func() any {
		zw, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			return gzip.NewWriter(io.Discard)
		}
		return zw
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressWriter{ResponseWriter: w, pool: pool, minSize: cfg.MinSize}
			next.ServeHTTP(cw, r)
			if err := cw.finish(); err != nil {
				logger.ErrorContext(r.Context(), "finishing compressed response failed", "error", err)
			}
		})
	}
}

// acceptsGzip reports whether gzip (or *) is listed with a non-zero q-value.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "gzip" && name != "*" {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(k, "q") {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}
		return q > 0
	}
	return false
}

func isCompressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && compressibleTypes[mediaType]
}

// compressWriter holds the status and the first MinSize bytes back until it
// knows whether the body is worth compressing.
type compressWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	minSize int

	status  int
	pending []byte
	decided bool
	gz      *gzip.Writer
}

func (w *compressWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		w.commit(false)
	}
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.decided {
		if w.gz != nil {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}
	w.pending = append(w.pending, b...)
	if len(w.pending) >= w.minSize {
		if err := w.flushPending(true); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

// Flush forces a decision so streamed bodies are not held back.
func (w *compressWriter) Flush() {
	if !w.decided {
		if w.status == 0 {
			w.WriteHeader(http.StatusOK)
		}
		_ = w.flushPending(true)
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	http.NewResponseController(w.ResponseWriter).Flush() //nolint:errcheck // best effort
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *compressWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *compressWriter) flushPending(bigEnough bool) error {
	w.commit(bigEnough && len(w.pending) > 0)
	if len(w.pending) == 0 {
		return nil
	}
	var err error
	if w.gz != nil {
		_, err = w.gz.Write(w.pending)
	} else {
		_, err = w.ResponseWriter.Write(w.pending)
	}
	w.pending = nil
	return err
}

// commit writes the header, switching to gzip when allowed and the content type qualifies.
func (w *compressWriter) commit(compress bool) {
	if w.decided {
		return
	}
	w.decided = true
	h := w.Header()
	if h.Get("Content-Type") == "" && len(w.pending) > 0 {
		h.Set("Content-Type", http.DetectContentType(w.pending))
	}
	if compress && h.Get("Content-Encoding") == "" && isCompressible(h.Get("Content-Type")) {
		zw, _ := w.pool.Get().(*gzip.Writer)
		zw.Reset(w.ResponseWriter)
		w.gz = zw
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
	}
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *compressWriter) finish() error {
	if w.status == 0 {
		return nil
	}
	if !w.decided {
		if err := w.flushPending(len(w.pending) >= w.minSize); err != nil {
			return err
		}
	}
	if w.gz == nil {
		return nil
	}
	err := w.gz.Close()
	w.gz.Reset(io.Discard)
	w.pool.Put(w.gz)
	w.gz = nil
	return err
}
