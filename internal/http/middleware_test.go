package httpx

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := OwnerFromContext(r.Context())
		_, _ = io.WriteString(w, owner)
	})
}

func TestRequireOwner(t *testing.T) {
	tests := []struct {
		name       string
		opts       OwnerOptions
		header     string
		value      string
		wantStatus int
		wantBody   string
	}{
		{name: "default header", value: "owner-1", header: "X-Owner-ID", wantStatus: http.StatusOK, wantBody: "owner-1"},
		{name: "custom header", opts: OwnerOptions{Header: "X-Tenant"}, header: "X-Tenant", value: " t-9 ", wantStatus: http.StatusOK, wantBody: "t-9"},
		{name: "dev fallback", opts: OwnerOptions{DevOwnerID: "dev-owner"}, wantStatus: http.StatusOK, wantBody: "dev-owner"},
		{name: "header beats dev fallback", opts: OwnerOptions{DevOwnerID: "dev-owner"}, header: "X-Owner-ID", value: "owner-2", wantStatus: http.StatusOK, wantBody: "owner-2"},
		{name: "missing owner", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/simulations", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			RequireOwner(tt.opts)(ownerEcho()).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			assert.JSONEq(t, `{"error":"owner_required","message":"X-Owner-ID header is required"}`, rec.Body.String())
		})
	}
}

func TestMaxBody(t *testing.T) {
	handler := MaxBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		if !DecodeJSON(w, r, &v) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	body := `{"name":"` + strings.Repeat("x", 64) + `"}`
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "body_too_large")
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/simulations", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal","message":"internal server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), `"msg":"panic"`)
	assert.Contains(t, logs.String(), "boom")
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/simulations/x/run", nil))

	out := logs.String()
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/api/simulations/x/run"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"level":"INFO"`)

	logs.Reset()
	failing := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Contains(t, logs.String(), `"level":"WARN"`)
	assert.Contains(t, logs.String(), `"request_id":`)
}

func TestCompression(t *testing.T) {
	payload := map[string]string{"data": strings.Repeat("runoff ", 500)}
	handler := Compression(CompressionConfig{Level: gzip.BestSpeed})(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { WriteJSON(w, http.StatusOK, payload) },
	))

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/results/x", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Contains(t, string(plain), `"data":"runoff runoff`)
	})

	t.Run("identity when refused", func(t *testing.T) {
		for _, enc := range []string{"", "deflate", "gzip;q=0"} {
			req := httptest.NewRequest(http.MethodGet, "/api/results/x", nil)
			if enc != "" {
				req.Header.Set("Accept-Encoding", enc)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Empty(t, rec.Header().Get("Content-Encoding"), enc)
			assert.Contains(t, rec.Body.String(), `"data":"runoff runoff`)
		}
	})

	t.Run("small responses below min size stay identity", func(t *testing.T) {
		small := Compression(CompressionConfig{Level: gzip.BestSpeed, MinSize: 4096})(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) { WriteJSON(w, http.StatusCreated, map[string]int{"n": 1}) },
		))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		small.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	})

	t.Run("csv exports are compressed", func(t *testing.T) {
		csvHandler := Compression(CompressionConfig{MinSize: 16})(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				_, _ = io.WriteString(w, strings.Repeat("2024-01-01,1.5\n", 50))
			},
		))
		req := httptest.NewRequest(http.MethodGet, "/api/results/x/export/csv", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		csvHandler.ServeHTTP(rec, req)

		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, 50, strings.Count(string(plain), "\n"))
	})

	t.Run("no body statuses pass through", func(t *testing.T) {
		h := Compression(CompressionConfig{})(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
		))
		req := httptest.NewRequest(http.MethodDelete, "/api/simulations/x", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
	})
}

func TestAcceptsGzip(t *testing.T) {
	cases := map[string]bool{
		"":                  false,
		"gzip":              true,
		"br, GZIP;q=0.5":    true,
		"gzip;q=0":          false,
		"gzip; q=0.000":     false,
		"*":                 true,
		"deflate, identity": false,
		"x-gzip":            false,
	}
	for header, want := range cases {
		assert.Equal(t, want, acceptsGzip(header), header)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", seen)
	assert.Equal(t, "trace-42", rec.Header().Get(RequestIDHeader))
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var v map[string]any
		if DecodeJSON(rec, req, &v) {
			rec.WriteHeader(http.StatusNoContent)
		}
		return rec
	}

	assert.Equal(t, http.StatusNoContent, decode(`{"a":1}`).Code)
	assert.Equal(t, http.StatusNoContent, decode("{\"a\":1}\n").Code)

	rec := decode("")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is required")

	rec = decode(`{"a":1}{"b":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "single JSON object")
}
