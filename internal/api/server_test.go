package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gl-reconciler/internal/api"
	"gl-reconciler/internal/api/dto"
	"gl-reconciler/internal/domain"
	"gl-reconciler/internal/recon"
)

const excelCSV = `Date,Account,Description,Amount,Reference
2024-01-01,1000,Office supplies,100.00,INV-001
2024-01-02,1000,Software license,250.00,INV-002
2024-01-03,2000,Travel,75.25,INV-003
`

const sqlCSV = `Date,Account,Description,Amount,Reference
2024-01-01,1000,Office supplies,100.00,INV-001
2024-01-02,1000,Software license,150.00,INV-002
`

func newTestServer(t *testing.T) (*api.Server, *recon.ReportCache) {
	t.Helper()
	cache := recon.NewReportCache()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	pipeline := recon.NewPipeline(recon.Options{Cache: cache, Logger: logger})
	return api.NewServer(api.DefaultConfig(), pipeline, cache, logger), cache
}

func multipartBody(t *testing.T, parts map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range parts {
		fw, err := w.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_Reconcile(t *testing.T) {
	t.Run("POST /api/reconcile returns a JSON report", func(t *testing.T) {
		server, _ := newTestServer(t)

		body, contentType := multipartBody(t, map[string]string{"excel": excelCSV, "sql": sqlCSV})
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var report domain.ReconciliationReport
		err := json.NewDecoder(rec.Body).Decode(&report)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Summary.ExcelRows)
		assert.Equal(t, 2, report.Summary.SQLRows)
		assert.Equal(t, 1, report.Summary.CountsByKind[domain.KindAmountMismatch])
		assert.Equal(t, 1, report.Summary.CountsByKind[domain.KindMissingInSQL])
		assert.True(t, report.Summary.AIUnavailable)
	})

	t.Run("format=csv returns an attachment", func(t *testing.T) {
		server, _ := newTestServer(t)

		body, contentType := multipartBody(t, map[string]string{"excel": excelCSV, "sql": sqlCSV})
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile?format=csv", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Body.String(), "AMOUNT_MISMATCH")
	})

	t.Run("missing file part returns 400", func(t *testing.T) {
		server, _ := newTestServer(t)

		body, contentType := multipartBody(t, map[string]string{"excel": excelCSV})
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeBadRequest, apiErr.Code)
	})

	t.Run("bad header returns a validation error", func(t *testing.T) {
		server, _ := newTestServer(t)

		badCSV := "foo,bar\n1,2\n"
		body, contentType := multipartBody(t, map[string]string{"excel": badCSV, "sql": sqlCSV})
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
	})

	t.Run("unknown format returns 400", func(t *testing.T) {
		server, _ := newTestServer(t)

		body, contentType := multipartBody(t, map[string]string{"excel": excelCSV, "sql": sqlCSV})
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile?format=xml", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_CacheEndpoints(t *testing.T) {
	server, cache := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"excel": excelCSV, "sql": sqlCSV})
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", body)
	req.Header.Set("Content-Type", contentType)
	server.Handler().ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, cache.Size())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats dto.CacheResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Entries)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, cache.Size())
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/reconcile", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
