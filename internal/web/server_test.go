package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cardfile/cardfile/internal/config"
	"github.com/cardfile/cardfile/internal/contact"
	"github.com/cardfile/cardfile/internal/importer"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/internal/vcard"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: time.Second,
			RequestTimeout:  5 * time.Second,
		},
		Upload: config.UploadConfig{
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{".csv", ".txt"},
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

// newTestServer builds a server on the in-memory store with the vcard
// serializer, mirroring the production wiring minus Postgres.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *contact.MemoryStore) {
	t.Helper()
	store := contact.NewMemoryStore()
	svc := service.NewImportService(store, importer.DefaultFieldAliases(), vcard.Encode, nil)
	return NewServer(cfg, svc, store, nil), store
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestSecurityHeaders_CSPDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableCSP = false
	srv, _ := newTestServer(t, cfg)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
