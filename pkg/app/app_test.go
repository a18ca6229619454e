package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: auction-house-test
listen_address: ":9000"
shutdown_grace_period: 5s
app:
  postgres_dsn: postgres://localhost/test
`), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "auction-house-test", config.AppName)
	assert.Equal(t, ":9000", config.ListenAddress)
	assert.Equal(t, 5*time.Second, config.ShutdownGracePeriod)
	assert.Equal(t, defaultConfig.DebugListenAddress, config.DebugListenAddress)
	assert.Equal(t, "postgres://localhost/test", config.AppConfig["postgres_dsn"])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0600))

	for _, fileURL := range []string{path, "file://" + path} {
		contents, err := LoadFile(fileURL)
		require.NoError(t, err)
		assert.Equal(t, "contents", string(contents))
	}

	_, err := LoadFile("s3://bucket/cert.pem")
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	router := NewRouter(nil, nil)
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouter_Cors(t *testing.T) {
	router := NewRouter(nil, []string{"https://auctions.example"})

	preflight := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	preflight.Header.Set("Origin", "https://auctions.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, preflight)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://auctions.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.Header.Set("Origin", "https://elsewhere.example")

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, other)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestStatusCodeLevel(t *testing.T) {
	assert.Equal(t, infoLevel, statusCodeLevel(http.StatusOK))
	assert.Equal(t, infoLevel, statusCodeLevel(http.StatusBadRequest))
	assert.Equal(t, warningLevel, statusCodeLevel(http.StatusTooManyRequests))
	assert.Equal(t, warningLevel, statusCodeLevel(http.StatusConflict))
	assert.Equal(t, errorLevel, statusCodeLevel(http.StatusServiceUnavailable))
}
