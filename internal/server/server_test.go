package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/pokedex-api/internal/config"
	"github.com/Brownie44l1/pokedex-api/internal/handlers"
	"github.com/Brownie44l1/pokedex-api/internal/lifecycle"
	"github.com/Brownie44l1/pokedex-api/internal/metrics"
	"github.com/Brownie44l1/pokedex-api/internal/model"
	"github.com/Brownie44l1/pokedex-api/internal/view"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixedClassifier struct {
	class string
}

func (f fixedClassifier) Classify(ctx context.Context, img image.Image) (model.Prediction, error) {
	return model.Prediction{Class: f.class}, nil
}

func (fixedClassifier) Close() {}

func newTestRouter(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	dir := t.TempDir()

	staticDir := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log('pokedex')"), 0o644))

	indexPath := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(indexPath, []byte("<html>pokedex</html>"), 0o644))
	page, err := view.Load(indexPath, quiet)
	require.NoError(t, err)

	models := lifecycle.New(func(ctx context.Context) (lifecycle.Classifier, error) {
		return fixedClassifier{class: "Pikachu"}, nil
	}, lifecycle.WithLogger(quiet))
	require.NoError(t, models.Run(context.Background()))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cfg := config.ServerConfig{StaticDir: staticDir, MaxUploadBytes: maxUpload}
	return NewRouter(cfg, handlers.NewHandler(models, page, m), m, reg, quiet)
}

func upload(t *testing.T, size int) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	rand.New(rand.NewSource(int64(size))).Read(img.Pix)
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(handlers.FormField, "pikachu.png")
	require.NoError(t, err)
	_, err = part.Write(encoded.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t, config.DefaultMaxUploadBytes)

	t.Run("index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>pokedex</html>", rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("static", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log('pokedex')", rec.Body.String())
	})

	t.Run("analyze", func(t *testing.T) {
		body, contentType := upload(t, 16)
		req := httptest.NewRequest(http.MethodPost, "/analyze", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Origin", "https://somewhere.example")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":"Pikachu"}`, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
		req.Header.Set("Origin", "https://somewhere.example")
		req.Header.Set("Access-Control-Request-Method", "POST")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Requested-With, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/analyze",status="200"} 1`)
		assert.Contains(t, rec.Body.String(), `predictions_total{class="Pikachu"} 1`)
	})
}

func TestRouterUploadLimit(t *testing.T) {
	router := newTestRouter(t, 1024)

	body, contentType := upload(t, 256)
	require.Greater(t, body.Len(), 1024)
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServerServeAndShutdown(t *testing.T) {
	router := newTestRouter(t, config.DefaultMaxUploadBytes)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(config.ServerConfig{ShutdownTimeout: time.Second}, router, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
