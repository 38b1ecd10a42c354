package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/kv-url-shortener/internal/app/service"
	"github.com/atinyakov/kv-url-shortener/internal/logger"
	"github.com/atinyakov/kv-url-shortener/internal/storage"
)

type alwaysReachable struct{}

func (alwaysReachable) Probe(context.Context, string) bool { return true }

type alwaysConnected struct{}

func (alwaysConnected) Connected() bool { return true }

func newBenchService(b *testing.B) *service.URLService {
	b.Helper()
	mem, _ := storage.CreateMemoryStorage()
	return service.NewURL(mem, service.NewIDGenerator(service.DefaultIDLength), alwaysReachable{}, alwaysConnected{}, logger.New().Log, "http://localhost:5000")
}

func BenchmarkShorten(b *testing.B) {
	h := NewPost(newBenchService(b), logger.New().Log)
	body := []byte(`{"url":"https://example.com"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/shorten", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		h.Shorten(httptest.NewRecorder(), req)
	}
}

func BenchmarkByShort(b *testing.B) {
	svc := newBenchService(b)
	res, err := svc.Shorten(context.Background(), "https://example.com")
	if err != nil {
		b.Fatal(err)
	}

	r := chi.NewRouter()
	r.Get("/{shortID}", NewGet(svc, logger.New().Log).ByShort)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/"+res.ShortID, nil))
	}
}
