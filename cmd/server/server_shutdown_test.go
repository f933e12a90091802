package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appkafka "github.com/VangaRenuka/SocialConnect/internal/broker"
	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

// TestServer_GracefulShutdown verifies that the HTTP server shuts down
// gracefully and that the hub and mock broker close without errors.
func TestServer_GracefulShutdown(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{}

	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := New(ctx, mockStore, mockKafka, c, testConfig())
	go s.hub.Start()

	server := httptest.NewServer(s.Routes())
	defer server.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		server.Close()
		s.hub.Stop()
		close(done)
	}()

	// Make a request before shutdown to ensure the server is running.
	resp, err := http.Get(server.URL + "/api/posts")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	select {
	case <-done:
		mockStore.Close()
		if err := mockKafka.Close(); err != nil {
			t.Fatalf("Kafka close error: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("server did not shutdown gracefully within the expected time")
	}
}
