package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/auth"
	"github.com/qazaqedu/iquiz-server/internal/config"
	"github.com/qazaqedu/iquiz-server/internal/core"
	"github.com/qazaqedu/iquiz-server/internal/hub"
	"github.com/qazaqedu/iquiz-server/internal/service"
	"github.com/qazaqedu/iquiz-server/internal/store"
)

// testTokenConfig is shared by test servers and assertions.
func testTokenConfig() *auth.TokenConfig {
	return &auth.TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "iquiz-test",
		TTL:    time.Hour,
	}
}

// startTestServer wires a full stack (registry, hub, service, router) onto
// an httptest server.
func startTestServer(t *testing.T) (*httptest.Server, *service.Service, *hub.Hub) {
	t.Helper()

	logger := zerolog.Nop()
	tokens := testTokenConfig()

	h := hub.New(32, &logger)
	svc := service.New(core.NewRegistry(6), h, store.NopArchive{}, tokens, &logger)

	cfg := config.Default()
	cfg.CreatePerMinute = 0 // no cap in tests

	router := NewRouter(svc, h, cfg, tokens, &logger)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts, svc, h
}
