package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/rserve-session/internal/api/http/handlers"
	"github.com/spec-kit/rserve-session/internal/auth"
	"github.com/spec-kit/rserve-session/internal/config"
	"github.com/spec-kit/rserve-session/internal/domain"
	"github.com/spec-kit/rserve-session/internal/events"
	"github.com/spec-kit/rserve-session/internal/observability"
	"github.com/spec-kit/rserve-session/internal/service"
	"github.com/spec-kit/rserve-session/internal/stream"
	"github.com/spec-kit/rserve-session/internal/updates"
)

const webhookSecret = "hook-secret"

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func (m *memoryAccounts) Create(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.RestaurantID] = *a
	return nil
}

func (m *memoryAccounts) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.PasswordHash = hash
	m.accounts[id] = a
	return nil
}

func (m *memoryAccounts) GetByRestaurantID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

type testServer struct {
	app      *fiber.App
	flags    *updates.MemoryStore
	registry *stream.Registry
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	srv := &testServer{now: time.Now()}
	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	authService, err := service.NewAuthService(config.AuthConfig{
		SessionSecret: "test-secret",
		BcryptCost:    bcrypt.MinCost,
	}, service.AuthDependencies{
		AccountRepo: &memoryAccounts{accounts: map[string]domain.Account{}},
		Logger:      logger,
		Metrics:     metrics,
		Clock:       func() time.Time { return srv.now },
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = authService.ProvisionAccount(ctx, "r1", "correct horse", domain.RoleOwner)
	require.NoError(t, err)
	_, err = authService.ProvisionAccount(ctx, "r2", "staff password", domain.RoleEmployee)
	require.NoError(t, err)

	srv.flags = updates.NewMemoryStore()
	dispatcher := events.NewDispatcher(logger)
	updateService := service.NewUpdateService(dispatcher, srv.flags, logger)
	updateService.RegisterHandlers()

	srv.registry = stream.NewRegistry()
	notifier := stream.NewNotifier(srv.registry, srv.flags, stream.Config{PollInterval: 10 * time.Millisecond}, logger, metrics)

	srv.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(srv.app, logger, metrics, time.Second)
	RegisterRoutes(srv.app, RouteConfig{
		Health:         handlers.NewHealthHandler("rserve-session", "test"),
		Auth:           handlers.NewAuthHandler(authService, auth.CookieWriter{}),
		Session:        handlers.NewSessionHandler(),
		Stream:         handlers.NewStreamHandler(notifier, logger),
		Webhook:        handlers.NewWebhookHandler(updateService, webhookSecret),
		AuthMiddleware: auth.NewAuthMiddleware(authService, logger, metrics),
	})
	return srv
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) *nethttp.Response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) login(t *testing.T, id, password string) *nethttp.Response {
	t.Helper()
	body := `{"restaurant_id":"` + id + `","password":"` + password + `"}`
	req := httptest.NewRequest(nethttp.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return s.do(t, req)
}

func cookieValue(resp *nethttp.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func withCookie(req *nethttp.Request, name, value string) *nethttp.Request {
	req.AddCookie(&nethttp.Cookie{Name: name, Value: value})
	return req
}

func errorBody(t *testing.T, resp *nethttp.Response) (string, string) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload.Error.Code, payload.Error.Message
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestLoginSetsSessionCookies(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.login(t, "r1", "correct horse")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	access, ok := cookieValue(resp, auth.AccessCookieName)
	require.True(t, ok)
	_, ok = cookieValue(resp, auth.RefreshCookieName)
	require.True(t, ok)

	req := withCookie(httptest.NewRequest(nethttp.MethodGet, "/api/restaurant/session", nil), auth.AccessCookieName, access)
	resp = srv.do(t, req)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var who struct {
		RestaurantID string `json:"restaurant_id"`
		Role         string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	assert.Equal(t, "r1", who.RestaurantID)
	assert.Equal(t, "owner", who.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct{ id, password string }{
		{"r1", "wrong"},
		{"nobody", "correct horse"},
	} {
		resp := srv.login(t, tc.id, tc.password)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
		_, msg := errorBody(t, resp)
		assert.Equal(t, "invalid credentials", msg)
		_, ok := cookieValue(resp, auth.AccessCookieName)
		assert.False(t, ok)
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.login(t, "", "pw")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	code, _ := errorBody(t, resp)
	assert.Equal(t, "VALIDATION_FAILED", code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/restaurant/session", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	_, msg := errorBody(t, resp)
	assert.Equal(t, "token missing", msg)

	req := withCookie(httptest.NewRequest(nethttp.MethodGet, "/api/restaurant/updates", nil), auth.AccessCookieName, "garbage")
	resp = srv.do(t, req)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshKeepsRefreshCookieUntilRenewalWindow(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.login(t, "r1", "correct horse")
	refresh, ok := cookieValue(resp, auth.RefreshCookieName)
	require.True(t, ok)

	srv.now = srv.now.Add(time.Hour)
	req := withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/refresh", nil), auth.RefreshCookieName, refresh)
	resp = srv.do(t, req)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	_, ok = cookieValue(resp, auth.AccessCookieName)
	assert.True(t, ok)
	_, ok = cookieValue(resp, auth.RefreshCookieName)
	assert.False(t, ok)

	srv.now = srv.now.Add(25 * 24 * time.Hour)
	req = withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/refresh", nil), auth.RefreshCookieName, refresh)
	resp = srv.do(t, req)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	rotated, ok := cookieValue(resp, auth.RefreshCookieName)
	require.True(t, ok)
	assert.NotEqual(t, refresh, rotated)
}

func TestRefreshFailures(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, httptest.NewRequest(nethttp.MethodPost, "/api/refresh", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	_, msg := errorBody(t, resp)
	assert.Equal(t, "token missing", msg)

	login := srv.login(t, "r1", "correct horse")
	refresh, _ := cookieValue(login, auth.RefreshCookieName)
	access, _ := cookieValue(login, auth.AccessCookieName)

	req := withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/refresh", nil), auth.RefreshCookieName, access)
	resp = srv.do(t, req)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	srv.now = srv.now.Add(31 * 24 * time.Hour)
	req = withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/refresh", nil), auth.RefreshCookieName, refresh)
	resp = srv.do(t, req)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	_, msg = errorBody(t, resp)
	assert.Equal(t, "token expired", msg)
}

func TestLogoutClearsCookies(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, httptest.NewRequest(nethttp.MethodPost, "/api/logout", nil))
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	for _, c := range resp.Cookies() {
		assert.Empty(t, c.Value)
		assert.True(t, c.Expires.Before(time.Now()))
	}
	assert.Len(t, resp.Cookies(), 2)
}

func TestChangePasswordRequiresOwnerOrAdmin(t *testing.T) {
	srv := newTestServer(t)
	body := `{"current_password":"staff password","new_password":"something longer"}`

	login := srv.login(t, "r2", "staff password")
	access, _ := cookieValue(login, auth.AccessCookieName)
	req := withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/restaurant/password", strings.NewReader(body)), auth.AccessCookieName, access)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp := srv.do(t, req)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	login = srv.login(t, "r1", "correct horse")
	access, _ = cookieValue(login, auth.AccessCookieName)
	body = `{"current_password":"correct horse","new_password":"battery staple"}`
	req = withCookie(httptest.NewRequest(nethttp.MethodPost, "/api/restaurant/password", strings.NewReader(body)), auth.AccessCookieName, access)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp = srv.do(t, req)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	assert.Equal(t, nethttp.StatusOK, srv.login(t, "r1", "battery staple").StatusCode)
	assert.Equal(t, nethttp.StatusUnauthorized, srv.login(t, "r1", "correct horse").StatusCode)
}

func TestWebhookSetsUpdateFlag(t *testing.T) {
	srv := newTestServer(t)
	body := `{"restaurant_id":"r1"}`

	req := httptest.NewRequest(nethttp.MethodPost, "/api/webhook/updates", strings.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, sign(body))
	resp := srv.do(t, req)
	require.Equal(t, nethttp.StatusAccepted, resp.StatusCode)

	ok, err := srv.flags.Take(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv := newTestServer(t)
	body := `{"restaurant_id":"r1"}`

	for _, sig := range []string{"", "zz", sign(`{"restaurant_id":"r2"}`)} {
		req := httptest.NewRequest(nethttp.MethodPost, "/api/webhook/updates", strings.NewReader(body))
		if sig != "" {
			req.Header.Set(handlers.SignatureHeader, sig)
		}
		resp := srv.do(t, req)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	}

	ok, err := srv.flags.Take(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookRejectsMissingRestaurant(t *testing.T) {
	srv := newTestServer(t)
	body := `{"restaurant_id":""}`

	req := httptest.NewRequest(nethttp.MethodPost, "/api/webhook/updates", strings.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, sign(body))
	resp := srv.do(t, req)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestUpdatesUnavailableAfterShutdown(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.registry.Shutdown(context.Background()))

	login := srv.login(t, "r1", "correct horse")
	access, _ := cookieValue(login, auth.AccessCookieName)

	req := withCookie(httptest.NewRequest(nethttp.MethodGet, "/api/restaurant/updates", nil), auth.AccessCookieName, access)
	resp := srv.do(t, req)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, srv.registry.Len())
}

func TestHealthReady(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	down := errors.New("connection refused")
	app.Get("/ready", handlers.NewHealthHandler("svc", "v1",
		handlers.DependencyCheck{Name: "postgres", Ping: func(context.Context) error { return nil }},
		handlers.DependencyCheck{Name: "redis", Ping: func(context.Context) error { return down }},
	).Ready)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, httptest.NewRequest(nethttp.MethodGet, "/nope", nil))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}
