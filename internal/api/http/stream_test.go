package http

import (
	"bufio"
	"context"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rserve-session/internal/api/http/handlers"
	"github.com/spec-kit/rserve-session/internal/auth"
)

// listen serves the app on a loopback port; streaming bodies need a real
// connection.
func (s *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.registry.Shutdown(ctx)
		_ = s.app.ShutdownWithTimeout(time.Second)
	})
	return ln.Addr().String()
}

func (s *testServer) accessToken(t *testing.T) string {
	t.Helper()
	access, ok := cookieValue(s.login(t, "r1", "correct horse"), auth.AccessCookieName)
	require.True(t, ok)
	return access
}

func readLines(body *bufio.Reader) <-chan string {
	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()
	return lines
}

func waitLine(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream ended before %q", want)
			}
			if line == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestUpdatesStreamDeliversUpdateAndShutdown(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listen(t)

	req, err := nethttp.NewRequest(nethttp.MethodGet, "http://"+addr+"/api/restaurant/updates", nil)
	require.NoError(t, err)
	req.AddCookie(&nethttp.Cookie{Name: auth.AccessCookieName, Value: srv.accessToken(t)})

	client := &nethttp.Client{Transport: &nethttp.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/event-stream"))
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, 1, srv.registry.Len())

	lines := readLines(bufio.NewReader(resp.Body))

	body := `{"restaurant_id":"r1"}`
	hook := httptest.NewRequest(nethttp.MethodPost, "/api/webhook/updates", strings.NewReader(body))
	hook.Header.Set(handlers.SignatureHeader, sign(body))
	require.Equal(t, nethttp.StatusAccepted, srv.do(t, hook).StatusCode)

	waitLine(t, lines, "data: update")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.registry.Shutdown(ctx))

	waitLine(t, lines, "event: shutdown")
	waitLine(t, lines, "data: shutting down")
	assert.Equal(t, 0, srv.registry.Len())
}

func TestUpdatesStreamDeregistersOnClientDisconnect(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listen(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET /api/restaurant/updates HTTP/1.1\r\n" +
		"Host: " + addr + "\r\n" +
		"Cookie: " + auth.AccessCookieName + "=" + srv.accessToken(t) + "\r\n\r\n"))
	require.NoError(t, err)

	status, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(status, "HTTP/1.1 200"), status)
	require.Equal(t, 1, srv.registry.Len())

	require.NoError(t, conn.Close())

	// Poll interval is 10ms; the dead socket must surface within a few ticks.
	require.Eventually(t, func() bool { return srv.registry.Len() == 0 },
		time.Second, 5*time.Millisecond)

	// With the stale channel gone, an update for the reconnecting client is
	// still pending instead of being swallowed.
	require.NoError(t, srv.flags.Set(context.Background(), "r1"))
	time.Sleep(50 * time.Millisecond)
	ok, err := srv.flags.Take(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}
