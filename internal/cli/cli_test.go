package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/jsamuelsen/quotedesk/internal/adapters/http"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/config"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog, err := domain.NewCatalog(domain.DefaultQuotes())
	require.NoError(t, err)

	quotes := app.NewQuoteService(app.QuoteServiceConfig{Catalog: catalog, Logger: logger})
	visitors := app.NewVisitorRegistry(app.VisitorRegistryConfig{TransitionDelay: delay, Logger: logger})
	t.Cleanup(visitors.Close)

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:        logger,
		ServiceName:   "quotectl-test",
		Desk:          app.NewDesk(quotes, visitors, logger),
		HealthHandler: handlers.NewHealthHandler(ports.NewHealthRegistry(), handlers.NewBuildInfo("test", "abc", "now"), prometheus.NewRegistry()),
		Session: config.SessionConfig{
			CookieName:   "quotedesk_session",
			CookieSecret: "0123456789abcdef0123456789abcdef",
			CookieMaxAge: 3600,
		},
		Timeout: 5 * time.Second,
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return server
}

// run executes quotectl against server with a cookie file under dir.
func run(t *testing.T, server, cookieFile string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	all := append([]string{"--server", server, "--cookie-file", cookieFile, "--plain"}, args...)
	err := Execute(context.Background(), all, &stdout, &stderr)

	return stdout.String(), stderr.String(), err
}

func TestQuoteCommand(t *testing.T) {
	server := testServer(t, 10*time.Millisecond)
	cookies := filepath.Join(t.TempDir(), "cookies.json")

	stdout, _, err := run(t, server.URL, cookies, "quote")
	require.NoError(t, err)

	found := false
	for _, q := range domain.DefaultQuotes() {
		if strings.Contains(stdout, q.Text) {
			found = true
			assert.Contains(t, stdout, "~ "+q.Author)
		}
	}

	assert.True(t, found, "output %q holds no catalog quote", stdout)
}

func TestQuoteCommandOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quotes:\n  - author: Rob Pike\n    text: Clear is better than clever.\n"), 0o600))

	stdout, _, err := run(t, "http://127.0.0.1:1", "", "quote", "--offline", "--catalog", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Clear is better than clever.")
	assert.Contains(t, stdout, "~ Rob Pike")
}

func TestQuotesCommandListsCatalog(t *testing.T) {
	server := testServer(t, 10*time.Millisecond)

	stdout, _, err := run(t, server.URL, "", "quotes")
	require.NoError(t, err)

	for _, q := range domain.DefaultQuotes() {
		assert.Contains(t, stdout, q.Text)
	}
}

func TestLoginLogoutAcrossInvocations(t *testing.T) {
	server := testServer(t, 20*time.Millisecond)
	cookies := filepath.Join(t.TempDir(), "state", "cookies.json")

	stdout, _, err := run(t, server.URL, cookies, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are Logged out!")

	stdout, _, err = run(t, server.URL, cookies, "login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are ...")
	assert.Contains(t, stdout, "You are Logged In!")

	info, err := os.Stat(cookies)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(cookieFileMode), info.Mode().Perm())

	stdout, _, err = run(t, server.URL, cookies, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are Logged In!")

	stdout, _, err = run(t, server.URL, cookies, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are Logged out!")
}

func TestStatusWithoutCookieFileIsFreshVisitor(t *testing.T) {
	server := testServer(t, 10*time.Millisecond)

	_, _, err := run(t, server.URL, "", "login")
	require.NoError(t, err)

	stdout, _, err := run(t, server.URL, "", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You are Logged out!")
}

func TestExecuteReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"code":"SERVICE_UNAVAILABLE","message":"visitors is unavailable"}}`)
	}))
	t.Cleanup(server.Close)

	_, stderr, err := run(t, server.URL, "", "status")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", apiErr.Code)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, stderr, "SERVICE_UNAVAILABLE")
}

func TestClientTransitionInvalidDirection(t *testing.T) {
	server := testServer(t, 10*time.Millisecond)

	client, err := NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = client.Transition(context.Background(), "sideways")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Details, "direction")
}

func TestCookiesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	server := "http://quotes.example.test"
	other := "http://other.example.test"

	u, err := url.Parse(server)
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "quotedesk_session", Value: "signed"}})

	require.NoError(t, saveCookies(path, jar, server))

	otherJar, err := cookiejar.New(nil)
	require.NoError(t, err)
	require.NoError(t, saveCookies(path, otherJar, other))

	restored, err := cookiejar.New(nil)
	require.NoError(t, err)
	require.NoError(t, loadCookies(path, restored, server))

	got := restored.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "signed", got[0].Value)
}

func TestLoadCookies(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, loadCookies(filepath.Join(t.TempDir(), "none.json"), jar, "http://localhost"))
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		assert.Error(t, loadCookies(path, jar, "http://localhost"))
	})
}

func TestWaitModel(t *testing.T) {
	loading := handlers.SessionResponse{Loading: true, Status: "You are ..."}
	settled := handlers.SessionResponse{LoggedIn: true, Status: "You are Logged In!"}

	wait := func(context.Context) (handlers.SessionResponse, error) { return settled, nil }

	t.Run("await reports settled state", func(t *testing.T) {
		m := newWaitModel(context.Background(), loading, wait)

		assert.Equal(t, settledMsg{state: settled}, m.await())
		assert.Contains(t, m.View(), "You are ...")
	})

	t.Run("await reports errors", func(t *testing.T) {
		boom := errors.New("boom")
		m := newWaitModel(context.Background(), loading, func(context.Context) (handlers.SessionResponse, error) {
			return handlers.SessionResponse{}, boom
		})

		assert.Equal(t, waitErrMsg{err: boom}, m.await())
	})

	tests := []struct {
		name         string
		msg          tea.Msg
		wantDone     bool
		wantQuitting bool
		wantErr      bool
	}{
		{name: "settled", msg: settledMsg{state: settled}, wantDone: true},
		{name: "error", msg: waitErrMsg{err: errors.New("boom")}, wantErr: true},
		{name: "ctrl+c", msg: tea.KeyMsg{Type: tea.KeyCtrlC}, wantQuitting: true},
		{name: "q", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, wantQuitting: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newWaitModel(context.Background(), loading, wait)

			next, cmd := m.Update(tt.msg)
			got, ok := next.(waitModel)
			require.True(t, ok)

			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
			assert.Equal(t, tt.wantDone, got.done)
			assert.Equal(t, tt.wantQuitting, got.quitting)
			assert.Equal(t, tt.wantErr, got.err != nil)
			assert.Empty(t, got.View())

			if tt.wantDone {
				assert.Equal(t, settled, got.state)
			}
		})
	}

	t.Run("other keys are ignored", func(t *testing.T) {
		m := newWaitModel(context.Background(), loading, wait)

		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
		assert.Nil(t, cmd)
		assert.Contains(t, next.View(), "You are ...")
	})
}
