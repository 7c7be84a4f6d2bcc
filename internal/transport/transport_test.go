package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgmcp/internal/audit"
	"pkgmcp/internal/auth"
	"pkgmcp/internal/logging"
	"pkgmcp/internal/metrics"
)

const legacySecret = "shared-secret-for-tests"

// identityEcho stands in for the MCP handler and reports who reached it.
func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user := auth.UserFromContext(r.Context())
		body := map[string]any{"authenticated": user != nil}
		if user != nil {
			body["username"] = user.Username
			body["role"] = string(user.Role)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
}

func setupTestRouter(t *testing.T, settings auth.Settings, users auth.UserLookup, origins ...string) (*gin.Engine, *logging.AppLogger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := logging.NewTestLogger()
	router := NewRouter(identityEcho(), RouterOptions{
		Authenticator: auth.NewAuthenticator(settings, users, logger),
		Audit:         audit.NewLogger(logger),
		Logger:        logger,
		ServerName:    "pkgmcp",
		CORSOrigins:   origins,
	})
	return router, logger
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "none", headers: nil, want: ""},
		{name: "x-api-key", headers: map[string]string{"X-API-Key": "k1"}, want: "k1"},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer k2"}, want: "k2"},
		{name: "raw authorization", headers: map[string]string{"Authorization": "k3"}, want: "k3"},
		{name: "x-auth-token", headers: map[string]string{"X-Auth-Token": "k4"}, want: "k4"},
		{
			name:    "x-api-key wins",
			headers: map[string]string{"X-API-Key": "first", "Authorization": "Bearer second", "X-Auth-Token": "third"},
			want:    "first",
		},
		{
			name:    "empty header skipped",
			headers: map[string]string{"X-API-Key": "  ", "X-Auth-Token": "k5"},
			want:    "k5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractAPIKey(h))
		})
	}
}

func TestHealth_NoAuthentication(t *testing.T) {
	router, _ := setupTestRouter(t, auth.Settings{EnableAuth: true, LegacyKey: legacySecret}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "server": "pkgmcp"}, decode(t, rec))
}

func TestMCP_LegacyMode(t *testing.T) {
	router, _ := setupTestRouter(t, auth.Settings{EnableAuth: true, LegacyKey: legacySecret}, nil)

	tests := []struct {
		name         string
		header       string
		value        string
		expectedCode int
		expectedErr  string
	}{
		{name: "missing key", expectedCode: http.StatusUnauthorized, expectedErr: "authentication required"},
		{name: "wrong key", header: "X-API-Key", value: "not-the-secret", expectedCode: http.StatusUnauthorized, expectedErr: "invalid credential"},
		{name: "x-api-key", header: "X-API-Key", value: legacySecret, expectedCode: http.StatusOK},
		{name: "bearer", header: "Authorization", value: "Bearer " + legacySecret, expectedCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, MCPPath, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			body := decode(t, rec)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, body["error"])
				if tt.value != "" {
					assert.NotContains(t, rec.Body.String(), tt.value, "the presented key is never echoed")
				}
				return
			}
			assert.Equal(t, true, body["authenticated"])
			assert.Equal(t, auth.LegacyUsername, body["username"])
			assert.Equal(t, "admin", body["role"])
		})
	}
}

func TestMCP_UserMode(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	store := auth.NewStore(t.TempDir()+"/users.json", logger)
	_, userKey, err := store.Create("bob", "", auth.RoleUser)
	require.NoError(t, err)

	router, _ := setupTestRouter(t, auth.Settings{EnableAuth: true, EnableUserAuth: true}, store)

	req := httptest.NewRequest(http.MethodGet, MCPPath, nil)
	req.Header.Set("X-Auth-Token", userKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "bob", body["username"])
	assert.Equal(t, "user", body["role"])

	req = httptest.NewRequest(http.MethodGet, MCPPath, nil)
	req.Header.Set("X-API-Key", "unknown-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMCP_DisabledAuthIsAnonymous(t *testing.T) {
	router, _ := setupTestRouter(t, auth.Settings{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MCPPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["authenticated"])
}

func TestAuthFailureIsAudited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := logging.NewTestLogger()
	router := NewRouter(identityEcho(), RouterOptions{
		Authenticator: auth.NewAuthenticator(auth.Settings{EnableAuth: true, LegacyKey: legacySecret}, nil, logger),
		Audit:         audit.NewLogger(logger),
		Logger:        logger,
	})

	req := httptest.NewRequest(http.MethodPost, MCPPath, nil)
	req.Header.Set("X-API-Key", "guessed-key")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), audit.EventAuthenticationFailed)
	assert.NotContains(t, buf.String(), "guessed-key")
}

func TestCORS(t *testing.T) {
	router, _ := setupTestRouter(t, auth.Settings{EnableAuth: true, LegacyKey: legacySecret}, nil, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodOptions, MCPPath, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code, "preflight is answered before authentication")

	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.False(t, corsConfig([]string{"https://a.example"}).AllowAllOrigins)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := logging.NewTestLogger()
	m := metrics.New()
	router := NewRouter(identityEcho(), RouterOptions{
		Authenticator: auth.NewAuthenticator(auth.Settings{EnableAuth: true, LegacyKey: legacySecret}, nil, logger),
		Audit:         audit.NewLogger(logger).WithMetrics(m),
		Logger:        logger,
		Metrics:       m,
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, MCPPath, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pkgmcp_http_requests_total{method="POST",route="/mcp",status="401"} 1`)
	assert.Contains(t, body, `pkgmcp_security_events_total{event="authentication_failed"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	router, _ := setupTestRouter(t, auth.Settings{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := logging.NewTestLogger()
	router := NewRouter(identityEcho(), RouterOptions{
		Authenticator: auth.NewAuthenticator(auth.Settings{}, nil, logger),
		Logger:        logger,
		ServerName:    "pkgmcp",
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer("127.0.0.1", 0, router, logger)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
	assert.Zero(t, srv.srv.WriteTimeout, "event streams on /mcp must not be cut off")
	assert.Equal(t, 5*time.Second, srv.srv.ReadHeaderTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
