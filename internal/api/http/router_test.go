package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/study-share/internal/api/http/handlers"
	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/config"
	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/events"
	"github.com/spec-kit/study-share/internal/observability"
	"github.com/spec-kit/study-share/internal/repository/memory"
	"github.com/spec-kit/study-share/internal/service"
)

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager("test-secret", 5)
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: 4}}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:     store.Users(),
		TokenManager: tokens,
		Dispatcher:   dispatcher,
	})
	moderation := service.NewModerationService(service.ModerationDependencies{
		QuestionRepo: store.Questions(),
		ReportRepo:   store.Reports(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
	})
	admin := service.NewAdminService(service.AdminDependencies{UserRepo: store.Users()})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("study-share", "test", map[string]handlers.Pinger{"postgres": nil}),
		Users:     handlers.NewUsersHandler(authService),
		Questions: handlers.NewQuestionsHandler(moderation),
		Admin:     handlers.NewAdminHandler(moderation, admin),
		Guard:     auth.NewGuard(tokens),
		Metrics:   metrics,
		Logger:    logger,
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

// member stores a user with role and returns a credential for them.
func (s *testServer) member(t *testing.T, email string, role domain.Role) (string, string) {
	t.Helper()
	user := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, s.store.Users().Create(context.Background(), user))
	token, _, err := s.tokens.GenerateToken(user.ID, role)
	require.NoError(t, err)
	return user.ID, token
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (s *testServer) do(t *testing.T, c call) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestUserDeniedAdminViewWithoutReferrer(t *testing.T) {
	s := newTestServer(t)
	_, token := s.member(t, "u@example.com", domain.RoleUser)

	resp, body := s.do(t, call{method: "GET", path: "/admin/reports", token: token})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	out := decodeError(t, body)
	assert.Equal(t, "FORBIDDEN", out.Error.Code)
	assert.Equal(t, RestrictedNotice, out.Error.Message)
	assert.Equal(t, "/", out.Error.Details["redirect"])
}

func TestAdminAllowedAndRolePassedDownstream(t *testing.T) {
	s := newTestServer(t)
	adminID, token := s.member(t, "admin@example.com", domain.RoleAdmin)

	resp, body := s.do(t, call{method: "GET", path: "/admin/administrators", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Data   []map[string]any `json:"data"`
		Viewer struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"viewer"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, adminID, out.Viewer.ID)
	assert.Equal(t, "admin", out.Viewer.Role)
	assert.Len(t, out.Data, 1)
}

func TestDeniedWithoutCredential(t *testing.T) {
	s := newTestServer(t)
	expired := auth.NewTokenManager("other-secret", 5)
	forged, _, err := expired.GenerateToken("x", domain.RoleSuperAdmin)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", forged} {
		resp, body := s.do(t, call{method: "GET", path: "/admin/administrators", token: token})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, RestrictedNotice, decodeError(t, body).Error.Message)
	}
}

func TestCookieCredentialAccepted(t *testing.T) {
	s := newTestServer(t)
	_, token := s.member(t, "root@example.com", domain.RoleSuperAdmin)

	resp, _ := s.do(t, call{method: "GET", path: "/admin/reports", headers: map[string]string{"Cookie": auth.CookieName + "=" + token}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedirectTarget(t *testing.T) {
	s := newTestServer(t)
	_, token := s.member(t, "u@example.com", domain.RoleUser)

	cases := []struct {
		name    string
		referer string
		want    string
	}{
		{"same origin", "http://example.com/questions/calculus-help?tab=1", "/questions/calculus-help?tab=1"},
		{"relative", "/questions", "/questions"},
		{"foreign origin", "https://evil.example.org/phish", "/"},
		{"restricted page itself", "http://example.com/admin/reports", "/"},
		{"another admin view", "http://example.com/admin/administrators", "/"},
		{"admin root", "/admin", "/"},
		{"admin view by dot segments", "/questions/../Admin/administrators", "/"},
		{"lookalike prefix", "/administrivia", "/administrivia"},
		{"protocol relative", "//evil.example.org/x", "/"},
		{"script scheme", "javascript:alert(1)", "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.do(t, call{method: "GET", path: "/admin/reports", token: token,
				headers: map[string]string{"Referer": tc.referer}})
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, tc.want, decodeError(t, body).Error.Details["redirect"])
		})
	}
}

func TestDeniedAdminViewsNeverBounceBetweenEachOther(t *testing.T) {
	s := newTestServer(t)
	_, token := s.member(t, "u@example.com", domain.RoleUser)

	hops := []struct{ path, referer string }{
		{"/admin/reports", "http://example.com/admin/administrators"},
		{"/admin/administrators", "http://example.com/admin/reports"},
	}
	for _, hop := range hops {
		resp, body := s.do(t, call{method: "GET", path: hop.path, token: token,
			headers: map[string]string{"Referer": hop.referer}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "/", decodeError(t, body).Error.Details["redirect"], hop.path)
	}
}

func TestHTMLClientGetsAlertAndNavigation(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: "GET", path: "/admin/reports",
		headers: map[string]string{"Accept": "text/html,application/xhtml+xml", "Referer": "http://example.com/questions"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := string(body)
	assert.Contains(t, page, `alert("Page Restricted")`)
	assert.Contains(t, page, `window.location.href = "`)
	assert.Contains(t, page, `questions";`)
	assert.Contains(t, page, `url=/questions`)
}

func TestSetRoleRequiresSuperAdmin(t *testing.T) {
	s := newTestServer(t)
	userID, _ := s.member(t, "u@example.com", domain.RoleUser)
	_, adminToken := s.member(t, "admin@example.com", domain.RoleAdmin)
	_, superToken := s.member(t, "root@example.com", domain.RoleSuperAdmin)

	resp, _ := s.do(t, call{method: "PUT", path: "/admin/users/" + userID + "/role", token: adminToken, body: map[string]string{"role": "admin"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, call{method: "PUT", path: "/admin/users/" + userID + "/role", token: superToken, body: map[string]string{"role": "admin"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	stored, err := s.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)
}

func TestModerationFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, call{method: "POST", path: "/auth/users/register",
		body: map[string]string{"name": "Levin", "email": "levin@example.com", "password": "correct horse"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var registered struct {
		Data struct {
			Auth struct {
				Token string `json:"token"`
			} `json:"auth"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &registered))
	userToken := registered.Data.Auth.Token
	require.NotEmpty(t, userToken)

	resp, body = s.do(t, call{method: "POST", path: "/auth/users/register",
		body: map[string]string{"name": "Again", "email": "levin@example.com", "password": "correct horse"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decodeError(t, body).Error.Code)

	resp, _ = s.do(t, call{method: "POST", path: "/questions", body: map[string]string{"title": "Calculus help", "body": "limits"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(t, call{method: "POST", path: "/questions", token: userToken, body: map[string]string{"title": "Calculus help", "body": "limits"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, call{method: "POST", path: "/questions", token: userToken, body: map[string]string{"title": "Calculus Help!", "body": "again"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "calculus-help", decodeError(t, body).Error.Details["slug"])

	resp, body = s.do(t, call{method: "POST", path: "/questions/calculus-help/reports", token: userToken, body: map[string]string{"reason": "spam"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var filed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &filed))

	_, body = s.do(t, call{method: "GET", path: "/questions/calculus-help"})
	var question struct {
		Data struct {
			Reports []string `json:"reports"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &question))
	assert.Equal(t, []string{filed.Data.ID}, question.Data.Reports)

	_, adminToken := s.member(t, "admin@example.com", domain.RoleAdmin)
	resolvePath := "/admin/reports/" + filed.Data.ID + "/resolve"

	resp, _ = s.do(t, call{method: "POST", path: resolvePath, token: userToken, body: map[string]string{"outcome": "actioned"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, call{method: "POST", path: resolvePath, token: adminToken, body: map[string]string{"outcome": "actioned"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var resolved struct {
		Data struct {
			QuestionDeleted bool `json:"question_deleted"`
			ReportsRemoved  int  `json:"reports_removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.True(t, resolved.Data.QuestionDeleted)
	assert.Equal(t, 1, resolved.Data.ReportsRemoved)

	resp, _ = s.do(t, call{method: "POST", path: resolvePath, token: adminToken, body: map[string]string{"outcome": "actioned"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, call{method: "GET", path: "/questions/calculus-help"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, call{method: "GET", path: "/health/ready"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.do(t, call{method: "GET", path: "/admin/reports"})
	resp, body := s.do(t, call{method: "GET", path: "/metrics"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `studyshare_guard_decisions_total{decision="deny"} 1`)
}

func TestUnknownRouteRendersDomainError(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, call{method: "GET", path: "/nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Error.Code)
}
