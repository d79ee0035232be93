package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/study-share/internal/domain"
)

func TestGuardAllowsPermittedRole(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	guard := NewGuard(tokens)

	token, _, err := tokens.GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)

	decision := guard.Authorize(token, domain.ModeratorRoles)
	assert.True(t, decision.Allowed)
	assert.Equal(t, domain.Identity{UserID: "u-1", Role: domain.RoleAdmin}, decision.Identity)
}

func TestGuardDenies(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	guard := NewGuard(tokens)

	userToken, _, err := tokens.GenerateToken("u-1", domain.RoleUser)
	require.NoError(t, err)
	foreign, _, err := NewTokenManager("other", 5).GenerateToken("u-1", domain.RoleSuperAdmin)
	require.NoError(t, err)

	cases := []struct {
		name       string
		credential string
		reason     string
	}{
		{"absent", "", ReasonMissingCredential},
		{"garbage", "not-a-token", ReasonInvalidCredential},
		{"wrong signature", foreign, ReasonInvalidCredential},
		{"insufficient role", userToken, ReasonRoleNotPermitted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := guard.Authorize(tc.credential, domain.ModeratorRoles)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestGuardDeniesExpiredCredential(t *testing.T) {
	tokens := NewTokenManager("secret", 1)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := tokens.GenerateToken("u-1", domain.RoleSuperAdmin)
	require.NoError(t, err)

	tokens.now = time.Now
	decision := NewGuard(tokens).Authorize(stale, domain.ModeratorRoles)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInvalidCredential, decision.Reason)
}

func TestGuardRejectsTokenWithoutExpiry(t *testing.T) {
	claims := &Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	decision := NewGuard(NewTokenManager("secret", 5)).Authorize(raw, domain.ModeratorRoles)
	assert.False(t, decision.Allowed)
}

func TestGuardIsDeterministic(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	guard := NewGuard(tokens)
	token, _, err := tokens.GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)

	first := guard.Authorize(token, domain.ModeratorRoles)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, guard.Authorize(token, domain.ModeratorRoles))
	}
	// same credential, stricter view
	assert.False(t, guard.Authorize(token, domain.SuperAdminRoles).Allowed)
}

func TestUnknownRoleClaimIsLeastPrivilege(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	token, _, err := tokens.GenerateToken("u-1", domain.Role("root"))
	require.NoError(t, err)

	identity, err := tokens.ParseCredential(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, identity.Role)
}

func TestCredentialFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CredentialFromRequest(c))
	})

	cases := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer", "Bearer abc", "", "abc"},
		{"cookie", "", "xyz", "xyz"},
		{"header wins", "bearer abc", "xyz", "abc"},
		{"malformed header", "Basic abc", "xyz", ""},
		{"none", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.Header.Set("Cookie", CookieName+"="+tc.cookie)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(body))
		})
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "hunter23"))
}

func TestPasswordPolicy(t *testing.T) {
	assert.False(t, PasswordAcceptable("short"))
	assert.True(t, PasswordAcceptable("long enough"))
}
