package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/config"
	"github.com/unitms/army-ums/internal/models"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		CookieName: "ums_token",
	}
}

// newAuthTestRouter builds a bare router exercising just the auth middleware
func newAuthTestRouter(t *testing.T, requiredRole string) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := &Server{
		authCfg: testAuthConfig(),
		logger:  zap.NewNop(),
	}

	router := gin.New()
	handlers := []gin.HandlerFunc{server.authRequired()}
	if requiredRole != "" {
		handlers = append(handlers, server.requireRole(requiredRole))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := principal(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID, "role": claims.Role})
	})
	router.GET("/protected", handlers...)

	return router, server
}

// authCookie mints a signed auth cookie for the given principal
func authCookie(t *testing.T, cfg config.AuthConfig, userID, role string) *http.Cookie {
	t.Helper()

	issuer := &cookieIssuer{cfg: cfg}
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	require.NoError(t, issuer.issue(c, userID, role))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestAuthRequired(t *testing.T) {
	router, server := newAuthTestRouter(t, "")

	t.Run("no cookie", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(&http.Cookie{Name: server.authCfg.CookieName, Value: "not-a-jwt"})
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		otherCfg := testAuthConfig()
		otherCfg.JWTSecret = "other-secret"
		cookie := authCookie(t, otherCfg, "user-1", models.RoleUser)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(cookie)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := authClaims{
			UserID: "user-1",
			Role:   models.RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(server.authCfg.JWTSecret))
		require.NoError(t, err)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(&http.Cookie{Name: server.authCfg.CookieName, Value: token})
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("valid token passes the principal through", func(t *testing.T) {
		cookie := authCookie(t, server.authCfg, "user-1", models.RoleManager)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(cookie)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"userId":"user-1","role":"MANAGER"}`, recorder.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	router, server := newAuthTestRouter(t, models.RoleAdmin)

	t.Run("wrong role", func(t *testing.T) {
		cookie := authCookie(t, server.authCfg, "user-1", models.RoleManager)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(cookie)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("matching role", func(t *testing.T) {
		cookie := authCookie(t, server.authCfg, "admin-1", models.RoleAdmin)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(cookie)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	// Roles are distinct capability sets: ADMIN does not imply MANAGER.
	t.Run("admin is not a manager", func(t *testing.T) {
		managerRouter, _ := newAuthTestRouter(t, models.RoleManager)
		cookie := authCookie(t, server.authCfg, "admin-1", models.RoleAdmin)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		request.AddCookie(cookie)
		managerRouter.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestCookieIssuer_Clear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := &cookieIssuer{cfg: testAuthConfig()}

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	issuer.clear(c)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ums_token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0, "clearing expires the cookie")
}
