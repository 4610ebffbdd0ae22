package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/unitms/army-ums/internal/config"
)

const authContextKey = "auth"

// authClaims is the JWT payload carried in the auth cookie. The core only
// ever needs the already-authenticated principal: who and in what role.
type authClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// cookieIssuer mints the http-only auth cookie for session handlers
type cookieIssuer struct {
	cfg config.AuthConfig
}

// issue signs a token for the principal and sets it as the auth cookie
func (i *cookieIssuer) issue(c *gin.Context, userID, role string) error {
	now := time.Now()
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.JWTSecret))
	if err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(i.cfg.CookieName, token, int(i.cfg.TokenTTL.Seconds()), "/", "", i.cfg.CookieSecure, true)
	return nil
}

// clear expires the auth cookie
func (i *cookieIssuer) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(i.cfg.CookieName, "", -1, "/", "", i.cfg.CookieSecure, true)
}

// authRequired verifies the auth cookie and stores the principal on the
// context. Missing or invalid credentials are 401; role failures are handled
// separately so the client can tell the two apart.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.authCfg.CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims := &authClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.authCfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(authContextKey, claims)
		c.Next()
	}
}

// requireRole gates a route group on one declared role
func (s *Server) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := principal(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// principal returns the authenticated principal stored by authRequired
func principal(c *gin.Context) *authClaims {
	value, ok := c.Get(authContextKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*authClaims)
	return claims
}
