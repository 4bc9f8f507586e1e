package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shopemx/internal/services"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// SessionValidator: то, что нужно мидлвари от AuthService.
type SessionValidator interface {
	ValidateSession(token string) (*services.Claims, error)
}

// CookieConfig: параметры сессионной куки.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (cc CookieConfig) name() string {
	if cc.Name == "" {
		return "shopemx_auth"
	}
	return cc.Name
}

// SetSessionCookie ставит HTTP-only куку на весь сайт.
func SetSessionCookie(c *gin.Context, cc CookieConfig, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.name(), token, int(cc.TTL/time.Second), "/", "", cc.Secure, true)
}

func ClearSessionCookie(c *gin.Context, cc CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.name(), "", -1, "/", "", cc.Secure, true)
}

// tokenFrom: сначала кука, потом Authorization: Bearer.
func tokenFrom(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authenticate(c *gin.Context, v SessionValidator, cc CookieConfig) bool {
	tokenStr := tokenFrom(c, cc.name())
	if tokenStr == "" {
		return false
	}
	claims, err := v.ValidateSession(tokenStr)
	if err != nil {
		return false
	}
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	return true
}

func AuthMiddleware(v SessionValidator, cc CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// пропускаем preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !authenticate(c, v, cc) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Не авторизован"})
			return
		}
		c.Next()
	}
}

// OptionalAuth пропускает запрос и без сессии (нужно для logout).
func OptionalAuth(v SessionValidator, cc CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, v, cc)
		c.Next()
	}
}
