package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
	"shopemx/internal/services"
)

type staticSessions map[string]*services.Claims

func (s staticSessions) ValidateSession(token string) (*services.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func newRouter(sessions SessionValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cc := CookieConfig{Name: "sid"}
	g := r.Group("", AuthMiddleware(sessions, cc))
	g.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetInt64(CtxUserID)})
	})
	g.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/open", OptionalAuth(sessions, cc), func(c *gin.Context) {
		_, ok := c.Get(CtxUserID)
		c.JSON(http.StatusOK, gin.H{"authed": ok})
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(staticSessions{
		"user":  {UserID: 1, Role: models.RoleUser},
		"admin": {UserID: 2, Role: models.RoleAdmin},
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "user"})
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":1}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer admin")
	require.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
	require.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	// preflight без сессии
	w = serve(r, httptest.NewRequest(http.MethodOptions, "/me", nil))
	require.NotEqual(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(staticSessions{
		"user":  {UserID: 1, Role: models.RoleUser},
		"admin": {UserID: 2, Role: models.RoleAdmin},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "user"})
	require.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "admin"})
	require.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter(staticSessions{"user": {UserID: 1, Role: models.RoleUser}})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/open", nil))
	require.JSONEq(t, `{"authed":false}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "user"})
	require.JSONEq(t, `{"authed":true}`, serve(r, req).Body.String())
}

func TestSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetSessionCookie(c, CookieConfig{TTL: time.Hour}, "tok")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "shopemx_auth", cookies[0].Name)
	require.Equal(t, "tok", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, 3600, cookies[0].MaxAge)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}
