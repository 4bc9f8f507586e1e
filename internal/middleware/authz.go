package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopemx/internal/authz"
	"shopemx/internal/models"
)

// RequireAdmin отсекает не-админов по роли из токена. Сервис всё равно
// перепроверяет роль по базе.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(CtxRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Не авторизован"})
			return
		}
		role, _ := v.(models.Role)
		if !authz.IsAdmin(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Доступ запрещен"})
			return
		}
		c.Next()
	}
}
