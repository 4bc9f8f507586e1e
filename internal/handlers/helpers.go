package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopemx/internal/middleware"
	"shopemx/internal/services"
)

// более устойчиво к типам (int / int64 / float64 / string)
func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// currentUser достаёт id из токена, при его отсутствии сразу отвечает 401.
func currentUser(c *gin.Context) (int64, bool) {
	id, ok := getInt64FromCtx(c, middleware.CtxUserID)
	if !ok || id == 0 {
		writeError(c, services.ErrUnauthenticated)
		return 0, false
	}
	return id, true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Некорректный идентификатор"})
		return 0, false
	}
	return id, true
}

func clientMeta(c *gin.Context) services.ClientMeta {
	return services.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Некорректный запрос: " + err.Error()})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation, services.KindInvalidState, services.KindInvalidCode:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError: единственное место, где ошибки сервисов превращаются в HTTP.
// Формат: {message, field?, errors?}.
func writeError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		zap.L().Error("[http][err] unexpected", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Внутренняя ошибка сервера"})
		return
	}
	status := statusFor(se.Kind)
	body := gin.H{"message": se.Message}
	if status == http.StatusInternalServerError {
		zap.L().Error("[http][err] internal", zap.String("path", c.FullPath()), zap.Error(err))
	}
	if se.Field != "" {
		body["field"] = se.Field
	}
	if len(se.Errors) > 0 {
		body["errors"] = se.Errors
	}
	if se.RefID != 0 {
		body["requestId"] = se.RefID
	}
	c.JSON(status, body)
}

func redirectTo(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
