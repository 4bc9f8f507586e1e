package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"shopemx/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := map[services.Kind]int{
		services.KindUnauthenticated: http.StatusUnauthorized,
		services.KindForbidden:       http.StatusForbidden,
		services.KindNotFound:        http.StatusNotFound,
		services.KindValidation:      http.StatusBadRequest,
		services.KindInvalidState:    http.StatusBadRequest,
		services.KindInvalidCode:     http.StatusBadRequest,
		services.KindConflict:        http.StatusConflict,
		services.KindRateLimited:     http.StatusTooManyRequests,
		services.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, statusFor(kind), kind.String())
	}
}

func recordError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(c, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestWriteError(t *testing.T) {
	code, body := recordError(t, services.ErrPhoneTaken)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "phone", body["field"])

	code, body = recordError(t, &services.Error{Kind: services.KindConflict, Message: "pending", RefID: 7})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, float64(7), body["requestId"])

	code, body = recordError(t, &services.Error{
		Kind:    services.KindValidation,
		Message: "bad",
		Errors:  []services.FieldError{{Field: "bankBik", Message: "БИК должен содержать 9 цифр"}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Len(t, body["errors"], 1)

	// внутренние детали наружу не отдаём
	code, body = recordError(t, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.NotContains(t, body["message"], "pq")
}

func TestGetInt64FromCtx(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := getInt64FromCtx(c, "id")
	require.False(t, ok)

	for _, v := range []any{int64(5), 5, float64(5), "5"} {
		c.Set("id", v)
		got, ok := getInt64FromCtx(c, "id")
		require.True(t, ok)
		require.Equal(t, int64(5), got)
	}
}
