package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopemx/internal/models"
	"shopemx/internal/services"
)

type VerifyHandler struct {
	Users *services.UserService
}

func NewVerifyHandler(users *services.UserService) *VerifyHandler {
	return &VerifyHandler{Users: users}
}

type sendCodeRequest struct {
	Type models.VerificationType `json:"type" binding:"required"`
}

type verifyCodeRequest struct {
	Code string                  `json:"code" binding:"required"`
	Type models.VerificationType `json:"type" binding:"required"`
}

func normalizeType(t models.VerificationType) models.VerificationType {
	return models.VerificationType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// @Summary      Повторная отправка кода
// @Tags         Verify
// @Accept       json
// @Param        body  body      sendCodeRequest  true  "Канал: SMS или EMAIL"
// @Success      200   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/send-verification-code [post]
func (h *VerifyHandler) SendCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.ResendCode(c.Request.Context(), userID, normalizeType(req.Type)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Код отправлен"})
}

// @Summary      Проверка одиночного кода
// @Tags         Verify
// @Accept       json
// @Param        body  body      verifyCodeRequest  true  "Код и канал"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify-code [post]
func (h *VerifyHandler) VerifyCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.VerifyCode(c.Request.Context(), userID, strings.TrimSpace(req.Code), normalizeType(req.Type)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Код подтвержден"})
}
