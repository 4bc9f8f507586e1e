package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopemx/internal/middleware"
	"shopemx/internal/services"
)

type AuthHandler struct {
	Users  *services.UserService
	Cookie middleware.CookieConfig
	AppURL string
}

func NewAuthHandler(users *services.UserService, cookie middleware.CookieConfig, appURL string) *AuthHandler {
	return &AuthHandler{Users: users, Cookie: cookie, AppURL: appURL}
}

type phoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	SMSCode   string `json:"smsCode" binding:"required"`
	EmailCode string `json:"emailCode" binding:"required"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// @Summary      Проверка телефона
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      phoneRequest  true  "Телефон"
// @Success      200   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]string
// @Router       /auth/check-phone [post]
func (h *AuthHandler) CheckPhone(c *gin.Context) {
	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.CheckPhone(c.Request.Context(), req.Phone); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true})
}

// @Summary      Вход в систему
// @Description  Проверяет пароль, ставит сессионную куку и отправляет коды SMS и email
// @Tags         Auth
// @Accept       json
// @Param        body  body  loginRequest  true  "Данные для входа"
// @Success      303
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sess, err := h.Users.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetSessionCookie(c, h.Cookie, sess.Token)
	c.Redirect(http.StatusSeeOther, redirectTo(h.AppURL, "/verify"))
}

// @Summary      Регистрация
// @Tags         Auth
// @Accept       json
// @Param        body  body  services.RegisterInput  true  "Анкета"
// @Success      303
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	sess, err := h.Users.Register(c.Request.Context(), in, clientMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetSessionCookie(c, h.Cookie, sess.Token)
	c.Redirect(http.StatusSeeOther, redirectTo(h.AppURL, "/verify"))
}

// @Summary      Подтверждение входа кодами SMS и email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Коды"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.CompleteVerification(c.Request.Context(), userID, req.SMSCode, req.EmailCode, clientMeta(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Верификация успешно пройдена"})
}

// @Summary      Проверка текущего пароля
// @Tags         Auth
// @Accept       json
// @Param        body  body  passwordRequest  true  "Пароль"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify-password [post]
func (h *AuthHandler) VerifyPassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.VerifyPassword(c.Request.Context(), userID, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// @Summary      Смена пароля
// @Tags         Auth
// @Accept       json
// @Param        body  body  changePasswordRequest  true  "Пароли"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Пароль успешно изменен"})
}

// @Summary      Выход
// @Tags         Auth
// @Success      303
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, ok := getInt64FromCtx(c, middleware.CtxUserID); ok {
		if err := h.Users.Logout(c.Request.Context(), userID); err != nil {
			// куку всё равно чистим
			zap.L().Warn("[auth][logout] reset verification failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	middleware.ClearSessionCookie(c, h.Cookie)
	c.Redirect(http.StatusSeeOther, redirectTo(h.AppURL, "/"))
}

// @Summary      Текущий пользователь
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]string
// @Router       /user [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.Users.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
