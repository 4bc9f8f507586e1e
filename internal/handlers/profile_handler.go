package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopemx/internal/services"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

// @Summary      Обновление анкеты
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        body  body      services.ProfileInput  true  "Анкета"
// @Success      200   {object}  models.User
// @Failure      400   {object}  map[string]interface{}
// @Router       /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Profiles.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Профиль обновлен", "user": u})
}

// @Summary      Банковские реквизиты
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        body  body      services.BankInput  true  "Реквизиты"
// @Success      200   {object}  models.User
// @Failure      400   {object}  map[string]interface{}
// @Router       /profile/bank-details [put]
func (h *ProfileHandler) UpdateBank(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.BankInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Profiles.UpdateBankDetails(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Банковские реквизиты обновлены", "user": u})
}

// @Summary      Заявка на верификацию
// @Tags         Profile
// @Produce      json
// @Success      201  {object}  models.VerificationRequest
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}
// @Router       /profile/verification-request [post]
func (h *ProfileHandler) RequestVerification(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	req, err := h.Profiles.RequestVerification(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Заявка на верификацию отправлена", "requestId": req.ID, "request": req})
}

// @Summary      Мои заявки на верификацию
// @Tags         Profile
// @Produce      json
// @Success      200  {array}  models.VerificationRequest
// @Router       /profile/verification-request [get]
func (h *ProfileHandler) ListRequests(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reqs, err := h.Profiles.ListVerificationRequests(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}
