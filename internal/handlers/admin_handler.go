package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shopemx/internal/models"
	"shopemx/internal/services"
)

type AdminHandler struct {
	Admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler { return &AdminHandler{Admin: admin} }

type rejectRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Заявки на верификацию
// @Tags         Admin
// @Produce      json
// @Param        status  query     string  false  "PENDING | APPROVED | REJECTED | ALL"
// @Success      200     {array}   models.VerificationRequest
// @Failure      403     {object}  map[string]string
// @Router       /admin/verification-requests [get]
func (h *AdminHandler) ListRequests(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	var status *models.RequestStatus
	switch q := models.RequestStatus(strings.ToUpper(c.DefaultQuery("status", "PENDING"))); q {
	case "ALL":
	case models.RequestPending, models.RequestApproved, models.RequestRejected:
		status = &q
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Некорректный статус", "field": "status"})
		return
	}
	reqs, err := h.Admin.ListRequests(c.Request.Context(), adminID, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// @Summary      Одобрить заявку
// @Tags         Admin
// @Produce      json
// @Param        id   path      int  true  "ID заявки"
// @Success      200  {object}  models.VerificationRequest
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /admin/verification-requests/{id}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := h.Admin.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заявка одобрена", "request": req})
}

// @Summary      Отклонить заявку
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path      int            true  "ID заявки"
// @Param        body  body      rejectRequest  true  "Причина"
// @Success      200   {object}  models.VerificationRequest
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /admin/verification-requests/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body rejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	req, err := h.Admin.Reject(c.Request.Context(), id, adminID, body.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заявка отклонена", "request": req})
}

// @Summary      Пользователи
// @Tags         Admin
// @Produce      json
// @Success      200  {array}  models.User
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	users, err := h.Admin.ListUsers(c.Request.Context(), adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// @Summary      Выгрузка пользователей в Excel
// @Tags         Admin
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /admin/users/export [get]
func (h *AdminHandler) ExportUsers(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.Admin.ExportUsers(c.Request.Context(), adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary      Скан документа пользователя
// @Tags         Admin
// @Produce      json
// @Param        id   path      int  true  "ID пользователя"
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/users/{id}/document [get]
func (h *AdminHandler) UserDocument(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	url, err := h.Admin.UserDocument(c.Request.Context(), adminID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if url == "" {
		c.JSON(http.StatusOK, gin.H{"filePath": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filePath": url})
}
