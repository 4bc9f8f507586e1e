package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopemx/internal/services"
)

type SellHandler struct {
	Offers         *services.OfferService
	MaxArtworkSize int64
}

func NewSellHandler(offers *services.OfferService, maxArtworkSize int64) *SellHandler {
	if maxArtworkSize <= 0 {
		maxArtworkSize = 50 << 20
	}
	return &SellHandler{Offers: offers, MaxArtworkSize: maxArtworkSize}
}

// @Summary      Выставить произведение
// @Tags         Sell
// @Accept       multipart/form-data
// @Produce      json
// @Param        file                formData  file    true   "Файл произведения"
// @Param        title               formData  string  true   "Название"
// @Param        description         formData  string  true   "Описание"
// @Param        contractType        formData  string  true   "EXCLUSIVE_RIGHTS | LICENSE"
// @Param        isFree              formData  bool    false  "Безвозмездно"
// @Param        price               formData  string  false  "Цена, например 1500,00"
// @Param        isExclusiveLicense  formData  bool    false  "Исключительная лицензия"
// @Param        isPerpetualLicense  formData  bool    false  "Бессрочная лицензия"
// @Param        licenseDuration     formData  string  false  "Срок лицензии, лет"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /sell/create-offer [post]
func (h *SellHandler) CreateOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.CreateOfferInput
	if err := c.ShouldBind(&in); err != nil {
		bindError(c, err)
		return
	}
	var up *services.Upload
	if fh, err := c.FormFile("file"); err == nil {
		if up, err = readUpload(fh, h.MaxArtworkSize); err != nil {
			bindError(c, err)
			return
		}
		if int64(len(up.Data)) > h.MaxArtworkSize {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Файл слишком большой", "field": "file"})
			return
		}
	}
	id, err := h.Offers.CreateOffer(c.Request.Context(), userID, in, up)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Предложение успешно создано", "offerId": id})
}

// @Summary      Подтвердить предложение (договор + ACTIVE)
// @Tags         Sell
// @Produce      json
// @Param        id   path      int  true  "ID предложения"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sell/confirm-offer/{id} [post]
func (h *SellHandler) ConfirmOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	url, err := h.Offers.ConfirmOffer(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Предложение подтверждено", "contractUrl": url})
}

// @Summary      Снять предложение
// @Tags         Sell
// @Param        id   path      int  true  "ID предложения"
// @Success      200  {object}  map[string]string
// @Router       /sell/cancel-offer/{id} [post]
func (h *SellHandler) CancelOffer(c *gin.Context) {
	h.terminal(c, h.Offers.Cancel, "Предложение отменено")
}

// @Summary      Отклонить предложение
// @Tags         Sell
// @Param        id   path      int  true  "ID предложения"
// @Success      200  {object}  map[string]string
// @Router       /sell/decline-offer/{id} [post]
func (h *SellHandler) DeclineOffer(c *gin.Context) {
	h.terminal(c, h.Offers.Decline, "Предложение отклонено")
}

func (h *SellHandler) terminal(c *gin.Context, op func(ctx context.Context, sellerID, offerID int64) error, msg string) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := op(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// @Summary      Активные предложения
// @Tags         Sell
// @Produce      json
// @Success      200  {array}  models.SellOffer
// @Router       /offers [get]
func (h *SellHandler) ListActive(c *gin.Context) {
	offers, err := h.Offers.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// @Summary      Предложение
// @Tags         Sell
// @Produce      json
// @Param        id   path      int  true  "ID предложения"
// @Success      200  {object}  models.SellOffer
// @Failure      404  {object}  map[string]string
// @Router       /offers/{id} [get]
func (h *SellHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.Offers.GetOffer(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
