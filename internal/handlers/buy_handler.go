package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopemx/internal/services"
)

type BuyHandler struct {
	Offers *services.OfferService
}

func NewBuyHandler(offers *services.OfferService) *BuyHandler { return &BuyHandler{Offers: offers} }

type buyRequest struct {
	SellOfferID int64 `json:"sellOfferId" binding:"required"`
	BuyerID     int64 `json:"buyerId" binding:"required"`
}

type confirmPurchaseRequest struct {
	ConfirmationCode string `json:"confirmationCode" binding:"required"`
}

// @Summary      Купить произведение
// @Description  Резервирует предложение и отправляет продавцу SMS с кодом подтверждения
// @Tags         Buy
// @Accept       json
// @Produce      json
// @Param        body  body      buyRequest  true  "Предложение и покупатель"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /buy [post]
func (h *BuyHandler) Buy(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Не указаны необходимые параметры"})
		return
	}
	o, err := h.Offers.Buy(c.Request.Context(), userID, req.SellOfferID, req.BuyerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Покупка успешно совершена", "offerId": o.ID})
}

// @Summary      Подтвердить покупку кодом
// @Tags         Buy
// @Accept       json
// @Produce      json
// @Param        id    path      int                     true  "ID предложения"
// @Param        body  body      confirmPurchaseRequest  true  "Код"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /buy/confirm-purchase/{id} [post]
func (h *BuyHandler) ConfirmPurchase(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req confirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	o, err := h.Offers.ConfirmPurchase(c.Request.Context(), userID, id, req.ConfirmationCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Покупка подтверждена", "offer": o})
}

// @Summary      Договор купли
// @Tags         Buy
// @Produce      json
// @Param        id   path      int  true  "ID предложения"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /buy/generate-contract/{id} [get]
func (h *BuyHandler) GenerateContract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	url, err := h.Offers.GeneratePurchaseContract(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractUrl": url})
}

// @Summary      Мои продажи
// @Tags         Transactions
// @Produce      json
// @Success      200  {array}  models.SellOffer
// @Router       /transactions/sales [get]
func (h *BuyHandler) Sales(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.Offers.ListSales(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": out})
}

// @Summary      Мои покупки
// @Tags         Transactions
// @Produce      json
// @Success      200  {array}  models.SellOffer
// @Router       /transactions/purchases [get]
func (h *BuyHandler) Purchases(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.Offers.ListPurchases(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": out})
}
