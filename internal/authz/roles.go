package authz

import "shopemx/internal/models"

func IsAdmin(role models.Role) bool {
	return role == models.RoleAdmin
}

func IsSeller(userID int64, offer *models.SellOffer) bool {
	return offer != nil && offer.SellerID == userID
}

func IsBuyer(userID int64, offer *models.SellOffer) bool {
	return offer != nil && offer.BuyerID != nil && *offer.BuyerID == userID
}

// IsParticipant сообщает, является ли пользователь продавцом или покупателем.
func IsParticipant(userID int64, offer *models.SellOffer) bool {
	return IsSeller(userID, offer) || IsBuyer(userID, offer)
}
