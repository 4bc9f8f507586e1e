package services

import "shopemx/internal/models"

// Допустимые переходы статусов предложения.
// ACCEPTED выставляется при покупке; подтверждение кодом статус не меняет.
var OfferTransitions = map[models.OfferStatus]map[models.OfferStatus]bool{
	models.OfferPending:   {models.OfferActive: true, models.OfferDeclined: true, models.OfferCancelled: true},
	models.OfferActive:    {models.OfferAccepted: true, models.OfferCancelled: true},
	models.OfferAccepted:  {},
	models.OfferDeclined:  {},
	models.OfferCancelled: {},
}

func canTransition(current, to models.OfferStatus, table map[models.OfferStatus]map[models.OfferStatus]bool) bool {
	nexts, ok := table[current]
	if !ok {
		return false
	}
	return nexts[to]
}
