package models

import "time"

type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferActive    OfferStatus = "ACTIVE"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferDeclined  OfferStatus = "DECLINED"
	OfferCancelled OfferStatus = "CANCELLED"
)

type ContractType string

const (
	ContractExclusiveRights ContractType = "EXCLUSIVE_RIGHTS"
	ContractLicense         ContractType = "LICENSE"
)

func (t ContractType) Valid() bool {
	return t == ContractExclusiveRights || t == ContractLicense
}

type LicenseType string

const (
	LicenseExclusive    LicenseType = "EXCLUSIVE"
	LicenseNonExclusive LicenseType = "NON_EXCLUSIVE"
)

// SellOffer: предложение о передаче прав на одно произведение.
// Price хранится строкой в формате numeric ("1500.00"), nil для безвозмездных.
type SellOffer struct {
	ID        int64       `json:"id"`
	ArtworkID int64       `json:"artworkId"`
	SellerID  int64       `json:"sellerId"`
	BuyerID   *int64      `json:"buyerId,omitempty"`
	Status    OfferStatus `json:"status"`

	ContractType    ContractType `json:"contractType"`
	LicenseType     *LicenseType `json:"licenseType,omitempty"`
	IsExclusive     *bool        `json:"isExclusive,omitempty"`
	IsPerpetual     *bool        `json:"isPerpetual,omitempty"`
	LicenseDuration *int         `json:"licenseDuration,omitempty"`

	IsFree bool    `json:"isFree"`
	Price  *string `json:"price,omitempty"`

	ConfirmationCode     *string    `json:"-"`
	ConfirmationExpires  *time.Time `json:"confirmationExpires,omitempty"`
	PurchaseConfirmedAt  *time.Time `json:"purchaseConfirmedAt,omitempty"`
	ContractPath         *string    `json:"contractPath,omitempty"`
	PurchaseContractPath *string    `json:"purchaseContractPath,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Artwork *Artwork     `json:"artwork,omitempty"`
	Seller  *UserSummary `json:"seller,omitempty"`
	Buyer   *UserSummary `json:"buyer,omitempty"`
}
