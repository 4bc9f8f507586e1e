package services

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopemx/internal/authz"
	"shopemx/internal/models"
	"shopemx/internal/pdf"
	"shopemx/internal/repositories"
	"shopemx/internal/storage"
	"shopemx/internal/utils"
)

// CreateOfferInput: поля формы выставления произведения.
type CreateOfferInput struct {
	Title              string `form:"title"`
	Description        string `form:"description"`
	ContractType       string `form:"contractType"`
	IsFree             bool   `form:"isFree"`
	Price              string `form:"price"`
	IsExclusiveLicense bool   `form:"isExclusiveLicense"`
	IsPerpetualLicense bool   `form:"isPerpetualLicense"`
	LicenseDuration    string `form:"licenseDuration"`
}

type OfferOptions struct {
	PurchaseCodeTTL time.Duration
	City            string
}

type OfferService struct {
	Offers   repositories.OfferRepository
	Users    repositories.UserRepository
	Store    storage.Storage
	PDF      pdf.Generator
	SMS      utils.SMSSender
	Notifier Notifier

	opts OfferOptions
	log  *zap.Logger
	Now  func() time.Time
}

func NewOfferService(
	offers repositories.OfferRepository,
	users repositories.UserRepository,
	store storage.Storage,
	gen pdf.Generator,
	sms utils.SMSSender,
	notifier Notifier,
	opts OfferOptions,
	log *zap.Logger,
) *OfferService {
	if opts.PurchaseCodeTTL <= 0 {
		opts.PurchaseCodeTTL = 24 * time.Hour
	}
	if opts.City == "" {
		opts.City = "г. Москва"
	}
	if log == nil {
		log = zap.L()
	}
	return &OfferService{
		Offers: offers, Users: users, Store: store, PDF: gen, SMS: sms, Notifier: notifier,
		opts: opts, log: log, Now: time.Now,
	}
}

// requireVerified проверяет, что пользователь существует и прошёл 2FA в текущей сессии.
func (s *OfferService) requireVerified(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load user", err)
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	if !u.IsVerified {
		return nil, ErrVerificationRequired
	}
	return u, nil
}

func (s *OfferService) offer(ctx context.Context, id int64) (*models.SellOffer, error) {
	o, err := s.Offers.GetByID(ctx, id)
	if err != nil {
		return nil, internalError("failed to load offer", err)
	}
	if o == nil {
		return nil, ErrOfferNotFound
	}
	return o, nil
}

// validateOffer возвращает первое нарушенное ограничение.
func validateOffer(in CreateOfferInput) *Error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" || in.ContractType == "" {
		return validationError(FieldError{Message: "Пожалуйста, заполните все обязательные поля"})
	}
	if !models.ContractType(in.ContractType).Valid() {
		return validationError(FieldError{Field: "contractType", Message: "Неизвестный тип договора"})
	}
	if !in.IsFree && !priceRe.MatchString(in.Price) {
		return validationError(FieldError{Field: "price", Message: "Пожалуйста, укажите корректную цену"})
	}
	if models.ContractType(in.ContractType) == models.ContractLicense && !in.IsPerpetualLicense &&
		!durationRe.MatchString(in.LicenseDuration) {
		return validationError(FieldError{Field: "licenseDuration", Message: "Пожалуйста, укажите корректный срок лицензии"})
	}
	return nil
}

// decimalPrice: "1500,5" -> "1500.5", "1500," -> "1500".
func decimalPrice(p string) string {
	return strings.TrimSuffix(strings.Replace(p, ",", ".", 1), ".")
}

func (s *OfferService) CreateOffer(ctx context.Context, sellerID int64, in CreateOfferInput, file *Upload) (int64, error) {
	if _, err := s.requireVerified(ctx, sellerID); err != nil {
		return 0, err
	}
	if file == nil || len(file.Data) == 0 {
		return 0, fieldError(KindValidation, "file", "Файл не найден")
	}
	if verr := validateOffer(in); verr != nil {
		return 0, verr
	}

	now := s.Now()
	key := fmt.Sprintf("artworks/%d/%s.%s", sellerID, uuid.NewString(), file.ext())
	url, err := s.Store.Put(ctx, key, file.ContentType, file.Data)
	if err != nil {
		return 0, internalError("failed to store artwork", err)
	}

	art := &models.Artwork{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		FilePath:    url,
		AuthorID:    sellerID,
		CreatedAt:   now,
	}
	offer := &models.SellOffer{
		SellerID:     sellerID,
		Status:       models.OfferPending,
		ContractType: models.ContractType(in.ContractType),
		IsFree:       in.IsFree,
		CreatedAt:    now,
	}
	if !in.IsFree {
		p := decimalPrice(in.Price)
		offer.Price = &p
	}
	if offer.ContractType == models.ContractLicense {
		lt := models.LicenseNonExclusive
		if in.IsExclusiveLicense {
			lt = models.LicenseExclusive
		}
		excl, perp := in.IsExclusiveLicense, in.IsPerpetualLicense
		offer.LicenseType, offer.IsExclusive, offer.IsPerpetual = &lt, &excl, &perp
		if !perp {
			d, _ := strconv.Atoi(in.LicenseDuration)
			offer.LicenseDuration = &d
		}
	}

	if err := s.Offers.CreateWithArtwork(ctx, art, offer); err != nil {
		// файл без записи в базе не нужен
		if derr := s.Store.Delete(ctx, key); derr != nil {
			s.log.Warn("[offer][create] cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		return 0, internalError("failed to save offer", err)
	}
	s.log.Info("[offer][create] ok", zap.Int64("offer_id", offer.ID), zap.Int64("seller_id", sellerID))
	return offer.ID, nil
}

// ConfirmOffer формирует договор и переводит предложение PENDING -> ACTIVE.
func (s *OfferService) ConfirmOffer(ctx context.Context, sellerID, offerID int64) (string, error) {
	seller, err := s.requireVerified(ctx, sellerID)
	if err != nil {
		return "", err
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return "", err
	}
	if !authz.IsSeller(sellerID, o) {
		return "", ErrNotSeller
	}
	if o.Status != models.OfferPending {
		return "", ErrOfferNotPending
	}

	now := s.Now()
	data := s.contractData(o, seller, now)
	body, err := s.PDF.GenerateSaleContract(data)
	if err != nil {
		s.log.Error("[offer][confirm] pdf failed", zap.Int64("offer_id", offerID), zap.Error(err))
		return "", internalError("failed to generate contract", err)
	}
	key := fmt.Sprintf("contracts/%d/contract_%s.pdf", sellerID, uuid.NewString())
	url, err := s.Store.Put(ctx, key, "application/pdf", body)
	if err != nil {
		return "", internalError("failed to store contract", err)
	}

	ok, err := s.Offers.Activate(ctx, offerID, url, now)
	if err != nil || !ok {
		// договор без ACTIVE-предложения не нужен
		if derr := s.Store.Delete(ctx, key); derr != nil {
			s.log.Warn("[offer][confirm] cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		if err != nil {
			return "", internalError("failed to activate offer", err)
		}
		return "", ErrOfferNotPending
	}
	s.log.Info("[offer][confirm] ok", zap.Int64("offer_id", offerID))
	return url, nil
}

// Buy резервирует предложение за покупателем и отправляет продавцу код подтверждения.
func (s *OfferService) Buy(ctx context.Context, actorID, offerID, buyerID int64) (*models.SellOffer, error) {
	buyer, err := s.requireVerified(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actorID != buyerID {
		return nil, ErrBuyerMismatch
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !canTransition(o.Status, models.OfferAccepted, OfferTransitions) {
		return nil, ErrOfferNotActive
	}
	if o.SellerID == buyerID {
		return nil, ErrOwnOffer
	}
	if o.BuyerID != nil {
		return nil, ErrOfferNotActive
	}

	code, err := utils.CodeInRange(100000, 999999)
	if err != nil {
		return nil, internalError("failed to generate code", err)
	}
	now := s.Now()
	ok, err := s.Offers.Reserve(ctx, offerID, buyerID, code, now.Add(s.opts.PurchaseCodeTTL), now)
	if err != nil {
		return nil, internalError("failed to reserve offer", err)
	}
	if !ok {
		return nil, ErrOfferNotActive
	}
	s.log.Info("[offer][buy] reserved", zap.Int64("offer_id", offerID), zap.Int64("buyer_id", buyerID))

	// SMS продавцу best-effort: покупка не откатывается
	if o.Seller != nil && o.Seller.Phone != "" && s.SMS != nil {
		text := fmt.Sprintf("Код подтверждения продажи: %s. ShopEMX.", code)
		if err := s.SMS.SendSMS(ctx, o.Seller.Phone, text); err != nil {
			s.log.Warn("[offer][buy] seller sms failed", zap.Int64("offer_id", offerID), zap.Error(err))
		}
	}
	notify(s.Notifier, s.log, fmt.Sprintf("Покупка: предложение #%d, покупатель %s", offerID, html.EscapeString(buyer.FullName())))

	return s.offer(ctx, offerID)
}

// ConfirmPurchase: покупатель вводит код; статус остаётся ACCEPTED,
// фиксируется purchase_confirmed_at.
func (s *OfferService) ConfirmPurchase(ctx context.Context, buyerID, offerID int64, code string) (*models.SellOffer, error) {
	if _, err := s.requireVerified(ctx, buyerID); err != nil {
		return nil, err
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !authz.IsBuyer(buyerID, o) {
		return nil, ErrNotBuyer
	}
	if o.Status != models.OfferAccepted {
		return nil, ErrOfferNotAccepted
	}
	if o.PurchaseConfirmedAt != nil {
		return nil, ErrPurchaseConfirmed
	}
	code = strings.TrimSpace(code)
	if o.ConfirmationCode == nil || code == "" || *o.ConfirmationCode != code {
		return nil, ErrConfirmationCode
	}
	now := s.Now()
	if o.ConfirmationExpires != nil && !now.Before(*o.ConfirmationExpires) {
		return nil, ErrConfirmationStale
	}

	ok, err := s.Offers.ConfirmPurchase(ctx, offerID, code, now)
	if err != nil {
		return nil, internalError("failed to confirm purchase", err)
	}
	if !ok {
		return nil, ErrPurchaseConfirmed
	}
	s.log.Info("[offer][purchase] confirmed", zap.Int64("offer_id", offerID), zap.Int64("buyer_id", buyerID))
	return s.offer(ctx, offerID)
}

// GeneratePurchaseContract формирует договор купли с реквизитами обеих сторон.
func (s *OfferService) GeneratePurchaseContract(ctx context.Context, actorID, offerID int64) (string, error) {
	if _, err := s.requireVerified(ctx, actorID); err != nil {
		return "", err
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return "", err
	}
	if !authz.IsParticipant(actorID, o) {
		return "", ErrNotParticipant
	}
	if o.Status != models.OfferAccepted || o.BuyerID == nil {
		return "", ErrOfferNotAccepted
	}

	seller, err := s.Users.GetByID(ctx, o.SellerID)
	if err != nil || seller == nil {
		return "", internalError("failed to load seller", err)
	}
	buyer, err := s.Users.GetByID(ctx, *o.BuyerID)
	if err != nil || buyer == nil {
		return "", internalError("failed to load buyer", err)
	}

	now := s.Now()
	body, err := s.PDF.GeneratePurchaseContract(pdf.PurchaseContractData{
		ContractData: s.contractData(o, seller, now),
		Buyer:        partyFromUser(buyer),
	})
	if err != nil {
		s.log.Error("[offer][contract] pdf failed", zap.Int64("offer_id", offerID), zap.Error(err))
		return "", internalError("failed to generate contract", err)
	}
	key := fmt.Sprintf("contracts/%d/purchase_%d_%s.pdf", *o.BuyerID, offerID, uuid.NewString())
	url, err := s.Store.Put(ctx, key, "application/pdf", body)
	if err != nil {
		return "", internalError("failed to store contract", err)
	}
	if err := s.Offers.SetPurchaseContract(ctx, offerID, url, now); err != nil {
		return "", internalError("failed to save contract", err)
	}
	return url, nil
}

func (s *OfferService) Cancel(ctx context.Context, sellerID, offerID int64) error {
	return s.sellerTransition(ctx, sellerID, offerID, models.OfferCancelled)
}

func (s *OfferService) Decline(ctx context.Context, sellerID, offerID int64) error {
	return s.sellerTransition(ctx, sellerID, offerID, models.OfferDeclined)
}

func (s *OfferService) sellerTransition(ctx context.Context, sellerID, offerID int64, to models.OfferStatus) error {
	if _, err := s.requireVerified(ctx, sellerID); err != nil {
		return err
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return err
	}
	if !authz.IsSeller(sellerID, o) {
		return ErrNotSeller
	}
	if !canTransition(o.Status, to, OfferTransitions) {
		return ErrOfferTransition
	}
	ok, err := s.Offers.TransitionStatus(ctx, offerID, o.Status, to, s.Now())
	if err != nil {
		return internalError("failed to update offer", err)
	}
	if !ok {
		return ErrOfferTransition
	}
	s.log.Info("[offer][status]", zap.Int64("offer_id", offerID),
		zap.String("from", string(o.Status)), zap.String("to", string(to)))
	return nil
}

// GetOffer: участникам всегда, остальным верифицированным только активные.
func (s *OfferService) GetOffer(ctx context.Context, actorID, offerID int64) (*models.SellOffer, error) {
	if _, err := s.requireVerified(ctx, actorID); err != nil {
		return nil, err
	}
	o, err := s.offer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !authz.IsParticipant(actorID, o) && o.Status != models.OfferActive {
		return nil, ErrOfferNotFound
	}
	return o, nil
}

func (s *OfferService) ListActive(ctx context.Context) ([]*models.SellOffer, error) {
	out, err := s.Offers.ListActive(ctx)
	if err != nil {
		return nil, internalError("failed to list offers", err)
	}
	return out, nil
}

func (s *OfferService) ListSales(ctx context.Context, userID int64) ([]*models.SellOffer, error) {
	if _, err := s.requireVerified(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.Offers.ListBySeller(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list sales", err)
	}
	return out, nil
}

func (s *OfferService) ListPurchases(ctx context.Context, userID int64) ([]*models.SellOffer, error) {
	if _, err := s.requireVerified(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.Offers.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list purchases", err)
	}
	return out, nil
}

func (s *OfferService) contractData(o *models.SellOffer, seller *models.User, now time.Time) pdf.ContractData {
	d := pdf.ContractData{
		OfferID:      o.ID,
		ContractType: o.ContractType,
		IsFree:       o.IsFree,
		Seller:       partyFromUser(seller),
		City:         s.opts.City,
		Date:         now,
	}
	if o.Price != nil {
		d.Price = *o.Price
	}
	if o.Artwork != nil {
		d.ArtworkTitle, d.ArtworkDescription = o.Artwork.Title, o.Artwork.Description
	}
	if o.LicenseType != nil {
		d.LicenseType = *o.LicenseType
	}
	if o.IsPerpetual != nil {
		d.IsPerpetual = *o.IsPerpetual
	}
	if o.LicenseDuration != nil {
		d.LicenseDuration = *o.LicenseDuration
	}
	return d
}

func partyFromUser(u *models.User) pdf.Party {
	p := pdf.Party{
		LastName:          u.LastName,
		FirstName:         u.FirstName,
		MiddleName:        u.MiddleName,
		PassportSeries:    deref(u.PassportSeries),
		PassportNumber:    deref(u.PassportNumber),
		PassportIssuedBy:  deref(u.PassportIssuedBy),
		PassportIssueDate: u.PassportIssueDate,
		BankName:          deref(u.BankName),
		BankBik:           deref(u.BankBik),
		BankAccount:       deref(u.BankAccount),
		BankCorAccount:    deref(u.BankCorAccount),
	}
	if u.UseAlternativeDocument {
		p.AlternativeDocument = deref(u.AlternativeDocument)
	}
	return p
}
