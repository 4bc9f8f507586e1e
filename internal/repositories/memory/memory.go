// Package memory: репозитории в памяти с той же семантикой условных
// обновлений, что и SQL-версии. Используются в тестах сервисов и хендлеров.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shopemx/internal/models"
	"shopemx/internal/repositories"
)

// Store: общее состояние; заявки и предложения читают пользователей для JOIN.
type Store struct {
	mu sync.Mutex

	users    map[int64]*models.User
	codes    []*models.VerificationCode
	requests map[int64]*models.VerificationRequest
	artworks map[int64]*models.Artwork
	offers   map[int64]*models.SellOffer
	nextID   int64

	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    map[int64]*models.User{},
		requests: map[int64]*models.VerificationRequest{},
		artworks: map[int64]*models.Artwork{},
		offers:   map[int64]*models.SellOffer{},
		Now:      time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Users() repositories.UserRepository                   { return (*userRepo)(s) }
func (s *Store) Codes() repositories.VerificationCodeRepository       { return (*codeRepo)(s) }
func (s *Store) Requests() repositories.VerificationRequestRepository { return (*requestRepo)(s) }
func (s *Store) Offers() repositories.OfferRepository                 { return (*offerRepo)(s) }

// ===== users =====

type userRepo Store

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Phone == u.Phone {
			return repositories.ErrDuplicatePhone
		}
		if strings.EqualFold(other.Email, u.Email) {
			return repositories.ErrDuplicateEmail
		}
	}
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = s.Now(), s.Now()
	s.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) find(pred func(*models.User) bool) *models.User {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if pred(u) {
			return copyUser(u)
		}
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Phone == phone }), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *userRepo) List(_ context.Context) ([]*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *userRepo) update(id int64, fn func(u *models.User) error) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = s.Now()
	return nil
}

func (r *userRepo) SetVerified(_ context.Context, id int64, verified bool) error {
	return r.update(id, func(u *models.User) error { u.IsVerified = verified; return nil })
}

func (r *userRepo) RecordLogin(_ context.Context, id int64, info repositories.LoginInfo) error {
	return r.update(id, func(u *models.User) error {
		ip, ua, at := info.IP, info.UserAgent, info.At
		u.IsVerified = true
		u.LastLoginIP, u.LastLoginUserAgent, u.LastLoginAt = &ip, &ua, &at
		return nil
	})
}

func (r *userRepo) UpdateProfile(_ context.Context, id int64, p repositories.ProfileUpdate) error {
	s := (*Store)(r)
	s.mu.Lock()
	for _, other := range s.users {
		if other.ID == id {
			continue
		}
		if other.Phone == p.Phone {
			s.mu.Unlock()
			return repositories.ErrDuplicatePhone
		}
		if strings.EqualFold(other.Email, p.Email) {
			s.mu.Unlock()
			return repositories.ErrDuplicateEmail
		}
	}
	s.mu.Unlock()
	return r.update(id, func(u *models.User) error {
		u.FirstName, u.LastName, u.MiddleName, u.Email, u.Phone = p.FirstName, p.LastName, p.MiddleName, p.Email, p.Phone
		u.BirthDate = p.BirthDate
		u.PassportSeries, u.PassportNumber, u.PassportCode = p.PassportSeries, p.PassportNumber, p.PassportCode
		u.PassportIssueDate, u.PassportIssuedBy = p.PassportIssueDate, p.PassportIssuedBy
		u.UseAlternativeDocument, u.AlternativeDocument = p.UseAlternativeDocument, p.AlternativeDocument
		return nil
	})
}

func (r *userRepo) UpdateBankDetails(_ context.Context, id int64, b repositories.BankDetails) error {
	return r.update(id, func(u *models.User) error {
		u.BankName, u.BankBik, u.BankAccount, u.BankCorAccount = b.BankName, b.BankBik, b.BankAccount, b.BankCorAccount
		return nil
	})
}

func (r *userRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
}

func (r *userRepo) SetPassportDocument(_ context.Context, id int64, url *string) error {
	return r.update(id, func(u *models.User) error { u.PassportDocumentURL = url; return nil })
}

// ===== verification codes =====

type codeRepo Store

func (r *codeRepo) Create(_ context.Context, c *models.VerificationCode) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	cp := *c
	s.codes = append(s.codes, &cp)
	return nil
}

func (r *codeRepo) GetLatest(_ context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		if c := s.codes[i]; c.UserID == userID && c.Type == t {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *codeRepo) MarkSent(_ context.Context, id int64, at time.Time) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			c.SendAttempts++
			c.LastSentAt = at
		}
	}
	return nil
}

func (r *codeRepo) Consume(_ context.Context, userID int64, code string, t models.VerificationType, now time.Time) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	hit := false
	for _, c := range s.codes {
		if c.UserID == userID && c.Code == code && c.Type == t &&
			c.Status == models.VerificationPending && c.ExpiresAt.After(now) {
			c.Status = models.VerificationVerified
			hit = true
		}
	}
	return hit, nil
}

// ===== verification requests =====

type requestRepo Store

func copyRequest(r *models.VerificationRequest) *models.VerificationRequest {
	c := *r
	c.User = nil
	return &c
}

func (r *requestRepo) Create(_ context.Context, req *models.VerificationRequest) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.requests {
		if other.UserID == req.UserID && other.Status == models.RequestPending {
			return repositories.ErrPendingExists
		}
	}
	req.ID = s.id()
	req.UpdatedAt = req.CreatedAt
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id int64) (*models.VerificationRequest, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[id]; ok {
		return copyRequest(req), nil
	}
	return nil, nil
}

func (r *requestRepo) GetPendingByUser(_ context.Context, userID int64) (*models.VerificationRequest, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.UserID == userID && req.Status == models.RequestPending {
			return copyRequest(req), nil
		}
	}
	return nil, nil
}

func (r *requestRepo) collect(pred func(*models.VerificationRequest) bool, withUser bool) []*models.VerificationRequest {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.VerificationRequest
	for _, req := range s.requests {
		if !pred(req) {
			continue
		}
		c := copyRequest(req)
		if u, ok := s.users[req.UserID]; ok && withUser {
			c.User = copyUser(u)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *requestRepo) ListByUser(_ context.Context, userID int64) ([]*models.VerificationRequest, error) {
	return r.collect(func(req *models.VerificationRequest) bool { return req.UserID == userID }, false), nil
}

func (r *requestRepo) List(_ context.Context, status *models.RequestStatus) ([]*models.VerificationRequest, error) {
	return r.collect(func(req *models.VerificationRequest) bool {
		return status == nil || req.Status == *status
	}, true), nil
}

func (r *requestRepo) review(id int64, to models.RequestStatus, adminID int64, reason *string, at time.Time) bool {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != models.RequestPending {
		return false
	}
	req.Status = to
	req.ReviewedAt, req.ReviewedBy = &at, &adminID
	req.RejectionReason = reason
	req.UpdatedAt = at
	if to == models.RequestApproved {
		if u, ok := s.users[req.UserID]; ok {
			u.IsVerified = true
			u.UpdatedAt = at
		}
	}
	return true
}

func (r *requestRepo) Approve(_ context.Context, id, adminID int64, at time.Time) (bool, error) {
	return r.review(id, models.RequestApproved, adminID, nil, at), nil
}

func (r *requestRepo) Reject(_ context.Context, id, adminID int64, reason string, at time.Time) (bool, error) {
	return r.review(id, models.RequestRejected, adminID, &reason, at), nil
}

// ===== offers =====

type offerRepo Store

func summary(u *models.User) *models.UserSummary {
	if u == nil {
		return nil
	}
	return &models.UserSummary{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, MiddleName: u.MiddleName, Phone: u.Phone, Email: u.Email,
	}
}

// joined: копия предложения с произведением и сторонами, как после JOIN в SQL.
func (s *Store) joined(o *models.SellOffer) *models.SellOffer {
	c := *o
	seller := summary(s.users[o.SellerID])
	if a, ok := s.artworks[o.ArtworkID]; ok {
		ac := *a
		ac.Author = seller
		c.Artwork = &ac
	}
	c.Seller = seller
	c.Buyer = nil
	if o.BuyerID != nil {
		c.Buyer = summary(s.users[*o.BuyerID])
	}
	return &c
}

func (r *offerRepo) CreateWithArtwork(_ context.Context, art *models.Artwork, offer *models.SellOffer) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	art.ID = s.id()
	ac := *art
	s.artworks[art.ID] = &ac
	offer.ID = s.id()
	offer.ArtworkID = art.ID
	offer.UpdatedAt = offer.CreatedAt
	oc := *offer
	s.offers[offer.ID] = &oc
	return nil
}

func (r *offerRepo) GetByID(_ context.Context, id int64) (*models.SellOffer, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.offers[id]; ok {
		return s.joined(o), nil
	}
	return nil, nil
}

func (r *offerRepo) cas(id int64, pred func(*models.SellOffer) bool, apply func(*models.SellOffer), at time.Time) bool {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok || !pred(o) {
		return false
	}
	apply(o)
	o.UpdatedAt = at
	return true
}

func (r *offerRepo) Activate(_ context.Context, id int64, contractPath string, at time.Time) (bool, error) {
	return r.cas(id,
		func(o *models.SellOffer) bool { return o.Status == models.OfferPending },
		func(o *models.SellOffer) { o.Status = models.OfferActive; o.ContractPath = &contractPath },
		at), nil
}

func (r *offerRepo) Reserve(_ context.Context, id, buyerID int64, code string, expires, at time.Time) (bool, error) {
	return r.cas(id,
		func(o *models.SellOffer) bool { return o.Status == models.OfferActive && o.BuyerID == nil },
		func(o *models.SellOffer) {
			o.Status = models.OfferAccepted
			o.BuyerID, o.ConfirmationCode, o.ConfirmationExpires = &buyerID, &code, &expires
		},
		at), nil
}

func (r *offerRepo) ConfirmPurchase(_ context.Context, id int64, code string, at time.Time) (bool, error) {
	return r.cas(id,
		func(o *models.SellOffer) bool {
			return o.Status == models.OfferAccepted && o.PurchaseConfirmedAt == nil &&
				o.ConfirmationCode != nil && *o.ConfirmationCode == code &&
				o.ConfirmationExpires != nil && o.ConfirmationExpires.After(at)
		},
		func(o *models.SellOffer) { o.PurchaseConfirmedAt = &at },
		at), nil
}

func (r *offerRepo) TransitionStatus(_ context.Context, id int64, from, to models.OfferStatus, at time.Time) (bool, error) {
	return r.cas(id,
		func(o *models.SellOffer) bool { return o.Status == from },
		func(o *models.SellOffer) { o.Status = to },
		at), nil
}

func (r *offerRepo) SetPurchaseContract(_ context.Context, id int64, path string, at time.Time) error {
	r.cas(id, func(*models.SellOffer) bool { return true }, func(o *models.SellOffer) { o.PurchaseContractPath = &path }, at)
	return nil
}

func (r *offerRepo) list(pred func(*models.SellOffer) bool) []*models.SellOffer {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SellOffer
	for _, o := range s.offers {
		if pred(o) {
			out = append(out, s.joined(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *offerRepo) ListActive(_ context.Context) ([]*models.SellOffer, error) {
	return r.list(func(o *models.SellOffer) bool { return o.Status == models.OfferActive }), nil
}

func (r *offerRepo) ListBySeller(_ context.Context, sellerID int64) ([]*models.SellOffer, error) {
	return r.list(func(o *models.SellOffer) bool { return o.SellerID == sellerID }), nil
}

func (r *offerRepo) ListByBuyer(_ context.Context, buyerID int64) ([]*models.SellOffer, error) {
	return r.list(func(o *models.SellOffer) bool { return o.BuyerID != nil && *o.BuyerID == buyerID }), nil
}
