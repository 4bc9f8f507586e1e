package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopemx/internal/models"
)

// OfferRepository хранит произведения и предложения. Смена статуса идёт
// условным UPDATE по ожидаемому старому статусу; false означает, что
// строка уже ушла из этого состояния.
type OfferRepository interface {
	CreateWithArtwork(ctx context.Context, art *models.Artwork, offer *models.SellOffer) error
	GetByID(ctx context.Context, id int64) (*models.SellOffer, error)

	Activate(ctx context.Context, id int64, contractPath string, at time.Time) (bool, error)
	Reserve(ctx context.Context, id, buyerID int64, code string, expires, at time.Time) (bool, error)
	ConfirmPurchase(ctx context.Context, id int64, code string, at time.Time) (bool, error)
	TransitionStatus(ctx context.Context, id int64, from, to models.OfferStatus, at time.Time) (bool, error)
	SetPurchaseContract(ctx context.Context, id int64, path string, at time.Time) error

	ListActive(ctx context.Context) ([]*models.SellOffer, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.SellOffer, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]*models.SellOffer, error)
}

type offerRepository struct {
	DB *sql.DB
}

func NewOfferRepository(db *sql.DB) OfferRepository {
	return &offerRepository{DB: db}
}

const offerSelect = `
	SELECT
		o.id, o.artwork_id, o.seller_id, o.buyer_id, o.status,
		o.contract_type, o.license_type, o.is_exclusive, o.is_perpetual, o.license_duration,
		o.is_free, o.price::text,
		o.confirmation_code, o.confirmation_expires, o.purchase_confirmed_at,
		o.contract_path, o.purchase_contract_path,
		o.created_at, o.updated_at,
		a.id, a.title, a.description, a.file_path, a.author_id, a.created_at,
		s.id, s.first_name, s.last_name, s.middle_name, s.phone, s.email,
		b.id, b.first_name, b.last_name, b.middle_name, b.phone, b.email
	FROM sell_offers o
	JOIN artworks a ON a.id = o.artwork_id
	JOIN users s ON s.id = o.seller_id
	LEFT JOIN users b ON b.id = o.buyer_id
`

func scanOffer(row rowScanner) (*models.SellOffer, error) {
	o := &models.SellOffer{}
	a := &models.Artwork{}
	seller := &models.UserSummary{}
	var (
		buyerID                            sql.NullInt64
		buyerFirst, buyerLast, buyerMiddle sql.NullString
		buyerPhone, buyerEmail             sql.NullString
	)
	if err := row.Scan(
		&o.ID, &o.ArtworkID, &o.SellerID, &o.BuyerID, &o.Status,
		&o.ContractType, &o.LicenseType, &o.IsExclusive, &o.IsPerpetual, &o.LicenseDuration,
		&o.IsFree, &o.Price,
		&o.ConfirmationCode, &o.ConfirmationExpires, &o.PurchaseConfirmedAt,
		&o.ContractPath, &o.PurchaseContractPath,
		&o.CreatedAt, &o.UpdatedAt,
		&a.ID, &a.Title, &a.Description, &a.FilePath, &a.AuthorID, &a.CreatedAt,
		&seller.ID, &seller.FirstName, &seller.LastName, &seller.MiddleName, &seller.Phone, &seller.Email,
		&buyerID, &buyerFirst, &buyerLast, &buyerMiddle, &buyerPhone, &buyerEmail,
	); err != nil {
		return nil, err
	}
	// автор произведения всегда совпадает с продавцом
	a.Author = seller
	o.Artwork = a
	o.Seller = seller
	if buyerID.Valid {
		o.Buyer = &models.UserSummary{
			ID:         buyerID.Int64,
			FirstName:  buyerFirst.String,
			LastName:   buyerLast.String,
			MiddleName: buyerMiddle.String,
			Phone:      buyerPhone.String,
			Email:      buyerEmail.String,
		}
	}
	return o, nil
}

func (r *offerRepository) CreateWithArtwork(ctx context.Context, art *models.Artwork, offer *models.SellOffer) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create offer: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const qa = `
		INSERT INTO artworks (title, description, file_path, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, qa,
		art.Title, art.Description, art.FilePath, art.AuthorID, art.CreatedAt,
	).Scan(&art.ID); err != nil {
		return fmt.Errorf("create artwork: %w", err)
	}

	const qo = `
		INSERT INTO sell_offers (
			artwork_id, seller_id, status, contract_type, license_type, is_exclusive, is_perpetual,
			license_duration, is_free, price, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id
	`
	offer.ArtworkID = art.ID
	if err := tx.QueryRowContext(ctx, qo,
		offer.ArtworkID, offer.SellerID, offer.Status, offer.ContractType, offer.LicenseType,
		offer.IsExclusive, offer.IsPerpetual, offer.LicenseDuration, offer.IsFree, offer.Price,
		offer.CreatedAt,
	).Scan(&offer.ID); err != nil {
		return fmt.Errorf("create sell offer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create offer: %w", err)
	}
	offer.UpdatedAt = offer.CreatedAt
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id int64) (*models.SellOffer, error) {
	o, err := scanOffer(r.DB.QueryRowContext(ctx, offerSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sell offer: %w", err)
	}
	return o, nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (r *offerRepository) Activate(ctx context.Context, id int64, contractPath string, at time.Time) (bool, error) {
	const q = `
		UPDATE sell_offers
		SET status = 'ACTIVE', contract_path = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	res, err := r.DB.ExecContext(ctx, q, id, contractPath, at)
	if err != nil {
		return false, fmt.Errorf("activate offer: %w", err)
	}
	return affected(res, "activate offer")
}

func (r *offerRepository) Reserve(ctx context.Context, id, buyerID int64, code string, expires, at time.Time) (bool, error) {
	const q = `
		UPDATE sell_offers
		SET status = 'ACCEPTED', buyer_id = $2, confirmation_code = $3, confirmation_expires = $4, updated_at = $5
		WHERE id = $1 AND status = 'ACTIVE' AND buyer_id IS NULL
	`
	res, err := r.DB.ExecContext(ctx, q, id, buyerID, code, expires, at)
	if err != nil {
		return false, fmt.Errorf("reserve offer: %w", err)
	}
	return affected(res, "reserve offer")
}

func (r *offerRepository) ConfirmPurchase(ctx context.Context, id int64, code string, at time.Time) (bool, error) {
	const q = `
		UPDATE sell_offers
		SET purchase_confirmed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'ACCEPTED' AND purchase_confirmed_at IS NULL
		  AND confirmation_code = $2 AND confirmation_expires > $3
	`
	res, err := r.DB.ExecContext(ctx, q, id, code, at)
	if err != nil {
		return false, fmt.Errorf("confirm purchase: %w", err)
	}
	return affected(res, "confirm purchase")
}

func (r *offerRepository) TransitionStatus(ctx context.Context, id int64, from, to models.OfferStatus, at time.Time) (bool, error) {
	const q = `UPDATE sell_offers SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.DB.ExecContext(ctx, q, id, from, to, at)
	if err != nil {
		return false, fmt.Errorf("transition offer: %w", err)
	}
	return affected(res, "transition offer")
}

func (r *offerRepository) SetPurchaseContract(ctx context.Context, id int64, path string, at time.Time) error {
	const q = `UPDATE sell_offers SET purchase_contract_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.DB.ExecContext(ctx, q, id, path, at); err != nil {
		return fmt.Errorf("set purchase contract: %w", err)
	}
	return nil
}

func (r *offerRepository) list(ctx context.Context, where string, args ...any) ([]*models.SellOffer, error) {
	rows, err := r.DB.QueryContext(ctx, offerSelect+` WHERE `+where+` ORDER BY o.updated_at DESC, o.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list sell offers: %w", err)
	}
	defer rows.Close()

	var out []*models.SellOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sell offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *offerRepository) ListActive(ctx context.Context) ([]*models.SellOffer, error) {
	return r.list(ctx, `o.status = 'ACTIVE'`)
}

func (r *offerRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.SellOffer, error) {
	return r.list(ctx, `o.seller_id = $1`, sellerID)
}

func (r *offerRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]*models.SellOffer, error) {
	return r.list(ctx, `o.buyer_id = $1`, buyerID)
}
