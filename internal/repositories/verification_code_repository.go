package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopemx/internal/models"
)

type VerificationCodeRepository interface {
	Create(ctx context.Context, c *models.VerificationCode) error
	// GetLatest: последний выданный код данного типа (любого статуса).
	GetLatest(ctx context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	// Consume атомарно гасит действующий код; false: подходящего кода нет.
	Consume(ctx context.Context, userID int64, code string, t models.VerificationType, now time.Time) (bool, error)
}

type verificationCodeRepository struct {
	DB *sql.DB
}

func NewVerificationCodeRepository(db *sql.DB) VerificationCodeRepository {
	return &verificationCodeRepository{DB: db}
}

func (r *verificationCodeRepository) Create(ctx context.Context, c *models.VerificationCode) error {
	const q = `
		INSERT INTO verification_codes (user_id, type, code, status, expires_at, last_sent_at, send_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err := r.DB.QueryRowContext(ctx, q,
		c.UserID, c.Type, c.Code, c.Status, c.ExpiresAt, c.LastSentAt, c.SendAttempts, c.CreatedAt,
	).Scan(&c.ID); err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}
	return nil
}

func (r *verificationCodeRepository) GetLatest(ctx context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error) {
	const q = `
		SELECT id, user_id, type, code, status, expires_at, last_sent_at, send_attempts, created_at
		FROM verification_codes
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var c models.VerificationCode
	if err := r.DB.QueryRowContext(ctx, q, userID, t).Scan(
		&c.ID, &c.UserID, &c.Type, &c.Code, &c.Status, &c.ExpiresAt, &c.LastSentAt, &c.SendAttempts, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest verification code: %w", err)
	}
	return &c, nil
}

func (r *verificationCodeRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	const q = `
		UPDATE verification_codes
		SET send_attempts = send_attempts + 1, last_sent_at = $2
		WHERE id = $1
	`
	if _, err := r.DB.ExecContext(ctx, q, id, at); err != nil {
		return fmt.Errorf("mark code sent: %w", err)
	}
	return nil
}

func (r *verificationCodeRepository) Consume(ctx context.Context, userID int64, code string, t models.VerificationType, now time.Time) (bool, error) {
	const q = `
		UPDATE verification_codes
		SET status = 'VERIFIED'
		WHERE user_id = $1 AND code = $2 AND type = $3 AND status = 'PENDING' AND expires_at > $4
	`
	res, err := r.DB.ExecContext(ctx, q, userID, code, t, now)
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	return n > 0, nil
}
