package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"shopemx/internal/models"
)

// ErrPendingExists: у пользователя уже есть заявка PENDING (частичный уникальный индекс).
var ErrPendingExists = errors.New("pending verification request exists")

type VerificationRequestRepository interface {
	Create(ctx context.Context, req *models.VerificationRequest) error
	GetByID(ctx context.Context, id int64) (*models.VerificationRequest, error)
	GetPendingByUser(ctx context.Context, userID int64) (*models.VerificationRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.VerificationRequest, error)
	// List возвращает заявки с карточкой пользователя; status nil: все.
	List(ctx context.Context, status *models.RequestStatus) ([]*models.VerificationRequest, error)

	// Approve: PENDING→APPROVED и is_verified=true у пользователя в одной транзакции.
	Approve(ctx context.Context, id, adminID int64, at time.Time) (bool, error)
	Reject(ctx context.Context, id, adminID int64, reason string, at time.Time) (bool, error)
}

type verificationRequestRepository struct {
	DB *sql.DB
}

func NewVerificationRequestRepository(db *sql.DB) VerificationRequestRepository {
	return &verificationRequestRepository{DB: db}
}

const requestColumns = `id, user_id, status, reviewed_at, reviewed_by, rejection_reason, created_at, updated_at`

func scanRequest(row rowScanner, extra ...any) (*models.VerificationRequest, error) {
	req := &models.VerificationRequest{}
	dest := []any{
		&req.ID, &req.UserID, &req.Status, &req.ReviewedAt, &req.ReviewedBy, &req.RejectionReason,
		&req.CreatedAt, &req.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *verificationRequestRepository) Create(ctx context.Context, req *models.VerificationRequest) error {
	const q = `
		INSERT INTO verification_requests (user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`
	if err := r.DB.QueryRowContext(ctx, q, req.UserID, req.Status, req.CreatedAt).Scan(&req.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPendingExists
		}
		return fmt.Errorf("create verification request: %w", err)
	}
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (r *verificationRequestRepository) GetByID(ctx context.Context, id int64) (*models.VerificationRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM verification_requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification request: %w", err)
	}
	return req, nil
}

func (r *verificationRequestRepository) GetPendingByUser(ctx context.Context, userID int64) (*models.VerificationRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM verification_requests WHERE user_id = $1 AND status = 'PENDING' LIMIT 1`
	req, err := scanRequest(r.DB.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending request: %w", err)
	}
	return req, nil
}

func (r *verificationRequestRepository) ListByUser(ctx context.Context, userID int64) ([]*models.VerificationRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM verification_requests WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user requests: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *verificationRequestRepository) List(ctx context.Context, status *models.RequestStatus) ([]*models.VerificationRequest, error) {
	q := `
		SELECT ` + prefixed("vr", requestColumns) + `, ` + prefixed("u", userColumns) + `
		FROM verification_requests vr
		JOIN users u ON u.id = vr.user_id
	`
	var args []any
	if status != nil {
		q += ` WHERE vr.status = $1`
		args = append(args, *status)
	}
	q += ` ORDER BY vr.created_at DESC, vr.id DESC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification requests: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRequest
	for rows.Next() {
		u := &models.User{}
		req, err := scanRequest(rows,
			&u.ID, &u.Phone, &u.Email, &u.FirstName, &u.LastName, &u.MiddleName, &u.PasswordHash, &u.Role, &u.IsVerified,
			&u.BirthDate, &u.PassportSeries, &u.PassportNumber, &u.PassportCode, &u.PassportIssueDate, &u.PassportIssuedBy,
			&u.UseAlternativeDocument, &u.AlternativeDocument,
			&u.BankName, &u.BankBik, &u.BankAccount, &u.BankCorAccount,
			&u.PassportDocumentURL, &u.LastLoginIP, &u.LastLoginUserAgent, &u.LastLoginAt,
			&u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		req.User = u
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *verificationRequestRepository) Approve(ctx context.Context, id, adminID int64, at time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
		UPDATE verification_requests
		SET status = 'APPROVED', reviewed_at = $2, reviewed_by = $3, updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING user_id
	`
	var userID int64
	if err := tx.QueryRowContext(ctx, q, id, at, adminID).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("approve request: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_verified = TRUE, updated_at = $2 WHERE id = $1`, userID, at); err != nil {
		return false, fmt.Errorf("verify user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve: %w", err)
	}
	return true, nil
}

func (r *verificationRequestRepository) Reject(ctx context.Context, id, adminID int64, reason string, at time.Time) (bool, error) {
	const q = `
		UPDATE verification_requests
		SET status = 'REJECTED', reviewed_at = $2, reviewed_by = $3, rejection_reason = $4, updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`
	res, err := r.DB.ExecContext(ctx, q, id, at, adminID, reason)
	if err != nil {
		return false, fmt.Errorf("reject request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject request: %w", err)
	}
	return n > 0, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
