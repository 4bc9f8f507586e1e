package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shopemx/internal/models"
)

var (
	ErrDuplicatePhone = errors.New("phone already registered")
	ErrDuplicateEmail = errors.New("email already registered")
)

// ProfileUpdate: набор полей анкеты; nil означает NULL в базе.
type ProfileUpdate struct {
	FirstName              string
	LastName               string
	MiddleName             string
	Email                  string
	Phone                  string
	BirthDate              *time.Time
	PassportSeries         *string
	PassportNumber         *string
	PassportCode           *string
	PassportIssueDate      *time.Time
	PassportIssuedBy       *string
	UseAlternativeDocument bool
	AlternativeDocument    *string
}

type BankDetails struct {
	BankName       *string
	BankBik        *string
	BankAccount    *string
	BankCorAccount *string
}

type LoginInfo struct {
	IP        string
	UserAgent string
	At        time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	SetVerified(ctx context.Context, userID int64, verified bool) error
	RecordLogin(ctx context.Context, userID int64, info LoginInfo) error
	UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) error
	UpdateBankDetails(ctx context.Context, userID int64, b BankDetails) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	SetPassportDocument(ctx context.Context, userID int64, url *string) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, phone, email, first_name, last_name, middle_name, password_hash, role, is_verified,
	birth_date, passport_series, passport_number, passport_code, passport_issue_date, passport_issued_by,
	use_alternative_document, alternative_document,
	bank_name, bank_bik, bank_account, bank_cor_account,
	passport_document_url, last_login_ip, last_login_user_agent, last_login_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(
		&u.ID, &u.Phone, &u.Email, &u.FirstName, &u.LastName, &u.MiddleName, &u.PasswordHash, &u.Role, &u.IsVerified,
		&u.BirthDate, &u.PassportSeries, &u.PassportNumber, &u.PassportCode, &u.PassportIssueDate, &u.PassportIssuedBy,
		&u.UseAlternativeDocument, &u.AlternativeDocument,
		&u.BankName, &u.BankBik, &u.BankAccount, &u.BankCorAccount,
		&u.PassportDocumentURL, &u.LastLoginIP, &u.LastLoginUserAgent, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

// uniqueViolation переводит нарушение уникального индекса в доменную ошибку.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "users_phone_key":
		return ErrDuplicatePhone
	case "users_email_key":
		return ErrDuplicateEmail
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (phone, email, first_name, last_name, middle_name, password_hash, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.Phone, user.Email, user.FirstName, user.LastName, user.MiddleName,
		user.PasswordHash, user.Role, user.IsVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, "phone = $1", phone)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) SetVerified(ctx context.Context, userID int64, verified bool) error {
	const q = `UPDATE users SET is_verified = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.DB.ExecContext(ctx, q, userID, verified); err != nil {
		return fmt.Errorf("set user verified: %w", err)
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, userID int64, info LoginInfo) error {
	const q = `
		UPDATE users
		SET is_verified = TRUE, last_login_ip = $2, last_login_user_agent = $3, last_login_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.ExecContext(ctx, q, userID, info.IP, info.UserAgent, info.At); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) error {
	const q = `
		UPDATE users SET
			first_name = $2, last_name = $3, middle_name = $4, email = $5, phone = $6,
			birth_date = $7,
			passport_series = $8, passport_number = $9, passport_code = $10,
			passport_issue_date = $11, passport_issued_by = $12,
			use_alternative_document = $13, alternative_document = $14,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.ExecContext(ctx, q, userID,
		p.FirstName, p.LastName, p.MiddleName, p.Email, p.Phone,
		p.BirthDate,
		p.PassportSeries, p.PassportNumber, p.PassportCode,
		p.PassportIssueDate, p.PassportIssuedBy,
		p.UseAlternativeDocument, p.AlternativeDocument,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateBankDetails(ctx context.Context, userID int64, b BankDetails) error {
	const q = `
		UPDATE users
		SET bank_name = $2, bank_bik = $3, bank_account = $4, bank_cor_account = $5, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.ExecContext(ctx, q, userID, b.BankName, b.BankBik, b.BankAccount, b.BankCorAccount); err != nil {
		return fmt.Errorf("update bank details: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.DB.ExecContext(ctx, q, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *userRepository) SetPassportDocument(ctx context.Context, userID int64, url *string) error {
	const q = `UPDATE users SET passport_document_url = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.DB.ExecContext(ctx, q, userID, url); err != nil {
		return fmt.Errorf("set passport document: %w", err)
	}
	return nil
}
