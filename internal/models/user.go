package models

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User: участник площадки. IsVerified действует в пределах одной сессии:
// сбрасывается при каждом входе/выходе и выставляется после 2FA или одобрения KYC.
type User struct {
	ID           int64  `json:"id"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	MiddleName   string `json:"middleName,omitempty"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	IsVerified   bool   `json:"isVerified"`

	BirthDate *time.Time `json:"birthDate,omitempty"`

	// паспорт
	PassportSeries    *string    `json:"passportSeries,omitempty"`
	PassportNumber    *string    `json:"passportNumber,omitempty"`
	PassportCode      *string    `json:"passportCode,omitempty"`
	PassportIssueDate *time.Time `json:"passportIssueDate,omitempty"`
	PassportIssuedBy  *string    `json:"passportIssuedBy,omitempty"`

	UseAlternativeDocument bool    `json:"useAlternativeDocument"`
	AlternativeDocument    *string `json:"alternativeDocument,omitempty"`

	// банковские реквизиты
	BankName       *string `json:"bankName,omitempty"`
	BankBik        *string `json:"bankBik,omitempty"`
	BankAccount    *string `json:"bankAccount,omitempty"`
	BankCorAccount *string `json:"bankCorAccount,omitempty"`

	PassportDocumentURL *string `json:"-"`

	LastLoginIP        *string    `json:"-"`
	LastLoginUserAgent *string    `json:"-"`
	LastLoginAt        *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FullName: "Фамилия Имя Отчество" без лишних пробелов.
func (u *User) FullName() string {
	name := u.LastName + " " + u.FirstName
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	return name
}

// UserSummary: урезанная карточка пользователя для списков сделок.
type UserSummary struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}
