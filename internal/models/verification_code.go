package models

import "time"

type VerificationType string

const (
	VerificationEmail VerificationType = "EMAIL"
	VerificationSMS   VerificationType = "SMS"
)

func (t VerificationType) Valid() bool {
	return t == VerificationEmail || t == VerificationSMS
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
)

// VerificationCode: одноразовый код 2FA. Каждая выдача пишет новую строку.
type VerificationCode struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"userId"`
	Type         VerificationType   `json:"type"`
	Code         string             `json:"-"`
	Status       VerificationStatus `json:"status"`
	ExpiresAt    time.Time          `json:"expiresAt"`
	LastSentAt   time.Time          `json:"lastSentAt"`
	SendAttempts int                `json:"sendAttempts"`
	CreatedAt    time.Time          `json:"createdAt"`
}
