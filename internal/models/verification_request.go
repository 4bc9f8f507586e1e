package models

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// VerificationRequest: заявка на KYC-проверку, рассматривается администратором.
type VerificationRequest struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"userId"`
	Status          RequestStatus `json:"status"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
	ReviewedBy      *int64        `json:"reviewedBy,omitempty"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`

	User *User `json:"user,omitempty"`
}
