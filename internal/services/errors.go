package services

import (
	"errors"
	"fmt"
)

// Kind: категория ошибки; в HTTP-статус переводится только в handlers.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindInvalidState
	KindInvalidCode
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidCode:
		return "invalid_code"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error: бизнес-ошибка сервисного слоя.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Errors  []FieldError
	// ID связанной сущности (например, уже существующей заявки)
	RefID int64
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is сравнивает по виду и сообщению, чтобы errors.Is работал с сентинелами
// даже если ошибка пересоздана с другим Field/RefID.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func fieldError(kind Kind, field, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Field: field}
}

func validationError(errs ...FieldError) *Error {
	msg := "validation failed"
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	return &Error{Kind: KindValidation, Message: msg, Errors: errs}
}

func internalError(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается внутренней.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrUnauthenticated      = newError(KindUnauthenticated, "not authenticated")
	ErrVerificationRequired = newError(KindForbidden, "verification required")
	ErrForbidden            = newError(KindForbidden, "forbidden")
	ErrAdminOnly            = newError(KindForbidden, "admin role required")

	ErrUserNotFound      = newError(KindNotFound, "user not found")
	ErrInvalidPassword   = newError(KindUnauthenticated, "invalid password")
	ErrPhoneTaken        = fieldError(KindConflict, "phone", "user with this phone already exists")
	ErrEmailTaken        = fieldError(KindConflict, "email", "user with this email already exists")
	ErrWrongPassword     = fieldError(KindValidation, "password", "wrong password")
	ErrDocumentNotFound  = newError(KindNotFound, "document not found")
	ErrDocumentRequired  = newError(KindValidation, "identity document must be uploaded before requesting verification")
	ErrAlreadyVerified   = newError(KindInvalidState, "account is already verified")
	ErrRequestPending    = newError(KindConflict, "verification request is already pending")
	ErrRequestNotFound   = newError(KindNotFound, "verification request not found")
	ErrAlreadyProcessed  = newError(KindConflict, "verification request already processed")
	ErrResendThrottled   = newError(KindRateLimited, "too many code requests, try later")
	ErrCodeSendFailed    = newError(KindInternal, "failed to send code")
	ErrCodeInvalid       = newError(KindInvalidCode, "invalid verification code")
	ErrSMSCodeInvalid    = fieldError(KindInvalidCode, "smsCode", "invalid SMS code")
	ErrEmailCodeInvalid  = fieldError(KindInvalidCode, "emailCode", "invalid email code")
	ErrOfferNotFound     = newError(KindNotFound, "offer not found")
	ErrNotSeller         = newError(KindForbidden, "only the seller can manage this offer")
	ErrNotBuyer          = newError(KindForbidden, "only the buyer can confirm this purchase")
	ErrNotParticipant    = newError(KindForbidden, "only the seller or the buyer can access this contract")
	ErrBuyerMismatch     = newError(KindForbidden, "purchase must be made from your own account")
	ErrOfferNotPending   = newError(KindInvalidState, "offer is not pending")
	ErrOfferNotActive    = newError(KindInvalidState, "offer is not available for purchase")
	ErrOfferNotAccepted  = newError(KindInvalidState, "offer cannot be confirmed")
	ErrOfferTransition   = newError(KindInvalidState, "offer status does not allow this action")
	ErrPurchaseConfirmed = newError(KindInvalidState, "purchase already confirmed")
	ErrOwnOffer          = newError(KindValidation, "you cannot buy your own artwork")
	ErrConfirmationCode  = fieldError(KindInvalidCode, "confirmationCode", "invalid confirmation code")
	ErrConfirmationStale = fieldError(KindInvalidCode, "confirmationCode", "confirmation code expired")
)
