package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopemx/internal/models"
	"shopemx/internal/repositories"
	"shopemx/internal/utils"
)

// Настройки безопасности по умолчанию
const (
	defaultCodeTTL         = 15 * time.Minute
	defaultResendCooldown  = 5 * time.Minute
	defaultMaxSendAttempts = 5
	defaultCodeLength      = 6
)

type VerificationOptions struct {
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	MaxSendAttempts int
	CodeLength      int
}

// VerificationService выдаёт, рассылает и проверяет коды 2FA (EMAIL и SMS).
type VerificationService struct {
	Codes repositories.VerificationCodeRepository
	Email EmailService
	SMS   utils.SMSSender

	opts VerificationOptions
	log  *zap.Logger
	Now  func() time.Time
}

func NewVerificationService(
	codes repositories.VerificationCodeRepository,
	email EmailService,
	sms utils.SMSSender,
	opts VerificationOptions,
	log *zap.Logger,
) *VerificationService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = defaultResendCooldown
	}
	if opts.MaxSendAttempts <= 0 {
		opts.MaxSendAttempts = defaultMaxSendAttempts
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultCodeLength
	}
	if log == nil {
		log = zap.L()
	}
	return &VerificationService{Codes: codes, Email: email, SMS: sms, opts: opts, log: log, Now: time.Now}
}

// Issue создаёт новый код, каждая выдача пишется отдельной записью.
func (s *VerificationService) Issue(ctx context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error) {
	code, err := utils.NumericCode(s.opts.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.Now()
	c := &models.VerificationCode{
		UserID:       userID,
		Type:         t,
		Code:         code,
		Status:       models.VerificationPending,
		ExpiresAt:    now.Add(s.opts.CodeTTL),
		LastSentAt:   now,
		SendAttempts: 0,
		CreatedAt:    now,
	}
	if err := s.Codes.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CanResend: не больше MaxSendAttempts отправок и не чаще раза в ResendCooldown.
func (s *VerificationService) CanResend(c *models.VerificationCode, now time.Time) bool {
	if c == nil {
		return true
	}
	if c.SendAttempts >= s.opts.MaxSendAttempts {
		return false
	}
	return now.After(c.LastSentAt.Add(s.opts.ResendCooldown))
}

// Dispatch доставляет код по его каналу. Ошибка доставки логируется и
// возвращается как false; повторов нет.
func (s *VerificationService) Dispatch(ctx context.Context, c *models.VerificationCode, user *models.User) bool {
	var err error
	switch c.Type {
	case models.VerificationEmail:
		err = s.Email.SendVerificationCode(user.Email, c.Code)
	case models.VerificationSMS:
		text := fmt.Sprintf("Код подтверждения: %s. Действителен %d минут.", c.Code, int(s.opts.CodeTTL.Minutes()))
		err = s.SMS.SendSMS(ctx, user.Phone, text)
	default:
		err = fmt.Errorf("unknown verification type %q", c.Type)
	}
	if err != nil {
		s.log.Warn("[verify][send] failed",
			zap.Int64("user_id", user.ID), zap.String("type", string(c.Type)), zap.Error(err))
		return false
	}
	if err := s.Codes.MarkSent(ctx, c.ID, s.Now()); err != nil {
		s.log.Warn("[verify][send] mark sent failed", zap.Int64("code_id", c.ID), zap.Error(err))
	}
	s.log.Info("[verify][send] ok", zap.Int64("user_id", user.ID), zap.String("type", string(c.Type)))
	return true
}

type DispatchResult struct {
	EmailSent bool
	SMSSent   bool
}

// IssueAndDispatchBoth выдаёт EMAIL и SMS коды и отправляет их параллельно.
func (s *VerificationService) IssueAndDispatchBoth(ctx context.Context, user *models.User) (DispatchResult, error) {
	emailCode, err := s.Issue(ctx, user.ID, models.VerificationEmail)
	if err != nil {
		return DispatchResult{}, err
	}
	smsCode, err := s.Issue(ctx, user.ID, models.VerificationSMS)
	if err != nil {
		return DispatchResult{}, err
	}

	var res DispatchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.EmailSent = s.Dispatch(ctx, emailCode, user)
	}()
	go func() {
		defer wg.Done()
		res.SMSSent = s.Dispatch(ctx, smsCode, user)
	}()
	wg.Wait()
	return res, nil
}

// Verify гасит код одним условным UPDATE; типы не пересекаются.
func (s *VerificationService) Verify(ctx context.Context, userID int64, code string, t models.VerificationType) (bool, error) {
	if code == "" {
		return false, nil
	}
	return s.Codes.Consume(ctx, userID, code, t, s.Now())
}

// Resend повторно отправляет код указанного типа.
func (s *VerificationService) Resend(ctx context.Context, user *models.User, t models.VerificationType) error {
	if !t.Valid() {
		return fieldError(KindValidation, "type", "type must be EMAIL or SMS")
	}
	last, err := s.Codes.GetLatest(ctx, user.ID, t)
	if err != nil {
		return internalError("failed to load verification code", err)
	}
	if last != nil && !s.CanResend(last, s.Now()) {
		return ErrResendThrottled
	}
	c, err := s.Issue(ctx, user.ID, t)
	if err != nil {
		return internalError("failed to issue verification code", err)
	}
	if !s.Dispatch(ctx, c, user) {
		return ErrCodeSendFailed
	}
	return nil
}

// VerifyBoth проверяет оба кода параллельно. Сначала сообщается ошибка SMS.
func (s *VerificationService) VerifyBoth(ctx context.Context, userID int64, smsCode, emailCode string) error {
	var (
		wg               sync.WaitGroup
		smsOK, emailOK   bool
		smsErr, emailErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		smsOK, smsErr = s.Verify(ctx, userID, smsCode, models.VerificationSMS)
	}()
	go func() {
		defer wg.Done()
		emailOK, emailErr = s.Verify(ctx, userID, emailCode, models.VerificationEmail)
	}()
	wg.Wait()

	if smsErr != nil {
		return internalError("failed to verify code", smsErr)
	}
	if emailErr != nil {
		return internalError("failed to verify code", emailErr)
	}
	if !smsOK {
		return ErrSMSCodeInvalid
	}
	if !emailOK {
		return ErrEmailCodeInvalid
	}
	return nil
}
