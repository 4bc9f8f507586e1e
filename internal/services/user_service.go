package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopemx/internal/models"
	"shopemx/internal/repositories"
	"shopemx/internal/utils"
)

type RegisterInput struct {
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	MiddleName      string `json:"middleName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	AgreeToTerms    bool   `json:"agreeToTerms"`
}

// ClientMeta: откуда пришёл запрос (для уведомлений о входе).
type ClientMeta struct {
	IP        string
	UserAgent string
}

type Session struct {
	User  *models.User
	Token string
}

type UserService struct {
	Users        repositories.UserRepository
	Auth         AuthService
	Verification *VerificationService
	Email        EmailService

	log *zap.Logger
	Now func() time.Time
}

func NewUserService(
	users repositories.UserRepository,
	auth AuthService,
	verification *VerificationService,
	email EmailService,
	log *zap.Logger,
) *UserService {
	if log == nil {
		log = zap.L()
	}
	return &UserService{Users: users, Auth: auth, Verification: verification, Email: email, log: log, Now: time.Now}
}

// CheckPhone возвращает ErrUserNotFound, если телефон не зарегистрирован.
func (s *UserService) CheckPhone(ctx context.Context, phone string) error {
	if !utils.ValidPhone(phone) {
		return fieldError(KindValidation, "phone", "Введите корректный российский номер телефона")
	}
	u, err := s.Users.GetByPhone(ctx, utils.NormalizePhone(phone))
	if err != nil {
		return internalError("failed to look up phone", err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

func validateRegister(in RegisterInput) []FieldError {
	var errs []FieldError
	if !utils.ValidPhone(in.Phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "Введите корректный российский номер телефона"})
	}
	if !validEmail(in.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Введите корректный email"})
	}
	if !validCyrillicName(in.FirstName) {
		errs = append(errs, FieldError{Field: "firstName", Message: "Имя должно содержать только русские буквы"})
	}
	if !validCyrillicName(in.LastName) {
		errs = append(errs, FieldError{Field: "lastName", Message: "Фамилия должна содержать только русские буквы"})
	}
	if in.MiddleName != "" && !validCyrillicName(in.MiddleName) {
		errs = append(errs, FieldError{Field: "middleName", Message: "Отчество должно содержать только русские буквы"})
	}
	errs = append(errs, validatePassword("password", in.Password)...)
	if in.ConfirmPassword == "" || in.Password != in.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: "Пароли не совпадают"})
	}
	if !in.AgreeToTerms {
		errs = append(errs, FieldError{Field: "agreeToTerms", Message: "Вы должны согласиться с условиями"})
	}
	return errs
}

// Register создаёт пользователя, открывает сессию и рассылает оба кода 2FA.
func (s *UserService) Register(ctx context.Context, in RegisterInput, meta ClientMeta) (*Session, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)

	if errs := validateRegister(in); len(errs) > 0 {
		return nil, validationError(errs...)
	}
	phone := utils.NormalizePhone(in.Phone)

	if u, err := s.Users.GetByPhone(ctx, phone); err != nil {
		return nil, internalError("failed to look up phone", err)
	} else if u != nil {
		return nil, ErrPhoneTaken
	}
	if u, err := s.Users.GetByEmail(ctx, in.Email); err != nil {
		return nil, internalError("failed to look up email", err)
	} else if u != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.Auth.HashPassword(in.Password)
	if err != nil {
		return nil, internalError("failed to hash password", err)
	}
	user := &models.User{
		Phone:        phone,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		MiddleName:   in.MiddleName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		// гонка двух регистраций ловится уникальными индексами
		switch {
		case errors.Is(err, repositories.ErrDuplicatePhone):
			return nil, ErrPhoneTaken
		case errors.Is(err, repositories.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, internalError("failed to create user", err)
	}

	token, err := s.Auth.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, internalError("failed to issue session", err)
	}
	if _, err := s.Verification.IssueAndDispatchBoth(ctx, user); err != nil {
		return nil, internalError("failed to issue verification codes", err)
	}
	s.notifyLogin(user, meta)

	s.log.Info("[auth][register] ok", zap.Int64("user_id", user.ID))
	return &Session{User: user, Token: token}, nil
}

// Login проверяет пароль, сбрасывает флаг верификации и рассылает коды 2FA.
func (s *UserService) Login(ctx context.Context, phone, password string) (*Session, error) {
	if strings.TrimSpace(password) == "" {
		return nil, fieldError(KindValidation, "password", "Пароль обязателен")
	}
	if !utils.ValidPhone(phone) {
		return nil, fieldError(KindValidation, "phone", "Введите корректный российский номер телефона")
	}
	user, err := s.Users.GetByPhone(ctx, utils.NormalizePhone(phone))
	if err != nil {
		return nil, internalError("failed to look up user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !s.Auth.ComparePassword(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	// верификация действует в пределах сессии
	if err := s.Users.SetVerified(ctx, user.ID, false); err != nil {
		return nil, internalError("failed to reset verification", err)
	}
	user.IsVerified = false

	token, err := s.Auth.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, internalError("failed to issue session", err)
	}
	if _, err := s.Verification.IssueAndDispatchBoth(ctx, user); err != nil {
		return nil, internalError("failed to issue verification codes", err)
	}
	s.log.Info("[auth][login] ok, awaiting 2fa", zap.Int64("user_id", user.ID))
	return &Session{User: user, Token: token}, nil
}

// CompleteVerification проверяет второй фактор, оба кода должны подойти.
func (s *UserService) CompleteVerification(ctx context.Context, userID int64, smsCode, emailCode string, meta ClientMeta) error {
	user, err := s.mustUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Verification.VerifyBoth(ctx, userID, strings.TrimSpace(smsCode), strings.TrimSpace(emailCode)); err != nil {
		return err
	}
	if err := s.Users.RecordLogin(ctx, userID, repositories.LoginInfo{
		IP: meta.IP, UserAgent: meta.UserAgent, At: s.Now(),
	}); err != nil {
		return internalError("failed to complete verification", err)
	}
	s.notifyLogin(user, meta)
	s.log.Info("[auth][verify] ok", zap.Int64("user_id", userID))
	return nil
}

func (s *UserService) Logout(ctx context.Context, userID int64) error {
	if err := s.Users.SetVerified(ctx, userID, false); err != nil {
		return internalError("failed to logout", err)
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.mustUser(ctx, userID)
}

func (s *UserService) ResendCode(ctx context.Context, userID int64, t models.VerificationType) error {
	user, err := s.mustUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.Verification.Resend(ctx, user, t)
}

// VerifyCode: проверка одиночного кода; флаг верификации не меняет.
func (s *UserService) VerifyCode(ctx context.Context, userID int64, code string, t models.VerificationType) error {
	if !t.Valid() {
		return fieldError(KindValidation, "type", "type must be EMAIL or SMS")
	}
	if n := runeLen(code); n < 4 || n > 6 {
		return fieldError(KindValidation, "code", "code must be 4 to 6 characters")
	}
	ok, err := s.Verification.Verify(ctx, userID, code, t)
	if err != nil {
		return internalError("failed to verify code", err)
	}
	if !ok {
		return ErrCodeInvalid
	}
	return nil
}

func (s *UserService) mustUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) notifyLogin(user *models.User, meta ClientMeta) {
	if s.Email == nil {
		return
	}
	notice := LoginNotice{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		At:        s.Now(),
	}
	if err := s.Email.SendLoginNotification(user.Email, notice); err != nil {
		s.log.Warn("[auth][notify] login notification failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}
