package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopemx/internal/models"
	"shopemx/internal/repositories"
	"shopemx/internal/storage"
	"shopemx/internal/utils"
)

var (
	minBirthDate         = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	minPassportIssueDate = time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC)
)

type ProfileInput struct {
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	MiddleName             string `json:"middleName"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	BirthDate              string `json:"birthDate"`
	PassportSeries         string `json:"passportSeries"`
	PassportNumber         string `json:"passportNumber"`
	PassportCode           string `json:"passportCode"`
	PassportIssueDate      string `json:"passportIssueDate"`
	PassportIssuedBy       string `json:"passportIssuedBy"`
	UseAlternativeDocument bool   `json:"useAlternativeDocument"`
	AlternativeDocument    string `json:"alternativeDocument"`
}

type BankInput struct {
	BankName       string `json:"bankName"`
	BankBik        string `json:"bankBik"`
	BankAccount    string `json:"bankAccount"`
	BankCorAccount string `json:"bankCorAccount"`
}

// ProfileService: анкета пользователя, скан документа и заявки на KYC.
type ProfileService struct {
	Users    repositories.UserRepository
	Requests repositories.VerificationRequestRepository
	Store    storage.Storage
	Notifier Notifier

	MaxDocumentSize int64

	log *zap.Logger
	Now func() time.Time
}

func NewProfileService(
	users repositories.UserRepository,
	requests repositories.VerificationRequestRepository,
	store storage.Storage,
	notifier Notifier,
	maxDocumentSize int64,
	log *zap.Logger,
) *ProfileService {
	if maxDocumentSize <= 0 {
		maxDocumentSize = 5 << 20
	}
	if log == nil {
		log = zap.L()
	}
	return &ProfileService{
		Users:           users,
		Requests:        requests,
		Store:           store,
		Notifier:        notifier,
		MaxDocumentSize: maxDocumentSize,
		log:             log,
		Now:             time.Now,
	}
}

func (s *ProfileService) user(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// buildProfile проверяет анкету и собирает обновление. Пустая строка значит
// отсутствие значения; паспорт и альтернативный документ взаимоисключающие.
func buildProfile(in ProfileInput, now time.Time) (repositories.ProfileUpdate, []FieldError) {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	p := repositories.ProfileUpdate{
		FirstName:              strings.TrimSpace(in.FirstName),
		LastName:               strings.TrimSpace(in.LastName),
		MiddleName:             strings.TrimSpace(in.MiddleName),
		Email:                  strings.TrimSpace(in.Email),
		Phone:                  utils.NormalizePhone(strings.TrimSpace(in.Phone)),
		UseAlternativeDocument: in.UseAlternativeDocument,
	}
	if p.FirstName == "" {
		add("firstName", "Имя обязательно для заполнения")
	}
	if p.LastName == "" {
		add("lastName", "Фамилия обязательна для заполнения")
	}
	if p.Email == "" {
		add("email", "Электронная почта обязательна для заполнения")
	} else if !validEmail(p.Email) {
		add("email", "Введите корректный адрес электронной почты")
	}
	if p.Phone == "" {
		add("phone", "Телефон обязателен для заполнения")
	}

	if v := optional(in.BirthDate); v != nil {
		d, ok := parseDateInRange(*v, minBirthDate, now)
		if !ok {
			add("birthDate", "Дата рождения должна быть корректной, не ранее 1900 года и не в будущем")
		} else {
			p.BirthDate = &d
		}
	}

	if in.UseAlternativeDocument {
		alt := optional(in.AlternativeDocument)
		switch {
		case alt == nil:
			add("alternativeDocument", "Необходимо указать данные альтернативного документа")
		case runeLen(*alt) > 100:
			add("alternativeDocument", "Максимальная длина - 100 символов")
		default:
			p.AlternativeDocument = alt
		}
		// паспортные поля остаются nil
		return p, errs
	}

	series := optional(in.PassportSeries)
	number := optional(in.PassportNumber)
	code := optional(in.PassportCode)
	issue := optional(in.PassportIssueDate)
	issuedBy := optional(in.PassportIssuedBy)

	hasAny := series != nil || number != nil || code != nil || issue != nil || issuedBy != nil
	hasAll := series != nil && number != nil && code != nil && issue != nil && issuedBy != nil
	if hasAny && !hasAll {
		add("passport", "Все паспортные данные должны быть заполнены")
		return p, errs
	}
	if !hasAll {
		return p, errs
	}

	if !passportSeriesRe.MatchString(*series) {
		add("passportSeries", "Серия паспорта должна содержать 4 цифры")
	}
	if !passportNumberRe.MatchString(*number) {
		add("passportNumber", "Номер паспорта должен содержать 6 цифр")
	}
	if !passportCodeRe.MatchString(*code) {
		add("passportCode", "Код подразделения должен быть в формате XXX-XXX")
	}
	d, ok := parseDateInRange(*issue, minPassportIssueDate, now)
	if !ok {
		add("passportIssueDate", "Дата выдачи паспорта должна быть не ранее 1991 года и не в будущем")
	}
	if runeLen(*issuedBy) < 5 {
		add("passportIssuedBy", "Укажите полное название органа, выдавшего паспорт")
	}
	p.PassportSeries, p.PassportNumber, p.PassportCode, p.PassportIssuedBy = series, number, code, issuedBy
	p.PassportIssueDate = &d
	return p, errs
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	p, errs := buildProfile(in, s.Now())
	if len(errs) > 0 {
		return nil, validationError(errs...)
	}
	if err := s.Users.UpdateProfile(ctx, userID, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicatePhone):
			return nil, ErrPhoneTaken
		case errors.Is(err, repositories.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, internalError("failed to update profile", err)
	}
	return s.user(ctx, userID)
}

func buildBank(in BankInput) (repositories.BankDetails, []FieldError) {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	b := repositories.BankDetails{
		BankName:       optional(in.BankName),
		BankBik:        optional(in.BankBik),
		BankAccount:    optional(in.BankAccount),
		BankCorAccount: optional(in.BankCorAccount),
	}
	hasAny := b.BankName != nil || b.BankBik != nil || b.BankAccount != nil || b.BankCorAccount != nil
	hasAll := b.BankName != nil && b.BankBik != nil && b.BankAccount != nil && b.BankCorAccount != nil
	if hasAny && !hasAll {
		add("bank", "Все банковские реквизиты должны быть заполнены (название банка, БИК, расчетный и корреспондентский счет)")
		return b, errs
	}
	if !hasAll {
		return b, nil
	}
	if n := runeLen(*b.BankName); n < 2 || n > 100 {
		add("bankName", "Название банка должно содержать от 2 до 100 символов")
	}
	if !bikRe.MatchString(*b.BankBik) {
		add("bankBik", "БИК должен содержать 9 цифр")
	}
	if !accountRe.MatchString(*b.BankAccount) {
		add("bankAccount", "Расчетный счет должен содержать 20 цифр")
	}
	if !accountRe.MatchString(*b.BankCorAccount) {
		add("bankCorAccount", "Корреспондентский счет должен содержать 20 цифр")
	}
	return b, errs
}

func (s *ProfileService) UpdateBankDetails(ctx context.Context, userID int64, in BankInput) (*models.User, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	b, errs := buildBank(in)
	if len(errs) > 0 {
		return nil, validationError(errs...)
	}
	if err := s.Users.UpdateBankDetails(ctx, userID, b); err != nil {
		return nil, internalError("failed to update bank details", err)
	}
	return s.user(ctx, userID)
}

// RequestVerification подаёт заявку на KYC-проверку администратором.
func (s *ProfileService) RequestVerification(ctx context.Context, userID int64) (*models.VerificationRequest, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	pending, err := s.Requests.GetPendingByUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load requests", err)
	}
	if pending != nil {
		return nil, pendingConflict(pending.ID)
	}
	doc, err := s.documentURL(ctx, u)
	if err != nil {
		return nil, err
	}
	if doc == "" {
		return nil, ErrDocumentRequired
	}

	req := &models.VerificationRequest{UserID: userID, Status: models.RequestPending, CreatedAt: s.Now()}
	if err := s.Requests.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrPendingExists) {
			// параллельная заявка успела раньше
			if p, _ := s.Requests.GetPendingByUser(ctx, userID); p != nil {
				return nil, pendingConflict(p.ID)
			}
			return nil, ErrRequestPending
		}
		return nil, internalError("failed to create verification request", err)
	}

	s.log.Info("[kyc][request] created", zap.Int64("user_id", userID), zap.Int64("request_id", req.ID))
	notify(s.Notifier, s.log, fmt.Sprintf("Новая заявка на верификацию #%d от %s (%s)", req.ID, html.EscapeString(u.FullName()), html.EscapeString(u.Phone)))
	return req, nil
}

func pendingConflict(id int64) *Error {
	return &Error{Kind: ErrRequestPending.Kind, Message: ErrRequestPending.Message, RefID: id}
}

func (s *ProfileService) ListVerificationRequests(ctx context.Context, userID int64) ([]*models.VerificationRequest, error) {
	reqs, err := s.Requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list requests", err)
	}
	return reqs, nil
}
