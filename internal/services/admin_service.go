package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shopemx/internal/authz"
	"shopemx/internal/models"
	"shopemx/internal/repositories"
)

// AdminService: рассмотрение заявок KYC и справочник пользователей.
type AdminService struct {
	Users    repositories.UserRepository
	Requests repositories.VerificationRequestRepository
	Profiles *ProfileService

	log *zap.Logger
	Now func() time.Time
}

func NewAdminService(
	users repositories.UserRepository,
	requests repositories.VerificationRequestRepository,
	profiles *ProfileService,
	log *zap.Logger,
) *AdminService {
	if log == nil {
		log = zap.L()
	}
	return &AdminService{Users: users, Requests: requests, Profiles: profiles, log: log, Now: time.Now}
}

func (s *AdminService) requireAdmin(ctx context.Context, actorID int64) error {
	u, err := s.Users.GetByID(ctx, actorID)
	if err != nil {
		return internalError("failed to load user", err)
	}
	if u == nil {
		return ErrUnauthenticated
	}
	if !authz.IsAdmin(u.Role) {
		return ErrAdminOnly
	}
	return nil
}

func (s *AdminService) ListPending(ctx context.Context, adminID int64) ([]*models.VerificationRequest, error) {
	st := models.RequestPending
	return s.ListRequests(ctx, adminID, &st)
}

// ListRequests возвращает заявки с карточкой пользователя; status nil значит все.
func (s *AdminService) ListRequests(ctx context.Context, adminID int64, status *models.RequestStatus) ([]*models.VerificationRequest, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	reqs, err := s.Requests.List(ctx, status)
	if err != nil {
		return nil, internalError("failed to list requests", err)
	}
	return reqs, nil
}

func (s *AdminService) pendingRequest(ctx context.Context, adminID, requestID int64) (*models.VerificationRequest, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, internalError("failed to load request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != models.RequestPending {
		return nil, ErrAlreadyProcessed
	}
	return req, nil
}

func (s *AdminService) Approve(ctx context.Context, requestID, adminID int64) (*models.VerificationRequest, error) {
	if _, err := s.pendingRequest(ctx, adminID, requestID); err != nil {
		return nil, err
	}
	ok, err := s.Requests.Approve(ctx, requestID, adminID, s.Now())
	if err != nil {
		return nil, internalError("failed to approve request", err)
	}
	if !ok {
		return nil, ErrAlreadyProcessed
	}
	s.log.Info("[kyc][approve] ok", zap.Int64("request_id", requestID), zap.Int64("admin_id", adminID))
	return s.reload(ctx, requestID)
}

func (s *AdminService) Reject(ctx context.Context, requestID, adminID int64, reason string) (*models.VerificationRequest, error) {
	if _, err := s.pendingRequest(ctx, adminID, requestID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if runeLen(reason) < 5 {
		return nil, fieldError(KindValidation, "reason", "Причина отклонения должна содержать не менее 5 символов")
	}
	ok, err := s.Requests.Reject(ctx, requestID, adminID, reason, s.Now())
	if err != nil {
		return nil, internalError("failed to reject request", err)
	}
	if !ok {
		return nil, ErrAlreadyProcessed
	}
	s.log.Info("[kyc][reject] ok", zap.Int64("request_id", requestID), zap.Int64("admin_id", adminID))
	return s.reload(ctx, requestID)
}

func (s *AdminService) reload(ctx context.Context, requestID int64) (*models.VerificationRequest, error) {
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, internalError("failed to load request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *AdminService) ListUsers(ctx context.Context, adminID int64) ([]*models.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, internalError("failed to list users", err)
	}
	return users, nil
}

var exportHeader = []string{
	"ID", "Фамилия", "Имя", "Отчество", "Телефон", "Email", "Роль", "Верифицирован", "Банк", "БИК", "Дата регистрации",
}

// ExportUsers выгружает пользователей в xlsx.
func (s *AdminService) ExportUsers(ctx context.Context, adminID int64) ([]byte, error) {
	users, err := s.ListUsers(ctx, adminID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	const sheet = "Users"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, internalError("xlsx", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, internalError("xlsx header", err)
	}
	for i, u := range users {
		verified := "нет"
		if u.IsVerified {
			verified = "да"
		}
		row := []any{
			u.ID, u.LastName, u.FirstName, u.MiddleName, u.Phone, u.Email, string(u.Role), verified,
			deref(u.BankName), deref(u.BankBik), u.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, internalError("xlsx", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, internalError(fmt.Sprintf("xlsx row %d", i+2), err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, internalError("xlsx write", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
