package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shopemx/internal/models"
)

// pendingKYC создаёт пользователя с загруженным документом и заявкой.
func (e *env) pendingKYC(phone, email string) (*models.User, *models.VerificationRequest) {
	e.t.Helper()
	u := e.createUser(phone, email, models.RoleUser, false)
	_, err := e.profiles.UploadDocument(e.ctx, u.ID, jpeg("scan.jpg"))
	require.NoError(e.t, err)
	req, err := e.profiles.RequestVerification(e.ctx, u.ID)
	require.NoError(e.t, err)
	return u, req
}

func TestApproveVerification(t *testing.T) {
	e := newEnv(t)
	admin := e.createUser("+79990000000", "admin@example.com", models.RoleAdmin, true)
	u, req := e.pendingKYC("+79991234567", "ivan@example.com")

	pending, err := e.admin.ListPending(e.ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].User)
	require.Equal(t, u.Phone, pending[0].User.Phone)

	got, err := e.admin.Approve(e.ctx, req.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestApproved, got.Status)
	require.Equal(t, admin.ID, *got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
	require.True(t, e.user(u.ID).IsVerified)

	_, err = e.admin.Approve(e.ctx, req.ID, admin.ID)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	requireKind(t, err, KindConflict)

	_, err = e.admin.Reject(e.ctx, req.ID, admin.ID, "поздно отклонять")
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	pending, err = e.admin.ListPending(e.ctx, admin.ID)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRejectVerification(t *testing.T) {
	e := newEnv(t)
	admin := e.createUser("+79990000000", "admin@example.com", models.RoleAdmin, true)
	u, req := e.pendingKYC("+79991234567", "ivan@example.com")

	_, err := e.admin.Reject(e.ctx, req.ID, admin.ID, "  нет ")
	requireKind(t, err, KindValidation)
	require.Equal(t, "reason", err.(*Error).Field)

	got, err := e.admin.Reject(e.ctx, req.ID, admin.ID, "Нечитаемый скан паспорта")
	require.NoError(t, err)
	require.Equal(t, models.RequestRejected, got.Status)
	require.Equal(t, "Нечитаемый скан паспорта", *got.RejectionReason)
	require.False(t, e.user(u.ID).IsVerified)

	// после отказа можно подать новую заявку
	again, err := e.profiles.RequestVerification(e.ctx, u.ID)
	require.NoError(t, err)
	require.NotEqual(t, req.ID, again.ID)

	all, err := e.admin.ListRequests(e.ctx, admin.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAdminGuards(t *testing.T) {
	e := newEnv(t)
	admin := e.createUser("+79990000000", "admin@example.com", models.RoleAdmin, true)
	u, req := e.pendingKYC("+79991234567", "ivan@example.com")

	_, err := e.admin.Approve(e.ctx, req.ID, u.ID)
	require.ErrorIs(t, err, ErrAdminOnly)
	requireKind(t, err, KindForbidden)

	_, err = e.admin.ListUsers(e.ctx, 9999)
	requireKind(t, err, KindUnauthenticated)

	_, err = e.admin.Approve(e.ctx, 424242, admin.ID)
	require.ErrorIs(t, err, ErrRequestNotFound)

	doc, err := e.admin.UserDocument(e.ctx, admin.ID, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, doc)

	_, err = e.admin.UserDocument(e.ctx, u.ID, u.ID)
	require.ErrorIs(t, err, ErrAdminOnly)
}

func TestExportUsers(t *testing.T) {
	e := newEnv(t)
	admin := e.createUser("+79990000000", "admin@example.com", models.RoleAdmin, true)
	e.createUser("+79991234567", "ivan@example.com", models.RoleUser, false)

	data, err := e.admin.ExportUsers(e.ctx, admin.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, exportHeader, rows[0])
	require.Equal(t, "+79991234567", rows[1][4])
	require.Equal(t, "нет", rows[1][7])
	require.Equal(t, "admin@example.com", rows[2][5])
}
