package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
)

var approveQuery = sqlLike(
	"UPDATE verification_requests",
	"SET status = 'APPROVED'",
	"WHERE id = $1 AND status = 'PENDING'",
	"RETURNING user_id",
)

func TestVerificationRequestRepository_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(approveQuery).
			WithArgs(int64(5), testNow, int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
		mock.ExpectExec(sqlLike("UPDATE users SET is_verified = TRUE", "WHERE id = $1")).
			WithArgs(int64(42), testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, err := NewVerificationRequestRepository(db).Approve(ctx, 5, 1, testNow)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("already reviewed", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(approveQuery).
			WithArgs(int64(5), testNow, int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
		mock.ExpectRollback()

		ok, err := NewVerificationRequestRepository(db).Approve(ctx, 5, 1, testNow)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("user update fails", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(approveQuery).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
		mock.ExpectExec(sqlLike("UPDATE users SET is_verified = TRUE")).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		ok, err := NewVerificationRequestRepository(db).Approve(ctx, 5, 1, testNow)
		require.ErrorContains(t, err, "verify user")
		require.False(t, ok)
	})
}

func TestVerificationRequestRepository_Reject(t *testing.T) {
	db, mock := newMock(t)
	query := sqlLike("SET status = 'REJECTED'", "rejection_reason = $4", "WHERE id = $1 AND status = 'PENDING'")
	mock.ExpectExec(query).
		WithArgs(int64(5), testNow, int64(1), "нечитаемый скан").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewVerificationRequestRepository(db).Reject(context.Background(), 5, 1, "нечитаемый скан", testNow)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerificationRequestRepository_CreatePendingExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(sqlLike("INSERT INTO verification_requests", "RETURNING id")).
		WithArgs(int64(42), models.RequestPending, testNow).
		WillReturnError(&pq.Error{Code: "23505"})

	err := NewVerificationRequestRepository(db).Create(context.Background(), &models.VerificationRequest{
		UserID: 42, Status: models.RequestPending, CreatedAt: testNow,
	})
	require.ErrorIs(t, err, ErrPendingExists)
}
