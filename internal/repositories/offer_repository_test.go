package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
)

func TestOfferRepository_Reserve(t *testing.T) {
	ctx := context.Background()
	expires := testNow.Add(15 * time.Minute)
	query := sqlLike(
		"UPDATE sell_offers",
		"SET status = 'ACCEPTED', buyer_id = $2",
		"WHERE id = $1 AND status = 'ACTIVE' AND buyer_id IS NULL",
	)

	t.Run("won", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs(int64(7), int64(3), "123456", expires, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := NewOfferRepository(db).Reserve(ctx, 7, 3, "123456", expires, testNow)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("already taken", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs(int64(7), int64(4), "654321", expires, testNow).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := NewOfferRepository(db).Reserve(ctx, 7, 4, "654321", expires, testNow)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("db error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(query).WillReturnError(errors.New("conn reset"))

		ok, err := NewOfferRepository(db).Reserve(ctx, 7, 3, "123456", expires, testNow)
		require.ErrorContains(t, err, "reserve offer")
		require.False(t, ok)
	})
}

func TestOfferRepository_Activate(t *testing.T) {
	ctx := context.Background()
	query := sqlLike("SET status = 'ACTIVE', contract_path = $2", "WHERE id = $1 AND status = 'PENDING'")

	db, mock := newMock(t)
	mock.ExpectExec(query).
		WithArgs(int64(5), "/files/contracts/5.pdf", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(int64(5), "/files/contracts/5.pdf", testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewOfferRepository(db)
	ok, err := repo.Activate(ctx, 5, "/files/contracts/5.pdf", testNow)
	require.NoError(t, err)
	require.True(t, ok)

	// повторная активация: строка уже не PENDING
	ok, err = repo.Activate(ctx, 5, "/files/contracts/5.pdf", testNow)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOfferRepository_ConfirmPurchase(t *testing.T) {
	ctx := context.Background()
	query := sqlLike(
		"SET purchase_confirmed_at = $3",
		"WHERE id = $1 AND status = 'ACCEPTED' AND purchase_confirmed_at IS NULL",
		"AND confirmation_code = $2 AND confirmation_expires > $3",
	)

	db, mock := newMock(t)
	mock.ExpectExec(query).WithArgs(int64(9), "111111", testNow).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(query).WithArgs(int64(9), "222222", testNow).WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewOfferRepository(db)
	ok, err := repo.ConfirmPurchase(ctx, 9, "111111", testNow)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.ConfirmPurchase(ctx, 9, "222222", testNow)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOfferRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	query := sqlLike("UPDATE sell_offers SET status = $3", "WHERE id = $1 AND status = $2")

	db, mock := newMock(t)
	mock.ExpectExec(query).
		WithArgs(int64(2), models.OfferActive, models.OfferCancelled, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(int64(2), models.OfferActive, models.OfferCancelled, testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewOfferRepository(db)
	ok, err := repo.TransitionStatus(ctx, 2, models.OfferActive, models.OfferCancelled, testNow)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, 2, models.OfferActive, models.OfferCancelled, testNow)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOfferRepository_GetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(sqlLike("FROM sell_offers o", "WHERE o.id = $1")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	o, err := NewOfferRepository(db).GetByID(context.Background(), 404)
	require.NoError(t, err)
	require.Nil(t, o)
}
