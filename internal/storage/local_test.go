package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/files", zap.NewNop())
	require.NoError(t, err)

	url, err := s.Put(ctx, "uploads/7/7_passport_abc.jpg", "image/jpeg", []byte("scan"))
	require.NoError(t, err)
	require.Equal(t, "/files/uploads/7/7_passport_abc.jpg", url)

	key, ok := s.KeyFromURL(url)
	require.True(t, ok)
	require.Equal(t, "uploads/7/7_passport_abc.jpg", key)

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("scan"), data)

	keys, err := s.List(ctx, "uploads/7")
	require.NoError(t, err)
	require.Equal(t, []string{"uploads/7/7_passport_abc.jpg"}, keys)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../etc/passwd", "", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidKey)

	_, ok := s.KeyFromURL("https://elsewhere/x.pdf")
	require.False(t, ok)
}

func TestLocalStorage_ListMissingPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)
	keys, err := s.List(context.Background(), "uploads/99")
	require.NoError(t, err)
	require.Empty(t, keys)
}
