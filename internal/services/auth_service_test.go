package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
)

func TestSessionRoundTrip(t *testing.T) {
	a := NewAuthServiceWithCost("secret", time.Hour, 4)

	token, err := a.IssueSession(42, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := a.ValidateSession(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewAuthServiceWithCost("other", time.Hour, 4).ValidateSession(token)
	require.Error(t, err)

	_, err = a.ValidateSession("not-a-jwt")
	require.Error(t, err)
}

func TestSessionExpires(t *testing.T) {
	a := NewAuthServiceWithCost("secret", time.Hour, 4).(*authService)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return start }

	token, err := a.IssueSession(1, models.RoleUser)
	require.NoError(t, err)

	a.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = a.ValidateSession(token)
	require.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	a := NewAuthServiceWithCost("secret", 0, 4)
	require.Equal(t, 7*24*time.Hour, a.SessionTTL())

	h, err := a.HashPassword("Secret#123")
	require.NoError(t, err)
	require.True(t, a.ComparePassword("Secret#123", h))
	require.False(t, a.ComparePassword("secret#123", h))
}

func TestOfferTransitions(t *testing.T) {
	require.True(t, canTransition(models.OfferPending, models.OfferActive, OfferTransitions))
	require.True(t, canTransition(models.OfferActive, models.OfferAccepted, OfferTransitions))
	require.False(t, canTransition(models.OfferPending, models.OfferAccepted, OfferTransitions))
	require.False(t, canTransition(models.OfferActive, models.OfferDeclined, OfferTransitions))
	for _, terminal := range []models.OfferStatus{models.OfferAccepted, models.OfferDeclined, models.OfferCancelled} {
		for to := range OfferTransitions {
			require.False(t, canTransition(terminal, to, OfferTransitions), "%s -> %s", terminal, to)
		}
	}
	require.False(t, canTransition("UNKNOWN", models.OfferActive, OfferTransitions))
}
