package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
)

func TestIssueCodeShape(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)

	c, err := e.verification.Issue(e.ctx, u.ID, models.VerificationSMS)
	require.NoError(t, err)
	require.Len(t, c.Code, 6)
	require.Regexp(t, `^\d{6}$`, c.Code)
	require.Equal(t, models.VerificationPending, c.Status)
	require.Equal(t, e.clock.Now().Add(15*time.Minute), c.ExpiresAt)
	require.Equal(t, 0, c.SendAttempts)
}

func TestVerifyCodeTypesDoNotCross(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)

	smsCode, err := e.verification.Issue(e.ctx, u.ID, models.VerificationSMS)
	require.NoError(t, err)
	emailCode, err := e.verification.Issue(e.ctx, u.ID, models.VerificationEmail)
	require.NoError(t, err)

	ok, err := e.verification.Verify(e.ctx, u.ID, smsCode.Code, models.VerificationEmail)
	require.NoError(t, err)
	if smsCode.Code != emailCode.Code {
		require.False(t, ok)
	}

	ok, err = e.verification.Verify(e.ctx, u.ID, smsCode.Code, models.VerificationSMS)
	require.NoError(t, err)
	require.True(t, ok)

	// одноразовый
	ok, err = e.verification.Verify(e.ctx, u.ID, smsCode.Code, models.VerificationSMS)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyExpiredCodeFails(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)

	c, err := e.verification.Issue(e.ctx, u.ID, models.VerificationEmail)
	require.NoError(t, err)

	e.clock.Advance(15*time.Minute + time.Second)
	ok, err := e.verification.Verify(e.ctx, u.ID, c.Code, models.VerificationEmail)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanResend(t *testing.T) {
	e := newEnv(t)
	now := e.clock.Now()
	c := &models.VerificationCode{LastSentAt: now, SendAttempts: 1}

	require.False(t, e.verification.CanResend(c, now))
	require.False(t, e.verification.CanResend(c, now.Add(4*time.Minute)))
	require.True(t, e.verification.CanResend(c, now.Add(5*time.Minute+time.Second)))

	c.SendAttempts = 5
	require.False(t, e.verification.CanResend(c, now.Add(time.Hour)))
}

func TestDispatchMarksSent(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)

	res, err := e.verification.IssueAndDispatchBoth(e.ctx, u)
	require.NoError(t, err)
	require.True(t, res.EmailSent)
	require.True(t, res.SMSSent)

	emailCode := e.latestCode(u.ID, models.VerificationEmail)
	require.Equal(t, 1, emailCode.SendAttempts)
	require.Equal(t, []string{emailCode.Code}, e.email.codes[u.Email])

	smsCode := e.latestCode(u.ID, models.VerificationSMS)
	require.Equal(t, 1, smsCode.SendAttempts)
	require.Contains(t, e.sms.last(u.Phone), smsCode.Code)
}

func TestDispatchFailureIsReported(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)
	e.sms.fail = true

	res, err := e.verification.IssueAndDispatchBoth(e.ctx, u)
	require.NoError(t, err)
	require.True(t, res.EmailSent)
	require.False(t, res.SMSSent)
	require.Equal(t, 0, e.latestCode(u.ID, models.VerificationSMS).SendAttempts)
}

func TestResend(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)
	_, err := e.verification.IssueAndDispatchBoth(e.ctx, u)
	require.NoError(t, err)

	err = e.verification.Resend(e.ctx, u, models.VerificationEmail)
	requireKind(t, err, KindRateLimited)
	require.ErrorIs(t, err, ErrResendThrottled)

	e.clock.Advance(6 * time.Minute)
	require.NoError(t, e.verification.Resend(e.ctx, u, models.VerificationEmail))
	require.Len(t, e.email.codes[u.Email], 2)

	e.clock.Advance(6 * time.Minute)
	e.email.fail = true
	err = e.verification.Resend(e.ctx, u, models.VerificationEmail)
	require.ErrorIs(t, err, ErrCodeSendFailed)

	err = e.verification.Resend(e.ctx, u, models.VerificationType("FAX"))
	requireKind(t, err, KindValidation)
}

func TestVerifyBothReportsSMSFirst(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79990000001", "a@example.com", models.RoleUser, false)
	_, err := e.verification.IssueAndDispatchBoth(e.ctx, u)
	require.NoError(t, err)
	emailCode := e.latestCode(u.ID, models.VerificationEmail).Code
	smsCode := e.latestCode(u.ID, models.VerificationSMS).Code

	err = e.verification.VerifyBoth(e.ctx, u.ID, "000000x", "000000x")
	require.ErrorIs(t, err, ErrSMSCodeInvalid)
	require.Equal(t, "smsCode", err.(*Error).Field)

	err = e.verification.VerifyBoth(e.ctx, u.ID, smsCode, "000000x")
	require.ErrorIs(t, err, ErrEmailCodeInvalid)

	// sms уже погашен предыдущей попыткой, поэтому выдаём новый
	e.clock.Advance(6 * time.Minute)
	require.NoError(t, e.verification.Resend(e.ctx, u, models.VerificationSMS))
	smsCode = e.latestCode(u.ID, models.VerificationSMS).Code
	require.NoError(t, e.verification.VerifyBoth(e.ctx, u.ID, smsCode, emailCode))
}
