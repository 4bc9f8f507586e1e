package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"shopemx/internal/models"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Phone:           "+79991234567",
		Email:           "ivan@example.com",
		FirstName:       "Иван",
		LastName:        "Петров",
		MiddleName:      "Сергеевич",
		Password:        "Secret#123",
		ConfirmPassword: "Secret#123",
		AgreeToTerms:    true,
	}
}

func TestRegisterThenVerify(t *testing.T) {
	e := newEnv(t)
	meta := ClientMeta{IP: "10.0.0.1", UserAgent: "test-agent"}

	sess, err := e.users.Register(e.ctx, validRegistration(), meta)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, "+79991234567", sess.User.Phone)
	require.False(t, e.user(sess.User.ID).IsVerified)

	claims, err := e.auth.ValidateSession(sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)

	smsCode := e.latestCode(sess.User.ID, models.VerificationSMS).Code
	emailCode := e.latestCode(sess.User.ID, models.VerificationEmail).Code
	require.NoError(t, e.users.CompleteVerification(e.ctx, sess.User.ID, smsCode, emailCode, meta))

	u := e.user(sess.User.ID)
	require.True(t, u.IsVerified)
	require.Equal(t, "10.0.0.1", *u.LastLoginIP)
	require.Equal(t, "test-agent", *u.LastLoginUserAgent)
	require.NotNil(t, u.LastLoginAt)
}

func TestRegisterNormalizesPhone(t *testing.T) {
	e := newEnv(t)
	in := validRegistration()
	in.Phone = "8 (999) 123-45-67"

	sess, err := e.users.Register(e.ctx, in, ClientMeta{})
	require.NoError(t, err)
	require.Equal(t, "+79991234567", sess.User.Phone)
}

func TestRegisterDuplicates(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.Register(e.ctx, validRegistration(), ClientMeta{})
	require.NoError(t, err)

	_, err = e.users.Register(e.ctx, validRegistration(), ClientMeta{})
	requireKind(t, err, KindConflict)
	require.Equal(t, "phone", err.(*Error).Field)

	in := validRegistration()
	in.Phone = "+79991234568"
	_, err = e.users.Register(e.ctx, in, ClientMeta{})
	requireKind(t, err, KindConflict)
	require.Equal(t, "email", err.(*Error).Field)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	in := validRegistration()
	in.FirstName = "Ivan"
	in.Password = "short"
	in.ConfirmPassword = "other"
	in.AgreeToTerms = false

	_, err := e.users.Register(e.ctx, in, ClientMeta{})
	requireKind(t, err, KindValidation)

	fields := map[string]bool{}
	for _, fe := range err.(*Error).Errors {
		fields[fe.Field] = true
	}
	require.True(t, fields["firstName"])
	require.True(t, fields["password"])
	require.True(t, fields["confirmPassword"])
	require.True(t, fields["agreeToTerms"])
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79991234567", "ivan@example.com", models.RoleUser, true)

	_, err := e.users.Login(e.ctx, "+79990000000", "Secret#123")
	requireKind(t, err, KindNotFound)

	_, err = e.users.Login(e.ctx, "+79991234567", "wrong")
	requireKind(t, err, KindUnauthenticated)
	require.True(t, e.user(u.ID).IsVerified)

	sess, err := e.users.Login(e.ctx, "89991234567", "Secret#123")
	require.NoError(t, err)
	require.Equal(t, u.ID, sess.User.ID)
	// каждая новая сессия требует 2FA заново
	require.False(t, e.user(u.ID).IsVerified)
	require.Len(t, e.email.codes[u.Email], 1)
}

func TestCompleteVerificationWrongSMS(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79991234567", "ivan@example.com", models.RoleUser, false)
	_, err := e.users.Login(e.ctx, u.Phone, "Secret#123")
	require.NoError(t, err)

	emailCode := e.latestCode(u.ID, models.VerificationEmail).Code
	err = e.users.CompleteVerification(e.ctx, u.ID, "bad", emailCode, ClientMeta{})
	requireKind(t, err, KindInvalidCode)
	require.Equal(t, "smsCode", err.(*Error).Field)
	require.False(t, e.user(u.ID).IsVerified)
}

func TestLogoutResetsVerification(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79991234567", "ivan@example.com", models.RoleUser, true)

	require.NoError(t, e.users.Logout(e.ctx, u.ID))
	require.False(t, e.user(u.ID).IsVerified)
}

func TestVerifyCode(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79991234567", "ivan@example.com", models.RoleUser, false)
	c, err := e.verification.Issue(e.ctx, u.ID, models.VerificationSMS)
	require.NoError(t, err)

	requireKind(t, e.users.VerifyCode(e.ctx, u.ID, "12", models.VerificationSMS), KindValidation)
	requireKind(t, e.users.VerifyCode(e.ctx, u.ID, c.Code, "PIGEON"), KindValidation)
	require.ErrorIs(t, e.users.VerifyCode(e.ctx, u.ID, c.Code, models.VerificationEmail), ErrCodeInvalid)
	require.NoError(t, e.users.VerifyCode(e.ctx, u.ID, c.Code, models.VerificationSMS))
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	u := e.createUser("+79991234567", "ivan@example.com", models.RoleUser, true)

	require.ErrorIs(t, e.users.VerifyPassword(e.ctx, u.ID, "nope"), ErrWrongPassword)
	require.NoError(t, e.users.VerifyPassword(e.ctx, u.ID, "Secret#123"))

	err := e.users.ChangePassword(e.ctx, u.ID, "Secret#123", "weak", "weak")
	requireKind(t, err, KindValidation)

	require.NoError(t, e.users.ChangePassword(e.ctx, u.ID, "Secret#123", "Better#456", "Better#456"))
	require.NoError(t, e.users.VerifyPassword(e.ctx, u.ID, "Better#456"))
}
