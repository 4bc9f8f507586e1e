package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopemx/internal/models"
	"shopemx/internal/pdf"
	"shopemx/internal/repositories/memory"
	"shopemx/internal/storage"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeEmail struct {
	mu     sync.Mutex
	codes  map[string][]string
	logins int
	fail   bool
}

func (f *fakeEmail) SendVerificationCode(email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.codes[email] = append(f.codes[email], code)
	return nil
}

func (f *fakeEmail) SendLoginNotification(string, LoginNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return nil
}

type fakeSMS struct {
	mu    sync.Mutex
	texts map[string][]string
	fail  bool
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("gateway down")
	}
	f.texts[phone] = append(f.texts[phone], text)
	return nil
}

func (f *fakeSMS) last(phone string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.texts[phone]); n > 0 {
		return f.texts[phone][n-1]
	}
	return ""
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Notify(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type env struct {
	t        *testing.T
	ctx      context.Context
	clock    *testClock
	store    *memory.Store
	files    *storage.LocalStorage
	email    *fakeEmail
	sms      *fakeSMS
	notifier *fakeNotifier

	auth         AuthService
	verification *VerificationService
	users        *UserService
	profiles     *ProfileService
	admin        *AdminService
	offers       *OfferService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop()
	clock := &testClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	store := memory.NewStore()
	store.Now = clock.Now
	files, err := storage.NewLocalStorage(t.TempDir(), "/files", log)
	require.NoError(t, err)

	e := &env{
		t:        t,
		ctx:      context.Background(),
		clock:    clock,
		store:    store,
		files:    files,
		email:    &fakeEmail{codes: map[string][]string{}},
		sms:      &fakeSMS{texts: map[string][]string{}},
		notifier: &fakeNotifier{},
	}
	e.auth = NewAuthServiceWithCost("test-secret", 0, 4)
	e.verification = NewVerificationService(store.Codes(), e.email, e.sms, VerificationOptions{}, log)
	e.verification.Now = clock.Now
	e.users = NewUserService(store.Users(), e.auth, e.verification, e.email, log)
	e.users.Now = clock.Now
	e.profiles = NewProfileService(store.Users(), store.Requests(), files, e.notifier, 0, log)
	e.profiles.Now = clock.Now
	e.admin = NewAdminService(store.Users(), store.Requests(), e.profiles, log)
	e.admin.Now = clock.Now
	e.offers = NewOfferService(store.Offers(), store.Users(), files, pdf.NewDocumentGenerator(""), e.sms, e.notifier, OfferOptions{}, log)
	e.offers.Now = clock.Now
	return e
}

// createUser кладёт пользователя прямо в хранилище.
func (e *env) createUser(phone, email string, role models.Role, verified bool) *models.User {
	e.t.Helper()
	hash, err := e.auth.HashPassword("Secret#123")
	require.NoError(e.t, err)
	u := &models.User{
		Phone: phone, Email: email, FirstName: "Иван", LastName: "Петров", MiddleName: "Сергеевич",
		PasswordHash: hash, Role: role,
	}
	require.NoError(e.t, e.store.Users().Create(e.ctx, u))
	if verified {
		require.NoError(e.t, e.store.Users().SetVerified(e.ctx, u.ID, true))
		u.IsVerified = true
	}
	return u
}

func (e *env) user(id int64) *models.User {
	e.t.Helper()
	u, err := e.store.Users().GetByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, u)
	return u
}

// latestCode: последний выданный код пользователя данного типа.
func (e *env) latestCode(userID int64, typ models.VerificationType) *models.VerificationCode {
	e.t.Helper()
	c, err := e.store.Codes().GetLatest(e.ctx, userID, typ)
	require.NoError(e.t, err)
	require.NotNil(e.t, c)
	return c
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), KindOf(err).String(), "error: %v", err)
}
