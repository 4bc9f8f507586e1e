package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopemx/internal/handlers"
	"shopemx/internal/middleware"
	"shopemx/internal/models"
	"shopemx/internal/pdf"
	"shopemx/internal/repositories/memory"
	"shopemx/internal/services"
	"shopemx/internal/storage"
)

type nopEmail struct{}

func (nopEmail) SendVerificationCode(string, string) error                { return nil }
func (nopEmail) SendLoginNotification(string, services.LoginNotice) error { return nil }

type nopSMS struct{}

func (nopSMS) SendSMS(context.Context, string, string) error { return nil }

type server struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	auth   services.AuthService
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := memory.NewStore()
	files, err := storage.NewLocalStorage(t.TempDir(), "/files", log)
	require.NoError(t, err)

	auth := services.NewAuthServiceWithCost("test-secret", time.Hour, 4)
	verification := services.NewVerificationService(store.Codes(), nopEmail{}, nopSMS{}, services.VerificationOptions{}, log)
	users := services.NewUserService(store.Users(), auth, verification, nopEmail{}, log)
	profiles := services.NewProfileService(store.Users(), store.Requests(), files, nil, 0, log)
	admin := services.NewAdminService(store.Users(), store.Requests(), profiles, log)
	offers := services.NewOfferService(store.Offers(), store.Users(), files, pdf.NewDocumentGenerator(""), nopSMS{}, nil, services.OfferOptions{}, log)

	cookie := middleware.CookieConfig{Name: "shopemx_auth", TTL: time.Hour}
	r := gin.New()
	SetupRoutes(r, Handlers{
		Auth:     handlers.NewAuthHandler(users, cookie, "http://app.local"),
		Verify:   handlers.NewVerifyHandler(users),
		Profile:  handlers.NewProfileHandler(profiles),
		Document: handlers.NewDocumentHandler(profiles),
		Sell:     handlers.NewSellHandler(offers, 0),
		Buy:      handlers.NewBuyHandler(offers),
		Admin:    handlers.NewAdminHandler(admin),
	}, auth, cookie)

	return &server{t: t, router: r, store: store, auth: auth}
}

func (s *server) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "shopemx_auth" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func registration() gin.H {
	return gin.H{
		"phone":           "+79991234567",
		"email":           "ivan@example.com",
		"firstName":       "Иван",
		"lastName":        "Петров",
		"password":        "Secret#123",
		"confirmPassword": "Secret#123",
		"agreeToTerms":    true,
	}
}

func TestRegisterVerifyLogout(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/user", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/register", registration())
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Equal(t, "http://app.local/verify", w.Header().Get("Location"))
	cookie := sessionCookie(t, w)
	require.True(t, cookie.HttpOnly)

	w = s.do(http.MethodGet, "/user", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	require.Equal(t, false, me["isVerified"])
	userID := int64(me["id"].(float64))

	sms, err := s.store.Codes().GetLatest(context.Background(), userID, models.VerificationSMS)
	require.NoError(t, err)
	email, err := s.store.Codes().GetLatest(context.Background(), userID, models.VerificationEmail)
	require.NoError(t, err)

	w = s.do(http.MethodPost, "/auth/verify", gin.H{"smsCode": "000", "emailCode": "000"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "smsCode", decode(t, w)["field"])

	w = s.do(http.MethodPost, "/auth/verify", gin.H{"smsCode": sms.Code, "emailCode": email.Code}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/user", nil, cookie)
	require.Equal(t, true, decode(t, w)["isVerified"])

	w = s.do(http.MethodPost, "/auth/register", registration())
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "phone", decode(t, w)["field"])

	w = s.do(http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Less(t, sessionCookie(t, w).MaxAge, 0)

	w = s.do(http.MethodGet, "/user", nil, cookie)
	require.Equal(t, false, decode(t, w)["isVerified"])
}

func TestLoginErrors(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/auth/login", gin.H{"phone": "+79991234567", "password": "Secret#123"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/auth/login", gin.H{"phone": "+79991234567"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/check-phone", gin.H{"phone": "12345"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "phone", decode(t, w)["field"])
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	user := &models.User{Phone: "+79991234567", Email: "u@example.com", FirstName: "Иван", LastName: "Петров", Role: models.RoleUser}
	admin := &models.User{Phone: "+79990000000", Email: "a@example.com", FirstName: "Анна", LastName: "Смирнова", Role: models.RoleAdmin}
	require.NoError(t, s.store.Users().Create(ctx, user))
	require.NoError(t, s.store.Users().Create(ctx, admin))

	userToken, err := s.auth.IssueSession(user.ID, user.Role)
	require.NoError(t, err)
	adminToken, err := s.auth.IssueSession(admin.ID, admin.Role)
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/admin/verification-requests", nil, &http.Cookie{Name: "shopemx_auth", Value: userToken})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Bearer вместо куки
	req := httptest.NewRequest(http.MethodGet, "/admin/verification-requests?status=all", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, decode(t, rec), "requests")

	adminCookie := &http.Cookie{Name: "shopemx_auth", Value: adminToken}
	w = s.do(http.MethodGet, "/admin/verification-requests?status=UNKNOWN", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/admin/verification-requests/77/approve", nil, adminCookie)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/admin/verification-requests/abc/approve", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/admin/users/export", nil, adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Header().Get("Content-Disposition"), ".xlsx"))
}

func TestUnverifiedCannotSell(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	user := &models.User{Phone: "+79991234567", Email: "u@example.com", FirstName: "Иван", LastName: "Петров", Role: models.RoleUser}
	require.NoError(t, s.store.Users().Create(ctx, user))
	token, err := s.auth.IssueSession(user.ID, user.Role)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "shopemx_auth", Value: token}

	w := s.do(http.MethodGet, "/transactions/sales", nil, cookie)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/buy", gin.H{"sellOfferId": 1, "buyerId": user.ID + 1}, cookie)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/offers", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndConfirmOffer(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	seller := &models.User{Phone: "+79991234567", Email: "s@example.com", FirstName: "Иван", LastName: "Петров", Role: models.RoleUser}
	require.NoError(t, s.store.Users().Create(ctx, seller))
	require.NoError(t, s.store.Users().SetVerified(ctx, seller.ID, true))
	token, err := s.auth.IssueSession(seller.ID, seller.Role)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "shopemx_auth", Value: token}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title":        "Рассвет",
		"description":  "Масло, холст",
		"contractType": "EXCLUSIVE_RIGHTS",
		"price":        "1500,00",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "art.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sell/create-offer", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	offerID := int64(decode(t, w)["offerId"].(float64))

	w = s.do(http.MethodPost, fmt.Sprintf("/sell/confirm-offer/%d", offerID), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, decode(t, w)["contractUrl"], "/files/contracts/")

	w = s.do(http.MethodGet, "/offers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	offers := decode(t, w)["offers"].([]any)
	require.Len(t, offers, 1)
	require.Equal(t, "1500.00", offers[0].(map[string]any)["price"])

	w = s.do(http.MethodPost, fmt.Sprintf("/sell/confirm-offer/%d", offerID), nil, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
