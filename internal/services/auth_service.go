package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"shopemx/internal/models"
)

var errInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
	IssueSession(userID int64, role models.Role) (string, error)
	ValidateSession(token string) (*Claims, error)
	SessionTTL() time.Duration
}

type authService struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) AuthService {
	return NewAuthServiceWithCost(secret, ttl, bcrypt.DefaultCost)
}

// NewAuthServiceWithCost задаёт стоимость bcrypt явно (в тестах 4).
func NewAuthServiceWithCost(secret string, ttl time.Duration, cost int) AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &authService{secret: []byte(secret), ttl: ttl, cost: cost, now: time.Now}
}

func (s *authService) SessionTTL() time.Duration { return s.ttl }

func (s *authService) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	return string(h), nil
}

func (s *authService) ComparePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *authService) IssueSession(userID int64, role models.Role) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

func (s *authService) ValidateSession(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// защита: принимаем только HMAC (HS256 и т.п.)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return claims, nil
}
