package services

import (
	"context"

	"go.uber.org/zap"
)

// VerifyPassword сверяет пароль перед чувствительным действием.
func (s *UserService) VerifyPassword(ctx context.Context, userID int64, password string) error {
	if password == "" {
		return fieldError(KindValidation, "password", "Пароль обязателен")
	}
	user, err := s.mustUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.Auth.ComparePassword(password, user.PasswordHash) {
		return ErrWrongPassword
	}
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next, confirm string) error {
	if err := s.VerifyPassword(ctx, userID, current); err != nil {
		return err
	}
	errs := validatePassword("newPassword", next)
	if next != confirm {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: "Пароли не совпадают"})
	}
	if len(errs) > 0 {
		return validationError(errs...)
	}

	hash, err := s.Auth.HashPassword(next)
	if err != nil {
		return internalError("failed to hash password", err)
	}
	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return internalError("failed to update password", err)
	}
	s.log.Info("[auth][password] changed", zap.Int64("user_id", userID))
	return nil
}
