package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopemx/internal/models"
	"shopemx/internal/storage"
)

// Upload: файл из multipart-формы.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) ext() string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Filename)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// UploadDocument сохраняет фото документа: только изображения, не больше MaxDocumentSize.
func (s *ProfileService) UploadDocument(ctx context.Context, userID int64, file *Upload) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", fieldError(KindValidation, "file", "Файл не найден")
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", fieldError(KindValidation, "file", "Пожалуйста, загрузите изображение")
	}
	if int64(len(file.Data)) > s.MaxDocumentSize {
		return "", fieldError(KindValidation, "file", fmt.Sprintf("Размер файла не должен превышать %d МБ", s.MaxDocumentSize>>20))
	}
	if _, err := s.user(ctx, userID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("uploads/%d/%d_passport_%s.%s", userID, userID, uuid.NewString(), file.ext())
	url, err := s.Store.Put(ctx, key, file.ContentType, file.Data)
	if err != nil {
		return "", internalError("failed to store document", err)
	}
	if err := s.Users.SetPassportDocument(ctx, userID, &url); err != nil {
		return "", internalError("failed to save document url", err)
	}
	s.log.Info("[doc][upload] ok", zap.Int64("user_id", userID), zap.String("key", key))
	return url, nil
}

// GetDocument: URL скана или "" если документа нет.
func (s *ProfileService) GetDocument(ctx context.Context, userID int64) (string, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.documentURL(ctx, u)
}

// documentURL: сначала ссылка из профиля, затем старая раскладка uploads/{id}.
func (s *ProfileService) documentURL(ctx context.Context, u *models.User) (string, error) {
	if u.PassportDocumentURL != nil && *u.PassportDocumentURL != "" {
		return *u.PassportDocumentURL, nil
	}
	key, err := s.legacyDocumentKey(ctx, u.ID)
	if err != nil || key == "" {
		return "", err
	}
	return s.Store.URL(key), nil
}

func (s *ProfileService) legacyDocumentKey(ctx context.Context, userID int64) (string, error) {
	keys, err := s.Store.List(ctx, fmt.Sprintf("uploads/%d", userID))
	if err != nil {
		return "", internalError("failed to scan documents", err)
	}
	for _, k := range keys {
		if strings.Contains(path.Base(k), "passport") {
			return k, nil
		}
	}
	return "", nil
}

func (s *ProfileService) DeleteDocument(ctx context.Context, userID int64) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	var key string
	if u.PassportDocumentURL != nil && *u.PassportDocumentURL != "" {
		k, ok := s.Store.KeyFromURL(*u.PassportDocumentURL)
		if ok {
			key = k
		}
	} else {
		if key, err = s.legacyDocumentKey(ctx, userID); err != nil {
			return err
		}
		if key == "" {
			return ErrDocumentNotFound
		}
	}

	if key != "" {
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return internalError("failed to delete document", err)
		}
	}
	if u.PassportDocumentURL != nil {
		if err := s.Users.SetPassportDocument(ctx, userID, nil); err != nil {
			return internalError("failed to clear document url", err)
		}
	}
	s.log.Info("[doc][delete] ok", zap.Int64("user_id", userID))
	return nil
}

// UserDocument отдаёт администратору скан документа пользователя.
func (s *AdminService) UserDocument(ctx context.Context, adminID, userID int64) (string, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return "", err
	}
	return s.Profiles.GetDocument(ctx, userID)
}
