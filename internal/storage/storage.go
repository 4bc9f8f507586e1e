// Package storage хранит загруженные файлы: сканы документов, работы и договоры.
// Ключ имеет вид "uploads/{userId}/...", "artworks/{userId}/...", "contracts/{userId}/...".
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Storage interface {
	// Put сохраняет объект и возвращает его публичный URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List возвращает ключи с данным префиксом.
	List(ctx context.Context, prefix string) ([]string, error)
	URL(key string) string
	// KeyFromURL: обратное к URL.
	KeyFromURL(url string) (string, bool)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return path.Clean(key), nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

func keyFromURL(base, url string) (string, bool) {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(url, base+"/") {
		return "", false
	}
	key, err := cleanKey(strings.TrimPrefix(url, base+"/"))
	if err != nil {
		return "", false
	}
	return key, true
}
