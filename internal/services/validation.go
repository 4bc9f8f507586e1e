package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	cyrillicNameRe = regexp.MustCompile(`^[А-Яа-яЁё]+$`)
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	passportSeriesRe = regexp.MustCompile(`^\d{4}$`)
	passportNumberRe = regexp.MustCompile(`^\d{6}$`)
	passportCodeRe   = regexp.MustCompile(`^\d{3}-\d{3}$`)

	bikRe     = regexp.MustCompile(`^\d{9}$`)
	accountRe = regexp.MustCompile(`^\d{20}$`)

	priceRe    = regexp.MustCompile(`^\d{1,8}(,\d{0,2})?$`)
	durationRe = regexp.MustCompile(`^[1-9][0-9]?$`)
)

const dateLayout = "2006-01-02"

// validatePassword проверяет длину и четыре класса символов.
func validatePassword(field, password string) []FieldError {
	var errs []FieldError
	if utf8.RuneCountInString(password) < 8 {
		errs = append(errs, FieldError{Field: field, Message: "Пароль должен содержать минимум 8 символов"})
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		errs = append(errs, FieldError{Field: field, Message: "Пароль должен содержать хотя бы одну заглавную букву"})
	}
	if !lower {
		errs = append(errs, FieldError{Field: field, Message: "Пароль должен содержать хотя бы одну строчную букву"})
	}
	if !digit {
		errs = append(errs, FieldError{Field: field, Message: "Пароль должен содержать хотя бы одну цифру"})
	}
	if !special {
		errs = append(errs, FieldError{Field: field, Message: "Пароль должен содержать хотя бы один специальный символ"})
	}
	return errs
}

func validEmail(s string) bool {
	return emailRe.MatchString(s)
}

func validCyrillicName(s string) bool {
	return cyrillicNameRe.MatchString(s)
}

// parseDateInRange разбирает YYYY-MM-DD (или RFC3339) и проверяет [min, today].
func parseDateInRange(s string, min, now time.Time) (time.Time, bool) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		d, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	if d.Before(min) || d.After(now) {
		return time.Time{}, false
	}
	return d, true
}

// optional: пустая строка после trim означает отсутствие значения.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
