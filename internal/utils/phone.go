package utils

import (
	"regexp"
	"strings"
)

// российский мобильный: +7/7/8, затем 9XX XXX XX XX с любыми разделителями
var phoneRe = regexp.MustCompile(`^(\+7|7|8)?[\s\-]?\(?9[0-9]{2}\)?[\s\-]?[0-9]{3}[\s\-]?[0-9]{2}[\s\-]?[0-9]{2}$`)

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidPhone(phone string) bool {
	return phoneRe.MatchString(strings.TrimSpace(phone))
}

// NormalizePhone приводит номер к виду +7XXXXXXXXXX.
// Нераспознанный номер возвращается как есть.
func NormalizePhone(phone string) string {
	d := DigitsOnly(phone)
	switch {
	case len(d) == 11 && (d[0] == '8' || d[0] == '7'):
		return "+7" + d[1:]
	case len(d) == 10 && d[0] == '9':
		return "+7" + d
	}
	return phone
}
