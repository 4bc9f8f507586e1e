package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCode: случайный код из length цифр с ведущими нулями.
func NumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// CodeInRange: случайное число в [min, max] в виде строки.
func CodeInRange(min, max int64) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", min+n.Int64()), nil
}
