// Package validation builds the request validator shared by the handlers,
// with the Brazilian tax document tags registered.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the cnpj, cpf and cpfcnpj tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return ValidCNPJ(fl.Field().String())
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
	_ = v.RegisterValidation("cpfcnpj", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return ValidCPF(s) || ValidCNPJ(s)
	})
	return v
}

// Digits strips punctuation from a formatted document number.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCNPJ checks length and both check digits of a CNPJ.
func ValidCNPJ(s string) bool {
	d := Digits(s)
	if len(d) != 14 || repeated(d) {
		return false
	}
	first := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	second := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	return cnpjDigit(d[:12], first) == int(d[12]-'0') && cnpjDigit(d[:13], second) == int(d[13]-'0')
}

// ValidCPF checks length and both check digits of a CPF.
func ValidCPF(s string) bool {
	d := Digits(s)
	if len(d) != 11 || repeated(d) {
		return false
	}
	return cpfDigit(d[:9]) == int(d[9]-'0') && cpfDigit(d[:10]) == int(d[10]-'0')
}

func cnpjDigit(d string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	if rem := sum % 11; rem >= 2 {
		return 11 - rem
	}
	return 0
}

func cpfDigit(d string) int {
	sum := 0
	weight := len(d) + 1
	for i := range d {
		sum += int(d[i]-'0') * (weight - i)
	}
	return (sum * 10) % 11 % 10
}

func repeated(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}
