// Package cpf validates, formats and generates Brazilian CPF numbers
// (11-digit taxpayer identifiers whose last two digits are check
// digits). All functions are pure and perform no I/O.
package cpf

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const cpfLength = 11

// Clean strips every non-digit character from s.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// checkDigit computes the verifier digit for a digit slice: the
// leftmost digit gets weight len(slice)+1, decreasing by one to the
// right; the weighted sum modulo 11 maps to 0 when the remainder is
// below 2 and to 11-remainder otherwise.
func checkDigit(digits string) int {
	sum := 0
	multiplier := len(digits) + 1
	for _, r := range digits {
		sum += int(r-'0') * multiplier
		multiplier--
	}

	remainder := sum % 11
	if remainder < 2 {
		return 0
	}

	return 11 - remainder
}

func isRepeatedSequence(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}

	return true
}

// Validate reports whether s is a valid CPF. The value is cleaned
// first, so "529.982.247-25" and "52998224725" are equivalent. Eleven
// identical digits ("111.111.111-11" and the other nine sequences)
// pass the check-digit math but are rejected as invalid.
func Validate(s string) bool {
	digits := Clean(s)
	if len(digits) != cpfLength || isRepeatedSequence(digits) {
		return false
	}

	if checkDigit(digits[:9]) != int(digits[9]-'0') {
		return false
	}

	return checkDigit(digits[:10]) == int(digits[10]-'0')
}

// Format renders a CPF as NNN.NNN.NNN-NN. A value that does not clean
// to exactly 11 digits is returned unchanged rather than failing.
func Format(s string) string {
	digits := Clean(s)
	if len(digits) != cpfLength {
		return s
	}

	return digits[:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:]
}

// Generate returns a random valid CPF in formatted form. It is a
// fixture helper for tests and seeds; it has no place on a validation
// path.
func Generate() string {
	var b strings.Builder
	b.Grow(cpfLength)
	for i := 0; i < 9; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		b.WriteByte(byte('0' + n.Int64()))
	}

	digits := b.String()
	first := checkDigit(digits)
	digits += string(byte('0' + first))
	second := checkDigit(digits)
	digits += string(byte('0' + second))

	return Format(digits)
}
