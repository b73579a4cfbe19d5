// Package words spells out rupee amounts using Indian digit grouping.
package words

import (
	"errors"
	"fmt"
	"strings"
)

// Limit is the exclusive upper bound accepted by ToWords (nine digits).
const Limit int64 = 1_000_000_000

// Suffix terminates every rendered amount.
const Suffix = "Rupees Only"

// ErrOutOfRange signals a caller passing a value outside [0, Limit).
var ErrOutOfRange = errors.New("words: amount out of range")

var ones = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// crore, lakh, thousand, hundred, then the tens+ones remainder.
var groups = []struct {
	width int
	scale string
}{
	{2, "Crore"},
	{2, "Lakh"},
	{2, "Thousand"},
	{1, "Hundred"},
	{2, ""},
}

// ToWords renders n as words, for example 245 becomes
// "Two Hundred and Forty Five Rupees Only".
func ToWords(n int64) (string, error) {
	if n < 0 || n >= Limit {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	if n == 0 {
		return "Zero " + Suffix, nil
	}
	digits := fmt.Sprintf("%09d", n)

	parts := make([]string, 0, 12)
	pos := 0
	for _, g := range groups {
		value := atoi(digits[pos : pos+g.width])
		pos += g.width
		if value == 0 {
			continue
		}
		if g.scale == "" {
			if len(parts) > 0 {
				parts = append(parts, "and")
			}
			parts = append(parts, twoDigits(value))
			continue
		}
		parts = append(parts, twoDigits(value), g.scale)
	}
	parts = append(parts, Suffix)
	return strings.Join(parts, " "), nil
}

// MustToWords is ToWords for callers that already validated the range.
func MustToWords(n int64) string {
	s, err := ToWords(n)
	if err != nil {
		panic(err)
	}
	return s
}

func twoDigits(v int) string {
	if v < 20 {
		return ones[v]
	}
	if v%10 == 0 {
		return tens[v/10]
	}
	return tens[v/10] + " " + ones[v%10]
}

func atoi(s string) int {
	v := 0
	for _, r := range s {
		v = v*10 + int(r-'0')
	}
	return v
}
