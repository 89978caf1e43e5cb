package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseHours converts the stored hours text to a number.
//
// Missing, non-numeric or non-finite values count as zero; the function
// never fails. The sign is kept, so a stored "-2" subtracts from totals. A
// leading numeric prefix is honoured ("1.5h" is 1.5) and a decimal comma is
// accepted.
func ParseHours(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// numericPrefix returns the length of the longest prefix of s that looks like
// a decimal number with an optional sign.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if frac > 0 || digits > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

// FormatHours renders hours with one decimal place, as shown on cards.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 1, 64) + "h"
}
