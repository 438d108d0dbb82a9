// Package utils holds small presentation helpers shared by the command layer.
package utils

import "strconv"

// Embed colors
const (
	SuccessColor = 0x57F287
	ErrorColor   = 0xED4245
	WarningColor = 0xFEE75C
	InfoColor    = 0x2B2D31
)

// FormatMoney renders a balance with thousands separators and the currency
// suffix, e.g. 1234567 -> "1,234,567원".
func FormatMoney(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := strconv.FormatInt(amount, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	if negative {
		return "-" + string(out) + "원"
	}
	return string(out) + "원"
}

// FormatDuration renders a remaining cooldown in Korean, e.g. "1시간 5분 3초".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0초"
	}

	var out string
	if h := seconds / 3600; h > 0 {
		out += strconv.FormatInt(h, 10) + "시간 "
	}
	if m := (seconds % 3600) / 60; m > 0 {
		out += strconv.FormatInt(m, 10) + "분 "
	}
	if s := seconds % 60; s > 0 || out == "" {
		out += strconv.FormatInt(s, 10) + "초"
	}
	return trimTrailingSpace(out)
}

func trimTrailingSpace(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
