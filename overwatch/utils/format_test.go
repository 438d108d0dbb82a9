package utils

import "testing"

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0원"},
		{7, "7원"},
		{999, "999원"},
		{1000, "1,000원"},
		{1234567, "1,234,567원"},
		{-500, "-500원"},
		{-1234567, "-1,234,567원"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.amount); got != tt.want {
			t.Errorf("FormatMoney(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0초"},
		{-5, "0초"},
		{59, "59초"},
		{60, "1분"},
		{61, "1분 1초"},
		{3600, "1시간"},
		{3661, "1시간 1분 1초"},
		{7325, "2시간 2분 5초"},
		{3605, "1시간 5초"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
