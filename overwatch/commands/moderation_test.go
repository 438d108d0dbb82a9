package commands

import (
	"strings"
	"testing"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
)

func TestSummarizeCasesEmpty(t *testing.T) {
	summary, recent := summarizeCases(nil)
	if summary != "" || recent != "" {
		t.Fatalf("empty history summarized as (%q, %q)", summary, recent)
	}
}

func TestSummarizeCasesTotals(t *testing.T) {
	cases := []*models.ModerationCase{
		{ID: 3, Action: models.ModerationActionWarn, Count: 2, Reason: "도배"},
		{ID: 2, Action: models.ModerationActionBan, Reason: "욕설"},
		{ID: 1, Action: models.ModerationActionWarn, Count: 1, Reason: ""},
	}

	summary, recent := summarizeCases(cases)
	if summary != "경고 3회, 차단 1회" {
		t.Errorf("summary = %q, want 경고 3회, 차단 1회", summary)
	}
	wantLines := []string{
		"- **경고 2회**: 도배 (ID: 3)",
		"- **차단**: 욕설 (ID: 2)",
		"- **경고 1회**: 사유 없음 (ID: 1)",
	}
	gotLines := strings.Split(recent, "\n")
	if len(gotLines) != len(wantLines) {
		t.Fatalf("recent has %d lines, want %d:\n%s", len(gotLines), len(wantLines), recent)
	}
	for i, want := range wantLines {
		if gotLines[i] != want {
			t.Errorf("line %d = %q, want %q", i, gotLines[i], want)
		}
	}
}

func TestSummarizeCasesCapsRecentHistory(t *testing.T) {
	var cases []*models.ModerationCase
	for i := 0; i < maxRecentCases+3; i++ {
		cases = append(cases, &models.ModerationCase{
			ID: int64(i + 1), Action: models.ModerationActionWarn, Count: 1, Reason: "반복 위반",
		})
	}

	_, recent := summarizeCases(cases)
	if got := len(strings.Split(recent, "\n")); got != maxRecentCases {
		t.Errorf("recent has %d lines, want %d", got, maxRecentCases)
	}
}
