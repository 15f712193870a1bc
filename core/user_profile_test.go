package core

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestQueryContext(t *testing.T) {
	var nilProfile *StyleProfile
	if got := nilProfile.QueryContext("casual friday"); got != "casual friday. User style: General style" {
		t.Errorf("nil profile: %q", got)
	}

	p := NewStyleProfile("u1")
	if got := p.QueryContext("casual friday"); got != "casual friday. User style: General style" {
		t.Errorf("empty summary: %q", got)
	}

	p.SummaryText = "prefers dark colors"
	if got := p.QueryContext("casual friday"); got != "casual friday. User style: prefers dark colors" {
		t.Errorf("with summary: %q", got)
	}
}

func TestQueryContextTruncatesLongSummary(t *testing.T) {
	p := NewStyleProfile("u1")
	p.SummaryText = strings.Repeat("a", 600)

	got := p.QueryContext("q")
	want := "q. User style: " + strings.Repeat("a", 500)
	if got != want {
		t.Errorf("ascii summary truncated to %d chars, want 500", len(got)-len("q. User style: "))
	}
}

func TestQueryContextTruncatesOnRuneBoundary(t *testing.T) {
	// 多字节字符（每个 3 字节）：按字符截断，不能产生非法 UTF-8
	p := NewStyleProfile("u1")
	p.SummaryText = strings.Repeat("极", 600)

	got := p.QueryContext("q")
	if !utf8.ValidString(got) {
		t.Fatal("truncated summary is not valid UTF-8")
	}
	summary := strings.TrimPrefix(got, "q. User style: ")
	if n := utf8.RuneCountInString(summary); n != 500 {
		t.Errorf("summary rune count = %d, want 500", n)
	}
}
