package usage

import "testing"

func TestNewReport(t *testing.T) {
	emb := NewCounter(38, 1542)
	chat := NewCounter(12, 9800)
	b := NewBudget(1000000, 998458, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, emb, chat, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 || r.PeriodEnd() != 1702600000 {
		t.Errorf("period bounds = %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.Embedding().Requests() != 38 || r.Embedding().Tokens() != 1542 {
		t.Errorf("Embedding() = %+v", r.Embedding())
	}
	if r.Chat().Tokens() != 9800 {
		t.Errorf("Chat() = %+v", r.Chat())
	}
	if r.Budget().IsExhausted() || r.Budget().ResetsAt() != 1700000000000 {
		t.Errorf("Budget() = %+v", r.Budget())
	}
}

func TestNewBudget_Exhaustion(t *testing.T) {
	if !NewBudget(100, 0, 0).IsExhausted() {
		t.Error("zero remaining with a limit should be exhausted")
	}
	if NewBudget(0, -1, 0).IsExhausted() {
		t.Error("unlimited budget is never exhausted")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"day", PeriodDay, true},
		{"month", PeriodMonth, true},
		{"total", PeriodTotal, true},
		{"", PeriodMonth, true},
		{"week", "", false},
	}
	for _, tc := range tests {
		got, ok := ParsePeriod(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParsePeriod(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
