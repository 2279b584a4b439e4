package runner

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	fn()
	return buf.String()
}

func TestPrintResults(t *testing.T) {
	res := RunResult{
		TotalScore: 1,
		MaxScore:   2,
		Percentage: 50,
		TestResults: []Result{
			{Test: "q1", Status: StatusPass, Message: "ok", Score: 1, MaxScore: 1, StudentQuery: "SELECT 1"},
			{Test: "q2", Status: StatusFail, Message: "mismatch", MaxScore: 1, Failures: []string{"Test 1: off by one"}},
		},
	}
	out := captureLog(t, func() { PrintResults(res) })
	for _, want := range []string{"q1", "q2", "FINAL SCORE: 1/2 (50.00%)", "off by one", "SELECT 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintResultsFatalError(t *testing.T) {
	out := captureLog(t, func() {
		PrintResults(RunResult{Error: "database connection failed"})
	})
	if !strings.Contains(out, "database connection failed") {
		t.Fatalf("error not printed:\n%s", out)
	}
	if strings.Contains(out, "FINAL SCORE") {
		t.Fatalf("score banner printed on fatal error:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	long := strings.Repeat("x", 200)
	got := truncate(long, queryDisplayLimit)
	if len(got) != queryDisplayLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate length %d: %q", len(got), got[:20])
	}
}
