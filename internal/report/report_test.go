package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sqlgrade/internal/config"
	"sqlgrade/internal/crypt"
	"sqlgrade/internal/runner"
)

func TestValidStudentID(t *testing.T) {
	valid := []string{"2023abcd2345g", "2023A1B22345G", "1999z9z90000g"}
	for _, id := range valid {
		if !ValidStudentID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	invalid := []string{"", "2023abcd2345", "23abcd2345g", "2023ab1c2345g", "2023abcd2345x", "x2023abcd2345g"}
	for _, id := range invalid {
		if ValidStudentID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}

func sampleRunResult() runner.RunResult {
	return runner.RunResult{
		TotalScore: 3,
		MaxScore:   4,
		Percentage: 75,
		TestResults: []runner.Result{
			{Test: "q1", Status: runner.StatusPass, Message: "ok", Score: 2, MaxScore: 2},
			{Test: "q2", Status: runner.StatusFail, Message: "mismatch", Score: 0, MaxScore: 1},
			{Test: "q3", Status: runner.StatusWarning, Message: "partial", Score: 1, MaxScore: 1},
		},
	}
}

func TestNewPayload(t *testing.T) {
	p := NewPayload("2023abcd2345g", sampleRunResult(), nil)
	if p.SubmissionID == "" {
		t.Fatalf("submission id not assigned")
	}
	if p.StudentID != "2023abcd2345g" {
		t.Fatalf("student id: %q", p.StudentID)
	}
	if len(p.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(p.Questions))
	}
	if q := p.Questions["q3"]; q.Status != string(runner.StatusWarning) || q.Score != 1 {
		t.Fatalf("q3: %+v", q)
	}
	if p.Timestamp == "" {
		t.Fatalf("timestamp not set")
	}
}

func TestEncryptedReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2023abcd2345g"+config.ResultsSuffix)
	key, err := crypt.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	p := NewPayload("2023abcd2345g", sampleRunResult(), nil)
	if err := WriteEncrypted(path, p, key); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(raw), p.StudentID) {
		t.Fatalf("report on disk leaks plaintext")
	}
	back, err := ReadEncrypted(path, key)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if back.SubmissionID != p.SubmissionID || back.TotalScore != p.TotalScore {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestSubmissionZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key, err := crypt.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	solutionPath := filepath.Join(dir, config.SolutionFile)
	if err := os.WriteFile(solutionPath, []byte("SELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write solution: %v", err)
	}
	p := NewPayload("2023abcd2345g", sampleRunResult(), nil)
	reportPath := filepath.Join(dir, p.StudentID+config.ResultsSuffix)
	if err := WriteEncrypted(reportPath, p, key); err != nil {
		t.Fatalf("write report: %v", err)
	}

	zipPath := filepath.Join(dir, p.StudentID+config.SubmissionSuffix)
	if err := WriteSubmissionZip(zipPath, solutionPath, reportPath); err != nil {
		t.Fatalf("write zip: %v", err)
	}

	back, err := ReadSubmissionReport(zipPath, key)
	if err != nil {
		t.Fatalf("read submission: %v", err)
	}
	if back.StudentID != p.StudentID || len(back.Questions) != 3 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestReadSubmissionReportNoReport(t *testing.T) {
	dir := t.TempDir()
	solutionPath := filepath.Join(dir, config.SolutionFile)
	if err := os.WriteFile(solutionPath, []byte("SELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write solution: %v", err)
	}
	zipPath := filepath.Join(dir, "x"+config.SubmissionSuffix)
	if err := WriteSubmissionZip(zipPath, solutionPath, solutionPath); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	key, _ := crypt.GenerateKey()
	if _, err := ReadSubmissionReport(zipPath, key); err == nil {
		t.Fatalf("expected error for archive without a report")
	}
}

func TestWriteScoresCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	reports := []Payload{
		{
			StudentID:  "2023aa1a0001g",
			TotalScore: 2, MaxScore: 3, Percentage: 66.7,
			Questions: map[string]QuestionResult{
				"q1":  {Score: 1},
				"q10": {Score: 1},
				"q2":  {Score: 0},
			},
		},
		{
			StudentID:  "2023bb2b0002g",
			TotalScore: 1, MaxScore: 3, Percentage: 33.3,
			Questions: map[string]QuestionResult{
				"q1": {Score: 1},
			},
		},
	}
	if err := WriteScoresCSV(path, reports); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[0], "q1,q2,q10") {
		t.Fatalf("question columns not numerically ordered: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2023aa1a0001g") {
		t.Fatalf("first row: %q", lines[1])
	}
	// Questions absent from a report produce empty cells.
	if !strings.HasSuffix(lines[2], ",1,,") {
		t.Fatalf("second row: %q", lines[2])
	}
}
