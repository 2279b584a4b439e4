// Package report builds the student-facing grading artifacts: the
// encrypted per-student result payload, the submission zip handed back to
// the instructor, and the aggregated score sheet on the collecting side.
package report

import (
	"encoding/json"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"sqlgrade/internal/crypt"
	"sqlgrade/internal/runinfo"
	"sqlgrade/internal/runner"
)

var reStudentID = regexp.MustCompile(`(?i)^\d{4}[a-z][a-z0-9][a-z][a-z0-9]\d{4}g$`)

// ValidStudentID reports whether id matches the campus ID format
// YYYY[A-Z][A-Z0-9][A-Z][A-Z0-9][0-9]{4}g.
func ValidStudentID(id string) bool {
	return reStudentID.MatchString(id)
}

// QuestionResult is the per-question slice of a persisted report.
type QuestionResult struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

// Payload is the persisted grading report for one submission.
type Payload struct {
	SubmissionID string                    `json:"submission_id"`
	StudentID    string                    `json:"student_id"`
	Timestamp    string                    `json:"timestamp"`
	TotalScore   float64                   `json:"total_score"`
	MaxScore     float64                   `json:"max_score"`
	Percentage   float64                   `json:"percentage"`
	RunInfo      *runinfo.BasicInfo        `json:"run_info,omitempty"`
	Questions    map[string]QuestionResult `json:"questions"`
}

// NewPayload assembles a report payload from a grading run.
func NewPayload(studentID string, res runner.RunResult, info *runinfo.BasicInfo) Payload {
	id := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		id = v7.String()
	}
	questions := make(map[string]QuestionResult, len(res.TestResults))
	for _, tr := range res.TestResults {
		questions[tr.Test] = QuestionResult{
			Status:   string(tr.Status),
			Message:  tr.Message,
			Score:    tr.Score,
			MaxScore: tr.MaxScore,
		}
	}
	return Payload{
		SubmissionID: id,
		StudentID:    studentID,
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
		TotalScore:   res.TotalScore,
		MaxScore:     res.MaxScore,
		Percentage:   res.Percentage,
		RunInfo:      info,
		Questions:    questions,
	}
}

// WriteEncrypted writes the payload encrypted at path.
func WriteEncrypted(path string, p Payload, key []byte) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	sealed, err := crypt.Encrypt(data, key)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, sealed, 0o644), "write report %s", path)
}

// ReadEncrypted decrypts and decodes a payload written by WriteEncrypted.
func ReadEncrypted(path string, key []byte) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "read report %s", path)
	}
	return DecodeEncrypted(data, key)
}

// DecodeEncrypted decrypts and decodes an in-memory encrypted payload.
func DecodeEncrypted(data, key []byte) (Payload, error) {
	plain, err := crypt.Decrypt(data, key)
	if err != nil {
		return Payload{}, errors.Wrap(err, "decrypt report")
	}
	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return Payload{}, errors.Wrap(err, "parse report")
	}
	return p, nil
}
