package runner

import "sqlgrade/internal/spec"

// Status is the verdict for one graded question.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusError   Status = "ERROR"
	StatusWarning Status = "WARNING"
	StatusMissing Status = "MISSING"
)

// Result is the grade for one question key. Score is always MaxScore
// times a multiplier of 0, 0.5, or 1; WARNING carries the half-credit
// multiplier.
type Result struct {
	Test         string     `json:"test"`
	Status       Status     `json:"status"`
	Message      string     `json:"message"`
	Score        float64    `json:"score"`
	MaxScore     float64    `json:"max_score"`
	StudentQuery string     `json:"student_query,omitempty"`
	Expected     [][]string `json:"expected,omitempty"`
	Actual       [][]string `json:"actual,omitempty"`
	Failures     []string   `json:"failures,omitempty"`
}

// RunResult aggregates one grading pass. A fatal whole-run failure sets
// Error and leaves only whatever per-question results were already
// accumulated.
type RunResult struct {
	Error       string   `json:"error,omitempty"`
	TotalScore  float64  `json:"total_score"`
	MaxScore    float64  `json:"max_score"`
	Percentage  float64  `json:"percentage"`
	TestResults []Result `json:"test_results"`
}

// maxScoreOf resolves a test's weight. Defaulting for an absent score
// happens at decode time, so an explicit zero weight is honored here.
func maxScoreOf(ts *spec.TestSpec) float64 {
	return ts.Score
}

func makeResult(key string, ts *spec.TestSpec, status Status, message string, mult float64) Result {
	max := maxScoreOf(ts)
	return Result{
		Test:     key,
		Status:   status,
		Message:  message,
		Score:    max * mult,
		MaxScore: max,
	}
}

func passResult(key string, ts *spec.TestSpec, message string) Result {
	return makeResult(key, ts, StatusPass, message, 1)
}

func failResult(key string, ts *spec.TestSpec, message string) Result {
	return makeResult(key, ts, StatusFail, message, 0)
}

func errorResult(key string, ts *spec.TestSpec, message string) Result {
	return makeResult(key, ts, StatusError, message, 0)
}

func warningResult(key string, ts *spec.TestSpec, message string) Result {
	return makeResult(key, ts, StatusWarning, message, 0.5)
}

func missingResult(key string, ts *spec.TestSpec, message string) Result {
	return makeResult(key, ts, StatusMissing, message, 0)
}
