// Package runner grades a student solution against a generated test
// suite. Per question it checks presence, emptiness, and structural
// constraints, then dispatches on the oracle's recorded query type to the
// matching comparison routine. Every database failure below the
// per-question loop becomes a typed result; only connection establishment
// aborts the whole run.
package runner

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sqlgrade/internal/compare"
	"sqlgrade/internal/constraint"
	"sqlgrade/internal/db"
	"sqlgrade/internal/spec"
	"sqlgrade/internal/sqlparse"
	"sqlgrade/internal/util"
)

// Runner grades solutions against one suite over one live connection.
type Runner struct {
	suite *spec.Suite
	exec  db.Executor
}

// New constructs a Runner for the given suite and connection.
func New(suite *spec.Suite, exec db.Executor) *Runner {
	return &Runner{suite: suite, exec: exec}
}

// Grade reads the solution file, connects to the suite's database, and
// runs every test. Failure to read the file or to connect short-circuits
// the entire run with an error result.
func Grade(ctx context.Context, suite *spec.Suite, solutionPath string) RunResult {
	script, err := os.ReadFile(solutionPath)
	if err != nil {
		return RunResult{Error: fmt.Sprintf("failed to read solution file: %v", err)}
	}

	exec, err := db.Open(ctx, suite.DBConfig)
	if err != nil {
		return RunResult{Error: fmt.Sprintf("database connection failed: %v", err)}
	}
	defer util.CloseWithErr(exec, "grading db")

	return New(suite, exec).Run(ctx, string(script))
}

// Run grades the raw solution script.
func (r *Runner) Run(ctx context.Context, script string) RunResult {
	statements := sqlparse.Split(script)
	students := make(map[string]sqlparse.Statement, len(statements))
	for i, stmt := range statements {
		students["q"+strconv.Itoa(i+1)] = stmt
	}

	var res RunResult
	for _, key := range r.suite.QuestionKeys() {
		ts := r.suite.Tests[key]
		// The denominator grows before dispatch so MISSING, ERROR, and
		// FAIL all still count against the student.
		res.MaxScore += maxScoreOf(ts)

		result := r.gradeQuestion(ctx, key, ts, students)
		res.TestResults = append(res.TestResults, result)
		res.TotalScore += result.Score
	}

	if res.MaxScore > 0 {
		res.Percentage = res.TotalScore / res.MaxScore * 100
	}
	return res
}

func (r *Runner) gradeQuestion(ctx context.Context, key string, ts *spec.TestSpec, students map[string]sqlparse.Statement) Result {
	stmt, ok := students[key]
	if !ok {
		return missingResult(key, ts, fmt.Sprintf("Student solution missing query %s", key))
	}
	if stmt.IsMissing() {
		return missingResult(key, ts, "Student did not answer (empty query)")
	}

	if violated := constraint.First(stmt.Text, ts.Flags); violated != "" {
		return failResult(key, ts, fmt.Sprintf("Constraint violated: %s", violated))
	}

	qtype := strings.ToLower(ts.QueryType)
	var result Result
	switch {
	case qtype == "select":
		result = r.testSelect(ctx, key, ts, stmt.Text)
	case qtype == "view":
		result = r.testView(ctx, key, ts, stmt.Text)
	case strings.Contains(qtype, "table") || strings.Contains(qtype, "ddl"):
		result = r.testDDL(ctx, key, ts, stmt.Text)
	case qtype == "function":
		result = r.testFunction(ctx, key, ts, stmt.Text)
	case qtype == "insert" || qtype == "update" || qtype == "delete" || qtype == "dml":
		result = r.testDML(ctx, key, ts, stmt.Text)
	default:
		// Unknown oracle type: grade as a SELECT, best effort.
		result = r.testSelect(ctx, key, ts, stmt.Text)
	}
	result.StudentQuery = stmt.Text
	return result
}

// testSelect re-runs the instructor's query live and diffs the student's
// output against it, so non-deterministic queries see the same database
// state on both sides.
func (r *Runner) testSelect(ctx context.Context, key string, ts *spec.TestSpec, studentQuery string) Result {
	if ts.Query == "" {
		return errorResult(key, ts, "No instructor query found in test suite")
	}

	rows, err := r.exec.Query(ctx, ts.Query)
	if err != nil {
		return errorResult(key, ts, fmt.Sprintf("Instructor query execution error: %v", err))
	}
	expected := compare.Normalize(rows)

	rows, err = r.exec.Query(ctx, studentQuery)
	if err != nil {
		return errorResult(key, ts, fmt.Sprintf("Student query execution error: %v", err))
	}
	actual := compare.Normalize(rows)

	if match, diff := compare.Rows(actual, expected); !match {
		res := failResult(key, ts, fmt.Sprintf("Output mismatch: %s", diff))
		res.Expected = expected
		res.Actual = actual
		return res
	}
	return passResult(key, ts, "Output matches expected result")
}

func (r *Runner) testDDL(ctx context.Context, key string, ts *spec.TestSpec, studentQuery string) Result {
	if ts.TestQuery == "" {
		return errorResult(key, ts, "No test_query defined for DDL test")
	}

	if err := r.exec.Exec(ctx, studentQuery); err != nil {
		return errorResult(key, ts, fmt.Sprintf("DDL execution error: %v", err))
	}

	rows, err := r.exec.Query(ctx, ts.TestQuery)
	if err != nil {
		return errorResult(key, ts, fmt.Sprintf("DESCRIBE query error: %v", err))
	}
	actual := compare.Normalize(rows)

	if match, diff := compare.Rows(actual, ts.ExpectedOutput); !match {
		res := failResult(key, ts, fmt.Sprintf("Table structure mismatch: %s", diff))
		res.Expected = ts.ExpectedOutput
		res.Actual = actual
		return res
	}
	return passResult(key, ts, "Table structure matches expected")
}

func (r *Runner) testView(ctx context.Context, key string, ts *spec.TestSpec, studentQuery string) Result {
	if ts.TestQuery == "" {
		return errorResult(key, ts, "No test_query defined for VIEW test")
	}

	if err := r.exec.Exec(ctx, studentQuery); err != nil {
		return errorResult(key, ts, fmt.Sprintf("VIEW creation error: %v", err))
	}

	rows, err := r.exec.Query(ctx, ts.TestQuery)
	if err != nil {
		return errorResult(key, ts, fmt.Sprintf("DESCRIBE view error: %v", err))
	}
	actual := compare.Normalize(rows)

	if match, diff := compare.Rows(actual, ts.ExpectedOutput); !match {
		res := failResult(key, ts, fmt.Sprintf("View structure mismatch: %s", diff))
		res.Expected = ts.ExpectedOutput
		res.Actual = actual
		return res
	}

	// Structure matched; the optional data check downgrades to partial
	// credit instead of failing outright.
	if ts.ValidationQuery != "" && len(ts.ValidationOutput) > 0 {
		rows, err := r.exec.Query(ctx, ts.ValidationQuery)
		if err != nil {
			return warningResult(key, ts, fmt.Sprintf("View structure OK but validation query failed: %v", err))
		}
		if match, diff := compare.Rows(compare.Normalize(rows), ts.ValidationOutput); !match {
			return warningResult(key, ts, fmt.Sprintf("View structure OK but data mismatch: %s", diff))
		}
	}
	return passResult(key, ts, "View created successfully and matches expected structure")
}

func (r *Runner) testFunction(ctx context.Context, key string, ts *spec.TestSpec, studentQuery string) Result {
	if err := r.exec.Exec(ctx, studentQuery); err != nil {
		return errorResult(key, ts, fmt.Sprintf("Function creation error: %v", err))
	}

	if len(ts.FunctionTests) == 0 {
		return passResult(key, ts, "Function created successfully (no tests defined)")
	}

	var failures []string
	for idx, ft := range ts.FunctionTests {
		if ft.TestQuery == "" {
			continue
		}
		rows, err := r.exec.Query(ctx, ft.TestQuery)
		if err != nil {
			failures = append(failures, fmt.Sprintf("Test %d: query error - %v", idx+1, err))
			continue
		}
		if match, diff := compare.Rows(compare.Normalize(rows), ft.ExpectedOutput); !match {
			failures = append(failures, fmt.Sprintf("Test %d: %s", idx+1, diff))
		}
	}

	if len(failures) == 0 {
		return passResult(key, ts, fmt.Sprintf("All %d function tests passed", len(ts.FunctionTests)))
	}
	res := failResult(key, ts, fmt.Sprintf("Failed %d/%d tests", len(failures), len(ts.FunctionTests)))
	res.Failures = failures
	return res
}

func (r *Runner) testDML(ctx context.Context, key string, ts *spec.TestSpec, studentQuery string) Result {
	if err := r.exec.Exec(ctx, studentQuery); err != nil {
		return errorResult(key, ts, fmt.Sprintf("DML execution error: %v", err))
	}

	if ts.TestQuery == "" {
		return passResult(key, ts, "DML executed successfully (no validation query)")
	}

	rows, err := r.exec.Query(ctx, ts.TestQuery)
	if err != nil {
		return errorResult(key, ts, fmt.Sprintf("Validation query error: %v", err))
	}
	actual := compare.Normalize(rows)

	if match, diff := compare.Rows(actual, ts.ExpectedOutput); !match {
		res := failResult(key, ts, fmt.Sprintf("Result mismatch: %s", diff))
		res.Expected = ts.ExpectedOutput
		res.Actual = actual
		return res
	}
	return passResult(key, ts, "DML result matches expected")
}
