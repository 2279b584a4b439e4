package oracle

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"sqlgrade/internal/config"
	"sqlgrade/internal/constraint"
	"sqlgrade/internal/spec"
	"sqlgrade/internal/sqlparse"
)

// fakeExec is a scripted in-memory Executor. Results and errors match on
// query substring.
type fakeExec struct {
	execs   []string
	queries []string

	execErr  map[string]string
	queryErr map[string]string
	rows     map[string][][]any
}

func (f *fakeExec) Exec(_ context.Context, query string, _ ...any) error {
	f.execs = append(f.execs, query)
	for frag, msg := range f.execErr {
		if strings.Contains(query, frag) {
			return errFake(msg)
		}
	}
	return nil
}

func (f *fakeExec) Query(_ context.Context, query string, _ ...any) ([][]any, error) {
	f.queries = append(f.queries, query)
	for frag, msg := range f.queryErr {
		if strings.Contains(query, frag) {
			return nil, errFake(msg)
		}
	}
	for frag, rows := range f.rows {
		if strings.Contains(query, frag) {
			return rows, nil
		}
	}
	return nil, nil
}

type errFake string

func (e errFake) Error() string { return string(e) }

func TestGenerateTableDDL(t *testing.T) {
	exec := &fakeExec{rows: map[string][][]any{
		"DESCRIBE": {{"id", "int", "NO", "PRI", nil, ""}},
	}}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "CREATE TABLE emp (id INT)", "ddl_dml", spec.Item{}, ts)

	if ts.Error != "" {
		t.Fatalf("unexpected error: %s", ts.Error)
	}
	if ts.TestQuery != "DESCRIBE `emp`;" {
		t.Fatalf("unexpected test query: %q", ts.TestQuery)
	}
	if len(exec.execs) != 2 || !strings.HasPrefix(exec.execs[0], "DROP TABLE IF EXISTS") {
		t.Fatalf("expected drop then create, got %v", exec.execs)
	}
	if len(ts.ExpectedOutput) != 1 || ts.ExpectedOutput[0][4] != "" {
		t.Fatalf("describe output not normalized: %v", ts.ExpectedOutput)
	}
}

func TestGenerateTableDDLWinsOverDeclaredType(t *testing.T) {
	exec := &fakeExec{}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "CREATE TABLE log (id INT)", "select", spec.Item{}, ts)
	if ts.TestQuery != "DESCRIBE `log`;" {
		t.Fatalf("table DDL pattern should win over declared type, got %q", ts.TestQuery)
	}
}

func TestGenerateView(t *testing.T) {
	exec := &fakeExec{rows: map[string][][]any{
		"DESCRIBE": {{"name", "varchar(50)", "YES", "", nil, ""}},
		"COUNT":    {{int64(3)}},
	}}
	ts := &spec.TestSpec{}
	item := spec.Item{ValidationSQL: "SELECT COUNT(*) FROM v_emp"}
	Generate(context.Background(), exec, "CREATE VIEW v_emp AS SELECT name FROM emp", "view", item, ts)

	if ts.Error != "" {
		t.Fatalf("unexpected error: %s", ts.Error)
	}
	if ts.TestQuery != "DESCRIBE `v_emp`;" {
		t.Fatalf("unexpected test query: %q", ts.TestQuery)
	}
	if ts.ValidationQuery != item.ValidationSQL {
		t.Fatalf("validation query not recorded: %q", ts.ValidationQuery)
	}
	if !reflect.DeepEqual(ts.ValidationOutput, [][]string{{"3"}}) {
		t.Fatalf("validation output: %v", ts.ValidationOutput)
	}
}

func TestGenerateViewMissingName(t *testing.T) {
	exec := &fakeExec{}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "CREATE VIEW", "view", spec.Item{}, ts)
	if ts.Error == "" {
		t.Fatalf("expected extraction error")
	}
	if ts.TestQuery != "-- Missing view name" {
		t.Fatalf("unexpected placeholder: %q", ts.TestQuery)
	}
}

func TestGenerateFunction(t *testing.T) {
	exec := &fakeExec{rows: map[string][][]any{
		"SELECT add": {{int64(3)}},
	}}
	ts := &spec.TestSpec{}
	item := spec.Item{TestInputs: []any{
		[]any{1, 2},
		7,
		map[string]any{"args": []any{3, 4}},
	}}
	Generate(context.Background(), exec, "CREATE FUNCTION add(a INT, b INT) RETURNS INT RETURN a + b", "function", item, ts)

	if ts.Error != "" {
		t.Fatalf("unexpected error: %s", ts.Error)
	}
	if len(ts.FunctionTests) != 3 {
		t.Fatalf("expected 3 function tests, got %d", len(ts.FunctionTests))
	}
	if ts.FunctionTests[0].TestQuery != "SELECT add(1,2) as result;" {
		t.Fatalf("unexpected rendering: %q", ts.FunctionTests[0].TestQuery)
	}
	if ts.FunctionTests[1].TestQuery != "SELECT add(7) as result;" {
		t.Fatalf("scalar input rendering: %q", ts.FunctionTests[1].TestQuery)
	}
	// Execution goes through bound parameters, never the rendered literal.
	for _, q := range exec.queries {
		if strings.Contains(q, "as result") {
			t.Fatalf("rendered literal was executed: %q", q)
		}
	}
	if !reflect.DeepEqual(ts.FunctionTests[0].ExpectedOutput, [][]string{{"3"}}) {
		t.Fatalf("expected output: %v", ts.FunctionTests[0].ExpectedOutput)
	}
}

func TestGenerateFunctionNoInputs(t *testing.T) {
	exec := &fakeExec{}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "CREATE FUNCTION f() RETURNS INT RETURN 1", "function", spec.Item{}, ts)
	if ts.Error != "" {
		t.Fatalf("unexpected error: %s", ts.Error)
	}
	if ts.FunctionTests == nil || len(ts.FunctionTests) != 0 {
		t.Fatalf("expected empty function test list, got %v", ts.FunctionTests)
	}
}

func TestGenerateFunctionBadInputContinues(t *testing.T) {
	exec := &fakeExec{queryErr: map[string]string{"SELECT f": "bad input"}}
	ts := &spec.TestSpec{}
	item := spec.Item{TestInputs: []any{1, 2}}
	Generate(context.Background(), exec, "CREATE FUNCTION f(x INT) RETURNS INT RETURN x", "function", item, ts)
	if len(ts.FunctionTests) != 2 {
		t.Fatalf("failed input must not abort the rest, got %d tests", len(ts.FunctionTests))
	}
	if ts.FunctionTests[0].Error == "" || ts.FunctionTests[1].Error == "" {
		t.Fatalf("per-input errors not recorded: %+v", ts.FunctionTests)
	}
}

func TestGenerateDMLInferredTable(t *testing.T) {
	exec := &fakeExec{rows: map[string][][]any{
		"SELECT * FROM `emp`": {{int64(1), "alice"}},
	}}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "INSERT INTO emp VALUES (1, 'alice')", "ddl_dml", spec.Item{}, ts)
	if ts.TestQuery != "SELECT * FROM `emp` LIMIT 100;" {
		t.Fatalf("unexpected inferred query: %q", ts.TestQuery)
	}
	if !reflect.DeepEqual(ts.ExpectedOutput, [][]string{{"1", "alice"}}) {
		t.Fatalf("snapshot: %v", ts.ExpectedOutput)
	}
}

func TestGenerateDMLExplicitValidation(t *testing.T) {
	exec := &fakeExec{rows: map[string][][]any{"COUNT": {{int64(5)}}}}
	ts := &spec.TestSpec{}
	item := spec.Item{ValidationSQL: "SELECT COUNT(*) FROM emp"}
	Generate(context.Background(), exec, "DELETE FROM emp WHERE id > 5", "ddl_dml", item, ts)
	if ts.TestQuery != item.ValidationSQL {
		t.Fatalf("explicit validation ignored: %q", ts.TestQuery)
	}
}

func TestGenerateSelectCapturesNothing(t *testing.T) {
	exec := &fakeExec{}
	ts := &spec.TestSpec{}
	Generate(context.Background(), exec, "SELECT * FROM emp", "select", spec.Item{}, ts)
	if len(exec.execs) != 0 || len(exec.queries) != 0 {
		t.Fatalf("select generation must not touch the database")
	}
	if ts.TestQuery != "" || ts.Error != "" {
		t.Fatalf("select oracle must stay empty: %+v", ts)
	}
}

func TestExtractName(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"CREATE TABLE emp (id INT)", "emp"},
		{"CREATE TABLE `emp` (id INT)", "emp"},
		{"CREATE TABLE IF NOT EXISTS hr.emp (id INT)", "emp"},
		{"ALTER TABLE emp ADD COLUMN x INT", "emp"},
		{"DROP TABLE emp", "emp"},
	}
	for _, tc := range cases {
		if got := extractName(tc.query, reTableDDL, reSimpleTable); got != tc.want {
			t.Errorf("extractName(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
	if got := extractName("INSERT INTO `hr`.`emp` VALUES (1)", reDMLTable, nil); got != "emp" {
		t.Errorf("dml table extraction = %q, want emp", got)
	}
}

func TestRenderCall(t *testing.T) {
	if got := renderCall("f", []any{1, 2.5, "x"}); got != "SELECT f(1,2.5,'x') as result;" {
		t.Fatalf("renderCall = %q", got)
	}
}

func TestBuildSuiteConstraintViolation(t *testing.T) {
	exec := &fakeExec{}
	items := map[string]spec.Item{
		"q1": {
			Query: "SELECT * FROM emp",
			Type:  "select",
			Score: 2,
			Flags: constraint.Flags{RequireJoin: true},
		},
	}
	suite := BuildSuite(context.Background(), exec, items, config.DBConfig{Host: "h", Port: 1, User: "u", Database: "d"}, "")
	ts := suite.Tests["q1"]
	if ts == nil {
		t.Fatalf("missing q1")
	}
	if !reflect.DeepEqual(ts.ConstraintViolations, []string{"require_join"}) {
		t.Fatalf("violations: %v", ts.ConstraintViolations)
	}
	if len(exec.execs)+len(exec.queries) != 0 {
		t.Fatalf("no oracle may be generated for a violating item")
	}
}

func TestBuildSuiteInfersType(t *testing.T) {
	exec := &fakeExec{}
	items := map[string]spec.Item{
		"q1": {Query: "SELECT 1", Score: 1},
	}
	suite := BuildSuite(context.Background(), exec, items, config.DBConfig{}, "")
	if suite.Tests["q1"].QueryType != "select" {
		t.Fatalf("expected inferred select, got %q", suite.Tests["q1"].QueryType)
	}
}

func TestBuildSuiteStampsAllowedAfter(t *testing.T) {
	exec := &fakeExec{}
	items := map[string]spec.Item{
		"q1": {Query: "SELECT 1", Type: "select", Score: 1},
		"q2": {
			Query: "SELECT * FROM emp",
			Type:  "select",
			Score: 1,
			Flags: constraint.Flags{RequireJoin: true},
		},
	}
	suite := BuildSuite(context.Background(), exec, items, config.DBConfig{}, "09:30:00")
	if suite.Tests["q1"].AllowedAfter != "09:30:00" {
		t.Fatalf("gate not stamped: %+v", suite.Tests["q1"])
	}
	// Constraint-violation entries are never graded against an oracle and
	// carry no gate.
	if suite.Tests["q2"].AllowedAfter != "" {
		t.Fatalf("gate stamped on violating entry: %+v", suite.Tests["q2"])
	}
	if suite.AllowedAfter() != "09:30:00" {
		t.Fatalf("suite gate: %q", suite.AllowedAfter())
	}
}

func TestItemsFromStatements(t *testing.T) {
	stmts := sqlparse.Split("SELECT 1;\n;\nINSERT INTO t VALUES (1);")
	meta := []spec.Item{{Score: 3}}
	items := ItemsFromStatements(stmts, meta)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items["q1"].Score != 3 || items["q1"].Query != "SELECT 1" {
		t.Fatalf("q1: %+v", items["q1"])
	}
	if items["q2"].Query != "" || items["q2"].Type != string(sqlparse.TypeMissing) {
		t.Fatalf("q2 should be the missing placeholder: %+v", items["q2"])
	}
	if items["q3"].Score != 1 {
		t.Fatalf("default score expected for unmetadata'd question: %+v", items["q3"])
	}
	if items["q3"].Type != string(sqlparse.TypeDDLDML) {
		t.Fatalf("q3 type: %q", items["q3"].Type)
	}
}
