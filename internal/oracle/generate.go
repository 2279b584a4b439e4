// Package oracle derives the grading oracle for each instructor answer:
// it executes whatever setup the statement needs against a live database
// and captures the validation query plus its expected output. Every
// failure becomes a data field on the resulting spec, never an error
// return; one bad instructor query must not abort the batch.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"sqlgrade/internal/compare"
	"sqlgrade/internal/db"
	"sqlgrade/internal/spec"
)

// Generate fills the oracle fields of ts for one instructor statement.
// Routing re-inspects the SQL text independently of qtype, so a statement
// the splitter called unknown still reaches the DDL path when it matches a
// table DDL pattern.
func Generate(ctx context.Context, exec db.Executor, query, qtype string, item spec.Item, ts *spec.TestSpec) {
	qtype = strings.ToLower(strings.TrimSpace(qtype))

	switch {
	case reTableDDL.MatchString(query):
		generateTableDDL(ctx, exec, query, ts)
	case qtype == "view" || reCreateView.MatchString(query):
		generateView(ctx, exec, query, item, ts)
	case qtype == "function" || reCreateFunc.MatchString(query):
		generateFunction(ctx, exec, query, item, ts)
	case qtype == "ddl_dml" || qtype == "dml" || reDMLKeywords.MatchString(query):
		generateDML(ctx, exec, query, item, ts)
	case qtype == "select" || reSelectStart.MatchString(query):
		// SELECT oracles carry only the instructor's query text; it is
		// re-run live at grading time so both sides see the same database
		// state.
	default:
		// Unclassifiable: execute blind so side effects still land, keep
		// an empty oracle.
		_ = exec.Exec(ctx, query)
	}
}

func generateTableDDL(ctx context.Context, exec db.Executor, query string, ts *spec.TestSpec) {
	tbl := extractName(query, reTableDDL, reSimpleTable)
	if tbl == "" {
		ts.Error = "could not extract table name"
		return
	}
	ts.TestQuery = fmt.Sprintf("DESCRIBE `%s`;", tbl)

	if strings.Contains(strings.ToUpper(query), "CREATE") {
		// Drop first so regeneration is idempotent.
		_ = exec.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", tbl))
	}
	if err := exec.Exec(ctx, query); err != nil {
		ts.Error = fmt.Sprintf("DDL execution failed: %v", err)
		return
	}
	rows, err := exec.Query(ctx, ts.TestQuery)
	if err != nil {
		ts.Error = fmt.Sprintf("DESCRIBE failed: %v", err)
		return
	}
	ts.ExpectedOutput = compare.Normalize(rows)
}

func generateView(ctx context.Context, exec db.Executor, query string, item spec.Item, ts *spec.TestSpec) {
	view := extractName(query, reCreateView, nil)
	if view == "" {
		ts.TestQuery = "-- Missing view name"
		ts.Error = "failed to extract view name"
		return
	}
	ts.TestQuery = fmt.Sprintf("DESCRIBE `%s`;", view)

	_ = exec.Exec(ctx, fmt.Sprintf("DROP VIEW IF EXISTS `%s`", view))
	if err := exec.Exec(ctx, query); err != nil {
		ts.Error = fmt.Sprintf("view generation failed: %v", err)
		return
	}
	rows, err := exec.Query(ctx, ts.TestQuery)
	if err != nil {
		ts.Error = fmt.Sprintf("view generation failed: %v", err)
		return
	}
	ts.ExpectedOutput = compare.Normalize(rows)

	// Optional secondary data check over the view's contents.
	if item.ValidationSQL == "" {
		return
	}
	valRows, err := exec.Query(ctx, item.ValidationSQL)
	if err != nil {
		ts.Error = fmt.Sprintf("view validation query failed: %v", err)
		return
	}
	ts.ValidationQuery = item.ValidationSQL
	ts.ValidationOutput = compare.Normalize(valRows)
}

func generateFunction(ctx context.Context, exec db.Executor, query string, item spec.Item, ts *spec.TestSpec) {
	fn := extractName(query, reCreateFunc, nil)
	if fn == "" {
		ts.FunctionTests = []spec.FunctionTest{}
		ts.Error = "could not extract function name"
		return
	}

	_ = exec.Exec(ctx, fmt.Sprintf("DROP FUNCTION IF EXISTS `%s`", fn))
	if err := exec.Exec(ctx, query); err != nil {
		ts.FunctionTests = []spec.FunctionTest{}
		ts.Error = fmt.Sprintf("failed to create function: %v", err)
		return
	}

	if len(item.TestInputs) == 0 {
		// Created but unverified still counts as a PASS later.
		ts.FunctionTests = []spec.FunctionTest{}
		return
	}

	results := make([]spec.FunctionTest, 0, len(item.TestInputs))
	for _, input := range item.TestInputs {
		argv := argsOf(input)
		displayQ := renderCall(fn, argv)

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(argv)), ",")
		rows, err := exec.Query(ctx, fmt.Sprintf("SELECT %s(%s)", fn, placeholders), argv...)
		if err != nil {
			// One bad input vector does not abort the rest.
			results = append(results, spec.FunctionTest{
				TestQuery:      displayQ,
				ExpectedOutput: [][]string{},
				Error:          err.Error(),
			})
			continue
		}
		results = append(results, spec.FunctionTest{
			TestQuery:      displayQ,
			ExpectedOutput: compare.Normalize(rows),
		})
	}
	ts.FunctionTests = results
}

func generateDML(ctx context.Context, exec db.Executor, query string, item spec.Item, ts *spec.TestSpec) {
	if err := exec.Exec(ctx, query); err != nil {
		ts.Error = fmt.Sprintf("DML failed: %v", err)
		return
	}

	validation := item.TestQuery
	if validation == "" {
		validation = item.ValidationSQL
	}
	if validation != "" {
		ts.TestQuery = validation
		rows, err := exec.Query(ctx, validation)
		if err != nil {
			ts.Error = fmt.Sprintf("validation SQL failed: %v", err)
			return
		}
		ts.ExpectedOutput = compare.Normalize(rows)
		return
	}

	// No explicit validation: infer the touched table and snapshot it.
	tbl := extractName(query, reDMLTable, nil)
	if tbl == "" {
		// Execution-only check; any student DML that runs clean passes.
		return
	}
	ts.TestQuery = fmt.Sprintf("SELECT * FROM `%s` LIMIT 100;", tbl)
	rows, err := exec.Query(ctx, ts.TestQuery)
	if err != nil {
		ts.Error = fmt.Sprintf("inferred select failed: %v", err)
		return
	}
	ts.ExpectedOutput = compare.Normalize(rows)
}

// argsOf flattens one test-input entry into positional arguments. An entry
// may be a mapping with an "args" list, a plain list, or a bare scalar.
func argsOf(input any) []any {
	switch v := input.(type) {
	case map[string]any:
		if args, ok := v["args"].([]any); ok {
			return args
		}
		return []any{v}
	case []any:
		return v
	default:
		return []any{v}
	}
}

// renderCall builds the literal, human-readable form of a function call
// for display and storage. Execution always goes through bound
// parameters; this rendering is never executed.
func renderCall(fn string, argv []any) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		switch a.(type) {
		case int, int64, float64:
			parts[i] = fmt.Sprint(a)
		default:
			parts[i] = fmt.Sprintf("'%v'", a)
		}
	}
	return fmt.Sprintf("SELECT %s(%s) as result;", fn, strings.Join(parts, ","))
}
