// Package tester implements nilan's JSON-driven test harness: for each
// case it synthesizes a `main` that calls the user's `fun test(...)`
// with the case's inputs and compares the result to the case's expected
// output, compiling and running the combined program through the
// ordinary pipeline.
//
// Grounded on original_source/src/tester/mod.rs's test_against_json for
// the contract shape (JSON `{tests: [count, {inputs:[count,v...],
// output:v}, ...]}`, synthesize-and-run-per-case) — that function's body
// is itself `todo!()`, so there is no working implementation to
// translate, only the shape. Decoding uses github.com/tidwall/gjson per
// SPEC_FULL.md §6.4: the harness only ever walks a fixed, shallow path
// (tests[i].inputs[j], tests[i].output), which gjson's path syntax reads
// directly without declaring intermediate structs for so simple a
// format — the one place this project substitutes a library for
// something original_source reached for in a different language
// ecosystem (the `json` crate).
package tester

import (
	"fmt"
	"strconv"
	"strings"

	"nilanc/pipeline"

	"github.com/tidwall/gjson"
)

// CaseResult is one test case's outcome.
type CaseResult struct {
	Index  int
	Passed bool
	Errs   []pipeline.CompileError
}

// Report tallies every case's outcome.
type Report struct {
	Total   int
	Passed  int
	Results []CaseResult
}

// Run parses jsonDoc per SPEC_FULL.md §6.4 and, for each case, appends a
// synthesized main calling test(...) to source and compiles-and-runs the
// combined program. A case is reported as failed (not errored) only when
// the program compiles and runs but the comparison's synthesized main
// returns 1; a compile or runtime error is reported separately via Errs
// and also counts as not-passed.
func Run(source, jsonDoc string) (Report, error) {
	doc := gjson.Parse(jsonDoc)
	tests := doc.Get("tests")
	if !tests.Exists() || !tests.IsArray() {
		return Report{}, fmt.Errorf("🤖 tester: json document has no \"tests\" array")
	}
	cases := tests.Array()
	if len(cases) == 0 {
		return Report{}, fmt.Errorf("🤖 tester: \"tests\" array is empty")
	}
	// cases[0] is the declared count, not a case object; the rest follow it.
	declaredCount := cases[0].Int()
	caseObjs := cases[1:]
	if int(declaredCount) != len(caseObjs) {
		return Report{}, fmt.Errorf("💥 tester: declared test count %d does not match %d case objects", declaredCount, len(caseObjs))
	}

	report := Report{Total: len(caseObjs)}
	for i, c := range caseObjs {
		res := runCase(source, i, c)
		report.Results = append(report.Results, res)
		if res.Passed {
			report.Passed++
		}
	}
	return report, nil
}

func runCase(source string, index int, c gjson.Result) CaseResult {
	inputsArr := c.Get("inputs").Array()
	if len(inputsArr) == 0 {
		return CaseResult{Index: index, Errs: []pipeline.CompileError{{
			Kind: pipeline.Parse, Message: fmt.Sprintf("case %d: \"inputs\" missing or empty", index),
		}}}
	}
	// inputsArr[0] is the declared argument count; the actual values follow.
	args := inputsArr[1:]
	output := c.Get("output")

	var argLits []string
	for _, a := range args {
		argLits = append(argLits, literalFor(a))
	}
	synthMain := fmt.Sprintf(
		"fun main() -> int { if test(%s) == %s { return 0; } else { return 1; } }",
		strings.Join(argLits, ", "), literalFor(output),
	)

	exitCode, errs := pipeline.CompileAndRun(source + "\n" + synthMain)
	if len(errs) > 0 {
		return CaseResult{Index: index, Errs: errs}
	}
	return CaseResult{Index: index, Passed: exitCode == 0}
}

// literalFor renders a gjson scalar as a nilan literal expression. nilan
// has no unary-minus primary (only binary subtraction), so a negative
// number is rendered as "(0 - n)".
func literalFor(v gjson.Result) string {
	switch v.Type {
	case gjson.True, gjson.False:
		return strconv.FormatBool(v.Bool())
	case gjson.String:
		return "\"" + escapeString(v.Str) + "\""
	case gjson.Number:
		if v.Num == float64(int64(v.Num)) && !strings.ContainsAny(v.Raw, ".eE") {
			n := int64(v.Num)
			if n < 0 {
				return fmt.Sprintf("(0 - %d)", -n)
			}
			return strconv.FormatInt(n, 10)
		}
		if v.Num < 0 {
			return fmt.Sprintf("(0 - %s)", strconv.FormatFloat(-v.Num, 'f', -1, 64))
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return "0"
	}
}

// escapeString re-escapes a decoded JSON string for nilan's own string
// literal syntax, which only recognizes \\, \n, and \" (lexer.go's
// scanString).
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
