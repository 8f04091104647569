package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"nilanc/tester"

	"github.com/google/subcommands"
)

// testCmd runs the JSON-driven test harness (SPEC_FULL.md §6.4) against
// a source file's `test` function.
type testCmd struct{}

func (*testCmd) Name() string     { return "test" }
func (*testCmd) Synopsis() string { return "Run a JSON test suite against a source file's test function" }
func (*testCmd) Usage() string {
	return `test <source-file> <cases.json>:
  Compile the source file, and for each case in cases.json call
  test(...) with its inputs and compare against its expected output.
`
}
func (*testCmd) SetFlags(f *flag.FlagSet) {}

func (cmd *testCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "💥 Expected a source file and a JSON test file\n")
		return subcommands.ExitUsageError
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read source file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	doc, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read test file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	report, err := tester.Run(string(source), string(doc))
	if err != nil {
		fmt.Fprintf(os.Stderr, "🤖 %v\n", err)
		return subcommands.ExitFailure
	}

	for _, res := range report.Results {
		if res.Passed {
			fmt.Printf("case %d: ✅ pass\n", res.Index)
			continue
		}
		if len(res.Errs) > 0 {
			fmt.Printf("case %d: 💥 error\n", res.Index)
			for _, e := range res.Errs {
				fmt.Printf("\t%v\n", e)
			}
			continue
		}
		fmt.Printf("case %d: ❌ fail\n", res.Index)
	}
	fmt.Printf("\n%d/%d passed\n", report.Passed, report.Total)

	if report.Passed != report.Total {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
