package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"nilanc/bytecode"
	"nilanc/pipeline"
	"nilanc/vm"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// runCmd runs a nilan source file through the full pipeline and exits
// with the program's own exit code, the way the teacher's runCmd/
// runCompiledCmd pair drove their single-phase interpreter/VM.
type runCmd struct {
	timeout time.Duration
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and run a nilan source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute a nilan source file. Exits with the program's
  own return code, or 1 if compilation fails.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&r.timeout, "timeout", 10*time.Second, "wall-clock budget before the run is abandoned")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	if strings.HasSuffix(args[0], ".nic") {
		return r.runBytecodeFile(args[0])
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	code, timedOut, errs := pipeline.CompileAndRunBounded(string(data), r.timeout, 100*time.Millisecond)
	if timedOut {
		fmt.Fprintf(os.Stderr, "💥 Run exceeded its %s budget\n", r.timeout)
		return subcommands.ExitFailure
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return subcommands.ExitFailure
	}

	logrus.WithField("exitCode", code).Debug("run complete")
	os.Exit(int(code))
	return subcommands.ExitSuccess
}

// runBytecodeFile loads a previously emitted .nic file (bytecode.Read)
// and runs it directly, skipping lex/parse/check/compile/assemble
// entirely — the counterpart to `emit`'s -dumpBytecode output.
func (r *runCmd) runBytecodeFile(path string) subcommands.ExitStatus {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	consts, stringPool, code, err := bytecode.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read bytecode:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	exitCode, err := vm.New(code, consts, stringPool).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}
	os.Exit(int(exitCode))
	return subcommands.ExitSuccess
}
