// Command nilanc is the nilan compiler toolchain: run source files,
// dump their assembled bytecode, run a JSON-driven test suite against
// a `test` function, or drop into an interactive REPL.
//
// Subcommand registration follows the google/subcommands pattern
// informatter-nilan's cmd_*.go files already use (Name/Synopsis/Usage/
// SetFlags/Execute), wired up through subcommands.Register here —
// the teacher's own main.go never actually registered its cmd_*.go
// types (it called repl() directly, leaving run/emit/repl dead code);
// this one does.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetLevel(logrus.WarnLevel)
	if os.Getenv("NILAN_DEBUG") != "" {
		logrus.SetLevel(logrus.TraceLevel)
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&emitCmd{}, "")
	subcommands.Register(&testCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
