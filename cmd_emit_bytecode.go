package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"nilanc/assembler"
	"nilanc/bytecode"
	"nilanc/compiler"
	"nilanc/ctrlflow"
	"nilanc/lexer"
	"nilanc/parser"
	"nilanc/typecheck"

	"github.com/google/subcommands"
)

// emitCmd compiles and assembles a source file without running it,
// optionally writing the disassembled listing and/or raw bytecode to
// disk — the same two output knobs as the teacher's emitBytecodeCmd,
// rebuilt against the assembler/compiler packages instead of the
// teacher's astCompiler.
type emitCmd struct {
	disassemble  bool
	dumpBytecode bool
	dumpAST      bool
	outDir       string
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Emit the assembled bytecode for a source file" }
func (*emitCmd) Usage() string    { return `emit <file>` }

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "write a human-readable .dnic disassembly listing")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", true, "write the assembled bytecode to a .nic file")
	f.BoolVar(&cmd.dumpAST, "dumpAST", false, "write the parsed AST as JSON to a .ast.json file")
	f.StringVar(&cmd.outDir, "outDir", "", "directory to write output files under; defaults to the source file's own directory")
}

func (cmd *emitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	nilanFile := args[0]
	data, err := os.ReadFile(nilanFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	toks, err := lexer.New(string(data)).Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Lexing error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	funcs, perrs := parser.Make(toks).Parse()
	if len(perrs) > 0 {
		fmt.Fprintf(os.Stderr, "💥 Parsing error:\n")
		for _, pErr := range perrs {
			fmt.Fprintf(os.Stderr, "\t%v\n", pErr)
		}
		return subcommands.ExitFailure
	}

	for _, e := range ctrlflow.Check(funcs) {
		fmt.Fprintf(os.Stderr, "💥 Control-flow error:\n\t%v\n", e)
		return subcommands.ExitFailure
	}
	for _, e := range typecheck.Check(funcs) {
		fmt.Fprintf(os.Stderr, "💥 Type error:\n\t%v\n", e)
		return subcommands.ExitFailure
	}

	out, err := compiler.Compile(funcs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Compilation error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	code, err := assembler.Assemble(out.Instructions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Assembly error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	base := baseName(nilanFile, cmd.outDir)

	if cmd.dumpAST {
		if err := parser.PrintToFile(funcs, base+".ast.json"); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to write AST dump:\n\t%v\n", err)
			return subcommands.ExitFailure
		}
	}

	if cmd.disassemble {
		lines := assembler.Disassemble(code)
		if err := os.WriteFile(base+".dnic", []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to write disassembly:\n\t%v\n", err)
			return subcommands.ExitFailure
		}
	}

	if cmd.dumpBytecode {
		f, err := os.Create(base + ".nic")
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to write bytecode:\n\t%v\n", err)
			return subcommands.ExitFailure
		}
		writeErr := bytecode.Write(f, out.Consts, out.StringPool, code)
		f.Close()
		if writeErr != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to write bytecode:\n\t%v\n", writeErr)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}

// disassembleOnly runs source through lex/parse/ctrlflow/typecheck/
// compile/assemble and returns the disassembled listing, without
// executing it — used by replCmd's -disassemble flag.
func disassembleOnly(source string) ([]string, error) {
	toks, err := lexer.New(source).Scan()
	if err != nil {
		return nil, err
	}
	funcs, perrs := parser.Make(toks).Parse()
	if len(perrs) > 0 {
		return nil, perrs[0]
	}
	for _, e := range ctrlflow.Check(funcs) {
		return nil, e
	}
	for _, e := range typecheck.Check(funcs) {
		return nil, e
	}
	out, err := compiler.Compile(funcs)
	if err != nil {
		return nil, err
	}
	code, err := assembler.Assemble(out.Instructions)
	if err != nil {
		return nil, err
	}
	return assembler.Disassemble(code), nil
}

// baseName strips the nilan source extension and, if outDir is set,
// rehomes the result under it; otherwise the output sits beside the
// source file, matching the teacher's "same directory" default.
func baseName(nilanFile, outDir string) string {
	name := nilanFile
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}
	if outDir == "" {
		return name
	}
	parts := strings.Split(name, "/")
	return strings.TrimRight(outDir, "/") + "/" + parts[len(parts)-1]
}
