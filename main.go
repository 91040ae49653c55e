// jive analyzes decompiled JVM methods by interpreting their bytecode
// under concrete, sign-abstract, and concolic semantics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dr8co/jive/analysis"
	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/concolic"
	"github.com/dr8co/jive/repl"
	"github.com/dr8co/jive/vm"
)

const version = "0.1.0"

// fileList collects repeatable -f flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `jive v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    jive analyzes decompiled JVM methods by interpreting their bytecode
    under concrete, sign-abstract, and concolic semantics. With -f but no
    -m, it starts an interactive shell over the loaded classes.

OPTIONS:
    -f, --file <path>       Load a decompiled class file (repeatable)
    -m, --method <C.m>      Analyze one method and print its verdict
    -a, --args <list>       Arguments for concrete evaluation, e.g. "5" or "2,[0,1,3]"
        --mode <mode>       Analysis mode: concrete, sign, concolic (default concolic)
    -d, --disasm            Print the decoded instructions instead of analyzing
        --steps <n>         Concolic per-path instruction budget
        --queries <n>       Concolic solver-query budget
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Interactive shell over two decompiled class files
    %s -f Simple.json -f Array.json

    # Concrete evaluation
    %s -f Simple.json -m Simple.factorial -a 5 --mode concrete

    # Concolic verdict with witness
    %s -f Arithmetics.json -m Arithmetics.alwaysThrows3

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Set custom usage function
	flag.Usage = printUsage

	// Define command-line flags
	var files fileList
	methodFlag := flag.String("method", "", "Analyze one method and print its verdict")
	argsFlag := flag.String("args", "", "Arguments for concrete evaluation")
	modeFlag := flag.String("mode", "concolic", "Analysis mode: concrete, sign, concolic")
	disasmFlag := flag.Bool("disasm", false, "Print the decoded instructions instead of analyzing")
	stepsFlag := flag.Int("steps", 0, "Concolic per-path instruction budget")
	queriesFlag := flag.Int("queries", 0, "Concolic solver-query budget")
	versionFlag := flag.Bool("version", false, "Show version information")

	// Define short flag aliases
	flag.Var(&files, "file", "Load a decompiled class file (repeatable)")
	flag.Var(&files, "f", "Load a decompiled class file (repeatable)")
	flag.StringVar(methodFlag, "m", "", "Analyze one method and print its verdict")
	flag.StringVar(argsFlag, "a", "", "Arguments for concrete evaluation")
	flag.BoolVar(disasmFlag, "d", false, "Print the decoded instructions instead of analyzing")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	// Parse command-line flags
	flag.Parse()

	// Show version information if requested
	if *versionFlag {
		fmt.Printf("jive v%s\n", version)
		return
	}

	if len(files) == 0 {
		printUsage()
		os.Exit(1)
	}

	table, err := loadTable(files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading class files: %s\n", err)
		os.Exit(1)
	}

	// No method selected: hand the table to the interactive shell.
	if *methodFlag == "" {
		repl.Start(table, repl.Options{StepCap: *stepsFlag, QueryCap: *queriesFlag})
		return
	}

	call, err := repl.ParseCall(*methodFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	full, ok := repl.ResolveClass(table, call.Class)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown class %q\n", call.Class)
		os.Exit(1)
	}

	if *disasmFlag {
		method, err := table.Lookup(full, call.Method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		ins, err := code.Decode(method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Print(ins.String())
		return
	}

	provider := classfile.Stubbed(table)
	label := fmt.Sprintf("%s.%s", full, call.Method)
	switch *modeFlag {
	case "concrete":
		args, err := parseConcreteArgs(*argsFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		runConcrete(provider, label, full, call.Method, args)
	case "sign":
		kinds, err := analysis.RunMethodAnalysis(provider, full, call.Method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		names := make([]string, 0, len(kinds))
		for k := range kinds {
			names = append(names, k.String())
		}
		sort.Strings(names)
		fmt.Printf("%s sign %s\n", label, strings.Join(names, ","))
	case "concolic":
		res, err := analysis.Concolic(provider, full, call.Method, concolic.Options{
			StepCap:  *stepsFlag,
			QueryCap: *queriesFlag,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if res.Kind.IsException() {
			fmt.Printf("%s concolic %s witness=%v\n", label, res.Kind, res.Witness)
		} else {
			fmt.Printf("%s concolic %s\n", label, res.Kind)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *modeFlag)
		os.Exit(1)
	}
}

// loadTable reads every class file into one immutable table.
func loadTable(files []string) (*classfile.Table, error) {
	classes := make([]*classfile.Class, 0, len(files))
	for _, path := range files {
		c, err := classfile.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		classes = append(classes, c)
	}
	return classfile.NewTable(classes...), nil
}

// parseConcreteArgs reuses the shell's argument grammar for -a.
func parseConcreteArgs(s string) ([]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	call, err := repl.ParseCall("X.x(" + s + ")")
	if err != nil {
		return nil, err
	}
	return call.Args, nil
}

func runConcrete(provider classfile.Provider, label, class, method string, args []any) {
	runner := analysis.NewRunner(provider, nil)
	vals, err := runner.Wrap(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	result, err := runner.Run(class, method, vals)
	if err != nil {
		var exc *analysis.ExceptionError
		if errors.As(err, &exc) {
			fmt.Printf("%s concrete %s\n", label, exc.Kind)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	text := "void"
	if result != nil {
		text = result.Inspect()
	}
	fmt.Printf("%s concrete %s %s\n", label, vm.No, text)
	if printed := runner.Output(); printed != "" {
		fmt.Print(printed)
	}
}
