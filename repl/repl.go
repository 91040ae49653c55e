// Package repl implements the interactive shell of the analyzer.
//
// The shell lets the user pick loaded classes, run one of the three
// analyses on a method, and read the verdicts without leaving the
// terminal. It uses the Charm libraries (Bubbletea, Bubbles, and
// Lipgloss) for a modern terminal interface with command history and
// styled output.
//
// Key features:
//   - Concrete calls: "Simple.factorial(5)" evaluates and prints the result
//   - Analysis modes: ":mode sign" / ":mode concolic" switch what a call runs
//   - ":list" shows the loaded classes and methods, ":disasm" a listing
//   - Analyses run asynchronously with a spinner; history is kept
//
// The main entry point is Start, which receives the loaded class table
// and runs the bubbletea program.
package repl

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dr8co/jive/analysis"
	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/concolic"
	"github.com/dr8co/jive/vm"
)

// Prompt is the default prompt for the shell.
const Prompt = ">> "

// Mode selects which analysis a call runs.
type Mode int

// Analysis modes.
const (
	ModeConcrete Mode = iota
	ModeSign
	ModeConcolic
)

// String returns the mode name used by the :mode command.
func (m Mode) String() string {
	switch m {
	case ModeSign:
		return "sign"
	case ModeConcolic:
		return "concolic"
	default:
		return "concrete"
	}
}

// Options contains configuration options for the shell.
type Options struct {
	NoColor  bool // Disable colored output
	StepCap  int  // Concolic per-path instruction budget
	QueryCap int  // Concolic solver-query budget
}

// Start initializes and runs the shell over the given class table.
// If an error occurs while running the program, it is printed to the console.
func Start(table *classfile.Table, options Options) {
	p := tea.NewProgram(initialModel(table, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	verdictOkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	verdictBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8700")).
			Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))
)

// analysisResultMsg reports a finished analysis back to the update loop.
type analysisResultMsg struct {
	output  string
	isError bool
	bad     bool // an exception verdict, styled differently from errors
	elapsed time.Duration
}

// historyEntry represents a single entry in the shell history.
type historyEntry struct {
	input   string
	output  string
	isError bool
	bad     bool
	elapsed time.Duration
}

// The model represents the state of the application.
type model struct {
	textInput  textinput.Model
	history    []historyEntry
	table      *classfile.Table
	mode       Mode
	evaluating bool
	current    string
	spinner    spinner.Model
	options    Options
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor option.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// initialModel creates a new model with default values.
func initialModel(table *classfile.Table, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Class.method(args) or :help"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		history:   []historyEntry{},
		table:     table,
		mode:      ModeConcrete,
		spinner:   s,
		options:   options,
	}
}

// Init is the first function that will be called.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Call is one parsed invocation request.
type Call struct {
	Class  string
	Method string
	Args   []any
}

// ParseCall parses "Class.method(arg, ...)" into a call request. The
// argument list accepts integers, booleans, and bracketed integer arrays.
func ParseCall(input string) (Call, error) {
	var c Call
	open := strings.IndexByte(input, '(')
	head := input
	if open >= 0 {
		if !strings.HasSuffix(input, ")") {
			return c, fmt.Errorf("unbalanced parentheses in %q", input)
		}
		head = input[:open]
		args, err := parseArgs(input[open+1 : len(input)-1])
		if err != nil {
			return c, err
		}
		c.Args = args
	}
	dot := strings.LastIndexByte(head, '.')
	if dot < 0 {
		return c, fmt.Errorf("expected Class.method, got %q", head)
	}
	c.Class = strings.TrimSpace(head[:dot])
	c.Method = strings.TrimSpace(head[dot+1:])
	if c.Class == "" || c.Method == "" {
		return c, fmt.Errorf("expected Class.method, got %q", head)
	}
	return c, nil
}

// parseArgs parses a comma-separated argument list, honoring brackets.
func parseArgs(s string) ([]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []any
	depth := 0
	start := 0
	flush := func(end int) error {
		tok := strings.TrimSpace(s[start:end])
		if tok == "" {
			return fmt.Errorf("empty argument")
		}
		v, err := parseArg(tok)
		if err != nil {
			return err
		}
		args = append(args, v)
		return nil
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", s)
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return args, nil
}

func parseArg(tok string) (any, error) {
	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		inner := strings.TrimSpace(tok[1 : len(tok)-1])
		if inner == "" {
			return []int{}, nil
		}
		parts := strings.Split(inner, ",")
		arr := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("bad array element %q", p)
			}
			arr = append(arr, n)
		}
		return arr, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("bad argument %q", tok)
	}
	return n, nil
}

// ResolveClass finds the full class name matching a possibly-short name
// ("Simple" matches "dtu/compute/exec/Simple").
func ResolveClass(table *classfile.Table, name string) (string, bool) {
	if table.Class(name) != nil {
		return name, true
	}
	for _, full := range table.Names() {
		if strings.HasSuffix(full, "/"+name) {
			return full, true
		}
	}
	return "", false
}

// analyzeCmd runs one analysis asynchronously.
func analyzeCmd(table *classfile.Table, mode Mode, call Call, options Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		full, ok := ResolveClass(table, call.Class)
		if !ok {
			return analysisResultMsg{
				output:  fmt.Sprintf("unknown class %q", call.Class),
				isError: true,
				elapsed: time.Since(start),
			}
		}
		provider := classfile.Stubbed(table)
		var output string
		var isError, bad bool
		switch mode {
		case ModeConcrete:
			runner := analysis.NewRunner(provider, nil)
			vals, err := runner.Wrap(call.Args)
			if err == nil {
				result, rerr := runner.Run(full, call.Method, vals)
				err = rerr
				if rerr == nil {
					if result == nil {
						output = "void"
					} else {
						output = result.Inspect()
					}
					if printed := runner.Output(); printed != "" {
						output += "\noutput: " + strconv.Quote(printed)
					}
				}
			}
			if err != nil {
				output = err.Error()
				isError = true
				var exc *analysis.ExceptionError
				if errors.As(err, &exc) {
					bad = true
				}
			}
		case ModeSign:
			kinds, err := analysis.RunMethodAnalysis(provider, full, call.Method)
			if err != nil {
				output = err.Error()
				isError = true
			} else {
				output = formatKinds(kinds)
				bad = hasException(kinds)
			}
		case ModeConcolic:
			res, err := analysis.Concolic(provider, full, call.Method, concolic.Options{
				StepCap:  options.StepCap,
				QueryCap: options.QueryCap,
			})
			if err != nil {
				output = err.Error()
				isError = true
			} else {
				output = res.Kind.String()
				if res.Kind.IsException() {
					bad = true
					output += fmt.Sprintf(" witness=%v", res.Witness)
				}
				for _, p := range res.Paths {
					output += fmt.Sprintf("\n  %v -> %s | %s", p.Inputs, p.Kind, p.Constraint)
				}
			}
		}
		return analysisResultMsg{
			output:  output,
			isError: isError,
			bad:     bad,
			elapsed: time.Since(start),
		}
	}
}

// formatKinds renders a verdict set in a stable order.
func formatKinds(kinds map[vm.Kind]bool) string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ", ") + "}"
}

func hasException(kinds map[vm.Kind]bool) bool {
	for k := range kinds {
		if k.IsException() {
			return true
		}
	}
	return false
}

// listing renders the loaded classes and their methods.
func listing(table *classfile.Table) string {
	names := table.Names()
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
		c := table.Class(name)
		for i := range c.Methods {
			method := &c.Methods[i]
			params := make([]string, len(method.Params))
			for j := range method.Params {
				params[j] = method.Params[j].Type.String()
			}
			fmt.Fprintf(&b, "  %s(%s) %s\n", method.Name, strings.Join(params, ", "), method.Returns.String())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// disassemble renders a method listing.
func disassemble(table *classfile.Table, call Call) (string, error) {
	full, ok := ResolveClass(table, call.Class)
	if !ok {
		return "", fmt.Errorf("unknown class %q", call.Class)
	}
	method, err := table.Lookup(full, call.Method)
	if err != nil {
		return "", err
	}
	ins, err := code.Decode(method)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(ins.String(), "\n"), nil
}

const helpText = `Commands:
  Class.method(args)   run the method under the current mode
  :mode                show the current mode
  :mode <m>            switch mode: concrete, sign, concolic
  :list                list loaded classes and methods
  :disasm Class.method show the decoded instructions
  :help                this message
  Ctrl+C / Ctrl+D      quit`

// execute handles one line of input, either directly (commands) or by
// returning an async analysis command.
func (m *model) execute(input string) tea.Cmd {
	if strings.HasPrefix(input, ":") {
		fields := strings.Fields(input)
		switch fields[0] {
		case ":help":
			m.addEntry(input, helpText, false, false, 0)
		case ":list":
			m.addEntry(input, listing(m.table), false, false, 0)
		case ":mode":
			if len(fields) == 1 {
				m.addEntry(input, "mode: "+m.mode.String(), false, false, 0)
				return nil
			}
			switch fields[1] {
			case "concrete":
				m.mode = ModeConcrete
			case "sign":
				m.mode = ModeSign
			case "concolic":
				m.mode = ModeConcolic
			default:
				m.addEntry(input, fmt.Sprintf("unknown mode %q", fields[1]), true, false, 0)
				return nil
			}
			m.addEntry(input, "mode: "+m.mode.String(), false, false, 0)
		case ":disasm":
			if len(fields) != 2 {
				m.addEntry(input, "usage: :disasm Class.method", true, false, 0)
				return nil
			}
			call, err := ParseCall(fields[1])
			if err != nil {
				m.addEntry(input, err.Error(), true, false, 0)
				return nil
			}
			text, err := disassemble(m.table, call)
			if err != nil {
				m.addEntry(input, err.Error(), true, false, 0)
				return nil
			}
			m.addEntry(input, text, false, false, 0)
		default:
			m.addEntry(input, fmt.Sprintf("unknown command %q", fields[0]), true, false, 0)
		}
		return nil
	}

	call, err := ParseCall(input)
	if err != nil {
		m.addEntry(input, err.Error(), true, false, 0)
		return nil
	}
	m.evaluating = true
	m.current = input
	return analyzeCmd(m.table, m.mode, call, m.options)
}

func (m *model) addEntry(input, output string, isError, bad bool, elapsed time.Duration) {
	m.history = append(m.history, historyEntry{
		input:   input,
		output:  output,
		isError: isError,
		bad:     bad,
		elapsed: elapsed,
	})
}

// Update handles all the updates to our model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case analysisResultMsg:
		m.evaluating = false
		m.addEntry(m.current, msg.output, msg.isError, msg.bad, msg.elapsed)
		m.current = ""
		return m, nil

	case tea.KeyMsg:
		// If we're evaluating, ignore key presses except for Ctrl+C.
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.SetValue("")
			if input == "" {
				return m, nil
			}
			cmd := m.execute(input)
			return m, cmd
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the whole shell.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, "jive bytecode analyzer"))
	s.WriteString("  ")
	s.WriteString(m.applyStyle(infoStyle, "mode: "+m.mode.String()))
	s.WriteString("\n\n")

	for _, entry := range m.history {
		s.WriteString(m.applyStyle(historyStyle, Prompt+entry.input))
		s.WriteString("\n")
		style := resultStyle
		switch {
		case entry.isError && entry.bad:
			style = verdictBadStyle
		case entry.isError:
			style = errorStyle
		case entry.bad:
			style = verdictBadStyle
		case strings.HasPrefix(entry.output, "No"):
			style = verdictOkStyle
		}
		s.WriteString(m.applyStyle(style, entry.output))
		if entry.elapsed > 0 {
			s.WriteString(m.applyStyle(historyStyle, fmt.Sprintf("  (%s)", entry.elapsed.Round(time.Microsecond))))
		}
		s.WriteString("\n")
	}

	if m.evaluating {
		s.WriteString(m.spinner.View())
		s.WriteString(" analyzing ")
		s.WriteString(m.current)
		s.WriteString("\n")
	} else {
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	s.WriteString(m.applyStyle(historyStyle, "\n(:help for commands, Ctrl+C to quit)\n"))
	return s.String()
}
