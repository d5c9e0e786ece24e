package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/novels/pkg/app/styles"
	"github.com/pkg/errors"
)

// ErrCancelled is returned by a Prompter when the user backs out of a
// question or the run is interrupted.
var ErrCancelled = errors.New("cancelled")

// Prompter asks the user for the values the interactive flows need.
type Prompter interface {
	// Ask returns the typed answer, or def when the answer is empty.
	Ask(question, def string) (string, error)
	Confirm(question string) (bool, error)
	// Select returns the index of the chosen option.
	Select(title string, options []string) (int, error)
}

// TeaPrompter runs one small bubbletea program per question.
type TeaPrompter struct {
	ctx context.Context
	in  io.Reader
	out io.Writer
}

func NewTeaPrompter(ctx context.Context) *TeaPrompter {
	return &TeaPrompter{ctx: ctx}
}

// WithIO replaces the terminal used by the prompts.
func (p *TeaPrompter) WithIO(in io.Reader, out io.Writer) *TeaPrompter {
	p.in = in
	p.out = out
	return p
}

func (p *TeaPrompter) Ask(question, def string) (string, error) {
	final, err := p.run(newInputModel(question, def))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.answer(), nil
}

func (p *TeaPrompter) Confirm(question string) (bool, error) {
	for {
		answer, err := p.Ask(question+" (y/n)", "y")
		if err != nil {
			return false, err
		}
		if ok, valid := parseYesNo(answer); valid {
			return ok, nil
		}
	}
}

func (p *TeaPrompter) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to choose from")
	}
	final, err := p.run(newSelectModel(title, options))
	if err != nil {
		return 0, err
	}
	m := final.(selectModel)
	if m.cancelled {
		return 0, ErrCancelled
	}
	return m.cursor, nil
}

func (p *TeaPrompter) run(model tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(p.ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if p.ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil, ErrCancelled
		}
		return nil, errors.Wrap(err, "prompt")
	}
	return final, nil
}

func parseYesNo(answer string) (ok bool, valid bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

type inputModel struct {
	question  string
	def       string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newInputModel(question, def string) inputModel {
	ti := textinput.New()
	ti.Placeholder = def
	ti.Prompt = "› "
	ti.PromptStyle = styles.PromptStyle
	ti.Focus()
	return inputModel{question: question, def: def, input: ti}
}

func (m inputModel) answer() string {
	if v := strings.TrimSpace(m.input.Value()); v != "" {
		return v
	}
	return m.def
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", styles.TextStyle.Render(m.question), m.answer())
	}
	if m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		styles.TextStyle.Render(m.question),
		styles.FocusedInputStyle.Render(m.input.View()),
		styles.HelpStyle.Render("enter: confirm • esc: cancel"))
}

type selectModel struct {
	title     string
	options   []string
	cursor    int
	done      bool
	cancelled bool
}

func newSelectModel(title string, options []string) selectModel {
	return selectModel{title: title, options: options}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m selectModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", styles.TextStyle.Render(m.title), m.options[m.cursor])
	}
	if m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.title) + "\n")
	for i, opt := range m.options {
		if i == m.cursor {
			b.WriteString(styles.SelectedStyle.Render("› "+opt) + "\n")
			continue
		}
		b.WriteString("  " + opt + "\n")
	}
	b.WriteString(styles.HelpStyle.Render("↑/↓: move • enter: select • esc: cancel") + "\n")
	return b.String()
}
