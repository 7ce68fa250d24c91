// Package input provides the labelled text prompt used by the search and
// chat views.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
)

const (
	defaultWidth  = 50
	minFieldWidth = 20
	maxHistory    = 50
)

// Prompt is a single-line input with a label and a recall history:
// up and down step through earlier entries.
type Prompt struct {
	field  textinput.Model
	styles *styles.Styles
	label  string
	width  int

	history []string
	// recall indexes history while browsing it; len(history) means the
	// draft being typed.
	recall int
	draft  string
}

// NewSearchInput creates a prompt for search queries.
func NewSearchInput(s *styles.Styles) *Prompt {
	return New(s, "Search: ", "Roof age, termite damage, HOA fees...", 256)
}

// NewQuestionInput creates a prompt for chat questions.
func NewQuestionInput(s *styles.Styles) *Prompt {
	return New(s, "Ask: ", "What did the inspector say about the roof?", 1000)
}

// New creates a focused prompt.
func New(s *styles.Styles, label, placeholder string, charLimit int) *Prompt {
	if s == nil {
		s = styles.DefaultStyles()
	}

	f := textinput.New()
	f.Placeholder = placeholder
	f.CharLimit = charLimit
	f.Width = defaultWidth
	f.Focus()

	return &Prompt{field: f, styles: s, label: label, width: defaultWidth}
}

func (p *Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update edits the text; up and down recall history while focused.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && p.field.Focused() && len(p.history) > 0 {
		switch k.Type {
		case tea.KeyUp:
			p.step(-1)
			return p, nil
		case tea.KeyDown:
			p.step(1)
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.field, cmd = p.field.Update(msg)
	return p, cmd
}

func (p *Prompt) step(delta int) {
	if p.recall == len(p.history) {
		p.draft = p.field.Value()
	}
	p.recall = min(max(p.recall+delta, 0), len(p.history))
	if p.recall == len(p.history) {
		p.field.SetValue(p.draft)
	} else {
		p.field.SetValue(p.history[p.recall])
	}
	p.field.CursorEnd()
}

func (p *Prompt) View() string {
	label := p.styles.Title.Render(p.label)
	field := p.styles.InputField.Render(p.field.View())
	//nolint:misspell // lipgloss.Center is the library's spelling
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Remember appends entry to the history unless it is blank or repeats
// the last entry.
func (p *Prompt) Remember(entry string) {
	entry = strings.TrimSpace(entry)
	if entry != "" && (len(p.history) == 0 || p.history[len(p.history)-1] != entry) {
		p.history = append(p.history, entry)
		if len(p.history) > maxHistory {
			p.history = p.history[len(p.history)-maxHistory:]
		}
	}
	p.recall = len(p.history)
	p.draft = ""
}

// Submit returns the trimmed text, remembers it and clears the prompt.
func (p *Prompt) Submit() string {
	v := strings.TrimSpace(p.field.Value())
	p.Remember(v)
	p.field.Reset()
	return v
}

// History returns remembered entries, oldest first.
func (p *Prompt) History() []string { return p.history }

func (p *Prompt) Value() string { return p.field.Value() }

func (p *Prompt) SetValue(value string) { p.field.SetValue(value) }

func (p *Prompt) Focus() tea.Cmd { return p.field.Focus() }

func (p *Prompt) Blur() { p.field.Blur() }

func (p *Prompt) Focused() bool { return p.field.Focused() }

// SetWidth sets the total width; the field keeps at least twenty columns.
func (p *Prompt) SetWidth(width int) {
	p.width = width
	p.field.Width = max(width-lipgloss.Width(p.label)-6, minFieldWidth)
}

func (p *Prompt) Width() int { return p.width }

// FieldWidth returns the width of the editable field.
func (p *Prompt) FieldWidth() int { return p.field.Width }

// Reset clears the text but keeps the history.
func (p *Prompt) Reset() {
	p.field.Reset()
	p.recall = len(p.history)
	p.draft = ""
}
