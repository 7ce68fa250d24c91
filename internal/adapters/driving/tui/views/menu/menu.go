// Package menu is the landing screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
)

// Entry is one destination on the menu. An entry without a target view
// quits the program.
type Entry struct {
	Label    string
	Hint     string
	Shortcut rune
	Target   messages.ViewType
	Exit     bool
}

func defaultEntries() []Entry {
	return []Entry{
		{Label: "Ask", Hint: "questions answered from your documents", Shortcut: 'a', Target: messages.ViewChat},
		{Label: "Documents", Hint: "process, analyse and read documents", Shortcut: 'd', Target: messages.ViewDocuments},
		{Label: "Search", Hint: "find passages", Shortcut: 's', Target: messages.ViewSearch},
		{Label: "Help", Hint: "keys and commands", Shortcut: 'h', Target: messages.ViewHelp},
		{Label: "Quit", Shortcut: 'q', Exit: true},
	}
}

// View lists the entries for one owner.
type View struct {
	styles  *styles.Styles
	ownerID string
	entries []Entry
	pos     int

	width, height int
	ready         bool
}

// NewView creates the menu.
func NewView(s *styles.Styles, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		ownerID: ownerID,
		entries: defaultEntries(),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd { return nil }

// Update moves the highlight and opens entries. Shortcut letters open
// their entry directly.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyUp:
			v.move(-1)
		case tea.KeyDown, tea.KeyTab:
			v.move(1)
		case tea.KeyEnter:
			return v, v.open(v.pos)
		case tea.KeyRunes:
			if len(msg.Runes) != 1 {
				return v, nil
			}
			switch r := msg.Runes[0]; r {
			case 'k':
				v.move(-1)
			case 'j':
				v.move(1)
			default:
				if i := v.indexOf(r); i >= 0 {
					v.pos = i
					return v, v.open(i)
				}
			}
		}
	}
	return v, nil
}

// move shifts the highlight, stopping at either end.
func (v *View) move(delta int) {
	v.pos = min(max(v.pos+delta, 0), len(v.entries)-1)
}

func (v *View) indexOf(r rune) int {
	for i, e := range v.entries {
		if e.Shortcut == r {
			return i
		}
	}
	return -1
}

func (v *View) open(i int) tea.Cmd {
	e := v.entries[i]
	if e.Exit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: e.Target} }
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	heading := "Property Document Assistant"
	if v.ownerID != "" {
		heading = fmt.Sprintf("%s · %s", heading, v.ownerID)
	}

	lines := []string{
		v.styles.Title.Render("propdocs"),
		"",
		v.styles.Subtitle.Render(heading),
		"",
	}
	for i, e := range v.entries {
		label := fmt.Sprintf("[%c] %s", e.Shortcut, e.Label)
		if i != v.pos {
			lines = append(lines, "  "+v.styles.Normal.Render(label))
			continue
		}
		row := "> " + v.styles.Selected.Render(label)
		if e.Hint != "" {
			row += "  " + v.styles.Muted.Render(e.Hint)
		}
		lines = append(lines, row)
	}
	lines = append(lines, "", v.styles.Help.Render("j/k move · enter open · letter jumps"))
	return strings.Join(lines, "\n")
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// Selected returns the highlighted index.
func (v *View) Selected() int { return v.pos }

// Entries returns the menu entries.
func (v *View) Entries() []Entry { return v.entries }
