// Package status provides the status bar shared by the TUI views.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
)

// State is what the owning view is doing.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateAnswering
	StateResults
	StateFailed
)

// Bar shows the view state on the left and key hints on the right.
type Bar struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	state  State
	note   string
	count  int
	noun   string
	width  int
}

// NewBar creates an idle bar.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keys: km, width: 80}
}

// Set changes the state and its note. An empty note uses the state's label.
func (b *Bar) Set(state State, note string) {
	b.state = state
	b.note = note
}

// Fail shows err.
func (b *Bar) Fail(err error) {
	b.Set(StateFailed, err.Error())
}

// SetCount records how many rows the view lists, e.g. 3 "passages".
func (b *Bar) SetCount(n int, noun string) {
	b.count = n
	b.noun = noun
}

// State returns the current state.
func (b *Bar) State() State { return b.state }

// Note returns the current note.
func (b *Bar) Note() string { return b.note }

// Count returns the recorded row count.
func (b *Bar) Count() int { return b.count }

// Resize sets the bar width.
func (b *Bar) Resize(width int) { b.width = width }

// Reset returns the bar to idle.
func (b *Bar) Reset() {
	*b = Bar{styles: b.styles, keys: b.keys, width: b.width}
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left := b.label()
	right := b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) label() string {
	switch b.state {
	case StateSearching:
		return b.styles.Muted.Render("Searching...")
	case StateAnswering:
		return b.styles.Muted.Render("Answering...")
	case StateFailed:
		if b.note == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.note)
	case StateResults:
		if b.note != "" {
			return b.styles.Success.Render(b.note)
		}
		return b.styles.Normal.Render(fmt.Sprintf("%d %s", b.count, b.noun))
	default:
		if b.note != "" {
			return b.styles.Success.Render(b.note)
		}
		return b.styles.Muted.Render("Ready")
	}
}

func (b *Bar) hints() string {
	ctx := keymap.ContextIdle
	switch {
	case b.state == StateAnswering:
		ctx = keymap.ContextAnswering
	case b.state == StateResults && b.count > 0:
		ctx = keymap.ContextResults
	}
	bindings := b.keys.Hints(ctx)
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(parts, " · "))
}
