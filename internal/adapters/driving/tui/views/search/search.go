// Package search provides the retrieval view of the TUI: ranked passages
// or whole documents for one owner, with the score breakdown behind each.
package search

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// ErrNoSearchService is returned when the view has nothing to query.
var ErrNoSearchService = errors.New("search service is required")

const defaultTopK = 10

// View is the search screen. It starts in query mode; a completed search
// moves focus to the hit list.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	query  *input.Prompt
	hits   *list.Hits
	bar    *status.Bar

	service driving.SearchService
	ownerID string
	topK    int
	scope   messages.SearchScope
	last    string
	ctx     context.Context

	width, height int
	ready         bool
	typing        bool
	err           error
}

// NewView creates a search view over one owner's documents.
func NewView(s *styles.Styles, km *keymap.KeyMap, service driving.SearchService, ownerID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:  s,
		keys:    km,
		query:   input.NewSearchInput(s),
		hits:    list.NewHits(s, scopeNoun(messages.ScopePassages)),
		bar:     status.NewBar(s, km),
		service: service,
		ownerID: ownerID,
		topK:    defaultTopK,
		ctx:     context.Background(),
		width:   80,
		height:  24,
		typing:  true,
	}
}

func scopeNoun(scope messages.SearchScope) string {
	if scope == messages.ScopeDocuments {
		return "documents"
	}
	return "passages"
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the query input.
func (v *View) Init() tea.Cmd {
	return v.query.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil
	case tea.KeyMsg:
		if v.typing {
			return v.typingKey(msg)
		}
		return v.browsingKey(msg)
	case messages.SearchCompleted:
		v.showResults(msg)
		return v, nil
	case messages.ErrorOccurred:
		v.err = msg.Err
		v.bar.Fail(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.query, cmd = v.query.Update(msg)
	return v, cmd
}

func (v *View) typingKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		return v, backToMenu
	case key.Matches(msg, v.keys.Send):
		q := v.query.Value()
		if q == "" {
			return v, nil
		}
		v.query.Remember(q)
		return v, v.run(q)
	}
	v.query, _ = v.query.Update(msg)
	return v, nil
}

func (v *View) browsingKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		return v, backToMenu
	case key.Matches(msg, v.keys.Up):
		v.hits.Prev()
	case key.Matches(msg, v.keys.Down):
		v.hits.Next()
	case key.Matches(msg, v.keys.Breakdown):
		v.hits.ToggleBreakdown()
	case key.Matches(msg, v.keys.NewQuery):
		v.typing = true
		v.query.SetValue("")
		return v, v.query.Focus()
	case key.Matches(msg, v.keys.Scope):
		v.scope = 1 - v.scope
		if v.last == "" {
			return v, nil
		}
		return v, v.run(v.last)
	case key.Matches(msg, v.keys.Open):
		if hit := v.hits.Current(); hit != nil {
			doc := hit.Document
			return v, func() tea.Msg { return messages.DocumentSelected{Document: doc} }
		}
	case key.Matches(msg, v.keys.Analyze):
		if hit := v.hits.Current(); hit != nil {
			doc := hit.Document
			return v, func() tea.Msg { return messages.AnalysisRequested{Document: doc} }
		}
	}
	return v, nil
}

func backToMenu() tea.Msg {
	return messages.ViewChanged{View: messages.ViewMenu}
}

// run switches to browsing and returns the search command for the
// current scope.
func (v *View) run(q string) tea.Cmd {
	v.last = q
	v.typing = false
	v.query.Blur()
	v.bar.Set(status.StateSearching, "")

	service, ctx, owner, topK, scope := v.service, v.ctx, v.ownerID, v.topK, v.scope
	return func() tea.Msg {
		if service == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		done := messages.SearchCompleted{Query: q, Scope: scope}
		if scope == messages.ScopeDocuments {
			done.Documents, done.Err = service.RankDocuments(ctx, owner, q, topK)
		} else {
			done.Results, done.Err = service.Search(ctx, owner, q, topK)
		}
		return done
	}
}

func (v *View) showResults(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.bar.Fail(msg.Err)
		return
	}
	v.err = nil
	v.typing = false
	v.query.Blur()

	noun := scopeNoun(msg.Scope)
	if msg.Scope == messages.ScopeDocuments {
		v.hits.Set(list.DocumentHits(msg.Documents), noun)
	} else {
		v.hits.Set(list.PassageHits(msg.Results), noun)
	}
	v.bar.SetCount(v.hits.Len(), noun)
	v.bar.Set(status.StateResults, "")
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("Search documents")
	if v.ownerID != "" {
		header += " " + v.styles.Muted.Render(v.ownerID)
	}
	header += "  " + v.styles.Subtitle.Render("["+scopeNoun(v.scope)+"]")

	parts := []string{header, "", v.query.View(), ""}
	if v.err != nil {
		parts = append(parts, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	parts = append(parts, v.hits.View(), "", v.bar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetDimensions sizes the view and its components.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.query.SetWidth(width)
	v.hits.Resize(width, height-8)
	v.bar.Resize(width)
}

// Width returns the current width.
func (v *View) Width() int { return v.width }

// Height returns the current height.
func (v *View) Height() int { return v.height }

// Ready reports whether the view has been sized.
func (v *View) Ready() bool { return v.ready }

// Query returns the text in the query input.
func (v *View) Query() string { return v.query.Value() }

// SetQuery replaces the text in the query input.
func (v *View) SetQuery(q string) { v.query.SetValue(q) }

// Scope returns the active ranking scope.
func (v *View) Scope() messages.SearchScope { return v.scope }

// Hits returns the listed hits.
func (v *View) Hits() []list.Hit { return v.hits.Items() }

// Selected returns the highlighted hit, or nil.
func (v *View) Selected() *list.Hit { return v.hits.Current() }

// Err returns the last search error.
func (v *View) Err() error { return v.err }

// InputFocused reports whether keys go to the query input.
func (v *View) InputFocused() bool { return v.typing }

// Reset clears the query and the hits and focuses the input.
func (v *View) Reset() {
	v.typing = true
	v.last = ""
	v.err = nil
	v.query.SetValue("")
	v.query.Focus()
	v.hits.Set(nil, scopeNoun(v.scope))
	v.bar.Reset()
}
