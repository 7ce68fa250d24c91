package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/views/search"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ownerID scopes every view to one property.
	ownerID string

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	menuView       *menu.View
	chatView       *chat.View
	searchView     *search.View
	documentsView  *documents.View
	docContentView *doccontent.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// contentReturn is where the content view goes back to.
	contentReturn messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI application for one owner.
func NewApp(ports *Ports, ownerID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingOwner)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:          ports,
		ownerID:        ownerID,
		ctx:            context.Background(),
		styles:         s,
		menuView:       menu.NewView(s, ownerID),
		chatView:       chat.NewView(s, km, ports.Chat, ownerID),
		searchView:     search.NewView(s, km, ports.Search, ownerID),
		documentsView:  documents.NewView(s, ports.Documents, ports.Analysis, ownerID),
		docContentView: doccontent.NewView(s, ports.Documents, ports.Analysis),
		currentView:    messages.ViewMenu,
		contentReturn:  messages.ViewDocuments,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("propdocs - "+a.ownerID),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.chatView.Cancel()
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ChatStarted, messages.ChatEventReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentProcessed, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentSelected:
		a.openContent()
		doc := msg.Document
		return a, a.docContentView.SetDocument(&doc, messages.ContentText)

	case messages.AnalysisRequested:
		a.openContent()
		doc := msg.Document
		return a, a.docContentView.SetDocument(&doc, messages.ContentAnalysis)

	case messages.DocumentContentLoaded:
		a.docContentView, cmd = a.docContentView.Update(msg)
		return a, cmd

	case messages.AnalysisLoaded:
		if a.currentView == messages.ViewDocContent {
			a.docContentView, cmd = a.docContentView.Update(msg)
		} else {
			a.documentsView, cmd = a.documentsView.Update(msg)
		}
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// openContent records where the content view returns to and switches to it.
func (a *App) openContent() {
	if a.currentView != messages.ViewDocContent {
		a.contentReturn = a.currentView
	}
	a.currentView = messages.ViewDocContent
}

// switchTo activates a view and returns its start-up command.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	from := a.currentView
	if from == messages.ViewDocContent && view == messages.ViewDocuments {
		view = a.contentReturn
	}
	a.currentView = view

	switch view {
	case messages.ViewChat:
		return a.chatView.Init()
	case messages.ViewSearch:
		if from == messages.ViewDocContent {
			return nil
		}
		a.searchView.Reset()
		return a.searchView.Init()
	case messages.ViewDocuments:
		return a.documentsView.Load()
	case messages.ViewMenu, messages.ViewDocContent, messages.ViewHelp:
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ctrl+c      Quit

Ask:
  (type)      Enter a question
  enter       Send
  esc         Stop the answer, or back to menu

Documents:
  j/k, ↑/↓    Navigate documents
  enter       Actions
  p           Process selected document
  a           Queue analysis of selected document
  r           Reload

Search:
  enter       Submit search, or open result actions
  n           New search

Document view:
  g/G         Top / bottom
  a           Rerun analysis

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// OwnerID returns the owner the app is scoped to.
func (a *App) OwnerID() string {
	return a.ownerID
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
}
