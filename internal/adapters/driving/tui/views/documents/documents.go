// Package documents provides the documents list view component for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// ErrServiceUnavailable is reported when the port an action needs is missing.
var ErrServiceUnavailable = errors.New("service not available")

// ActionOption represents a document action.
type ActionOption int

const (
	ActionShowText ActionOption = iota
	ActionShowAnalysis
	ActionProcess
	ActionAnalyze
	ActionDelete
	ActionCancel
)

var actionLabels = []string{
	ActionShowText:     "Show Extracted Text",
	ActionShowAnalysis: "Show Analysis",
	ActionProcess:      "Process",
	ActionAnalyze:      "Run Analysis",
	ActionDelete:       "Delete",
	ActionCancel:       "Cancel",
}

// View is the documents list view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	analysisService driving.AnalysisService
	ctx             context.Context

	ownerID      string
	documents    []domain.Document
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	notice       string
	loading      bool
	busy         string
	showingMenu  bool
	menuSelected ActionOption
	scrollOffset int
}

// NewView creates a documents view for one owner.
func NewView(
	s *styles.Styles,
	documentService driving.DocumentService,
	analysisService driving.AnalysisService,
	ownerID string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		analysisService: analysisService,
		ctx:             context.Background(),
		ownerID:         ownerID,
		documents:       []domain.Document{},
		width:           80,
		height:          24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the view and loads the owner's documents.
func (v *View) Load() tea.Cmd {
	v.selected = 0
	v.scrollOffset = 0
	v.err = nil
	v.notice = ""
	v.showingMenu = false
	return v.loadDocuments()
}

// loadDocuments returns a command that lists the owner's documents.
func (v *View) loadDocuments() tea.Cmd {
	v.loading = true
	ownerID := v.ownerID
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentsLoaded{OwnerID: ownerID, Err: ErrServiceUnavailable}
		}

		docs, err := v.documentService.List(v.ctx, ownerID)
		return messages.DocumentsLoaded{
			OwnerID:   ownerID,
			Documents: docs,
			Err:       err,
		}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		v.err = nil
		return v, nil

	case messages.DocumentProcessed:
		v.busy = ""
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = processNotice(msg.Result)
		return v, v.loadDocuments()

	case messages.AnalysisLoaded:
		v.busy = ""
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Analysis %s for %s", msg.Snapshot.Status, msg.Document.DisplayTitle())
		return v, nil

	case messages.DocumentDeleted:
		v.busy = ""
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Document deleted"
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionShowText
		}
	case "p":
		if doc := v.SelectedDocument(); doc != nil {
			return v, v.processDocument(*doc)
		}
	case "a":
		if doc := v.SelectedDocument(); doc != nil {
			return v, v.analyzeDocument(*doc)
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "r":
		v.notice = ""
		return v, v.loadDocuments()
	}

	return v, nil
}

// handleMenuKeyMsg handles key presses in action menu mode.
func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionShowText {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "enter":
		return v.handleMenuSelect()
	case "esc":
		v.showingMenu = false
	}

	return v, nil
}

// handleMenuSelect runs the chosen action on the selected document.
func (v *View) handleMenuSelect() (*View, tea.Cmd) {
	v.showingMenu = false
	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}
	selected := *doc

	switch v.menuSelected {
	case ActionShowText:
		return v, func() tea.Msg {
			return messages.DocumentSelected{Document: selected}
		}
	case ActionShowAnalysis:
		return v, func() tea.Msg {
			return messages.AnalysisRequested{Document: selected}
		}
	case ActionProcess:
		return v, v.processDocument(selected)
	case ActionAnalyze:
		return v, v.analyzeDocument(selected)
	case ActionDelete:
		return v, v.deleteDocument(selected)
	case ActionCancel:
	}

	return v, nil
}

// processDocument returns a command that runs the ingestion pipeline.
func (v *View) processDocument(doc domain.Document) tea.Cmd {
	v.busy = "Processing " + doc.DisplayTitle() + "..."
	v.err = nil
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentProcessed{DocumentID: doc.ID, Err: ErrServiceUnavailable}
		}

		result, err := v.documentService.Process(v.ctx, doc.ID)
		return messages.DocumentProcessed{DocumentID: doc.ID, Result: result, Err: err}
	}
}

// analyzeDocument returns a command that queues a background analysis.
func (v *View) analyzeDocument(doc domain.Document) tea.Cmd {
	v.busy = "Queueing analysis of " + doc.DisplayTitle() + "..."
	v.err = nil
	return func() tea.Msg {
		if v.analysisService == nil {
			return messages.AnalysisLoaded{Document: doc, Err: ErrServiceUnavailable}
		}

		snap, err := v.analysisService.Enqueue(v.ctx, doc.ID, false)
		return messages.AnalysisLoaded{Document: doc, Snapshot: snap, Err: err}
	}
}

// deleteDocument returns a command that removes the document.
func (v *View) deleteDocument(doc domain.Document) tea.Cmd {
	v.busy = "Deleting " + doc.DisplayTitle() + "..."
	v.err = nil
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentDeleted{DocumentID: doc.ID, Err: ErrServiceUnavailable}
		}

		err := v.documentService.Delete(v.ctx, doc.ID)
		return messages.DocumentDeleted{DocumentID: doc.ID, Err: err}
	}
}

func processNotice(r *driving.ProcessResult) string {
	if r == nil {
		return "Document processed"
	}
	if r.Cached {
		return "Document already up to date"
	}
	notice := fmt.Sprintf("Processed %d pages into %d chunks (%d indexed)", r.PageCount, r.Chunks, r.Indexed)
	if r.SkippedChunks > 0 {
		notice += fmt.Sprintf(", %d skipped", r.SkippedChunks)
	}
	return notice
}

// adjustScroll adjusts the scroll offset to keep the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of items that can be displayed.
func (v *View) visibleItemCount() int {
	// title, status line, help and padding
	available := v.height - 8
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Documents - %s (%d)", v.ownerID, len(v.documents))
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if len(v.documents) == 0 && v.err == nil {
		b.WriteString(v.styles.Muted.Render("No documents uploaded for this property."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.showingMenu {
		b.WriteString(v.renderActionMenu())
		return b.String()
	}

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	if len(v.documents) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.documents)),
			len(v.documents))))
	}

	b.WriteString("\n")
	switch {
	case v.busy != "":
		b.WriteString(v.styles.Warning.Render(v.busy))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderDocument renders a single document line.
func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	maxTitleLen := v.width/2 - 4
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	title := doc.DisplayTitle()
	if len([]rune(title)) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen-3]) + "..."
	}

	state := "unprocessed"
	switch {
	case doc.PipelineVersion == "":
	case doc.IsStale():
		state = "stale"
	default:
		state = fmt.Sprintf("%d pages", doc.PageCount)
	}
	meta := fmt.Sprintf("%s · %s", doc.Type.String(), state)

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, meta))
	}

	return v.styles.Normal.Render(indicator) +
		v.styles.Normal.Render(fmt.Sprintf("%-*s  ", maxTitleLen, title)) +
		v.styles.Muted.Render(meta)
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	var b strings.Builder

	if doc := v.SelectedDocument(); doc != nil {
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Actions for: %s", doc.DisplayTitle())))
		b.WriteString("\n\n")
	}

	for action := ActionShowText; action <= ActionCancel; action++ {
		label := actionLabels[action]
		if v.menuSelected == action {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [esc] cancel"))

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] actions  [p] process  [a] analyse  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// OwnerID returns the owner whose documents are listed.
func (v *View) OwnerID() string {
	return v.ownerID
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsShowingMenu returns true if the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// Notice returns the last success message.
func (v *View) Notice() string {
	return v.notice
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
