// Package doccontent provides the document content view component for the TUI.
// It shows either the extracted text of a document or its latest analysis.
package doccontent

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

// ErrServiceUnavailable is reported when the port needed for a mode is missing.
var ErrServiceUnavailable = errors.New("service not available")

// View is the document content view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	analysisService driving.AnalysisService
	ctx             context.Context

	document     *domain.Document
	mode         messages.ContentMode
	status       domain.AnalysisStatus
	content      string
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(
	s *styles.Styles,
	documentService driving.DocumentService,
	analysisService driving.AnalysisService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		analysisService: analysisService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetDocument sets the document and loads the content for mode.
func (v *View) SetDocument(doc *domain.Document, mode messages.ContentMode) tea.Cmd {
	v.document = doc
	v.mode = mode
	v.status = ""
	v.content = ""
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	if mode == messages.ContentAnalysis {
		return v.loadAnalysis(false)
	}
	return v.loadText()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// loadText returns a command that fetches the document's extracted text.
func (v *View) loadText() tea.Cmd {
	doc := v.document
	return func() tea.Msg {
		if doc == nil || v.documentService == nil {
			return messages.DocumentContentLoaded{Err: ErrServiceUnavailable}
		}

		fresh, err := v.documentService.Get(v.ctx, doc.ID)
		if err != nil {
			return messages.DocumentContentLoaded{Document: *doc, Err: err}
		}
		return messages.DocumentContentLoaded{Document: *fresh}
	}
}

// loadAnalysis reads the stored analysis, or starts a run when run is set.
func (v *View) loadAnalysis(run bool) tea.Cmd {
	doc := v.document
	return func() tea.Msg {
		if doc == nil || v.analysisService == nil {
			return messages.AnalysisLoaded{Err: ErrServiceUnavailable}
		}

		var (
			snap domain.AnalysisSnapshot
			err  error
		)
		if run {
			snap, err = v.analysisService.StartOrRefresh(v.ctx, doc.ID, true)
		} else {
			snap, err = v.analysisService.Status(v.ctx, doc.ID)
		}
		return messages.AnalysisLoaded{Document: *doc, Snapshot: snap, Err: err}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.content = msg.Document.Text
		v.wrapContent()
		return v, nil

	case messages.AnalysisLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.status = msg.Snapshot.Status
		v.content = msg.Snapshot.Result
		if v.content == "" && msg.Snapshot.Error != "" {
			v.err = errors.New(msg.Snapshot.Error)
		}
		v.wrapContent()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset -= v.visibleLines()
		if v.scrollOffset < 0 {
			v.scrollOffset = 0
		}
	case "pgdown", "ctrl+d":
		v.scrollOffset += v.visibleLines()
		if maxOffset := v.maxScrollOffset(); v.scrollOffset > maxOffset {
			v.scrollOffset = maxOffset
		}
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "a":
		if v.mode == messages.ContentAnalysis && !v.loading {
			v.loading = true
			v.err = nil
			return v, v.loadAnalysis(true)
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	return v, nil
}

// wrapContent wraps the content to fit the view width.
func (v *View) wrapContent() {
	if v.content == "" {
		v.lines = nil
		return
	}

	contentWidth := v.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	rawLines := strings.Split(v.content, "\n")
	v.lines = make([]string, 0, len(rawLines))

	for _, line := range rawLines {
		runes := []rune(line)
		for len(runes) > contentWidth {
			v.lines = append(v.lines, string(runes[:contentWidth]))
			runes = runes[contentWidth:]
		}
		v.lines = append(v.lines, string(runes))
	}
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// title, separator, help and padding
	available := v.height - 6
	if available < 1 {
		available = 1
	}
	return available
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	maxOffset := len(v.lines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document"
	if v.document != nil {
		title = v.document.DisplayTitle()
	}
	if v.mode == messages.ContentAnalysis {
		title += " · Analysis"
		if v.status != "" {
			title += " (" + string(v.status) + ")"
		}
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", minInt(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading && v.mode == messages.ContentAnalysis:
		b.WriteString(v.styles.Muted.Render("Loading analysis..."))
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render(v.emptyMessage()))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage,
			v.scrollOffset+1,
			minInt(v.scrollOffset+visible, len(v.lines)),
			len(v.lines))))
	}
}

func (v *View) emptyMessage() string {
	if v.mode == messages.ContentAnalysis {
		return "(No analysis yet. Press [a] to run one.)"
	}
	return "(No extracted text. Process the document first.)"
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	help := "[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"
	if v.mode == messages.ContentAnalysis {
		help = "[↑/↓/PgUp/PgDn] scroll  [a] rerun analysis  [esc] back"
	}
	return v.styles.Help.Render(help)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Mode returns what the view is showing.
func (v *View) Mode() messages.ContentMode {
	return v.mode
}

// Content returns the loaded text or analysis.
func (v *View) Content() string {
	return v.content
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
