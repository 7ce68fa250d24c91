// Package list renders ranked retrieval hits for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// Hit is one ranked row: a passage or a whole document.
type Hit struct {
	Document  domain.Document
	Section   string
	Chunk     int // -1 for document-level hits
	Preview   string
	Score     float64
	Breakdown domain.ScoreBreakdown
}

// IsPassage reports whether the hit points into a chunk.
func (h Hit) IsPassage() bool {
	return h.Chunk >= 0
}

// PassageHits converts chunk-level search results.
func PassageHits(results []domain.SearchResult) []Hit {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Document:  r.Document,
			Section:   r.Chunk.Section,
			Chunk:     r.Chunk.Index,
			Preview:   r.Chunk.Content,
			Score:     r.Score,
			Breakdown: r.Breakdown,
		})
	}
	return hits
}

// DocumentHits converts document-level rankings. Candidates without a
// document are skipped.
func DocumentHits(ranked []domain.RankedCandidate) []Hit {
	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		if r.Document == nil {
			continue
		}
		hit := Hit{
			Document:  *r.Document,
			Chunk:     -1,
			Score:     r.Score,
			Breakdown: r.Breakdown,
		}
		if r.Chunk != nil {
			hit.Section = r.Chunk.Section
			hit.Preview = r.Chunk.Content
		}
		hits = append(hits, hit)
	}
	return hits
}

// Hits is a navigable list of ranked hits. The selected row shows its
// score breakdown.
type Hits struct {
	styles   *styles.Styles
	items    []Hit
	cursor   int
	width    int
	height   int
	noun     string
	expanded bool
}

// NewHits creates an empty list. noun names the rows in the header,
// e.g. "passages".
func NewHits(s *styles.Styles, noun string) *Hits {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if noun == "" {
		noun = "results"
	}
	return &Hits{styles: s, noun: noun, width: 80, height: 10, expanded: true}
}

// Set replaces the rows and moves the cursor to the top.
func (h *Hits) Set(items []Hit, noun string) {
	h.items = items
	h.cursor = 0
	if noun != "" {
		h.noun = noun
	}
}

// Items returns the rows.
func (h *Hits) Items() []Hit { return h.items }

// Len returns the row count.
func (h *Hits) Len() int { return len(h.items) }

// Cursor returns the selected row index.
func (h *Hits) Cursor() int { return h.cursor }

// Current returns the selected row, or nil when the list is empty.
func (h *Hits) Current() *Hit {
	if h.cursor < 0 || h.cursor >= len(h.items) {
		return nil
	}
	return &h.items[h.cursor]
}

// Prev moves the cursor up.
func (h *Hits) Prev() {
	if h.cursor > 0 {
		h.cursor--
	}
}

// Next moves the cursor down.
func (h *Hits) Next() {
	if h.cursor < len(h.items)-1 {
		h.cursor++
	}
}

// ToggleBreakdown shows or hides the score breakdown of the selected row.
func (h *Hits) ToggleBreakdown() {
	h.expanded = !h.expanded
}

// BreakdownVisible reports whether the breakdown row is rendered.
func (h *Hits) BreakdownVisible() bool { return h.expanded }

// Resize sets the render area.
func (h *Hits) Resize(width, height int) {
	h.width = width
	h.height = height
}

// View renders the visible window of rows around the cursor.
func (h *Hits) View() string {
	if len(h.items) == 0 {
		return h.styles.Muted.Render("No " + h.noun)
	}

	var b strings.Builder
	b.WriteString(h.styles.Subtitle.Render(fmt.Sprintf("%d %s", len(h.items), h.noun)))
	b.WriteString("\n")

	rows := (h.height - 2) / 3
	if rows < 1 {
		rows = 1
	}
	first := 0
	if h.cursor >= rows {
		first = h.cursor - rows + 1
	}
	last := min(first+rows, len(h.items))

	for i := first; i < last; i++ {
		b.WriteString("\n")
		b.WriteString(h.renderRow(i))
	}
	return b.String()
}

func (h *Hits) renderRow(i int) string {
	hit := h.items[i]
	selected := i == h.cursor

	title := hit.Document.DisplayTitle()
	if title == "" {
		title = "(Untitled)"
	}
	titleWidth := max(h.width-14, 10)
	score := fmt.Sprintf("%5.2f", hit.Score)
	head := fmt.Sprintf("%-*s", titleWidth, clip(title, titleWidth))
	if selected {
		head = h.styles.Selected.Render("> " + head + " " + score)
	} else {
		head = h.styles.Normal.Render("  "+head) + " " + h.styles.Score(hit.Score).Render(score)
	}

	where := hit.Document.Type.String()
	if hit.IsPassage() {
		where += fmt.Sprintf(", chunk %d", hit.Chunk)
	}
	if hit.Section != "" {
		where += ", " + hit.Section
	}
	lines := []string{head, h.styles.Subtitle.Render("    " + where)}

	if hit.Preview != "" {
		flat := strings.Join(strings.Fields(hit.Preview), " ")
		lines = append(lines, h.styles.Muted.Render("    "+clip(flat, max(h.width-6, 20))))
	}
	if selected && h.expanded {
		lines = append(lines, h.styles.Muted.Render("    "+FormatBreakdown(hit.Breakdown)))
	}
	return strings.Join(lines, "\n")
}

// FormatBreakdown renders the four ranking signals on one line.
func FormatBreakdown(b domain.ScoreBreakdown) string {
	return fmt.Sprintf("semantic %.2f  keyword %.2f  type %.2f  fresh %.2f",
		b.Semantic, b.Keyword, b.TypeAffinity, b.Freshness)
}

// clip shortens s to n bytes, marking the cut with "...".
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return domain.Truncate(s, n-3) + "..."
}
