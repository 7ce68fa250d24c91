// Package chat provides the question and answer view for the TUI. Answers
// stream in token by token and finish with the documents they cite.
package chat

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// maxHistoryMessages bounds the history sent with each question.
const maxHistoryMessages = 20

var (
	// ErrNoChatService indicates that no chat service was provided.
	ErrNoChatService = errors.New("chat service is required")

	// ErrStreamClosed is reported when a stream ends without a terminal event.
	ErrStreamClosed = errors.New("answer stream ended unexpectedly")

	errCancelled = errors.New("cancelled")
)

// Turn is one question with its answer.
type Turn struct {
	Question  string
	Answer    string
	Citations []domain.Citation
	Cached    bool
	Err       error
	Done      bool
}

// View is the chat view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	statusbar *status.Bar

	chatService driving.ChatService
	ownerID     string
	ctx         context.Context
	cancel      context.CancelFunc

	turns     []Turn
	events    <-chan domain.ChatEvent
	streaming bool
	width     int
	height    int
	ready     bool
}

// NewView creates a chat view for one owner.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chatService driving.ChatService,
	ownerID string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		statusbar:   status.NewBar(s, km),
		chatService: chatService,
		ownerID:     ownerID,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
}

// WithContext sets the parent context for answer streams.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChatStarted:
		if !v.streaming {
			return v, nil
		}
		if msg.Err != nil {
			v.finish(msg.Err)
			return v, nil
		}
		v.events = msg.Events
		return v, waitForEvent(v.events)

	case messages.ChatEventReceived:
		return v, v.handleEvent(msg)

	case messages.ErrorOccurred:
		v.statusbar.Fail(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if v.streaming {
			v.Cancel()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if msg.Type == tea.KeyEnter {
		if v.streaming {
			return v, nil
		}
		question := v.input.Submit()
		if question == "" {
			return v, nil
		}
		return v, v.ask(question)
	}

	if v.streaming {
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask records a new turn and returns a command that opens its stream.
func (v *View) ask(question string) tea.Cmd {
	req := domain.ChatRequest{
		OwnerID:  v.ownerID,
		Question: question,
		History:  v.history(),
	}
	v.turns = append(v.turns, Turn{Question: question})
	v.streaming = true
	v.statusbar.Set(status.StateAnswering, "")

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	chatService := v.chatService

	return func() tea.Msg {
		if chatService == nil {
			return messages.ChatStarted{Question: question, Err: ErrNoChatService}
		}
		events, err := chatService.Answer(ctx, req)
		return messages.ChatStarted{Question: question, Events: events, Err: err}
	}
}

// history returns the completed turns as alternating user and assistant
// messages, newest last.
func (v *View) history() []domain.ChatTurn {
	var out []domain.ChatTurn
	for _, t := range v.turns {
		if !t.Done || t.Err != nil {
			continue
		}
		out = append(out,
			domain.ChatTurn{Role: domain.RoleUser, Content: t.Question},
			domain.ChatTurn{Role: domain.RoleAssistant, Content: t.Answer},
		)
	}
	if len(out) > maxHistoryMessages {
		out = out[len(out)-maxHistoryMessages:]
	}
	return out
}

// handleEvent folds one stream event into the current turn.
func (v *View) handleEvent(msg messages.ChatEventReceived) tea.Cmd {
	// events from a cancelled stream are dropped
	if !v.streaming || msg.Stream != v.events || len(v.turns) == 0 {
		return nil
	}
	current := &v.turns[len(v.turns)-1]

	if msg.Closed {
		if current.Done || current.Err != nil {
			v.finish(nil)
		} else {
			v.finish(ErrStreamClosed)
		}
		return nil
	}

	ev := msg.Event
	switch ev.Type {
	case domain.ChatEventContent:
		current.Answer += ev.Content
	case domain.ChatEventComplete:
		current.Answer = ev.Response
		current.Citations = ev.Citations
		current.Cached = ev.Cached
		current.Done = true
		v.finish(nil)
		return nil
	case domain.ChatEventError:
		v.finish(errors.New(ev.Error))
		return nil
	}

	return waitForEvent(v.events)
}

// waitForEvent returns a command that reads the next event from events.
func waitForEvent(events <-chan domain.ChatEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.ChatEventReceived{Stream: events, Closed: true}
		}
		return messages.ChatEventReceived{Stream: events, Event: ev}
	}
}

// finish ends the current stream, recording err on the turn if set.
func (v *View) finish(err error) {
	if len(v.turns) > 0 && err != nil {
		v.turns[len(v.turns)-1].Err = err
	}
	v.streaming = false
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.events = nil

	if err != nil {
		v.statusbar.Fail(err)
		return
	}
	v.statusbar.Set(status.StateIdle, "")
}

// Cancel aborts the answer being streamed.
func (v *View) Cancel() {
	if !v.streaming {
		return
	}
	v.finish(errCancelled)
}

// View renders the transcript, the question input and the status bar.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("Ask")
	if v.ownerID != "" {
		header += " " + v.styles.Muted.Render(v.ownerID)
	}

	sections := []string{header, ""}
	sections = append(sections, v.renderTranscript()...)
	sections = append(sections, "", v.input.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTranscript returns the tail of the conversation that fits the view.
func (v *View) renderTranscript() []string {
	if len(v.turns) == 0 {
		return []string{v.styles.Muted.Render("Ask anything about this property's documents.")}
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	var lines []string
	for i := range v.turns {
		t := &v.turns[i]
		lines = append(lines, v.styles.UserTurn.Render("You: ")+t.Question)

		answer := t.Answer
		if answer == "" && v.streaming && i == len(v.turns)-1 {
			answer = v.styles.Muted.Render("…")
		}
		if answer != "" {
			block := wrap.Render(v.styles.AssistantTurn.Render("Assistant: ") + answer)
			lines = append(lines, strings.Split(block, "\n")...)
		}
		if len(t.Citations) > 0 {
			lines = append(lines, v.renderCitations(t))
		}
		if t.Err != nil {
			lines = append(lines, v.styles.Error.Render("Error: "+t.Err.Error()))
		}
		lines = append(lines, "")
	}

	// header, input, status bar and spacing
	available := max(v.height-9, 3)
	if len(lines) > available {
		lines = lines[len(lines)-available:]
	}
	return lines
}

func (v *View) renderCitations(t *Turn) string {
	names := make([]string, 0, len(t.Citations))
	for _, c := range t.Citations {
		names = append(names, v.styles.Citation.Render(c.Title))
	}
	line := "Sources: " + strings.Join(names, ", ")
	if t.Cached {
		line += v.styles.Muted.Render(" (cached)")
	}
	return v.styles.Muted.Render(line)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.Resize(width)
}

// Turns returns the conversation so far.
func (v *View) Turns() []Turn {
	return v.turns
}

// Streaming reports whether an answer is in flight.
func (v *View) Streaming() bool {
	return v.streaming
}

// Question returns the text currently in the input.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the input text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Reset clears the conversation.
func (v *View) Reset() {
	v.Cancel()
	v.turns = nil
	v.input.Reset()
	v.statusbar.Reset()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}
