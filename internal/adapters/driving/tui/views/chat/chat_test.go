package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/core/domain"
)

type mockChatService struct {
	events []domain.ChatEvent
	err    error
	reqs   []domain.ChatRequest
	ctx    context.Context
}

func (m *mockChatService) Answer(ctx context.Context, req domain.ChatRequest) (<-chan domain.ChatEvent, error) {
	m.reqs = append(m.reqs, req)
	m.ctx = ctx
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.ChatEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func answerEvents() []domain.ChatEvent {
	return []domain.ChatEvent{
		{Type: domain.ChatEventContent, Content: "Per Home Inspection, "},
		{Type: domain.ChatEventContent, Content: "the roof is 18 years old."},
		{
			Type:     domain.ChatEventComplete,
			Response: "Per Home Inspection, the roof is 18 years old.",
			Citations: []domain.Citation{{
				DocumentID: "doc-1",
				Title:      "Home Inspection",
				Spans:      []domain.Span{{Start: 4, End: 19}},
			}},
		},
	}
}

func newView(chat *mockChatService) *View {
	view := NewView(nil, nil, chat, "p-1")
	view.SetDimensions(100, 40)
	return view
}

// drive runs cmd and feeds every resulting message back until the view
// stops producing commands.
func drive(t *testing.T, view *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "stream did not terminate")
		_, cmd = view.Update(cmd())
	}
}

func submit(t *testing.T, view *View, question string) {
	t.Helper()
	view.SetQuestion(question)
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, view.Streaming())
	drive(t, view, cmd)
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil, "p-1")

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.False(t, view.Ready())
	assert.False(t, view.Streaming())
	assert.NotNil(t, view.Init())
	assert.Equal(t, "Initialising...", view.View())
}

func TestView_Ask_StreamsToCompletion(t *testing.T) {
	chat := &mockChatService{events: answerEvents()}
	view := newView(chat)

	submit(t, view, "  How old is the roof?  ")

	require.Len(t, chat.reqs, 1)
	assert.Equal(t, "p-1", chat.reqs[0].OwnerID)
	assert.Equal(t, "How old is the roof?", chat.reqs[0].Question)
	assert.Empty(t, chat.reqs[0].History)

	require.Len(t, view.Turns(), 1)
	turn := view.Turns()[0]
	assert.True(t, turn.Done)
	assert.NoError(t, turn.Err)
	assert.Equal(t, "Per Home Inspection, the roof is 18 years old.", turn.Answer)
	require.Len(t, turn.Citations, 1)
	assert.False(t, view.Streaming())
	assert.Equal(t, "", view.Question())
	require.Error(t, chat.ctx.Err(), "stream context is released after completion")

	output := view.View()
	assert.Contains(t, output, "You: How old is the roof?")
	assert.Contains(t, output, "the roof is 18 years old.")
	assert.Contains(t, output, "Sources: ")
	assert.Contains(t, output, "Home Inspection")
}

func TestView_Ask_PartialContentIsShown(t *testing.T) {
	chat := &mockChatService{events: answerEvents()}
	view := newView(chat)
	view.SetQuestion("roof?")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd = view.Update(cmd()) // ChatStarted
	_, cmd = view.Update(cmd()) // first content event

	require.NotNil(t, cmd)
	assert.True(t, view.Streaming())
	assert.Equal(t, "Per Home Inspection, ", view.Turns()[0].Answer)
	assert.Contains(t, view.View(), "Answering")
}

func TestView_Ask_SendsHistory(t *testing.T) {
	chat := &mockChatService{events: answerEvents()}
	view := newView(chat)

	submit(t, view, "How old is the roof?")
	submit(t, view, "And the furnace?")

	require.Len(t, chat.reqs, 2)
	assert.Equal(t, []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "How old is the roof?"},
		{Role: domain.RoleAssistant, Content: "Per Home Inspection, the roof is 18 years old."},
	}, chat.reqs[1].History)
}

func TestView_History_SkipsFailedAndBounds(t *testing.T) {
	view := newView(nil)
	for i := 0; i < 15; i++ {
		view.turns = append(view.turns, Turn{Question: "q", Answer: "a", Done: true})
	}
	view.turns = append(view.turns, Turn{Question: "failed", Err: errors.New("x")})

	history := view.history()

	assert.Len(t, history, maxHistoryMessages)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	for _, turn := range history {
		assert.NotEqual(t, "failed", turn.Content)
	}
}

func TestView_Ask_ErrorEvent(t *testing.T) {
	chat := &mockChatService{events: []domain.ChatEvent{
		{Type: domain.ChatEventContent, Content: "partial"},
		{Type: domain.ChatEventError, Error: "generation stream failed"},
	}}
	view := newView(chat)

	submit(t, view, "roof?")

	turn := view.Turns()[0]
	require.Error(t, turn.Err)
	assert.False(t, turn.Done)
	assert.Contains(t, view.View(), "Error: generation stream failed")
}

func TestView_Ask_SynchronousError(t *testing.T) {
	chat := &mockChatService{err: domain.ErrLLMUnavailable}
	view := newView(chat)

	submit(t, view, "roof?")

	assert.ErrorIs(t, view.Turns()[0].Err, domain.ErrLLMUnavailable)
	assert.False(t, view.Streaming())
}

func TestView_Ask_NoService(t *testing.T) {
	view := NewView(nil, nil, nil, "p-1")
	view.SetDimensions(80, 24)

	submit(t, view, "roof?")

	assert.ErrorIs(t, view.Turns()[0].Err, ErrNoChatService)
}

func TestView_Ask_StreamClosedEarly(t *testing.T) {
	chat := &mockChatService{events: []domain.ChatEvent{{Type: domain.ChatEventContent, Content: "partial"}}}
	view := newView(chat)

	submit(t, view, "roof?")

	assert.ErrorIs(t, view.Turns()[0].Err, ErrStreamClosed)
}

func TestView_Ask_CachedMarker(t *testing.T) {
	events := answerEvents()
	events[2].Cached = true
	view := newView(&mockChatService{events: events})

	submit(t, view, "roof?")

	assert.Contains(t, view.View(), "(cached)")
}

func TestView_EmptyQuestionIgnored(t *testing.T) {
	view := newView(&mockChatService{})
	view.SetQuestion("   ")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, view.Turns())
}

func TestView_Esc_CancelsStream(t *testing.T) {
	chat := &mockChatService{events: answerEvents()}
	view := newView(chat)
	view.SetQuestion("roof?")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, next := view.Update(cmd()) // stream open, first read pending
	require.NotNil(t, next)

	_, escCmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, escCmd)
	assert.False(t, view.Streaming())
	assert.Error(t, chat.ctx.Err())

	// a late event from the cancelled stream is dropped
	_, after := view.Update(next())
	assert.Nil(t, after)
	assert.Equal(t, "", view.Turns()[0].Answer)
}

func TestView_Esc_BackToMenu(t *testing.T) {
	view := newView(&mockChatService{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewMenu, changed.View)
}

func TestView_TypingIgnoredWhileStreaming(t *testing.T) {
	view := newView(&mockChatService{events: answerEvents()})
	view.SetQuestion("roof?")
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})

	assert.Equal(t, "", view.Question())
}

func TestView_ContextPropagation(t *testing.T) {
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("k"), "v")
	chat := &mockChatService{events: answerEvents()}
	view := newView(chat).WithContext(ctx)

	submit(t, view, "roof?")

	assert.Equal(t, "v", chat.ctx.Value(contextKey("k")))
}

func TestView_Reset(t *testing.T) {
	view := newView(&mockChatService{events: answerEvents()})
	submit(t, view, "roof?")

	view.Reset()

	assert.Empty(t, view.Turns())
	assert.Contains(t, view.View(), "Ask anything")
}

func TestView_Transcript_KeepsTail(t *testing.T) {
	view := NewView(nil, nil, nil, "p-1")
	view.SetDimensions(80, 12) // three transcript lines
	for _, q := range []string{"first", "second", "third"} {
		view.turns = append(view.turns, Turn{Question: q, Answer: "ok", Done: true})
	}

	lines := view.renderTranscript()

	assert.Len(t, lines, 3)
	assert.NotContains(t, view.View(), "first")
	assert.Contains(t, view.View(), "ok")
}
