package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateIdle, bar.State())
	assert.Empty(t, bar.Note())
	assert.Contains(t, bar.View(), "Ready")
}

func TestNewBar_NilDependencies(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keys)
}

func TestBar_Labels(t *testing.T) {
	tests := []struct {
		name  string
		state State
		note  string
		want  string
	}{
		{"idle", StateIdle, "", "Ready"},
		{"idle note", StateIdle, "Processed doc-1", "Processed doc-1"},
		{"searching", StateSearching, "", "Searching..."},
		{"answering", StateAnswering, "", "Answering..."},
		{"failed", StateFailed, "", "Error"},
		{"failed note", StateFailed, "index offline", "Error: index offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.Resize(120)
			bar.Set(tt.state, tt.note)

			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestBar_Fail(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.Resize(120)

	bar.Fail(errors.New("stream closed"))

	assert.Equal(t, StateFailed, bar.State())
	assert.Equal(t, "stream closed", bar.Note())
	assert.Contains(t, bar.View(), "Error: stream closed")
}

func TestBar_ResultsShowCountAndHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.Resize(160)

	bar.SetCount(3, "passages")
	bar.Set(StateResults, "")

	out := bar.View()
	assert.Equal(t, 3, bar.Count())
	assert.Contains(t, out, "3 passages")
	assert.Contains(t, out, "tab passages/documents")
	assert.Contains(t, out, "b score breakdown")
}

func TestBar_AnsweringHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.Resize(120)

	bar.Set(StateAnswering, "")

	out := bar.View()
	assert.Contains(t, out, "esc back")
	assert.NotContains(t, out, "q quit")
}

func TestBar_IdleHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.Resize(120)

	assert.Contains(t, bar.View(), "q quit")
}

func TestBar_Reset(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.Resize(100)
	bar.SetCount(4, "documents")
	bar.Fail(errors.New("boom"))

	bar.Reset()

	assert.Equal(t, StateIdle, bar.State())
	assert.Empty(t, bar.Note())
	assert.Equal(t, 0, bar.Count())
	assert.Equal(t, 100, bar.width)
}
