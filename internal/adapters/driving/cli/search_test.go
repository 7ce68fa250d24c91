package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [owner-id] [query]", searchCmd.Use)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "semantic similarity")
	assert.Contains(t, searchCmd.Long, "--documents")
}

func TestSearchCmd_RequiresOwnerAndQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "roof")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "p1", "roof age")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Inspection 2024 (0.81)")
	assert.Contains(t, out, "Home Inspection Report, chunk 2, Roof")
	assert.Contains(t, out, "The roof shows granule loss.")

	mock := searchService.(*mockSearchService)
	assert.Equal(t, "p1", mock.lastOwner)
	assert.Equal(t, "roof age", mock.lastQuery)
	assert.Equal(t, 10, mock.lastTopK)
}

func TestSearchCmd_ExecutesWithShortLimitFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "-n", "5", "p1", "roof")

	require.NoError(t, err)
	assert.Equal(t, 5, searchService.(*mockSearchService).lastTopK)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "--json", "p1", "roof")

	require.NoError(t, err)
	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.Equal(t, "Home Inspection Report", results[0].DocumentType)
	assert.Equal(t, 2, results[0].ChunkIndex)
}

func TestSearchCmd_Documents(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "--documents", "p1", "roof")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:")
	assert.Contains(t, out, "[1] Inspection 2024 (0.70)")
}

func TestSearchCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchService = &mockSearchService{}

	out, err := execute(t, "search", "p1", "pool")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "a b c", previewText("a\n  b\tc", 10))
	assert.Equal(t, "abc...", previewText("abcdef", 3))
	long := strings.Repeat("é", 20)
	assert.Equal(t, strings.Repeat("é", 5)+"...", previewText(long, 5))
}
