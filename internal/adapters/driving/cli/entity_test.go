package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func TestParseEntities(t *testing.T) {
	t.Run("single property", func(t *testing.T) {
		entities, err := parseEntities([]byte(`
id: p-123
address: 12 Elm St, Springfield
facts:
  bedrooms: "3"
  year_built: "1978"
valuation:
  estimate: 850000
  low: 800000
  high: 900000
  as_of: 2024-05-01T00:00:00Z
  source: county
`))

		require.NoError(t, err)
		require.Len(t, entities, 1)
		e := entities[0]
		assert.Equal(t, "p-123", e.ID)
		assert.Equal(t, "12 Elm St, Springfield", e.Address)
		assert.Equal(t, "1978", e.Facts["year_built"])
		require.NotNil(t, e.Valuation)
		assert.Equal(t, 850000.0, e.Valuation.Estimate)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), e.Valuation.AsOf.UTC())
	})

	t.Run("list of properties", func(t *testing.T) {
		entities, err := parseEntities([]byte(`
- id: p-1
  address: 1 Oak Ave
- id: p-2
  address: 2 Oak Ave
`))

		require.NoError(t, err)
		require.Len(t, entities, 2)
		assert.Equal(t, "p-2", entities[1].ID)
	})

	t.Run("multiple documents", func(t *testing.T) {
		entities, err := parseEntities([]byte("id: p-1\naddress: 1 Oak Ave\n---\n- id: p-2\n- id: p-3\n"))

		require.NoError(t, err)
		require.Len(t, entities, 3)
		assert.Equal(t, []string{"p-1", "p-2", "p-3"}, []string{entities[0].ID, entities[1].ID, entities[2].ID})
	})

	t.Run("empty input", func(t *testing.T) {
		entities, err := parseEntities(nil)

		require.NoError(t, err)
		assert.Empty(t, entities)
	})

	t.Run("malformed YAML", func(t *testing.T) {
		_, err := parseEntities([]byte("id: [unterminated"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing YAML")
	})
}

func TestEntityImportCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "props.yaml", "- id: p-1\n  address: 1 Oak Ave\n- id: p-2\n  address: 2 Oak Ave\n")

	out, err := execute(t, "entity", "import", path)

	require.NoError(t, err)
	updated := entityService.(*mockEntityService).updated
	require.Len(t, updated, 2)
	assert.Equal(t, "p-1", updated[0].ID)
	assert.Contains(t, out, "Imported p-2 (2 Oak Ave)")
}

func TestEntityImportCmd_EmptyFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "empty.yaml", "")

	_, err := execute(t, "entity", "import", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no properties found")
}

func TestEntityImportCmd_UpdateError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	entityService = &mockEntityService{err: domain.ErrInvalidInput}
	path := writeTempFile(t, "props.yaml", "id: p-1\n")

	_, err := execute(t, "entity", "import", path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEntityShowCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	entityService.(*mockEntityService).entity.Valuation = &domain.Valuation{
		Estimate: 850000, Low: 800000, High: 900000,
		AsOf: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	out, err := execute(t, "property", "show", "p1")

	require.NoError(t, err)
	assert.Contains(t, out, "Property: p1")
	assert.Contains(t, out, "Address: 12 Elm St")
	assert.Contains(t, out, "bedrooms: 3")
	assert.Contains(t, out, "Valuation: 850000 (800000 - 900000) as of 2024-05-01")
	assert.Contains(t, out, "Context:")
}

func TestEntityShowCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	entityService = &mockEntityService{err: errors.New("entity not found")}

	_, err := execute(t, "entity", "show", "p9")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get property")
}
