package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func TestSignificantTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"What are the HOA dues?", []string{"hoa", "dues"}},
		{"Is there any termite damage? termite!", []string{"termite", "damage"}},
		{"Tell me about the CC&Rs", []string{"cc&rs"}},
		{"a I x", []string{}},
		{"", []string{}},
		{"Roof's age", []string{"roof's", "age"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, significantTerms(tt.query))
		})
	}
}

func TestBigrams(t *testing.T) {
	assert.Nil(t, bigrams([]string{"roof"}))
	assert.Equal(t, []string{"roof leak", "leak repair"}, bigrams([]string{"roof", "leak", "repair"}))
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		text  string
		want  float64
	}{
		{"no terms", nil, "anything", 0},
		{"empty text", []string{"roof"}, "", 0},
		{"single exact", []string{"roof"}, "The roof is new.", 1.0},
		{"single substring only", []string{"roof"}, "Waterproofing applied.", 0.7},
		{"single miss", []string{"roof"}, "Foundation cracks.", 0},
		{"phrase hit", []string{"water", "heater"}, "The water   heater leaks.", 1.0},
		{"terms without phrase", []string{"water", "heater"}, "Heater fine; water pressure low.", 0.7},
		{"half the terms", []string{"roof", "chimney"}, "Roof shingles curling.", 0.5*0.5 + 0.2*0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, keywordScore(tt.terms, tt.text), 1e-9)
		})
	}
}

func TestTypeAffinityScore(t *testing.T) {
	assert.Equal(t, 1.0, typeAffinityScore([]string{"termite"}, domain.DocumentTypePestInspection))
	assert.Equal(t, 0.0, typeAffinityScore([]string{"termite"}, domain.DocumentTypeHOA))
	assert.Equal(t, 1.0, typeAffinityScore([]string{"monthly", "dues"}, domain.DocumentTypeHOA))
	assert.Equal(t, 1.0, typeAffinityScore([]string{"foundation"}, domain.DocumentTypeSellerDisclosure))
	assert.Equal(t, 0.0, typeAffinityScore(nil, domain.DocumentTypeHOA))
}
