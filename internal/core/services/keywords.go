package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again all am an and any are as at be because been
		before being below between both but by can could did do does doing down during each few for from
		further had has have having he her here hers him his how i if in into is it its itself just me more
		most my no nor not of off on once only or other our ours out over own same she should so some such
		than that the their theirs them then there these they this those through to too under until up very
		was we were what when where which while who whom why will with would you your yours tell show give
		find know please any anything there's what's`) {
		stopWords[w] = struct{}{}
	}
}

// significantTerms lowercases the query, splits it into words and drops
// stop words and single characters. Order is preserved; duplicates are removed.
func significantTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&' && r != '\''
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// bigrams returns adjacent pairs of significant terms as phrases.
func bigrams(terms []string) []string {
	if len(terms) < 2 {
		return nil
	}
	out := make([]string, 0, len(terms)-1)
	for i := 0; i+1 < len(terms); i++ {
		out = append(out, terms[i]+" "+terms[i+1])
	}
	return out
}

// keywordScore measures how much of the query appears in text, in [0,1].
// Substring hits give partial credit, whole-word hits a bonus, and
// adjacent-term phrase hits the larger bonus.
func keywordScore(terms []string, text string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	normalized := strings.Join(strings.Fields(lower), " ")

	var substr, exact int
	for _, t := range terms {
		if strings.Contains(lower, t) {
			substr++
			if wordBoundary(t).MatchString(lower) {
				exact++
			}
		}
	}
	n := float64(len(terms))
	substrFrac, exactFrac := float64(substr)/n, float64(exact)/n

	phrases := bigrams(terms)
	if len(phrases) == 0 {
		return 0.7*substrFrac + 0.3*exactFrac
	}
	var hits int
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			hits++
		}
	}
	return 0.5*substrFrac + 0.2*exactFrac + 0.3*float64(hits)/float64(len(phrases))
}

func wordBoundary(term string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(term) + `($|[^\p{L}\p{N}])`)
}

// typeAffinity maps query-intent keywords to the document types that
// usually answer them.
var typeAffinity = map[string][]domain.DocumentType{
	"termite":     {domain.DocumentTypePestInspection},
	"termites":    {domain.DocumentTypePestInspection},
	"pest":        {domain.DocumentTypePestInspection},
	"fungus":      {domain.DocumentTypePestInspection},
	"dry":         {domain.DocumentTypePestInspection},
	"rot":         {domain.DocumentTypePestInspection},
	"wood":        {domain.DocumentTypePestInspection},
	"fumigation":  {domain.DocumentTypePestInspection},
	"roof":        {domain.DocumentTypeHomeInspection},
	"foundation":  {domain.DocumentTypeHomeInspection, domain.DocumentTypeSellerDisclosure},
	"plumbing":    {domain.DocumentTypeHomeInspection},
	"electrical":  {domain.DocumentTypeHomeInspection},
	"hvac":        {domain.DocumentTypeHomeInspection},
	"furnace":     {domain.DocumentTypeHomeInspection},
	"inspection":  {domain.DocumentTypeHomeInspection, domain.DocumentTypePestInspection},
	"repair":      {domain.DocumentTypeHomeInspection, domain.DocumentTypeSellerDisclosure},
	"repairs":     {domain.DocumentTypeHomeInspection, domain.DocumentTypeSellerDisclosure},
	"defect":      {domain.DocumentTypeHomeInspection},
	"defects":     {domain.DocumentTypeHomeInspection},
	"hoa":         {domain.DocumentTypeHOA},
	"dues":        {domain.DocumentTypeHOA},
	"assessment":  {domain.DocumentTypeHOA},
	"reserve":     {domain.DocumentTypeHOA},
	"reserves":    {domain.DocumentTypeHOA},
	"cc&rs":       {domain.DocumentTypeHOA},
	"bylaws":      {domain.DocumentTypeHOA},
	"cost":        {domain.DocumentTypePestInspection, domain.DocumentTypeHOA, domain.DocumentTypeHomeInspection},
	"costs":       {domain.DocumentTypePestInspection, domain.DocumentTypeHOA, domain.DocumentTypeHomeInspection},
	"price":       {domain.DocumentTypePurchaseAgreement, domain.DocumentTypeAppraisal},
	"disclosure":  {domain.DocumentTypeSellerDisclosure, domain.DocumentTypeNaturalHazard},
	"disclosed":   {domain.DocumentTypeSellerDisclosure},
	"seller":      {domain.DocumentTypeSellerDisclosure},
	"leak":        {domain.DocumentTypeSellerDisclosure, domain.DocumentTypeHomeInspection},
	"flood":       {domain.DocumentTypeNaturalHazard, domain.DocumentTypeSellerDisclosure},
	"earthquake":  {domain.DocumentTypeNaturalHazard},
	"fire":        {domain.DocumentTypeNaturalHazard},
	"hazard":      {domain.DocumentTypeNaturalHazard},
	"zone":        {domain.DocumentTypeNaturalHazard},
	"title":       {domain.DocumentTypeTitleReport},
	"lien":        {domain.DocumentTypeTitleReport},
	"liens":       {domain.DocumentTypeTitleReport},
	"easement":    {domain.DocumentTypeTitleReport},
	"easements":   {domain.DocumentTypeTitleReport},
	"appraisal":   {domain.DocumentTypeAppraisal},
	"appraised":   {domain.DocumentTypeAppraisal},
	"value":       {domain.DocumentTypeAppraisal},
	"valuation":   {domain.DocumentTypeAppraisal},
	"comparables": {domain.DocumentTypeAppraisal},
	"contract":    {domain.DocumentTypePurchaseAgreement},
	"contingency": {domain.DocumentTypePurchaseAgreement},
	"escrow":      {domain.DocumentTypePurchaseAgreement},
	"closing":     {domain.DocumentTypePurchaseAgreement},
	"deposit":     {domain.DocumentTypePurchaseAgreement},
}

// typeAffinityScore returns 1 when any query term points at docType.
func typeAffinityScore(terms []string, docType domain.DocumentType) float64 {
	for _, t := range terms {
		for _, candidate := range typeAffinity[t] {
			if candidate == docType {
				return 1
			}
		}
	}
	return 0
}
