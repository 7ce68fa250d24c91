// Package sections labels chunks with a heuristic section derived from
// domain keywords for the owning document's type.
package sections

import (
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// DefaultLabel is assigned when no keyword matches.
const DefaultLabel = "General"

// rule maps a section label to the keywords that indicate it.
type rule struct {
	label    string
	keywords []string
}

// table holds per-type rules in priority order; earlier rules win ties.
var table = map[domain.DocumentType][]rule{
	domain.DocumentTypeHomeInspection: {
		{"Roof", []string{"roof", "shingle", "gutter", "flashing", "chimney", "skylight"}},
		{"Foundation", []string{"foundation", "crawlspace", "crawl space", "slab", "settlement", "pier", "cripple wall"}},
		{"Electrical", []string{"electrical", "panel", "breaker", "wiring", "outlet", "gfci", "circuit"}},
		{"Plumbing", []string{"plumbing", "water heater", "pipe", "drain", "leak", "faucet", "sewer"}},
		{"HVAC", []string{"hvac", "furnace", "air conditioning", "heating", "ductwork", "thermostat"}},
		{"Exterior", []string{"siding", "deck", "driveway", "fence", "grading", "stucco"}},
		{"Interior", []string{"ceiling", "floor", "wall", "window", "door", "stair"}},
		{"Safety", []string{"smoke detector", "carbon monoxide", "hazard", "trip", "railing"}},
	},
	domain.DocumentTypePestInspection: {
		{"Termites", []string{"termite", "subterranean", "drywood", "wood destroying", "frass", "swarm"}},
		{"Fungus/Dry Rot", []string{"fungus", "dry rot", "decay", "mold", "wood rot"}},
		{"Moisture", []string{"moisture", "excessive moisture", "leak", "water damage", "condensation"}},
		{"Treatment", []string{"fumigation", "treatment", "tent", "chemical", "bait"}},
		{"Cost Estimate", []string{"cost", "estimate", "bid", "price", "$"}},
		{"Recommendations", []string{"section 1", "section 2", "recommend", "further inspection"}},
	},
	domain.DocumentTypeSellerDisclosure: {
		{"Structural", []string{"structural", "foundation", "crack", "settling"}},
		{"Water Intrusion", []string{"flood", "water intrusion", "leak", "drainage", "sump"}},
		{"Environmental", []string{"asbestos", "lead", "radon", "mold", "environmental"}},
		{"Repairs", []string{"repair", "remodel", "permit", "addition", "renovation"}},
		{"Neighborhood", []string{"neighbor", "noise", "nuisance", "neighborhood"}},
		{"Legal", []string{"lawsuit", "lien", "litigation", "dispute", "easement"}},
	},
	domain.DocumentTypeHOA: {
		{"Fees & Assessments", []string{"dues", "assessment", "fee", "special assessment", "monthly"}},
		{"Reserves & Budget", []string{"reserve", "budget", "reserve study", "balance", "funding"}},
		{"Rules & CC&Rs", []string{"cc&r", "bylaw", "rule", "restriction", "pet", "rental"}},
		{"Insurance", []string{"insurance", "master policy", "coverage", "liability"}},
		{"Litigation", []string{"litigation", "lawsuit", "claim", "dispute"}},
		{"Meetings", []string{"minutes", "board", "meeting", "vote"}},
	},
	domain.DocumentTypeTitleReport: {
		{"Vesting", []string{"vesting", "vested", "owner of record", "grant deed"}},
		{"Liens", []string{"lien", "deed of trust", "judgment", "mortgage", "tax"}},
		{"Easements", []string{"easement", "right of way", "access"}},
		{"Exceptions", []string{"exception", "exclusion", "schedule b", "requirement"}},
	},
	domain.DocumentTypeAppraisal: {
		{"Valuation", []string{"appraised value", "market value", "opinion of value", "reconciliation"}},
		{"Comparables", []string{"comparable", "comp", "sale price", "adjustment"}},
		{"Property Description", []string{"square feet", "gross living area", "bedroom", "bathroom", "lot size", "condition"}},
		{"Market Conditions", []string{"market", "trend", "days on market", "supply"}},
	},
	domain.DocumentTypeNaturalHazard: {
		{"Flood", []string{"flood", "fema", "flood zone", "inundation", "dam"}},
		{"Fire", []string{"fire", "wildfire", "fire hazard", "very high fire"}},
		{"Seismic", []string{"earthquake", "seismic", "fault", "liquefaction", "landslide"}},
		{"Environmental", []string{"airport", "noise", "superfund", "radon", "environmental"}},
	},
	domain.DocumentTypePurchaseAgreement: {
		{"Price & Terms", []string{"purchase price", "deposit", "down payment", "financing", "loan"}},
		{"Contingencies", []string{"contingency", "contingencies", "inspection", "appraisal", "removal"}},
		{"Closing", []string{"close of escrow", "closing", "escrow", "possession"}},
		{"Disclosures", []string{"disclosure", "as-is", "addendum", "acknowledge"}},
	},
}

// Classifier is the keyword-table SectionClassifier.
type Classifier struct{}

// Verify interface compliance.
var _ driven.SectionClassifier = (*Classifier)(nil)

// NewClassifier creates a keyword-table classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the label whose keywords occur most often in text,
// or DefaultLabel when none occur.
func (c *Classifier) Classify(text string, docType domain.DocumentType) string {
	rules, ok := table[docType]
	if !ok {
		return DefaultLabel
	}

	lower := strings.ToLower(text)
	best, bestScore := DefaultLabel, 0
	for _, r := range rules {
		score := 0
		for _, kw := range r.keywords {
			score += strings.Count(lower, kw)
		}
		if score > bestScore {
			best, bestScore = r.label, score
		}
	}
	return best
}

// Labels returns the section labels known for a document type.
func Labels(docType domain.DocumentType) []string {
	rules := table[docType]
	labels := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		labels = append(labels, r.label)
	}
	return append(labels, DefaultLabel)
}
