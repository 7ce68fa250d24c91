package domain

import "time"

// Entity is the owning record documents are scoped to, typically a property.
type Entity struct {
	ID        string            `yaml:"id" json:"id"`
	Address   string            `yaml:"address" json:"address"`
	Facts     map[string]string `yaml:"facts" json:"facts"`
	Valuation *Valuation        `yaml:"valuation,omitempty" json:"valuation,omitempty"`
	UpdatedAt time.Time         `yaml:"-" json:"updatedAt"`
}

// Valuation is an estimated market value range.
type Valuation struct {
	Estimate float64   `yaml:"estimate" json:"estimate"`
	Low      float64   `yaml:"low" json:"low"`
	High     float64   `yaml:"high" json:"high"`
	AsOf     time.Time `yaml:"as_of" json:"asOf"`
	Source   string    `yaml:"source" json:"source"`
}
