// Package templates serves the built-in starter proposals.
package templates

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nurpe/proposals/internal/model"
)

const dateLayout = "2006-01-02"

//go:embed templates.yaml
var builtin []byte

type pricingEntry struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	UnitPrice float64 `yaml:"unitPrice"`
	Quantity  int     `yaml:"quantity"`
}

type entry struct {
	ID          int64          `yaml:"id"`
	ClientName  string         `yaml:"clientName"`
	Services    []string       `yaml:"services"`
	Pricing     []pricingEntry `yaml:"pricing"`
	StartInDays int            `yaml:"startInDays"`
	EndInDays   int            `yaml:"endInDays"`
	Notes       string         `yaml:"notes"`
}

type Catalog struct {
	entries []entry
}

func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

func Parse(data []byte) (*Catalog, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, e := range entries {
		if len(e.Services) == 0 || len(e.Pricing) == 0 {
			return nil, fmt.Errorf("template %d: services and pricing must not be empty", e.ID)
		}
	}
	return &Catalog{entries: entries}, nil
}

// At materialises the templates with dates relative to now. Totals are always
// the sum of the line totals.
func (c *Catalog) At(now time.Time) []model.ProposalTemplate {
	result := make([]model.ProposalTemplate, 0, len(c.entries))
	for _, e := range c.entries {
		pricing := make([]model.PricingItem, 0, len(e.Pricing))
		for _, p := range e.Pricing {
			pricing = append(pricing, model.PricingItem{
				ID:        p.ID,
				Name:      p.Name,
				UnitPrice: p.UnitPrice,
				Quantity:  p.Quantity,
			})
		}
		result = append(result, model.ProposalTemplate{
			ID:          e.ID,
			ClientName:  e.ClientName,
			Services:    append([]string(nil), e.Services...),
			Pricing:     pricing,
			StartDate:   now.AddDate(0, 0, e.StartInDays).Format(dateLayout),
			EndDate:     now.AddDate(0, 0, e.EndInDays).Format(dateLayout),
			Notes:       e.Notes,
			TotalAmount: model.SumLineTotals(pricing),
		})
	}
	return result
}
