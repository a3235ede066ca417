package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type PricingItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// LineTotal is unit price times quantity, rounded to cents.
func (i PricingItem) LineTotal() float64 {
	total := decimal.NewFromFloat(i.UnitPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
	return total.Round(2).InexactFloat64()
}

type Proposal struct {
	ID          int64         `json:"id"`
	ClientName  string        `json:"clientName"`
	Services    []string      `json:"services"`
	Pricing     []PricingItem `json:"pricing"`
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Notes       string        `json:"notes"`
	TotalAmount float64       `json:"totalAmount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ProposalInput is everything a caller may write. ID and CreatedAt belong to the store.
type ProposalInput struct {
	ClientName  string
	Services    []string
	Pricing     []PricingItem
	StartDate   string
	EndDate     string
	Notes       string
	TotalAmount float64
}

// ProposalPatch replaces every non-nil field. Pricing is replaced as a whole.
type ProposalPatch struct {
	ClientName  *string
	Services    []string
	Pricing     []PricingItem
	StartDate   *string
	EndDate     *string
	Notes       *string
	TotalAmount *float64
}

// FullPatch turns a complete input into a patch that overwrites every field.
func (in ProposalInput) FullPatch() ProposalPatch {
	return ProposalPatch{
		ClientName:  &in.ClientName,
		Services:    in.Services,
		Pricing:     in.Pricing,
		StartDate:   &in.StartDate,
		EndDate:     &in.EndDate,
		Notes:       &in.Notes,
		TotalAmount: &in.TotalAmount,
	}
}

func (p Proposal) Apply(patch ProposalPatch) Proposal {
	if patch.ClientName != nil {
		p.ClientName = *patch.ClientName
	}
	if patch.Services != nil {
		p.Services = slices.Clone(patch.Services)
	}
	if patch.Pricing != nil {
		p.Pricing = slices.Clone(patch.Pricing)
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = *patch.EndDate
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.TotalAmount != nil {
		p.TotalAmount = *patch.TotalAmount
	}
	return p
}

// Clone returns a copy that shares no slices with p.
func (p Proposal) Clone() Proposal {
	p.Services = slices.Clone(p.Services)
	p.Pricing = slices.Clone(p.Pricing)
	return p
}

// SumLineTotals adds up the line totals of items.
func SumLineTotals(items []PricingItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}

// NewProposal builds a record from input. The caller assigns ID and CreatedAt.
func NewProposal(input ProposalInput) Proposal {
	return Proposal{
		ClientName:  input.ClientName,
		Services:    slices.Clone(input.Services),
		Pricing:     slices.Clone(input.Pricing),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Notes:       input.Notes,
		TotalAmount: input.TotalAmount,
	}
}
