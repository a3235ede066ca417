package model

// ProposalTemplate is a starter proposal. Dates are filled in relative to the day it is served.
type ProposalTemplate struct {
	ID          int64         `json:"id"`
	ClientName  string        `json:"clientName"`
	Services    []string      `json:"services"`
	Pricing     []PricingItem `json:"pricing"`
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Notes       string        `json:"notes"`
	TotalAmount float64       `json:"totalAmount"`
}
