// Package validation enforces the structural contract of a proposal payload
// before it reaches the store.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nurpe/proposals/internal/model"
)

var ErrInvalid = errors.New("validation error")

// PricingItemRequest mirrors model.PricingItem with presence tracking.
type PricingItemRequest struct {
	ID        *string  `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	UnitPrice *float64 `json:"unitPrice" validate:"required,gte=0"`
	Quantity  *float64 `json:"quantity" validate:"required,whole,gte=1,lte=2147483647"`
}

// ProposalRequest is the inbound payload for create and update.
// Client supplied id and createdAt are ignored.
type ProposalRequest struct {
	ClientName  string               `json:"clientName" validate:"required"`
	Services    []string             `json:"services" validate:"min=1,dive,required"`
	Pricing     []PricingItemRequest `json:"pricing" validate:"min=1,unique=ID,dive"`
	StartDate   string               `json:"startDate" validate:"required"`
	EndDate     string               `json:"endDate" validate:"required"`
	Notes       *string              `json:"notes"`
	TotalAmount *float64             `json:"totalAmount" validate:"required"`
}

type Issue struct {
	Path    string
	Message string
}

// Error lists every violated constraint of a payload, in field order.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s at %q", issue.Message, issue.Path))
	}
	return "Validation error: " + strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

func (e *Error) Messages() []string {
	result := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		result = append(result, issue.Message)
	}
	return result
}

var messages = map[string]map[string]string{
	"clientName": {"required": "Client name is required"},
	"services": {
		"min":      "At least one service must be selected",
		"required": "Service name is required",
	},
	"pricing": {
		"min":    "At least one pricing item is required",
		"unique": "Item ids must be unique",
	},
	"id":      {"required": "Item id is required"},
	"name":    {"required": "Item name is required"},
	"unitPrice": {
		"required": "Price is required",
		"gte":      "Price cannot be negative",
	},
	"quantity": {
		"required": "Quantity is required",
		"whole":    "Quantity must be a whole number",
		"gte":      "Quantity must be at least 1",
		"lte":      "Quantity is too large",
	},
	"startDate":   {"required": "Start date is required"},
	"endDate":     {"required": "End date is required"},
	"totalAmount": {"required": "Total amount is required"},
}

var indexSuffix = regexp.MustCompile(`\[\d+\]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		value := fl.Field().Float()
		return value == math.Trunc(value)
	}); err != nil {
		panic(fmt.Sprintf("register whole validator: %v", err))
	}
	return v
}

// ValidateProposal checks req and converts it into a store input.
// It never mutates req. On failure the error is an *Error.
func ValidateProposal(req ProposalRequest) (model.ProposalInput, error) {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return model.ProposalInput{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return model.ProposalInput{}, translate(fieldErrs)
	}

	input := model.ProposalInput{
		ClientName:  req.ClientName,
		Services:    append([]string(nil), req.Services...),
		Pricing:     make([]model.PricingItem, 0, len(req.Pricing)),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalAmount: *req.TotalAmount,
	}
	if req.Notes != nil {
		input.Notes = *req.Notes
	}
	for _, item := range req.Pricing {
		input.Pricing = append(input.Pricing, model.PricingItem{
			ID:        *item.ID,
			Name:      item.Name,
			UnitPrice: *item.UnitPrice,
			Quantity:  int(*item.Quantity),
		})
	}
	return input, nil
}

func translate(fieldErrs validator.ValidationErrors) *Error {
	result := &Error{Issues: make([]Issue, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		field := indexSuffix.ReplaceAllString(fe.Field(), "")
		message, ok := messages[field][fe.Tag()]
		if !ok {
			message = fmt.Sprintf("Invalid value (%s)", fe.Tag())
		}
		result.Issues = append(result.Issues, Issue{Path: path, Message: message})
	}
	return result
}
