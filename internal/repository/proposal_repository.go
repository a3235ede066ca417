package repository

import (
	"context"
	"errors"

	"github.com/nurpe/proposals/internal/model"
)

var ErrNotFound = errors.New("proposal not found")

// ProposalRepository owns id assignment, creation timestamps and listing order.
// It never validates its input.
type ProposalRepository interface {
	Create(ctx context.Context, input model.ProposalInput) (model.Proposal, error)
	GetByID(ctx context.Context, id int64) (model.Proposal, error)
	// List returns proposals newest first; equal timestamps fall back to the higher id.
	List(ctx context.Context) ([]model.Proposal, error)
	Update(ctx context.Context, id int64, patch model.ProposalPatch) (model.Proposal, error)
	// Delete reports whether a record was actually removed.
	Delete(ctx context.Context, id int64) (bool, error)
}
