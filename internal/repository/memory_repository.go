package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nurpe/proposals/internal/model"
)

// MemoryProposalRepository keeps proposals for the lifetime of the process.
// The map and the id counter are guarded by one lock.
type MemoryProposalRepository struct {
	mu        sync.RWMutex
	proposals map[int64]model.Proposal
	nextID    int64
	now       func() time.Time
}

func NewMemoryProposalRepository() *MemoryProposalRepository {
	return NewMemoryProposalRepositoryWithClock(time.Now)
}

func NewMemoryProposalRepositoryWithClock(now func() time.Time) *MemoryProposalRepository {
	return &MemoryProposalRepository{
		proposals: make(map[int64]model.Proposal),
		nextID:    1,
		now:       now,
	}
}

func (r *MemoryProposalRepository) Create(_ context.Context, input model.ProposalInput) (model.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	proposal := model.NewProposal(input)
	proposal.ID = r.nextID
	proposal.CreatedAt = r.now()
	r.nextID++

	r.proposals[proposal.ID] = proposal
	return proposal.Clone(), nil
}

func (r *MemoryProposalRepository) GetByID(_ context.Context, id int64) (model.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proposal, ok := r.proposals[id]
	if !ok {
		return model.Proposal{}, ErrNotFound
	}
	return proposal.Clone(), nil
}

func (r *MemoryProposalRepository) List(_ context.Context) ([]model.Proposal, error) {
	r.mu.RLock()
	result := make([]model.Proposal, 0, len(r.proposals))
	for _, proposal := range r.proposals {
		result = append(result, proposal.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *MemoryProposalRepository) Update(_ context.Context, id int64, patch model.ProposalPatch) (model.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.proposals[id]
	if !ok {
		return model.Proposal{}, ErrNotFound
	}

	updated := existing.Apply(patch)
	r.proposals[id] = updated
	return updated.Clone(), nil
}

func (r *MemoryProposalRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.proposals[id]; !ok {
		return false, nil
	}
	delete(r.proposals, id)
	return true, nil
}
