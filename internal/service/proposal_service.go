package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/proposals/internal/config"
	"github.com/nurpe/proposals/internal/model"
	"github.com/nurpe/proposals/internal/repository"
	"github.com/nurpe/proposals/internal/templates"
	"github.com/nurpe/proposals/internal/validation"
)

type PDFGenerator interface {
	Generate(proposal model.Proposal) ([]byte, error)
}

type WorkbookGenerator interface {
	Generate(proposals []model.Proposal) ([]byte, error)
}

type ProposalService struct {
	repo           repository.ProposalRepository
	pdf            PDFGenerator
	excel          WorkbookGenerator
	catalog        *templates.Catalog
	recomputeTotal bool
	log            zerolog.Logger
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func NewProposalService(
	repo repository.ProposalRepository,
	pdf PDFGenerator,
	excel WorkbookGenerator,
	catalog *templates.Catalog,
	cfg *config.Config,
	log zerolog.Logger,
) *ProposalService {
	return &ProposalService{
		repo:           repo,
		pdf:            pdf,
		excel:          excel,
		catalog:        catalog,
		recomputeTotal: cfg.Proposals.RecomputeTotal,
		log:            log,
	}
}

func (s *ProposalService) Create(ctx context.Context, req validation.ProposalRequest) (model.Proposal, error) {
	input, err := validation.ValidateProposal(req)
	if err != nil {
		return model.Proposal{}, err
	}
	input.TotalAmount = s.reconcileTotal(input)

	proposal, err := s.repo.Create(ctx, input)
	if err != nil {
		return model.Proposal{}, fmt.Errorf("create proposal: %w", err)
	}
	return proposal, nil
}

func (s *ProposalService) Get(ctx context.Context, id int64) (model.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Proposal{}, mapRepoError(err)
	}
	return proposal, nil
}

func (s *ProposalService) List(ctx context.Context) ([]model.Proposal, error) {
	proposals, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

// Update replaces every writable field with the validated payload.
// An absent notes field clears the stored notes.
func (s *ProposalService) Update(ctx context.Context, id int64, req validation.ProposalRequest) (model.Proposal, error) {
	input, err := validation.ValidateProposal(req)
	if err != nil {
		return model.Proposal{}, err
	}
	input.TotalAmount = s.reconcileTotal(input)

	proposal, err := s.repo.Update(ctx, id, input.FullPatch())
	if err != nil {
		return model.Proposal{}, mapRepoError(err)
	}
	return proposal, nil
}

func (s *ProposalService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *ProposalService) ExportPDF(ctx context.Context, id int64) (*ExportResult, error) {
	proposal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(proposal)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildFileName(proposal, "pdf"),
		Content:  content,
	}, nil
}

func (s *ProposalService) ExportWorkbook(ctx context.Context, id int64) (*ExportResult, error) {
	proposal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate([]model.Proposal{proposal})
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildFileName(proposal, "xlsx"),
		Content:  content,
	}, nil
}

func (s *ProposalService) ExportAllWorkbook(ctx context.Context, now time.Time) (*ExportResult, error) {
	proposals, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(proposals)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("proposals-%s.xlsx", now.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *ProposalService) Templates(now time.Time) []model.ProposalTemplate {
	return s.catalog.At(now)
}

// reconcileTotal returns the total to store. The caller's value is kept unless
// recomputation is enabled; a disagreement is only logged.
func (s *ProposalService) reconcileTotal(input model.ProposalInput) float64 {
	computed := model.SumLineTotals(input.Pricing)
	if s.recomputeTotal {
		return computed
	}
	if math.Abs(computed-input.TotalAmount) >= 0.005 {
		s.log.Warn().
			Str("client_name", input.ClientName).
			Float64("total_amount", input.TotalAmount).
			Float64("computed_total", computed).
			Msg("total amount does not match pricing")
	}
	return input.TotalAmount
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func buildFileName(proposal model.Proposal, ext string) string {
	client := sanitizeFileName(proposal.ClientName)
	if client == "" {
		return fmt.Sprintf("proposal-%d.%s", proposal.ID, ext)
	}
	return fmt.Sprintf("proposal-%d-%s.%s", proposal.ID, client, ext)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
