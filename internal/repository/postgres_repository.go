package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/proposals/internal/model"
)

// PostgresProposalRepository stores proposals in the proposals table.
// Ids come from a BIGSERIAL sequence, so they survive restarts and are never reused.
type PostgresProposalRepository struct {
	db *gorm.DB
}

func NewPostgresProposalRepository(db *gorm.DB) *PostgresProposalRepository {
	return &PostgresProposalRepository{db: db}
}

type jsonColumn[T any] struct {
	Val T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(c.Val)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *jsonColumn[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var zero T
		c.Val = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &c.Val)
	case string:
		return json.Unmarshal([]byte(v), &c.Val)
	default:
		return fmt.Errorf("unsupported jsonb source %T", src)
	}
}

type proposalRow struct {
	ID          int64
	ClientName  string
	Services    jsonColumn[[]string]
	Pricing     jsonColumn[[]model.PricingItem]
	StartDate   string
	EndDate     string
	Notes       string
	TotalAmount float64
	CreatedAt   time.Time
}

func (row proposalRow) toModel() model.Proposal {
	return model.Proposal{
		ID:          row.ID,
		ClientName:  row.ClientName,
		Services:    row.Services.Val,
		Pricing:     row.Pricing.Val,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		Notes:       row.Notes,
		TotalAmount: row.TotalAmount,
		CreatedAt:   row.CreatedAt,
	}
}

const proposalColumns = `id, client_name, services, pricing, start_date, end_date, notes, total_amount, created_at`

func (r *PostgresProposalRepository) Create(ctx context.Context, input model.ProposalInput) (model.Proposal, error) {
	var row proposalRow
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO proposals (client_name, services, pricing, start_date, end_date, notes, total_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+proposalColumns,
		input.ClientName,
		jsonColumn[[]string]{Val: input.Services},
		jsonColumn[[]model.PricingItem]{Val: input.Pricing},
		input.StartDate,
		input.EndDate,
		input.Notes,
		input.TotalAmount,
	).Scan(&row).Error
	if err != nil {
		return model.Proposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	return row.toModel(), nil
}

func (r *PostgresProposalRepository) GetByID(ctx context.Context, id int64) (model.Proposal, error) {
	row, err := r.get(r.db.WithContext(ctx), id, false)
	if err != nil {
		return model.Proposal{}, err
	}
	return row.toModel(), nil
}

func (r *PostgresProposalRepository) get(tx *gorm.DB, id int64, forUpdate bool) (proposalRow, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row proposalRow
	if err := tx.Raw(query, id).Scan(&row).Error; err != nil {
		return proposalRow{}, fmt.Errorf("select proposal %d: %w", id, err)
	}
	if row.ID == 0 {
		return proposalRow{}, ErrNotFound
	}
	return row, nil
}

func (r *PostgresProposalRepository) List(ctx context.Context) ([]model.Proposal, error) {
	var rows []proposalRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT ` + proposalColumns + `
		FROM proposals
		ORDER BY created_at DESC, id DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	result := make([]model.Proposal, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (r *PostgresProposalRepository) Update(ctx context.Context, id int64, patch model.ProposalPatch) (model.Proposal, error) {
	var updated model.Proposal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.get(tx, id, true)
		if err != nil {
			return err
		}

		updated = row.toModel().Apply(patch)
		return tx.Exec(`
			UPDATE proposals
			SET client_name = ?, services = ?, pricing = ?, start_date = ?, end_date = ?, notes = ?, total_amount = ?
			WHERE id = ?`,
			updated.ClientName,
			jsonColumn[[]string]{Val: updated.Services},
			jsonColumn[[]model.PricingItem]{Val: updated.Pricing},
			updated.StartDate,
			updated.EndDate,
			updated.Notes,
			updated.TotalAmount,
			id,
		).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Proposal{}, ErrNotFound
		}
		return model.Proposal{}, fmt.Errorf("update proposal %d: %w", id, err)
	}
	return updated, nil
}

func (r *PostgresProposalRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM proposals WHERE id = ?`, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete proposal %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}
