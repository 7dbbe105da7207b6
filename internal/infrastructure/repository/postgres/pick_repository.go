package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	qb "github.com/riskibarqy/pickboard/internal/platform/querybuilder"
)

const (
	picksTable      = "picks"
	defaultBatch    = 200
	defaultListSize = 1000
)

type PickRepository struct {
	db        *sqlx.DB
	batchSize int
	listLimit int
}

func NewPickRepository(db *sqlx.DB) *PickRepository {
	return &PickRepository{db: db, batchSize: defaultBatch, listLimit: defaultListSize}
}

// Create upserts picks by public id. Rows that already exist keep their
// identity and lock columns and only take the incoming volatile fields.
func (r *PickRepository) Create(ctx context.Context, picks []pick.Pick) error {
	if len(picks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create picks tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(picks); start += r.batchSize {
		end := min(start+r.batchSize, len(picks))
		query, args, err := buildUpsertPicks(picks[start:end])
		if err != nil {
			return fmt.Errorf("build upsert picks query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert picks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create picks tx: %w", err)
	}
	return nil
}

func (r *PickRepository) Update(ctx context.Context, pickID string, patch pick.LockPatch) error {
	query, args, err := buildLockUpdate(pickID, patch)
	if err != nil {
		return fmt.Errorf("build update pick lock query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update pick lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pick lock rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update pick %s: %w", pickID, errPickNotFound)
	}
	return nil
}

func (r *PickRepository) List(ctx context.Context) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns...).From(picksTable).
		OrderBy("game_date DESC", "edge DESC", "public_id").
		Limit(r.listLimit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select picks query: %w", err)
	}

	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isNotFound(err) {
			return []pick.Pick{}, nil
		}
		return nil, fmt.Errorf("select picks: %w", err)
	}

	out := make([]pick.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func buildUpsertPicks(picks []pick.Pick) (string, []any, error) {
	rows := make([]pickTableModel, 0, len(picks))
	for _, item := range picks {
		if item.ID == "" {
			return "", nil, fmt.Errorf("pick id is required")
		}
		rows = append(rows, toPickRow(item))
	}

	b, err := qb.InsertModels(picksTable, rows)
	if err != nil {
		return "", nil, err
	}
	return b.OnConflictUpdate("public_id", volatileColumns...).ToSQL()
}

func buildLockUpdate(pickID string, patch pick.LockPatch) (string, []any, error) {
	if pickID == "" {
		return "", nil, fmt.Errorf("pick id is required")
	}
	lockedAt := patch.LockedAt
	if !patch.Locked {
		lockedAt = nil
	} else if lockedAt == nil {
		at := patch.LockChangedAt
		lockedAt = &at
	}

	return qb.Update(picksTable).
		Set("locked", patch.Locked).
		Set("locked_at", nullTime(lockedAt)).
		Set("lock_changed_at", patch.LockChangedAt.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", pickID)).
		ToSQL()
}
