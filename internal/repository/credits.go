package repository

import (
	"context"
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
)

type CreditRepository interface {
	Create(ctx context.Context, c *entity.Credit) error
	// ListByMovementIDs groups credits by movement; movements without credits are absent.
	ListByMovementIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]entity.Credit, error)
}

type creditRepo struct {
	store
}

var creditColumns = columnNames(CreditsColumns)

func (r *creditRepo) Create(ctx context.Context, c *entity.Credit) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	ins := r.builder().Insert(creditsTable).
		Columns(creditColumns...).
		Values(c.ID, c.MovementID, c.Type, c.Amount, c.Year)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create credit", "movement_id", c.MovementID, "error", err)
		return common.DatabaseError("create credit", err)
	}
	return nil
}

func (r *creditRepo) ListByMovementIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]entity.Credit, error) {
	out := make(map[uuid.UUID][]entity.Credit)
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	b := r.builder()
	query, qargs := b.Select(creditColumns...).
		From(b.Table(creditsTable)).
		Where(entsql.In("movement_id", args...)).
		OrderBy("movement_id", "id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		r.logger.Error("failed to list credits", "movements", len(ids), "error", err)
		return nil, common.DatabaseError("list credits", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c    entity.Credit
			typ  sql.NullString
			year sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.MovementID, &typ, &c.Amount, &year); err != nil {
			return nil, common.DatabaseError("scan credit", err)
		}
		if typ.Valid {
			v := typ.String
			c.Type = &v
		}
		if year.Valid {
			v := int(year.Int64)
			c.Year = &v
		}
		out[c.MovementID] = append(out[c.MovementID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("iterate credits", err)
	}
	return out, nil
}
