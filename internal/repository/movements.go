package repository

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
)

type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	// ListActiveForYear returns vigente movements of one owner dated within year, oldest first.
	ListActiveForYear(ctx context.Context, companyID, ownerID uuid.UUID, year int) ([]entity.Movement, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Movement, error)
}

type movementRepo struct {
	store
}

var movementColumns = columnNames(MovementsColumns)

func (r *movementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = constants.StatusActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Date = dateOnly(m.Date)

	ins := r.builder().Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.CompanyID, m.OwnerID, m.SourceFileID, m.Date, string(m.Type),
			m.HistoricalAmount, m.AdjustedAmount, m.AttributionCode, string(m.Status), m.CreatedAt,
		)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create movement", "company_id", m.CompanyID, "owner_id", m.OwnerID, "error", err)
		return common.DatabaseError("create movement", err)
	}
	return nil
}

func (r *movementRepo) ListActiveForYear(ctx context.Context, companyID, ownerID uuid.UUID, year int) ([]entity.Movement, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return r.list(ctx, entsql.And(
		entsql.EQ("company_id", companyID),
		entsql.EQ("owner_id", ownerID),
		entsql.EQ("status", string(constants.StatusActive)),
		entsql.GTE("date", from),
		entsql.LT("date", to),
	))
}

func (r *movementRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Movement, error) {
	return r.list(ctx, entsql.EQ("company_id", companyID))
}

func (r *movementRepo) list(ctx context.Context, p *entsql.Predicate) ([]entity.Movement, error) {
	b := r.builder()
	query, args := b.Select(movementColumns...).
		From(b.Table(movementsTable)).
		Where(p).
		OrderBy("date", "created_at").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list movements", "error", err)
		return nil, common.DatabaseError("list movements", err)
	}
	defer rows.Close()

	out := make([]entity.Movement, 0)
	for rows.Next() {
		var (
			m        entity.Movement
			fileID   uuid.NullUUID
			adjusted sql.NullInt64
			code     sql.NullString
			typ      string
			status   string
		)
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.OwnerID, &fileID, &m.Date, &typ,
			&m.HistoricalAmount, &adjusted, &code, &status, &m.CreatedAt); err != nil {
			return nil, common.DatabaseError("scan movement", err)
		}
		m.Type = constants.MovementType(typ)
		m.Status = constants.MovementStatus(status)
		if fileID.Valid {
			id := fileID.UUID
			m.SourceFileID = &id
		}
		if adjusted.Valid {
			v := adjusted.Int64
			m.AdjustedAmount = &v
		}
		if code.Valid {
			v := code.String
			m.AttributionCode = &v
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("iterate movements", err)
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
