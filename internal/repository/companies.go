package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/rut"
)

type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error)
	GetByRUT(ctx context.Context, companyRUT string) (*entity.Company, error)
	// GetOrCreate looks the company up by normalised RUT and inserts it when missing.
	GetOrCreate(ctx context.Context, companyRUT, businessName string) (*entity.Company, bool, error)
}

type companyRepo struct {
	store
}

var companyColumns = columnNames(CompaniesColumns)

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return r.getBy(ctx, "id", id)
}

func (r *companyRepo) GetByRUT(ctx context.Context, companyRUT string) (*entity.Company, error) {
	return r.getBy(ctx, "rut_key", rut.Normalize(companyRUT))
}

func (r *companyRepo) getBy(ctx context.Context, column string, value any) (*entity.Company, error) {
	b := r.builder()
	t := b.Table(companiesTable)
	query, args := b.Select(t.Columns(companyColumns...)...).
		From(t).
		Where(entsql.EQ(t.C(column), value)).
		Limit(1).
		Query()

	var c entity.Company
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.RUT, new(string), &c.BusinessName, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundErrorf("company %s=%v", column, value)
	}
	if err != nil {
		r.logger.Error("failed to get company", column, value, "error", err)
		return nil, common.DatabaseError("get company", err)
	}
	return &c, nil
}

func (r *companyRepo) GetOrCreate(ctx context.Context, companyRUT, businessName string) (*entity.Company, bool, error) {
	existing, err := r.GetByRUT(ctx, companyRUT)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	businessName = strings.TrimSpace(businessName)
	if businessName == "" {
		businessName = "Empresa " + strings.TrimSpace(companyRUT)
	}
	c := &entity.Company{
		ID:           uuid.New(),
		RUT:          strings.TrimSpace(companyRUT),
		BusinessName: businessName,
		CreatedAt:    time.Now().UTC(),
	}
	ins := r.builder().Insert(companiesTable).
		Columns(companyColumns...).
		Values(c.ID, c.RUT, rut.Normalize(c.RUT), c.BusinessName, c.CreatedAt)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create company", "rut", c.RUT, "error", err)
		return nil, false, common.DatabaseError("create company", err)
	}
	r.logger.Debug("company created", "company_id", c.ID, "rut", c.RUT)
	return c, true, nil
}
