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

type OwnerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Owner, error)
	GetByRUT(ctx context.Context, companyID uuid.UUID, ownerRUT string) (*entity.Owner, error)
	// GetOrCreate is keyed by company and normalised RUT. An existing owner keeps its name.
	GetOrCreate(ctx context.Context, companyID uuid.UUID, ownerRUT string, name *string) (*entity.Owner, bool, error)
}

type ownerRepo struct {
	store
}

var ownerColumns = columnNames(OwnersColumns)

func (r *ownerRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Owner, error) {
	return r.get(ctx, entsql.EQ("id", id))
}

func (r *ownerRepo) GetByRUT(ctx context.Context, companyID uuid.UUID, ownerRUT string) (*entity.Owner, error) {
	return r.get(ctx, entsql.And(
		entsql.EQ("company_id", companyID),
		entsql.EQ("rut_key", rut.Normalize(ownerRUT)),
	))
}

func (r *ownerRepo) get(ctx context.Context, p *entsql.Predicate) (*entity.Owner, error) {
	b := r.builder()
	query, args := b.Select(ownerColumns...).
		From(b.Table(ownersTable)).
		Where(p).
		Limit(1).
		Query()

	var (
		o    entity.Owner
		name sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&o.ID, &o.CompanyID, &o.RUT, new(string), &name, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundErrorf("owner not found")
	}
	if err != nil {
		r.logger.Error("failed to get owner", "error", err)
		return nil, common.DatabaseError("get owner", err)
	}
	if name.Valid {
		o.Name = &name.String
	}
	return &o, nil
}

func (r *ownerRepo) GetOrCreate(ctx context.Context, companyID uuid.UUID, ownerRUT string, name *string) (*entity.Owner, bool, error) {
	existing, err := r.GetByRUT(ctx, companyID, ownerRUT)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	o := &entity.Owner{
		ID:        uuid.New(),
		CompanyID: companyID,
		RUT:       strings.TrimSpace(ownerRUT),
		CreatedAt: time.Now().UTC(),
	}
	if name != nil && strings.TrimSpace(*name) != "" {
		n := strings.TrimSpace(*name)
		o.Name = &n
	}
	ins := r.builder().Insert(ownersTable).
		Columns(ownerColumns...).
		Values(o.ID, o.CompanyID, o.RUT, rut.Normalize(o.RUT), o.Name, o.CreatedAt)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create owner", "company_id", companyID, "rut", o.RUT, "error", err)
		return nil, false, common.DatabaseError("create owner", err)
	}
	r.logger.Debug("owner created", "owner_id", o.ID, "company_id", companyID)
	return o, true, nil
}
