package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
)

type CertificateRepository interface {
	Get(ctx context.Context, companyID, ownerID uuid.UUID, year int) (*entity.Certificate, error)
	// Save inserts the certificate or replaces totals and details of the one
	// already issued for the same company, owner and year. The stored id is kept.
	Save(ctx context.Context, c *entity.Certificate) (*entity.Certificate, error)
}

type certificateRepo struct {
	store
}

var certificateColumns = columnNames(CertificatesColumns)

func (r *certificateRepo) Get(ctx context.Context, companyID, ownerID uuid.UUID, year int) (*entity.Certificate, error) {
	b := r.builder()
	query, args := b.Select(certificateColumns...).
		From(b.Table(certificatesTable)).
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.EQ("owner_id", ownerID),
			entsql.EQ("year", year),
		)).
		Limit(1).
		Query()

	var (
		c               entity.Certificate
		totals, details []byte
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.CompanyID, &c.OwnerID, &c.Year, &c.Folio, &totals, &details, &c.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundErrorf("certificate %d", year)
	}
	if err != nil {
		r.logger.Error("failed to get certificate", "company_id", companyID, "owner_id", ownerID, "year", year, "error", err)
		return nil, common.DatabaseError("get certificate", err)
	}
	c.Totals = totals
	c.Details = details
	return &c, nil
}

func (r *certificateRepo) Save(ctx context.Context, c *entity.Certificate) (*entity.Certificate, error) {
	if c.IssuedAt.IsZero() {
		c.IssuedAt = time.Now().UTC()
	}

	existing, err := r.Get(ctx, c.CompanyID, c.OwnerID, c.Year)
	switch {
	case err == nil:
		upd := r.builder().Update(certificatesTable).
			Set("totals", string(c.Totals)).
			Set("details", string(c.Details)).
			Set("issued_at", c.IssuedAt).
			Where(entsql.EQ("id", existing.ID))
		if err := r.exec(ctx, upd); err != nil {
			r.logger.Error("failed to update certificate", "certificate_id", existing.ID, "error", err)
			return nil, common.DatabaseError("update certificate", err)
		}
		c.ID = existing.ID
		c.Folio = existing.Folio
		return c, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Folio == "" {
		c.Folio = Folio(c.Year, c.ID)
	}
	ins := r.builder().Insert(certificatesTable).
		Columns(certificateColumns...).
		Values(c.ID, c.CompanyID, c.OwnerID, c.Year, c.Folio, string(c.Totals), string(c.Details), c.IssuedAt)
	if err := r.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create certificate", "company_id", c.CompanyID, "owner_id", c.OwnerID, "year", c.Year, "error", err)
		return nil, common.DatabaseError("create certificate", err)
	}
	return c, nil
}

// Folio renders the certificate number as C70-<year>-<first 8 hex of id>.
func Folio(year int, id uuid.UUID) string {
	return fmt.Sprintf("C70-%d-%s", year, id.String()[:8])
}
