// Package certificate issues Certificado 70 records from persisted movements.
package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/cert70"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/repository"
)

// Store exposes the repositories the service reads and writes.
type Store interface {
	Repositories() *repository.Repositories
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Generate aggregates the owner's active movements of year and stores the
// certificate. Regenerating keeps the id and folio of the first issue.
func (s *Service) Generate(ctx context.Context, companyID, ownerID uuid.UUID, year int) (*entity.Certificate, error) {
	start := time.Now()
	if year <= 0 {
		return nil, common.InvalidInputErrorf("commercial year %d", year)
	}

	repos := s.store.Repositories()
	company, owner, err := s.parties(ctx, repos, companyID, ownerID)
	if err != nil {
		return nil, err
	}

	movements, err := repos.Movements.ListActiveForYear(ctx, company.ID, owner.ID, year)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(movements))
	for i, m := range movements {
		ids[i] = m.ID
	}
	credits, err := repos.Credits.ListByMovementIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	totals, details := cert70.Aggregate(movements, credits)
	totalsJSON, err := json.Marshal(totals)
	if err != nil {
		return nil, fmt.Errorf("marshal totals: %w", err)
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}

	cert, err := repos.Certificates.Save(ctx, &entity.Certificate{
		CompanyID: company.ID,
		OwnerID:   owner.ID,
		Year:      year,
		Totals:    totalsJSON,
		Details:   detailsJSON,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("certificate.generate.ok",
		"folio", cert.Folio,
		"company_rut", company.RUT,
		"owner_rut", owner.RUT,
		"year", year,
		"movements", len(movements),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cert, nil
}

// GenerateByRUT resolves company and owner by RUT and calls Generate.
func (s *Service) GenerateByRUT(ctx context.Context, companyRUT, ownerRUT string, year int) (*entity.Certificate, error) {
	companyID, ownerID, err := s.ResolveRUTs(ctx, companyRUT, ownerRUT)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, companyID, ownerID, year)
}

// ResolveRUTs maps a company RUT and one of its owners' RUT to their ids.
func (s *Service) ResolveRUTs(ctx context.Context, companyRUT, ownerRUT string) (uuid.UUID, uuid.UUID, error) {
	repos := s.store.Repositories()
	company, err := repos.Companies.GetByRUT(ctx, companyRUT)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	owner, err := repos.Owners.GetByRUT(ctx, company.ID, ownerRUT)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return company.ID, owner.ID, nil
}

func (s *Service) parties(ctx context.Context, repos *repository.Repositories, companyID, ownerID uuid.UUID) (*entity.Company, *entity.Owner, error) {
	company, err := repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	owner, err := repos.Owners.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if owner.CompanyID != company.ID {
		return nil, nil, common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("owner %s does not belong to company %s", owner.RUT, company.RUT), common.ErrNotFound)
	}
	return company, owner, nil
}

// load returns the stored certificate, generating it when none exists yet.
func (s *Service) load(ctx context.Context, companyID, ownerID uuid.UUID, year int) (*entity.Certificate, error) {
	cert, err := s.store.Repositories().Certificates.Get(ctx, companyID, ownerID, year)
	if errors.Is(err, common.ErrNotFound) {
		return s.Generate(ctx, companyID, ownerID, year)
	}
	return cert, err
}
