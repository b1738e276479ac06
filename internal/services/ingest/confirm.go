package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/parser"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/repository"
	"github.com/nuam/calificaciones/internal/rut"
)

type confirmOptions struct {
	sourceFileID *uuid.UUID
}

type ConfirmOption func(*confirmOptions)

// WithSourceFile links every confirmed movement to an uploaded file.
func WithSourceFile(id uuid.UUID) ConfirmOption {
	return func(o *confirmOptions) {
		if id != uuid.Nil {
			o.sourceFileID = &id
		}
	}
}

// ConfirmMovements persists a reviewed extraction result. The payload is
// checked against the extraction schema; each movement is then stored in
// its own transaction with status vigente. Row numbers in the result are
// 1-based movement positions.
func (s *Service) ConfirmMovements(ctx context.Context, payload []byte, opts ...ConfirmOption) (entity.BatchResult, error) {
	var o confirmOptions
	for _, opt := range opts {
		opt(&o)
	}

	reviewed, err := parser.DecodeReviewed(payload)
	if err != nil {
		s.logger.Error("ingest.confirm.invalid_payload", "error", err)
		return entity.BatchResult{}, common.NewAppError(common.CodeInvalidInput, "reviewed payload rejected", err)
	}

	companyRUT := ""
	if reviewed.CompanyRUT != nil {
		companyRUT = strings.TrimSpace(*reviewed.CompanyRUT)
	}
	if companyRUT == "" {
		return entity.BatchResult{}, common.InvalidInputErrorf("rut_empresa is required")
	}
	if _, err := rut.Validate(companyRUT); err != nil {
		return entity.BatchResult{}, common.NewAppError(common.CodeInvalidInput, "rut_empresa", err)
	}

	company, _, err := s.store.Repositories().Companies.GetOrCreate(ctx, companyRUT, "")
	if err != nil {
		return entity.BatchResult{}, err
	}

	result := entity.BatchResult{Errors: []entity.RowError{}}
	for i, m := range reviewed.Movements {
		row := i + 1
		if err := s.confirmOne(ctx, company.ID, m, o.sourceFileID); err != nil {
			s.logger.Warn("ingest.confirm.row.failed", "row", row, "company_id", company.ID, "error", err)
			result.Errors = append(result.Errors, entity.RowError{Row: row, Reason: err.Error()})
			continue
		}
		result.Created++
	}

	s.logger.Info("ingest.confirm.ok", "company_id", company.ID, "created", result.Created, "failed", len(result.Errors))
	return result, nil
}

func (s *Service) confirmOne(ctx context.Context, companyID uuid.UUID, m parser.ExtractedMovement, sourceFileID *uuid.UUID) error {
	v := common.NewValidator().
		Field("rut_propietario", m.OwnerRUT, common.Required, common.RUT).
		Field("monto", m.Amount, common.PositiveAmount).
		Field("tipo", string(m.Type), common.OneOf(constants.MovementTypes()...)).
		Field("nombre_propietario", m.OwnerName, common.MaxLength(255))
	if err := v.Error(); err != nil {
		return err
	}

	date, err := parser.ParseDate(m.Date)
	if err != nil {
		return err
	}

	var code *string
	if m.Attribution != "" && m.Attribution != constants.Unclassified {
		c := string(m.Attribution)
		code = &c
	}
	ownerRUT := strings.TrimSpace(*m.OwnerRUT)

	return s.store.WithTx(ctx, func(r *repository.Repositories) error {
		owner, _, err := r.Owners.GetOrCreate(ctx, companyID, ownerRUT, m.OwnerName)
		if err != nil {
			return err
		}
		return r.Movements.Create(ctx, &entity.Movement{
			CompanyID:        companyID,
			OwnerID:          owner.ID,
			Date:             date,
			Type:             m.Type,
			HistoricalAmount: m.Amount,
			AttributionCode:  code,
			Status:           constants.StatusActive,
			SourceFileID:     sourceFileID,
			CreatedAt:        time.Now().UTC(),
		})
	})
}
