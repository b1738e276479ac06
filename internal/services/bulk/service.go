// Package bulk imports tax movements from tabular uploads.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/repository"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	"rut_empresa",
	"razon_social",
	"rut_propietario",
	"nombre_propietario",
	"fecha",
	"tipo_calificacion",
	"monto",
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(r *repository.Repositories) error) error
}

// Service imports rows one transaction at a time.
type Service struct {
	db       TxRunner
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(db TxRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, validate: newValidate(), logger: logger}
}

// Import stores every valid row and reports the others as "Row n" errors,
// n being the spreadsheet line (data index + 2). A failing row never undoes
// the rows before it.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader) (entity.BatchResult, error) {
	sh, err := readSheet(filename, r)
	if err != nil {
		return entity.BatchResult{}, err
	}
	if missing := missingColumns(sh.header); len(missing) > 0 {
		s.logger.Warn("bulk.import.missing_columns", "filename", filename, "missing", missing)
		return entity.BatchResult{}, common.NewAppError(common.CodeMissingColumns,
			"missing required columns: "+strings.Join(missing, ", "), common.ErrInvalidInput)
	}

	result := entity.BatchResult{Errors: []entity.RowError{}}
	for i, raw := range sh.rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if isBlank(raw) {
			continue
		}
		rowNum := i + 2
		if err := s.importRow(ctx, rowFromMap(raw)); err != nil {
			s.logger.Warn("bulk.row.failed", "row", rowNum, "error", err)
			result.Errors = append(result.Errors, entity.RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		result.Created++
	}

	s.logger.Info("bulk.import.ok", "filename", filename, "rows", len(sh.rows), "created", result.Created, "failed", len(result.Errors))
	return result, nil
}

func (s *Service) importRow(ctx context.Context, row Row) error {
	if err := s.validate.Struct(row); err != nil {
		return errors.New(describe(err))
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return err
	}
	var adjusted *int64
	if row.Adjusted != "" {
		v, err := ParseAmount(row.Adjusted)
		if err != nil {
			return fmt.Errorf("monto_reajustado: %w", err)
		}
		adjusted = &v
	}
	date, err := ParseRowDate(row.Date)
	if err != nil {
		return err
	}
	status, _ := constants.ParseMovementStatus(row.Status)

	var code *string
	if row.Attribution != "" {
		code = &row.Attribution
	}
	var ownerName *string
	if row.OwnerName != "" {
		ownerName = &row.OwnerName
	}

	return s.db.WithTx(ctx, func(r *repository.Repositories) error {
		company, _, err := r.Companies.GetOrCreate(ctx, row.CompanyRUT, row.BusinessName)
		if err != nil {
			return err
		}
		owner, _, err := r.Owners.GetOrCreate(ctx, company.ID, row.OwnerRUT, ownerName)
		if err != nil {
			return err
		}
		return r.Movements.Create(ctx, &entity.Movement{
			CompanyID:        company.ID,
			OwnerID:          owner.ID,
			Date:             date,
			Type:             constants.MovementType(row.Type),
			HistoricalAmount: amount,
			AdjustedAmount:   adjusted,
			AttributionCode:  code,
			Status:           status,
		})
	})
}

func missingColumns(header []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
