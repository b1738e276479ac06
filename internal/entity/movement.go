package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/constants"
)

// Movement is a persisted tax qualification (calificación tributaria).
type Movement struct {
	ID               uuid.UUID                `json:"id"`
	CompanyID        uuid.UUID                `json:"empresa_id"`
	OwnerID          uuid.UUID                `json:"propietario_id"`
	Date             time.Time                `json:"fecha"`
	Type             constants.MovementType   `json:"tipo"`
	HistoricalAmount int64                    `json:"monto_original"`
	AdjustedAmount   *int64                   `json:"monto_reajustado,omitempty"`
	AttributionCode  *string                  `json:"imputacion,omitempty"`
	Status           constants.MovementStatus `json:"estado"`
	SourceFileID     *uuid.UUID               `json:"archivo_id,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

// Credit is an IDPC credit (crédito) attached to a movement.
type Credit struct {
	ID         uuid.UUID `json:"id"`
	MovementID uuid.UUID `json:"calificacion_id"`
	Type       *string   `json:"tipo_credito,omitempty"`
	Amount     int64     `json:"monto"`
	Year       *int      `json:"ejercicio,omitempty"`
}
