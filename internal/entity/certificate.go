package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Certificate is a generated Cert70 record for one company, owner and commercial year.
type Certificate struct {
	ID        uuid.UUID       `json:"id"`
	CompanyID uuid.UUID       `json:"empresa_id"`
	OwnerID   uuid.UUID       `json:"propietario_id"`
	Year      int             `json:"anio_comercial"`
	Folio     string          `json:"folio"`
	Totals    json.RawMessage `json:"totales"`
	Details   json.RawMessage `json:"detalles"`
	IssuedAt  time.Time       `json:"fecha_emision"`
}
