package entity

import (
	"time"

	"github.com/google/uuid"
)

// Company is the issuing company (empresa) of distributions.
type Company struct {
	ID           uuid.UUID `json:"id"`
	RUT          string    `json:"rut"`
	BusinessName string    `json:"razon_social"`
	CreatedAt    time.Time `json:"created_at"`
}

// Owner is a shareholder or partner (propietario) of one company.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"empresa_id"`
	RUT       string    `json:"rut"`
	Name      *string   `json:"nombre,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
