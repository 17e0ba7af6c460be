package injection

import (
	"time"

	"github.com/google/uuid"
)

type Record struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	PeptideName string    `json:"peptide_name" db:"peptide_name"`
	Dose        *float64  `json:"dose,omitempty" db:"dose"`
	Unit        *string   `json:"unit,omitempty" db:"unit"`
	Timestamp   time.Time `json:"timestamp" db:"injected_at"`
}

type LogInjectionRequest struct {
	PeptideName string     `json:"peptide_name" validate:"required,max=120"`
	Dose        *float64   `json:"dose,omitempty" validate:"omitempty,gt=0"`
	Unit        *string    `json:"unit,omitempty" validate:"omitempty,max=16"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}
