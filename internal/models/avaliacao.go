package models

import (
	"time"

	"github.com/google/uuid"
)

// Avaliacao is the rating a party leaves on contract confirmation.
type Avaliacao struct {
	ID          uuid.UUID `json:"id"`
	ContratoID  uuid.UUID `json:"contrato_id"`
	AutorID     uuid.UUID `json:"autor_id"`
	AvaliadoID  uuid.UUID `json:"avaliado_id"`
	Nota        int       `json:"nota"`
	Comentario  string    `json:"comentario,omitempty"`
	DataCriacao time.Time `json:"data_criacao"`
}
