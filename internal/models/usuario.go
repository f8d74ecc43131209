package models

import (
	"time"

	"github.com/google/uuid"
)

// Papéis de usuário da plataforma.
const (
	PapelCliente   = "cliente"
	PapelPrestador = "prestador"
	PapelModerador = "moderador"
)

// ValidPapeis is the set of roles an account may register with.
var ValidPapeis = map[string]struct{}{
	PapelCliente:   {},
	PapelPrestador: {},
	PapelModerador: {},
}

type Usuario struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Nome      string    `json:"nome"`
	Papel     string    `json:"papel"`
	SenhaHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
