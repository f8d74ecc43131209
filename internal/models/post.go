package models

import (
	"time"

	"github.com/google/uuid"
)

// Post status labels projected from engagement events. The post itself is a
// thin read model: its status only mirrors what happened to the quote and
// contract attached to it.
const (
	PostStatusAberto            = "ABERTO"
	PostStatusOrcamentoAceito   = "ORCAMENTO_ACEITO"
	PostStatusEmExecucao        = "EM_EXECUCAO"
	PostStatusTrabalhoConcluido = "TRABALHO_CONCLUIDO"
	PostStatusFinalizado        = "FINALIZADO"
	PostStatusCancelado         = "CANCELADO"
)

type Post struct {
	ID        uuid.UUID `json:"id"`
	ClienteID uuid.UUID `json:"cliente_id"`
	Titulo    string    `json:"titulo"`
	Descricao string    `json:"descricao"`
	Categoria string    `json:"categoria"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
