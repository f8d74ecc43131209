package models

import (
	"time"

	"github.com/google/uuid"
)

// Negotiation event types. The thread is an append-only log owned by the
// quote; an ACEITE or REJEICAO event closes it.
const (
	NegociacaoProposta       = "PROPOSTA"
	NegociacaoContraproposta = "CONTRAPROPOSTA"
	NegociacaoAceite         = "ACEITE"
	NegociacaoRejeicao       = "REJEICAO"
	NegociacaoPergunta       = "PERGUNTA"
)

type Negociacao struct {
	ID            uuid.UUID `json:"id"`
	OrcamentoID   uuid.UUID `json:"orcamento_id"`
	Tipo          string    `json:"tipo"`
	ValorCentavos *int64    `json:"valor_centavos,omitempty"`
	PrazoDias     *int      `json:"prazo_dias,omitempty"`
	Descricao     string    `json:"descricao"`
	AutorID       uuid.UUID `json:"autor_id"`
	DataCriacao   time.Time `json:"data_criacao"`
}
