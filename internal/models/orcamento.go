package models

import (
	"time"

	"github.com/google/uuid"
)

// Orçamento (quote) statuses. ACEITO, REJEITADO and EXPIRADO are terminal.
const (
	OrcamentoStatusPendente   = "PENDENTE"
	OrcamentoStatusNegociando = "NEGOCIANDO"
	OrcamentoStatusAceito     = "ACEITO"
	OrcamentoStatusRejeitado  = "REJEITADO"
	OrcamentoStatusExpirado   = "EXPIRADO"
)

// OrcamentoStatusTerminal reports whether a quote in the given status accepts
// no further transitions.
func OrcamentoStatusTerminal(status string) bool {
	switch status {
	case OrcamentoStatusAceito, OrcamentoStatusRejeitado, OrcamentoStatusExpirado:
		return true
	}
	return false
}

type Orcamento struct {
	ID                 uuid.UUID `json:"id"`
	PostID             uuid.UUID `json:"post_id"`
	PrestadorID        uuid.UUID `json:"prestador_id"`
	ClienteID          uuid.UUID `json:"cliente_id"`
	ValorCentavos      int64     `json:"valor_centavos"`
	Descricao          string    `json:"descricao"`
	PrazoExecucaoDias  int       `json:"prazo_execucao_dias"`
	CondicoesPagamento string    `json:"condicoes_pagamento"`
	Status             string    `json:"status"`
	Contrapropostas    int       `json:"contrapropostas"`
	DataCriacao        time.Time `json:"data_criacao"`
	DataExpiracao      time.Time `json:"data_expiracao"`
}

// Vencido reports whether the quote is past its expiration timestamp. A quote
// past expiration is never actionable, even if the sweep has not touched it yet.
func (o *Orcamento) Vencido(agora time.Time) bool {
	return agora.After(o.DataExpiracao)
}
