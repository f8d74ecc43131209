package models

import (
	"time"

	"github.com/google/uuid"
)

// Pagamento (escrow record) statuses. The status walk is monotonic along
// PENDENTE → PAGO → {AGUARDANDO_LIBERACAO → LIBERADO | LIBERADO} | REEMBOLSADO;
// the only backward-looking move is dispute arbitration turning a payment into
// REEMBOLSADO.
const (
	PagamentoStatusPendente            = "PENDENTE"
	PagamentoStatusPago                = "PAGO"
	PagamentoStatusAguardandoLiberacao = "AGUARDANDO_LIBERACAO"
	PagamentoStatusLiberado            = "LIBERADO"
	PagamentoStatusReembolsado         = "REEMBOLSADO"
)

// Who released the escrowed funds.
const (
	LiberadoPorSistema = "SISTEMA"
	LiberadoPorCliente = "CLIENTE"
	LiberadoPorAdmin   = "ADMIN"
)

// pagamentoTransicoes lists the allowed forward transitions. REEMBOLSADO from
// LIBERADO is reachable only through dispute resolution; repositories enforce
// that path with their own guards.
var pagamentoTransicoes = map[string][]string{
	PagamentoStatusPendente:            {PagamentoStatusPago},
	PagamentoStatusPago:                {PagamentoStatusAguardandoLiberacao, PagamentoStatusLiberado, PagamentoStatusReembolsado},
	PagamentoStatusAguardandoLiberacao: {PagamentoStatusLiberado, PagamentoStatusReembolsado},
}

// PagamentoTransicaoValida reports whether a payment may move from one status
// to another outside of dispute arbitration.
func PagamentoTransicaoValida(de, para string) bool {
	for _, s := range pagamentoTransicoes[de] {
		if s == para {
			return true
		}
	}
	return false
}

type Pagamento struct {
	ID            uuid.UUID  `json:"id"`
	ContratoID    uuid.UUID  `json:"contrato_id"`
	ValorCentavos int64      `json:"valor_centavos"`
	Status        string     `json:"status"`
	DataLiberacao *time.Time `json:"data_liberacao,omitempty"`
	LiberadoPor   *string    `json:"liberado_por,omitempty"`
	GatewayID     *string    `json:"gateway_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PagoViaPlataforma reports whether the funds went through the platform, which
// is the provenance gate for opening a dispute. Out-of-platform deals are
// outside the guarantee.
func (p *Pagamento) PagoViaPlataforma() bool {
	switch p.Status {
	case PagamentoStatusPago, PagamentoStatusAguardandoLiberacao, PagamentoStatusLiberado:
		return true
	}
	return false
}
