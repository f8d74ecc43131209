package models

import (
	"time"

	"github.com/google/uuid"
)

// Contrato (engagement) statuses. CONCLUIDO and CANCELADO are terminal.
const (
	ContratoStatusAtivo      = "ATIVO"
	ContratoStatusEmExecucao = "EM_EXECUCAO"
	ContratoStatusConcluido  = "CONCLUIDO"
	ContratoStatusCancelado  = "CANCELADO"
)

// Parties of an engagement. Used for quem_iniciou / quem_finalizou and for
// the asymmetric release rule on completion.
const (
	ParteCliente   = "CLIENTE"
	PartePrestador = "PRESTADOR"
)

type Contrato struct {
	ID                    uuid.UUID  `json:"id"`
	PostID                uuid.UUID  `json:"post_id"`
	OrcamentoID           uuid.UUID  `json:"orcamento_id"`
	ClienteID             uuid.UUID  `json:"cliente_id"`
	PrestadorID           uuid.UUID  `json:"prestador_id"`
	ValorCentavos         int64      `json:"valor_centavos"`
	Status                string     `json:"status"`
	DataInicio            *time.Time `json:"data_inicio,omitempty"`
	DataFim               *time.Time `json:"data_fim,omitempty"`
	QuemIniciou           *string    `json:"quem_iniciou,omitempty"`
	QuemFinalizou         *string    `json:"quem_finalizou,omitempty"`
	FotosAntes            []string   `json:"fotos_antes,omitempty"`
	FotosDepois           []string   `json:"fotos_depois,omitempty"`
	AguardandoLiberacao   bool       `json:"aguardando_liberacao"`
	DataLiberacaoPrevista *time.Time `json:"data_liberacao_prevista,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ParteDe returns which side of the contract the given account is on, or ""
// when the account is not a party to it.
func (c *Contrato) ParteDe(usuarioID uuid.UUID) string {
	switch usuarioID {
	case c.ClienteID:
		return ParteCliente
	case c.PrestadorID:
		return PartePrestador
	}
	return ""
}
