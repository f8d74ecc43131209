package models

import (
	"time"

	"github.com/google/uuid"
)

// Disputa statuses. RESOLVIDA and CANCELADA are terminal.
const (
	DisputaStatusAberta    = "ABERTA"
	DisputaStatusEmAnalise = "EM_ANALISE"
	DisputaStatusResolvida = "RESOLVIDA"
	DisputaStatusCancelada = "CANCELADA"
)

// Moderator decisions.
const (
	DecisaoFavorCliente   = "FAVOR_CLIENTE"
	DecisaoFavorPrestador = "FAVOR_PRESTADOR"
	DecisaoDividir        = "DIVIDIR"
	DecisaoCancelar       = "CANCELAR"
)

// Dispute categories.
const (
	DisputaTipoServicoNaoConcluido = "SERVICO_NAO_CONCLUIDO"
	DisputaTipoMaQualidade         = "MA_QUALIDADE"
	DisputaTipoCobrancaIndevida    = "COBRANCA_INDEVIDA"
	DisputaTipoNaoComparecimento   = "NAO_COMPARECIMENTO"
	DisputaTipoOutro               = "OUTRO"
)

// ValidDisputaTipos is the set of categories a dispute may be opened with.
var ValidDisputaTipos = map[string]struct{}{
	DisputaTipoServicoNaoConcluido: {},
	DisputaTipoMaQualidade:         {},
	DisputaTipoCobrancaIndevida:    {},
	DisputaTipoNaoComparecimento:   {},
	DisputaTipoOutro:               {},
}

// ValidDecisoes is the set of decisions a moderator may resolve with.
var ValidDecisoes = map[string]struct{}{
	DecisaoFavorCliente:   {},
	DecisaoFavorPrestador: {},
	DecisaoDividir:        {},
	DecisaoCancelar:       {},
}

type Disputa struct {
	ID            uuid.UUID  `json:"id"`
	ContratoID    uuid.UUID  `json:"contrato_id"`
	AutorID       uuid.UUID  `json:"autor_id"`
	Tipo          string     `json:"tipo"`
	Descricao     string     `json:"descricao"`
	Evidencias    []string   `json:"evidencias,omitempty"`
	Status        string     `json:"status"`
	Decisao       *string    `json:"decisao,omitempty"`
	Observacoes   *string    `json:"observacoes,omitempty"`
	ModeradorID   *uuid.UUID `json:"moderador_id,omitempty"`
	DataCriacao   time.Time  `json:"data_criacao"`
	DataResolucao *time.Time `json:"data_resolucao,omitempty"`
}

// Aberta reports whether the dispute still blocks a pending escrow release.
func (d *Disputa) Aberta() bool {
	return d.Status == DisputaStatusAberta || d.Status == DisputaStatusEmAnalise
}
