package scheduler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// LiberarPagamentoArgs is the deferred escrow release job. It is inserted in
// the completion transaction with ScheduledAt = data_liberacao_prevista.
type LiberarPagamentoArgs struct {
	PagamentoID uuid.UUID `json:"pagamento_id"`
	ContratoID  uuid.UUID `json:"contrato_id"`
}

func (LiberarPagamentoArgs) Kind() string { return "liberar_pagamento" }

// PagamentoLiberador defines the contract the release worker needs. The
// release must be a compare-and-swap: it fires only while the payment is
// still AGUARDANDO_LIBERACAO and no dispute is open against the contract.
type PagamentoLiberador interface {
	LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error)
}

type LiberarPagamentoWorker struct {
	river.WorkerDefaults[LiberarPagamentoArgs]
	pagamentos PagamentoLiberador
	log        *slog.Logger
}

func NewLiberarPagamentoWorker(pagamentos PagamentoLiberador, log *slog.Logger) *LiberarPagamentoWorker {
	if log == nil {
		log = slog.Default()
	}
	return &LiberarPagamentoWorker{pagamentos: pagamentos, log: log}
}

func (w *LiberarPagamentoWorker) Work(ctx context.Context, job *river.Job[LiberarPagamentoArgs]) error {
	liberado, err := w.pagamentos.LiberarSeElegivel(ctx, job.Args.PagamentoID)
	if err != nil {
		return err
	}
	if !liberado {
		// Dispute open or the payment already moved; arbitration (or the
		// earlier actor) owns the outcome now. Not an error.
		w.log.Info("release skipped", "pagamento_id", job.Args.PagamentoID, "contrato_id", job.Args.ContratoID)
		return nil
	}
	w.log.Info("escrow released by system", "pagamento_id", job.Args.PagamentoID, "contrato_id", job.Args.ContratoID)
	return nil
}
