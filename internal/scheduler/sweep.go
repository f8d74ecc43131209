package scheduler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ExpirarOrcamentosArgs is the periodic quote-expiration sweep.
type ExpirarOrcamentosArgs struct{}

func (ExpirarOrcamentosArgs) Kind() string { return "expirar_orcamentos" }

// OrcamentoExpirador expires every actionable quote past its deadline.
type OrcamentoExpirador interface {
	ExpirarVencidos(ctx context.Context) (int64, error)
}

type ExpirarOrcamentosWorker struct {
	river.WorkerDefaults[ExpirarOrcamentosArgs]
	orcamentos OrcamentoExpirador
	log        *slog.Logger
}

func NewExpirarOrcamentosWorker(orcamentos OrcamentoExpirador, log *slog.Logger) *ExpirarOrcamentosWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ExpirarOrcamentosWorker{orcamentos: orcamentos, log: log}
}

func (w *ExpirarOrcamentosWorker) Work(ctx context.Context, job *river.Job[ExpirarOrcamentosArgs]) error {
	n, err := w.orcamentos.ExpirarVencidos(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("quotes expired by sweep", "count", n)
	}
	return nil
}

// VarreduraLiberacaoArgs is the periodic escrow release sweep. The scheduled
// per-payment job is the primary mechanism; the sweep catches anything that
// slipped past it (e.g. a job inserted before a crash). Double firing is safe
// because the release itself is a compare-and-swap.
type VarreduraLiberacaoArgs struct{}

func (VarreduraLiberacaoArgs) Kind() string { return "varredura_liberacao" }

// LiberacaoVencidaLister lists payments whose release window has elapsed.
type LiberacaoVencidaLister interface {
	ListarLiberacoesVencidas(ctx context.Context, limite int) ([]uuid.UUID, error)
	LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error)
}

type VarreduraLiberacaoWorker struct {
	river.WorkerDefaults[VarreduraLiberacaoArgs]
	pagamentos LiberacaoVencidaLister
	log        *slog.Logger
}

func NewVarreduraLiberacaoWorker(pagamentos LiberacaoVencidaLister, log *slog.Logger) *VarreduraLiberacaoWorker {
	if log == nil {
		log = slog.Default()
	}
	return &VarreduraLiberacaoWorker{pagamentos: pagamentos, log: log}
}

func (w *VarreduraLiberacaoWorker) Work(ctx context.Context, job *river.Job[VarreduraLiberacaoArgs]) error {
	ids, err := w.pagamentos.ListarLiberacoesVencidas(ctx, 100)
	if err != nil {
		return err
	}
	for _, id := range ids {
		liberado, err := w.pagamentos.LiberarSeElegivel(ctx, id)
		if err != nil {
			return err
		}
		if liberado {
			w.log.Info("escrow released by sweep", "pagamento_id", id)
		}
	}
	return nil
}
