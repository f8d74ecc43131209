package pagamentos

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/gateway"
	"github.com/chamaservico/backend/internal/models"
	"github.com/chamaservico/backend/internal/scheduler"
)

// Store is the payment persistence interface the service depends on.
type Store interface {
	CriarTx(ctx context.Context, tx pgx.Tx, p *models.Pagamento) error
	GetByContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error)
	MarcarPago(ctx context.Context, contratoID uuid.UUID, gatewayID string) (bool, error)
	LiberarImediatoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, liberadoPor string) (bool, error)
	MarcarAguardandoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error)
	LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error)
	ConfirmarCliente(ctx context.Context, contratoID uuid.UUID) (bool, error)
	LiberarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error)
	ReembolsarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error)
	Reembolsar(ctx context.Context, contratoID uuid.UUID) (bool, error)
	ListarLiberacoesVencidas(ctx context.Context, limite int) ([]uuid.UUID, error)
}

// InsertLiberacaoTxFunc enqueues a scheduled release job within the given
// transaction. Provided by main using river.Client.InsertTx.
type InsertLiberacaoTxFunc func(ctx context.Context, tx pgx.Tx, args scheduler.LiberarPagamentoArgs, em time.Time) error

// InsertLiberacaoFunc enqueues a release job outside a transaction. Used to
// resume a frozen release when a dispute is dismissed.
type InsertLiberacaoFunc func(ctx context.Context, args scheduler.LiberarPagamentoArgs, em time.Time) error

type Service interface {
	CriarPendenteTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, valorCentavos int64) (*models.Pagamento, error)
	Financiar(ctx context.Context, contratoID uuid.UUID, valorCentavos int64, descricao string) error
	LiberarImediatoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	AgendarLiberacaoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, prevista time.Time) error
	ConfirmarCliente(ctx context.Context, contratoID uuid.UUID) error
	LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error)
	ListarLiberacoesVencidas(ctx context.Context, limite int) ([]uuid.UUID, error)
	ReembolsarCancelamento(ctx context.Context, contratoID uuid.UUID) error
	LiberarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	ReembolsarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	EstornarGateway(ctx context.Context, contratoID uuid.UUID)
	RetomarLiberacao(ctx context.Context, contratoID uuid.UUID, prevista time.Time) error
	GetPorContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error)
}

type service struct {
	repo              Store
	gateway           gateway.Gateway
	insertLiberacaoTx InsertLiberacaoTxFunc
	insertLiberacao   InsertLiberacaoFunc
	log               *slog.Logger
}

// NewService creates the escrow release scheduler. The insert funcs are
// typically closures over river.Client.
func NewService(repo Store, gw gateway.Gateway, insertLiberacaoTx InsertLiberacaoTxFunc, insertLiberacao InsertLiberacaoFunc, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, gateway: gw, insertLiberacaoTx: insertLiberacaoTx, insertLiberacao: insertLiberacao, log: log}
}

var _ Service = (*service)(nil)

func (s *service) CriarPendenteTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, valorCentavos int64) (*models.Pagamento, error) {
	p := &models.Pagamento{
		ID:            uuid.New(),
		ContratoID:    contratoID,
		ValorCentavos: valorCentavos,
		Status:        models.PagamentoStatusPendente,
	}
	if err := s.repo.CriarTx(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Financiar charges the client through the gateway and confirms funding.
func (s *service) Financiar(ctx context.Context, contratoID uuid.UUID, valorCentavos int64, descricao string) error {
	p, err := s.repo.GetByContrato(ctx, contratoID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NotFound("payment for contract %s not found", contratoID)
	}
	// Pre-check before touching the gateway so an already funded payment
	// never charges the client twice.
	if !models.PagamentoTransicaoValida(p.Status, models.PagamentoStatusPago) {
		return apperr.Conflict("payment for contract %s is not pending funding: status %s", contratoID, p.Status)
	}
	transacaoID, err := s.gateway.Cobrar(ctx, contratoID, valorCentavos, descricao)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarcarPago(ctx, contratoID, transacaoID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s is not pending funding", contratoID)
	}
	return nil
}

func (s *service) LiberarImediatoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error {
	ok, err := s.repo.LiberarImediatoTx(ctx, tx, contratoID, models.LiberadoPorCliente)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s is not funded", contratoID)
	}
	return nil
}

// AgendarLiberacaoTx parks the payment in AGUARDANDO_LIBERACAO and enqueues
// the release job at the end of the window, all in the caller's transaction.
func (s *service) AgendarLiberacaoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, prevista time.Time) error {
	ok, err := s.repo.MarcarAguardandoTx(ctx, tx, contratoID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s is not funded", contratoID)
	}
	p, err := s.repo.GetByContrato(ctx, contratoID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NotFound("payment for contract %s not found", contratoID)
	}
	return s.insertLiberacaoTx(ctx, tx, scheduler.LiberarPagamentoArgs{
		PagamentoID: p.ID,
		ContratoID:  contratoID,
	}, prevista)
}

// ConfirmarCliente accelerates a deferred release to immediate.
func (s *service) ConfirmarCliente(ctx context.Context, contratoID uuid.UUID) error {
	ok, err := s.repo.ConfirmarCliente(ctx, contratoID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s is not awaiting release, or a dispute is open", contratoID)
	}
	return nil
}

func (s *service) LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error) {
	return s.repo.LiberarSeElegivel(ctx, pagamentoID)
}

func (s *service) ListarLiberacoesVencidas(ctx context.Context, limite int) ([]uuid.UUID, error) {
	return s.repo.ListarLiberacoesVencidas(ctx, limite)
}

// ReembolsarCancelamento refunds the client when a contract is cancelled
// outright. A payment never funded, or already released, is left alone.
func (s *service) ReembolsarCancelamento(ctx context.Context, contratoID uuid.UUID) error {
	ok, err := s.repo.Reembolsar(ctx, contratoID)
	if err != nil {
		return err
	}
	if ok {
		s.EstornarGateway(ctx, contratoID)
	}
	return nil
}

func (s *service) LiberarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error {
	ok, err := s.repo.LiberarPorDisputaTx(ctx, tx, contratoID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s cannot be released", contratoID)
	}
	return nil
}

func (s *service) ReembolsarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error {
	ok, err := s.repo.ReembolsarPorDisputaTx(ctx, tx, contratoID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("payment for contract %s cannot be refunded", contratoID)
	}
	return nil
}

// EstornarGateway reverses the charge with the provider, best effort: the
// escrow record is authoritative, a failed provider call is logged and
// retried out of band.
func (s *service) EstornarGateway(ctx context.Context, contratoID uuid.UUID) {
	p, err := s.repo.GetByContrato(ctx, contratoID)
	if err != nil || p == nil || p.GatewayID == nil {
		s.log.Error("gateway refund skipped: payment unavailable", "contrato_id", contratoID, "error", err)
		return
	}
	if err := s.gateway.Estornar(ctx, *p.GatewayID, p.ValorCentavos); err != nil {
		s.log.Error("gateway refund failed", "contrato_id", contratoID, "transacao_id", *p.GatewayID, "error", err)
	}
}

// RetomarLiberacao re-enqueues the release of a payment whose freeze ended
// with the dispute dismissed. Past-due windows fire immediately.
func (s *service) RetomarLiberacao(ctx context.Context, contratoID uuid.UUID, prevista time.Time) error {
	p, err := s.repo.GetByContrato(ctx, contratoID)
	if err != nil {
		return err
	}
	if p == nil || p.Status != models.PagamentoStatusAguardandoLiberacao {
		return nil
	}
	em := prevista
	if agora := time.Now(); em.Before(agora) {
		em = agora
	}
	return s.insertLiberacao(ctx, scheduler.LiberarPagamentoArgs{
		PagamentoID: p.ID,
		ContratoID:  contratoID,
	}, em)
}

func (s *service) GetPorContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error) {
	p, err := s.repo.GetByContrato(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("payment for contract %s not found", contratoID)
	}
	return p, nil
}
