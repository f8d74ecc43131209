package contratos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
)

// JanelaPadrao is the default deferred-release window for provider-finalized
// contracts.
const JanelaPadrao = 24 * time.Hour

// Store is the contract persistence interface the service depends on.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CriarTx(ctx context.Context, tx pgx.Tx, c *models.Contrato) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contrato, error)
	ListarPorUsuario(ctx context.Context, usuarioID uuid.UUID) ([]*models.Contrato, error)
	MarcarIniciado(ctx context.Context, id uuid.UUID, quem string, fotosAntes []string) (bool, error)
	MarcarConcluidoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, quem string, fotosDepois []string) (bool, error)
	MarcarAguardandoLiberacaoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, prevista time.Time) error
	MarcarCancelado(ctx context.Context, id uuid.UUID) (bool, error)
	InserirAvaliacao(ctx context.Context, a *models.Avaliacao) error
	ListarAvaliacoes(ctx context.Context, contratoID uuid.UUID) ([]*models.Avaliacao, error)
}

// Pagamentos is the slice of the escrow service the contract lifecycle uses.
type Pagamentos interface {
	CriarPendenteTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, valorCentavos int64) (*models.Pagamento, error)
	Financiar(ctx context.Context, contratoID uuid.UUID, valorCentavos int64, descricao string) error
	LiberarImediatoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	AgendarLiberacaoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, prevista time.Time) error
	ConfirmarCliente(ctx context.Context, contratoID uuid.UUID) error
	ReembolsarCancelamento(ctx context.Context, contratoID uuid.UUID) error
	GetPorContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error)
}

// DisputaChecker reports whether the contract has an open dispute.
type DisputaChecker interface {
	ExisteAberta(ctx context.Context, contratoID uuid.UUID) (bool, error)
}

// Projetor receives post status projection events.
type Projetor interface {
	Projetar(ctx context.Context, postID uuid.UUID, status string)
}

type Service interface {
	CriarDeOrcamentoTx(ctx context.Context, tx pgx.Tx, o *models.Orcamento) (*models.Contrato, error)
	Financiar(ctx context.Context, contratoID uuid.UUID) error
	Iniciar(ctx context.Context, contratoID, autorID uuid.UUID, fotosAntes []string) (*models.Contrato, error)
	Concluir(ctx context.Context, contratoID, autorID uuid.UUID, fotosDepois []string) (*models.Contrato, error)
	ConfirmarConclusao(ctx context.Context, contratoID, clienteID uuid.UUID, nota int, comentario string) (*models.Contrato, error)
	Cancelar(ctx context.Context, contratoID, autorID uuid.UUID) (*models.Contrato, error)
	GetContrato(ctx context.Context, contratoID, autorID uuid.UUID) (*models.Contrato, error)
	ListarDoUsuario(ctx context.Context, usuarioID uuid.UUID) ([]*models.Contrato, error)
	ListarAvaliacoes(ctx context.Context, contratoID, autorID uuid.UUID) ([]*models.Avaliacao, error)
}

type service struct {
	repo       Store
	pagamentos Pagamentos
	disputas   DisputaChecker
	projector  Projetor
	janela     time.Duration
	log        *slog.Logger
}

// NewService creates the contract lifecycle service. janela is the deferred
// release window; zero means JanelaPadrao.
func NewService(repo Store, pagamentos Pagamentos, disputas DisputaChecker, projector Projetor, janela time.Duration, log *slog.Logger) *service {
	if janela <= 0 {
		janela = JanelaPadrao
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, pagamentos: pagamentos, disputas: disputas, projector: projector, janela: janela, log: log}
}

var _ Service = (*service)(nil)

// CriarDeOrcamentoTx materializes an accepted quote as a contract with its
// pending escrow record, inside the acceptance transaction.
func (s *service) CriarDeOrcamentoTx(ctx context.Context, tx pgx.Tx, o *models.Orcamento) (*models.Contrato, error) {
	c := &models.Contrato{
		ID:            uuid.New(),
		PostID:        o.PostID,
		OrcamentoID:   o.ID,
		ClienteID:     o.ClienteID,
		PrestadorID:   o.PrestadorID,
		ValorCentavos: o.ValorCentavos,
		Status:        models.ContratoStatusAtivo,
	}
	if err := s.repo.CriarTx(ctx, tx, c); err != nil {
		return nil, err
	}
	if _, err := s.pagamentos.CriarPendenteTx(ctx, tx, c.ID, c.ValorCentavos); err != nil {
		return nil, err
	}
	return c, nil
}

// Financiar charges the client for the contract value through the gateway.
func (s *service) Financiar(ctx context.Context, contratoID uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, contratoID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound("contract %s not found", contratoID)
	}
	descricao := fmt.Sprintf("contrato %s", c.ID)
	return s.pagamentos.Financiar(ctx, c.ID, c.ValorCentavos, descricao)
}

// Iniciar starts execution. Either party may start, only once, and only
// after the escrow is funded.
func (s *service) Iniciar(ctx context.Context, contratoID, autorID uuid.UUID, fotosAntes []string) (*models.Contrato, error) {
	c, err := s.carregarParte(ctx, contratoID, autorID)
	if err != nil {
		return nil, err
	}
	quem := c.ParteDe(autorID)
	p, err := s.pagamentos.GetPorContrato(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if !p.PagoViaPlataforma() {
		return nil, apperr.Conflict("contract is not funded yet")
	}
	ok, err := s.repo.MarcarIniciado(ctx, c.ID, quem, fotosAntes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("contract is not startable: status %s", c.Status)
	}
	s.projector.Projetar(ctx, c.PostID, models.PostStatusEmExecucao)
	return s.repo.GetByID(ctx, c.ID)
}

// Concluir ends execution and sets the payment release in motion. The side
// that finalizes decides the path: the client finalizing releases immediately,
// the provider finalizing opens the deferred window.
func (s *service) Concluir(ctx context.Context, contratoID, autorID uuid.UUID, fotosDepois []string) (*models.Contrato, error) {
	c, err := s.carregarParte(ctx, contratoID, autorID)
	if err != nil {
		return nil, err
	}
	quem := c.ParteDe(autorID)

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.MarcarConcluidoTx(ctx, tx, c.ID, quem, fotosDepois)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("contract is not in execution: status %s", c.Status)
	}

	postStatus := models.PostStatusTrabalhoConcluido
	if quem == models.ParteCliente {
		if err := s.pagamentos.LiberarImediatoTx(ctx, tx, c.ID); err != nil {
			return nil, err
		}
		postStatus = models.PostStatusFinalizado
	} else {
		prevista := time.Now().Add(s.janela)
		if err := s.pagamentos.AgendarLiberacaoTx(ctx, tx, c.ID, prevista); err != nil {
			return nil, err
		}
		if err := s.repo.MarcarAguardandoLiberacaoTx(ctx, tx, c.ID, prevista); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.projector.Projetar(ctx, c.PostID, postStatus)
	return s.repo.GetByID(ctx, c.ID)
}

// ConfirmarConclusao is the client accepting a provider-finalized job: it
// accelerates the deferred release and optionally records a rating.
func (s *service) ConfirmarConclusao(ctx context.Context, contratoID, clienteID uuid.UUID, nota int, comentario string) (*models.Contrato, error) {
	c, err := s.carregarParte(ctx, contratoID, clienteID)
	if err != nil {
		return nil, err
	}
	if c.ClienteID != clienteID {
		return nil, apperr.Authorization("only the client confirms completion")
	}
	if c.Status != models.ContratoStatusConcluido {
		return nil, apperr.Conflict("contract is not completed: status %s", c.Status)
	}
	if c.AguardandoLiberacao {
		if err := s.pagamentos.ConfirmarCliente(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	if nota != 0 {
		if nota < 1 || nota > 5 {
			return nil, apperr.Validation("nota must be between 1 and 5")
		}
		a := &models.Avaliacao{
			ID:         uuid.New(),
			ContratoID: c.ID,
			AutorID:    clienteID,
			AvaliadoID: c.PrestadorID,
			Nota:       nota,
			Comentario: comentario,
		}
		if err := s.repo.InserirAvaliacao(ctx, a); err != nil {
			return nil, err
		}
	}
	s.projector.Projetar(ctx, c.PostID, models.PostStatusFinalizado)
	return s.repo.GetByID(ctx, c.ID)
}

// Cancelar ends the contract before completion. A funded escrow is refunded
// unless a dispute is open, in which case arbitration decides the money.
func (s *service) Cancelar(ctx context.Context, contratoID, autorID uuid.UUID) (*models.Contrato, error) {
	c, err := s.carregarParte(ctx, contratoID, autorID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.MarcarCancelado(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("contract is not cancellable: status %s", c.Status)
	}

	disputada, err := s.disputas.ExisteAberta(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !disputada {
		if err := s.pagamentos.ReembolsarCancelamento(ctx, c.ID); err != nil {
			s.log.Error("refund on cancellation failed", "contrato_id", c.ID, "error", err)
		}
	}
	s.projector.Projetar(ctx, c.PostID, models.PostStatusCancelado)
	return s.repo.GetByID(ctx, c.ID)
}

func (s *service) GetContrato(ctx context.Context, contratoID, autorID uuid.UUID) (*models.Contrato, error) {
	return s.carregarParte(ctx, contratoID, autorID)
}

func (s *service) ListarDoUsuario(ctx context.Context, usuarioID uuid.UUID) ([]*models.Contrato, error) {
	return s.repo.ListarPorUsuario(ctx, usuarioID)
}

func (s *service) ListarAvaliacoes(ctx context.Context, contratoID, autorID uuid.UUID) ([]*models.Avaliacao, error) {
	if _, err := s.carregarParte(ctx, contratoID, autorID); err != nil {
		return nil, err
	}
	return s.repo.ListarAvaliacoes(ctx, contratoID)
}

func (s *service) carregarParte(ctx context.Context, contratoID, autorID uuid.UUID) (*models.Contrato, error) {
	c, err := s.repo.GetByID(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("contract %s not found", contratoID)
	}
	if c.ParteDe(autorID) == "" {
		return nil, apperr.Authorization("not a party to this contract")
	}
	return c, nil
}
