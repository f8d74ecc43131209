package disputas

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
)

// DescricaoMinima is the minimum dispute description length, in runes.
const DescricaoMinima = 10

// Store is the dispute persistence interface the service depends on.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Criar(ctx context.Context, d *models.Disputa) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Disputa, error)
	ListarPorContrato(ctx context.Context, contratoID uuid.UUID) ([]*models.Disputa, error)
	ListarPendentes(ctx context.Context) ([]*models.Disputa, error)
	ExisteAberta(ctx context.Context, contratoID uuid.UUID) (bool, error)
	MarcarEmAnalise(ctx context.Context, id, moderadorID uuid.UUID) (bool, error)
	ResolverTx(ctx context.Context, tx pgx.Tx, id, moderadorID uuid.UUID, decisao string, observacoes *string) (bool, error)
	MarcarCancelada(ctx context.Context, id, autorID uuid.UUID) (bool, error)
}

// ContratoStore resolves the contract a dispute is opened against.
type ContratoStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contrato, error)
}

// Pagamentos is the slice of the escrow service arbitration uses.
type Pagamentos interface {
	GetPorContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error)
	LiberarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	ReembolsarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) error
	EstornarGateway(ctx context.Context, contratoID uuid.UUID)
	RetomarLiberacao(ctx context.Context, contratoID uuid.UUID, prevista time.Time) error
}

type Service interface {
	Abrir(ctx context.Context, contratoID, autorID uuid.UUID, tipo, descricao string, evidencias []string) (*models.Disputa, error)
	IniciarAnalise(ctx context.Context, disputaID, moderadorID uuid.UUID) (*models.Disputa, error)
	Resolver(ctx context.Context, disputaID, moderadorID uuid.UUID, decisao string, observacoes *string) (*models.Disputa, error)
	Cancelar(ctx context.Context, disputaID, autorID uuid.UUID) (*models.Disputa, error)
	GetDisputa(ctx context.Context, disputaID, autorID uuid.UUID, moderador bool) (*models.Disputa, error)
	ListarPorContrato(ctx context.Context, contratoID, autorID uuid.UUID) ([]*models.Disputa, error)
	ListarPendentes(ctx context.Context) ([]*models.Disputa, error)
	ExisteAberta(ctx context.Context, contratoID uuid.UUID) (bool, error)
}

type service struct {
	repo       Store
	contratos  ContratoStore
	pagamentos Pagamentos
	log        *slog.Logger
}

func NewService(repo Store, contratos ContratoStore, pagamentos Pagamentos, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, contratos: contratos, pagamentos: pagamentos, log: log}
}

var _ Service = (*service)(nil)

// Abrir opens a dispute against a funded contract. The freeze on a pending
// release is implicit: the release job re-checks for open disputes at fire
// time, so inserting the ABERTA row is enough to block it.
func (s *service) Abrir(ctx context.Context, contratoID, autorID uuid.UUID, tipo, descricao string, evidencias []string) (*models.Disputa, error) {
	if _, ok := models.ValidDisputaTipos[tipo]; !ok {
		return nil, apperr.Validation("invalid dispute tipo %q", tipo)
	}
	if utf8.RuneCountInString(descricao) < DescricaoMinima {
		return nil, apperr.Validation("descricao must have at least %d characters", DescricaoMinima)
	}

	c, err := s.contratos.GetByID(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("contract %s not found", contratoID)
	}
	if c.ParteDe(autorID) == "" {
		return nil, apperr.Authorization("not a party to this contract")
	}
	if c.DataInicio == nil {
		return nil, apperr.Validation("work has not started on this contract")
	}
	if c.Status == models.ContratoStatusCancelado {
		return nil, apperr.Validation("contract is cancelled")
	}
	p, err := s.pagamentos.GetPorContrato(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if !p.PagoViaPlataforma() {
		return nil, apperr.Validation("payment did not go through the platform")
	}

	d := &models.Disputa{
		ID:         uuid.New(),
		ContratoID: contratoID,
		AutorID:    autorID,
		Tipo:       tipo,
		Descricao:  descricao,
		Evidencias: evidencias,
		Status:     models.DisputaStatusAberta,
	}
	if err := s.repo.Criar(ctx, d); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("an open dispute for this contract already exists")
		}
		return nil, err
	}
	s.log.Info("dispute opened", "disputa_id", d.ID, "contrato_id", contratoID, "tipo", tipo)
	return d, nil
}

// IniciarAnalise assigns the dispute to the moderator for review.
func (s *service) IniciarAnalise(ctx context.Context, disputaID, moderadorID uuid.UUID) (*models.Disputa, error) {
	d, err := s.carregar(ctx, disputaID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.MarcarEmAnalise(ctx, d.ID, moderadorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("dispute is not open: status %s", d.Status)
	}
	return s.repo.GetByID(ctx, d.ID)
}

// Resolver closes the dispute with the moderator's decision and applies the
// payment disposition in the same transaction. Gateway reversal for a refund
// happens after commit; the escrow record is authoritative either way.
func (s *service) Resolver(ctx context.Context, disputaID, moderadorID uuid.UUID, decisao string, observacoes *string) (*models.Disputa, error) {
	if _, ok := models.ValidDecisoes[decisao]; !ok {
		return nil, apperr.Validation("invalid decisao %q", decisao)
	}
	if decisao == models.DecisaoDividir && (observacoes == nil || *observacoes == "") {
		return nil, apperr.Validation("DIVIDIR requires observacoes describing the split")
	}
	d, err := s.carregar(ctx, disputaID)
	if err != nil {
		return nil, err
	}
	if !d.Aberta() {
		return nil, apperr.Conflict("dispute already closed: status %s", d.Status)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.ResolverTx(ctx, tx, d.ID, moderadorID, decisao, observacoes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("dispute is no longer open")
	}

	switch decisao {
	case models.DecisaoFavorCliente:
		if err := s.pagamentos.ReembolsarPorDisputaTx(ctx, tx, d.ContratoID); err != nil {
			return nil, err
		}
	case models.DecisaoFavorPrestador, models.DecisaoDividir:
		// DIVIDIR keeps the single-status escrow record: funds go out as
		// LIBERADO and the split amounts live in observacoes.
		if err := s.pagamentos.LiberarPorDisputaTx(ctx, tx, d.ContratoID); err != nil {
			return nil, err
		}
	case models.DecisaoCancelar:
		// Claim dismissed. A payment already LIBERADO stays put; a frozen one
		// resumes its scheduled release after commit.
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	switch decisao {
	case models.DecisaoFavorCliente:
		s.pagamentos.EstornarGateway(ctx, d.ContratoID)
	case models.DecisaoCancelar:
		s.retomarLiberacao(ctx, d.ContratoID)
	}
	s.log.Info("dispute resolved", "disputa_id", d.ID, "decisao", decisao, "moderador_id", moderadorID)
	return s.repo.GetByID(ctx, d.ID)
}

// Cancelar withdraws the dispute; only the author may do it. A frozen release
// resumes.
func (s *service) Cancelar(ctx context.Context, disputaID, autorID uuid.UUID) (*models.Disputa, error) {
	d, err := s.carregar(ctx, disputaID)
	if err != nil {
		return nil, err
	}
	if d.AutorID != autorID {
		return nil, apperr.Authorization("only the author may withdraw a dispute")
	}
	ok, err := s.repo.MarcarCancelada(ctx, d.ID, autorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("dispute is not open: status %s", d.Status)
	}
	s.retomarLiberacao(ctx, d.ContratoID)
	return s.repo.GetByID(ctx, d.ID)
}

func (s *service) GetDisputa(ctx context.Context, disputaID, autorID uuid.UUID, moderador bool) (*models.Disputa, error) {
	d, err := s.carregar(ctx, disputaID)
	if err != nil {
		return nil, err
	}
	if moderador {
		return d, nil
	}
	c, err := s.contratos.GetByID(ctx, d.ContratoID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.ParteDe(autorID) == "" {
		return nil, apperr.Authorization("not a party to this dispute")
	}
	return d, nil
}

func (s *service) ListarPorContrato(ctx context.Context, contratoID, autorID uuid.UUID) ([]*models.Disputa, error) {
	c, err := s.contratos.GetByID(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("contract %s not found", contratoID)
	}
	if c.ParteDe(autorID) == "" {
		return nil, apperr.Authorization("not a party to this contract")
	}
	return s.repo.ListarPorContrato(ctx, contratoID)
}

func (s *service) ListarPendentes(ctx context.Context) ([]*models.Disputa, error) {
	return s.repo.ListarPendentes(ctx)
}

func (s *service) ExisteAberta(ctx context.Context, contratoID uuid.UUID) (bool, error) {
	return s.repo.ExisteAberta(ctx, contratoID)
}

// retomarLiberacao re-enqueues a release frozen by this dispute; past-due
// windows fire immediately. Failures are logged, the periodic sweep is the
// backstop.
func (s *service) retomarLiberacao(ctx context.Context, contratoID uuid.UUID) {
	c, err := s.contratos.GetByID(ctx, contratoID)
	if err != nil || c == nil {
		s.log.Error("release resume skipped: contract unavailable", "contrato_id", contratoID, "error", err)
		return
	}
	if !c.AguardandoLiberacao || c.DataLiberacaoPrevista == nil {
		return
	}
	if err := s.pagamentos.RetomarLiberacao(ctx, contratoID, *c.DataLiberacaoPrevista); err != nil {
		s.log.Error("release resume failed", "contrato_id", contratoID, "error", err)
	}
}

func (s *service) carregar(ctx context.Context, id uuid.UUID) (*models.Disputa, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("dispute %s not found", id)
	}
	return d, nil
}
