package orcamentos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
)

// ValidadePadrao is the default quote lifetime when none is configured.
const ValidadePadrao = 7 * 24 * time.Hour

// Store is the quote persistence interface the service depends on.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, o *models.Orcamento) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Orcamento, error)
	ListByPost(ctx context.Context, postID uuid.UUID) ([]*models.Orcamento, error)
	MarcarNegociando(ctx context.Context, id uuid.UUID) (bool, error)
	MarcarRespondidoTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error)
	MarcarExpirado(ctx context.Context, id uuid.UUID) (bool, error)
	ExpirarVencidos(ctx context.Context) (int64, error)
	AtualizarProposta(ctx context.Context, id uuid.UUID, valorCentavos *int64, prazoDias *int) error
	AppendNegociacao(ctx context.Context, n *models.Negociacao) error
	AppendNegociacaoTx(ctx context.Context, tx pgx.Tx, n *models.Negociacao) error
	ListNegociacoes(ctx context.Context, orcamentoID uuid.UUID) ([]*models.Negociacao, error)
}

// PostStore resolves the post a quote is submitted against.
type PostStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

// ContratoCreator turns an accepted quote into an engagement. Creation runs in
// the acceptance transaction; funding runs after commit.
type ContratoCreator interface {
	CriarDeOrcamentoTx(ctx context.Context, tx pgx.Tx, o *models.Orcamento) (*models.Contrato, error)
	Financiar(ctx context.Context, contratoID uuid.UUID) error
}

// Projetor receives post status projection events.
type Projetor interface {
	Projetar(ctx context.Context, postID uuid.UUID, status string)
}

type Service interface {
	Submeter(ctx context.Context, prestadorID, postID uuid.UUID, valorCentavos int64, prazoDias int, condicoes, descricao string) (*models.Orcamento, error)
	IniciarNegociacao(ctx context.Context, orcamentoID, autorID uuid.UUID) (*models.Orcamento, error)
	Contrapropor(ctx context.Context, orcamentoID, autorID uuid.UUID, valorCentavos *int64, prazoDias *int, descricao string) (*models.Negociacao, error)
	Perguntar(ctx context.Context, orcamentoID, autorID uuid.UUID, descricao string) (*models.Negociacao, error)
	Responder(ctx context.Context, orcamentoID, autorID uuid.UUID, decisao string) (*models.Orcamento, error)
	GetOrcamento(ctx context.Context, orcamentoID, autorID uuid.UUID) (*models.Orcamento, error)
	ListarPorPost(ctx context.Context, postID uuid.UUID) ([]*models.Orcamento, error)
	ListarNegociacoes(ctx context.Context, orcamentoID, autorID uuid.UUID) ([]*models.Negociacao, error)
	ExpirarVencidos(ctx context.Context) (int64, error)
}

type service struct {
	repo      Store
	posts     PostStore
	contratos ContratoCreator
	projector Projetor
	validade  time.Duration
	log       *slog.Logger
}

// NewService creates the quote ledger. validade is the quote lifetime; zero
// means ValidadePadrao.
func NewService(repo Store, posts PostStore, contratos ContratoCreator, projector Projetor, validade time.Duration, log *slog.Logger) *service {
	if validade <= 0 {
		validade = ValidadePadrao
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, posts: posts, contratos: contratos, projector: projector, validade: validade, log: log}
}

var _ Service = (*service)(nil)

func (s *service) Submeter(ctx context.Context, prestadorID, postID uuid.UUID, valorCentavos int64, prazoDias int, condicoes, descricao string) (*models.Orcamento, error) {
	if valorCentavos <= 0 {
		return nil, apperr.Validation("valor must be greater than zero")
	}
	if prazoDias <= 0 {
		return nil, apperr.Validation("prazo_execucao_dias must be greater than zero")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("post %s not found", postID)
	}
	if post.ClienteID == prestadorID {
		return nil, apperr.Validation("cannot submit a quote on your own post")
	}
	if post.Status != models.PostStatusAberto {
		return nil, apperr.Conflict("post is not open for quotes")
	}

	o := &models.Orcamento{
		ID:                 uuid.New(),
		PostID:             postID,
		PrestadorID:        prestadorID,
		ClienteID:          post.ClienteID,
		ValorCentavos:      valorCentavos,
		Descricao:          descricao,
		PrazoExecucaoDias:  prazoDias,
		CondicoesPagamento: condicoes,
		Status:             models.OrcamentoStatusPendente,
		DataExpiracao:      time.Now().Add(s.validade),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("an active quote for this post already exists")
		}
		return nil, err
	}

	n := &models.Negociacao{
		ID:            uuid.New(),
		OrcamentoID:   o.ID,
		Tipo:          models.NegociacaoProposta,
		ValorCentavos: &o.ValorCentavos,
		PrazoDias:     &o.PrazoExecucaoDias,
		Descricao:     descricao,
		AutorID:       prestadorID,
	}
	if err := s.repo.AppendNegociacao(ctx, n); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) IniciarNegociacao(ctx context.Context, orcamentoID, autorID uuid.UUID) (*models.Orcamento, error) {
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if err := s.conferirParte(o, autorID); err != nil {
		return nil, err
	}
	if o.Status == models.OrcamentoStatusExpirado {
		return nil, apperr.Expired("quote expired on %s", o.DataExpiracao.Format(time.RFC3339))
	}
	ok, err := s.repo.MarcarNegociando(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("quote is not pending: status %s", o.Status)
	}
	o.Status = models.OrcamentoStatusNegociando
	return o, nil
}

func (s *service) Contrapropor(ctx context.Context, orcamentoID, autorID uuid.UUID, valorCentavos *int64, prazoDias *int, descricao string) (*models.Negociacao, error) {
	if valorCentavos != nil && *valorCentavos <= 0 {
		return nil, apperr.Validation("valor must be greater than zero")
	}
	if prazoDias != nil && *prazoDias <= 0 {
		return nil, apperr.Validation("prazo must be greater than zero")
	}
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if err := s.conferirParte(o, autorID); err != nil {
		return nil, err
	}
	if o.Status == models.OrcamentoStatusExpirado {
		return nil, apperr.Expired("quote expired on %s", o.DataExpiracao.Format(time.RFC3339))
	}
	if o.Status != models.OrcamentoStatusNegociando {
		return nil, apperr.Conflict("quote is not under negotiation: status %s", o.Status)
	}

	n := &models.Negociacao{
		ID:            uuid.New(),
		OrcamentoID:   o.ID,
		Tipo:          models.NegociacaoContraproposta,
		ValorCentavos: valorCentavos,
		PrazoDias:     prazoDias,
		Descricao:     descricao,
		AutorID:       autorID,
	}
	if err := s.repo.AppendNegociacao(ctx, n); err != nil {
		return nil, err
	}
	if err := s.repo.AtualizarProposta(ctx, o.ID, valorCentavos, prazoDias); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) Perguntar(ctx context.Context, orcamentoID, autorID uuid.UUID, descricao string) (*models.Negociacao, error) {
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if err := s.conferirParte(o, autorID); err != nil {
		return nil, err
	}
	if o.Status == models.OrcamentoStatusExpirado {
		return nil, apperr.Expired("quote expired on %s", o.DataExpiracao.Format(time.RFC3339))
	}
	if models.OrcamentoStatusTerminal(o.Status) {
		return nil, apperr.Conflict("quote thread is closed: status %s", o.Status)
	}
	n := &models.Negociacao{
		ID:          uuid.New(),
		OrcamentoID: o.ID,
		Tipo:        models.NegociacaoPergunta,
		Descricao:   descricao,
		AutorID:     autorID,
	}
	if err := s.repo.AppendNegociacao(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Responder closes the quote. Only the client decides; an accept creates the
// engagement in the same transaction and triggers funding after commit.
func (s *service) Responder(ctx context.Context, orcamentoID, autorID uuid.UUID, decisao string) (*models.Orcamento, error) {
	if decisao != models.OrcamentoStatusAceito && decisao != models.OrcamentoStatusRejeitado {
		return nil, apperr.Validation("decisao must be ACEITO or REJEITADO")
	}
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if autorID != o.ClienteID {
		return nil, apperr.Authorization("only the client may respond to a quote")
	}
	if o.Status == models.OrcamentoStatusExpirado {
		return nil, apperr.Expired("quote expired on %s", o.DataExpiracao.Format(time.RFC3339))
	}
	if models.OrcamentoStatusTerminal(o.Status) {
		return nil, apperr.Conflict("quote already %s", o.Status)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.MarcarRespondidoTx(ctx, tx, o.ID, decisao)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("quote is no longer actionable")
	}

	tipo := models.NegociacaoAceite
	if decisao == models.OrcamentoStatusRejeitado {
		tipo = models.NegociacaoRejeicao
	}
	evento := &models.Negociacao{
		ID:          uuid.New(),
		OrcamentoID: o.ID,
		Tipo:        tipo,
		AutorID:     autorID,
	}
	if err := s.repo.AppendNegociacaoTx(ctx, tx, evento); err != nil {
		return nil, err
	}

	var contrato *models.Contrato
	if decisao == models.OrcamentoStatusAceito {
		contrato, err = s.contratos.CriarDeOrcamentoTx(ctx, tx, o)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	o.Status = decisao
	if contrato != nil {
		s.projector.Projetar(ctx, o.PostID, models.PostStatusOrcamentoAceito)
		if err := s.contratos.Financiar(ctx, contrato.ID); err != nil {
			// Funding failure leaves the payment PENDENTE; the client can retry.
			s.log.Error("contract funding failed", "contrato_id", contrato.ID, "error", err)
		}
	}
	return o, nil
}

func (s *service) GetOrcamento(ctx context.Context, orcamentoID, autorID uuid.UUID) (*models.Orcamento, error) {
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if err := s.conferirParte(o, autorID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListarPorPost(ctx context.Context, postID uuid.UUID) ([]*models.Orcamento, error) {
	return s.repo.ListByPost(ctx, postID)
}

func (s *service) ListarNegociacoes(ctx context.Context, orcamentoID, autorID uuid.UUID) ([]*models.Negociacao, error) {
	o, err := s.carregarAtual(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}
	if err := s.conferirParte(o, autorID); err != nil {
		return nil, err
	}
	return s.repo.ListNegociacoes(ctx, o.ID)
}

// ExpirarVencidos is called by the periodic sweep worker.
func (s *service) ExpirarVencidos(ctx context.Context) (int64, error) {
	return s.repo.ExpirarVencidos(ctx)
}

// carregarAtual loads the quote and applies lazy expiration: a quote past its
// expiration timestamp is marked EXPIRADO before anyone can act on it.
func (s *service) carregarAtual(ctx context.Context, id uuid.UUID) (*models.Orcamento, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("quote %s not found", id)
	}
	if !models.OrcamentoStatusTerminal(o.Status) && o.Vencido(time.Now()) {
		if _, err := s.repo.MarcarExpirado(ctx, o.ID); err != nil {
			return nil, err
		}
		o.Status = models.OrcamentoStatusExpirado
	}
	return o, nil
}

func (s *service) conferirParte(o *models.Orcamento, autorID uuid.UUID) error {
	if autorID != o.ClienteID && autorID != o.PrestadorID {
		return apperr.Authorization("not a party to this quote")
	}
	return nil
}
