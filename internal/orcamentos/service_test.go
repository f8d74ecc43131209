package orcamentos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks. These exercise the real quote service logic without a
// database; the ON CONFLICT behavior of the partial unique index is simulated
// by scanning for an existing active quote.
// ---------------------------------------------------------------------------

type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type mockStore struct {
	mu          sync.Mutex
	orcamentos  map[uuid.UUID]*models.Orcamento
	negociacoes []*models.Negociacao
}

func newMockStore() *mockStore {
	return &mockStore{orcamentos: make(map[uuid.UUID]*models.Orcamento)}
}

func (m *mockStore) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (m *mockStore) Create(_ context.Context, o *models.Orcamento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orcamentos {
		if existing.PostID == o.PostID && existing.PrestadorID == o.PrestadorID &&
			!models.OrcamentoStatusTerminal(existing.Status) {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *o
	cp.DataCriacao = time.Now()
	m.orcamentos[o.ID] = &cp
	o.DataCriacao = cp.DataCriacao
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id uuid.UUID) (*models.Orcamento, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orcamentos[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) ListByPost(_ context.Context, postID uuid.UUID) ([]*models.Orcamento, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Orcamento
	for _, o := range m.orcamentos {
		if o.PostID == postID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) setStatus(id uuid.UUID, from []string, to string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orcamentos[id]
	if !ok {
		return false
	}
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			return true
		}
	}
	return false
}

func (m *mockStore) MarcarNegociando(_ context.Context, id uuid.UUID) (bool, error) {
	return m.setStatus(id, []string{models.OrcamentoStatusPendente}, models.OrcamentoStatusNegociando), nil
}

func (m *mockStore) MarcarRespondidoTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) (bool, error) {
	return m.setStatus(id, []string{models.OrcamentoStatusPendente, models.OrcamentoStatusNegociando}, status), nil
}

func (m *mockStore) MarcarExpirado(_ context.Context, id uuid.UUID) (bool, error) {
	return m.setStatus(id, []string{models.OrcamentoStatusPendente, models.OrcamentoStatusNegociando}, models.OrcamentoStatusExpirado), nil
}

func (m *mockStore) ExpirarVencidos(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	agora := time.Now()
	for _, o := range m.orcamentos {
		if !models.OrcamentoStatusTerminal(o.Status) && o.Vencido(agora) {
			o.Status = models.OrcamentoStatusExpirado
			n++
		}
	}
	return n, nil
}

func (m *mockStore) AtualizarProposta(_ context.Context, id uuid.UUID, valorCentavos *int64, prazoDias *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orcamentos[id]
	if valorCentavos != nil {
		o.ValorCentavos = *valorCentavos
	}
	if prazoDias != nil {
		o.PrazoExecucaoDias = *prazoDias
	}
	o.Contrapropostas++
	return nil
}

func (m *mockStore) AppendNegociacao(_ context.Context, n *models.Negociacao) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.negociacoes = append(m.negociacoes, &cp)
	return nil
}

func (m *mockStore) AppendNegociacaoTx(ctx context.Context, _ pgx.Tx, n *models.Negociacao) error {
	return m.AppendNegociacao(ctx, n)
}

func (m *mockStore) ListNegociacoes(_ context.Context, orcamentoID uuid.UUID) ([]*models.Negociacao, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Negociacao
	for _, n := range m.negociacoes {
		if n.OrcamentoID == orcamentoID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) eventos(orcamentoID uuid.UUID, tipo string) []*models.Negociacao {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Negociacao
	for _, n := range m.negociacoes {
		if n.OrcamentoID == orcamentoID && n.Tipo == tipo {
			out = append(out, n)
		}
	}
	return out
}

// ---

type mockPosts struct {
	posts map[uuid.UUID]*models.Post
}

func (m *mockPosts) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type mockContratos struct {
	mu       sync.Mutex
	criados  []*models.Contrato
	fundados []uuid.UUID
	fundErr  error
}

func (m *mockContratos) CriarDeOrcamentoTx(_ context.Context, _ pgx.Tx, o *models.Orcamento) (*models.Contrato, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Contrato{
		ID:            uuid.New(),
		PostID:        o.PostID,
		OrcamentoID:   o.ID,
		ClienteID:     o.ClienteID,
		PrestadorID:   o.PrestadorID,
		ValorCentavos: o.ValorCentavos,
		Status:        models.ContratoStatusAtivo,
	}
	m.criados = append(m.criados, c)
	return c, nil
}

func (m *mockContratos) Financiar(_ context.Context, contratoID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fundErr != nil {
		return m.fundErr
	}
	m.fundados = append(m.fundados, contratoID)
	return nil
}

type mockProjetor struct {
	mu      sync.Mutex
	eventos map[uuid.UUID][]string
}

func newMockProjetor() *mockProjetor {
	return &mockProjetor{eventos: make(map[uuid.UUID][]string)}
}

func (m *mockProjetor) Projetar(_ context.Context, postID uuid.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventos[postID] = append(m.eventos[postID], status)
}

func (m *mockProjetor) ultimo(postID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.eventos[postID]
	if len(ev) == 0 {
		return ""
	}
	return ev[len(ev)-1]
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fixture struct {
	store     *mockStore
	posts     *mockPosts
	contratos *mockContratos
	projetor  *mockProjetor
	svc       Service

	clienteID   uuid.UUID
	prestadorID uuid.UUID
	postID      uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:       newMockStore(),
		contratos:   &mockContratos{},
		projetor:    newMockProjetor(),
		clienteID:   uuid.New(),
		prestadorID: uuid.New(),
		postID:      uuid.New(),
	}
	f.posts = &mockPosts{posts: map[uuid.UUID]*models.Post{
		f.postID: {ID: f.postID, ClienteID: f.clienteID, Status: models.PostStatusAberto},
	}}
	f.svc = NewService(f.store, f.posts, f.contratos, f.projetor, time.Hour, nil)
	return f
}

func (f *fixture) submeter(t *testing.T) *models.Orcamento {
	t.Helper()
	o, err := f.svc.Submeter(context.Background(), f.prestadorID, f.postID, 15000, 5, "50% adiantado", "pintura completa")
	if err != nil {
		t.Fatalf("Submeter: %v", err)
	}
	return o
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSubmeter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o := f.submeter(t)
	if o.Status != models.OrcamentoStatusPendente {
		t.Errorf("status: got %s, want PENDENTE", o.Status)
	}
	if o.DataExpiracao.Before(time.Now()) {
		t.Error("quote should expire in the future")
	}

	// The submission itself is the first negotiation event.
	props := f.store.eventos(o.ID, models.NegociacaoProposta)
	if len(props) != 1 {
		t.Fatalf("PROPOSTA events: got %d, want 1", len(props))
	}
	if props[0].ValorCentavos == nil || *props[0].ValorCentavos != 15000 {
		t.Error("PROPOSTA event should carry the quoted value")
	}

	// A second active quote on the same post is a conflict.
	if _, err := f.svc.Submeter(ctx, f.prestadorID, f.postID, 12000, 3, "", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate active quote: got %v, want conflict", err)
	}

	// Quoting your own post is invalid.
	if _, err := f.svc.Submeter(ctx, f.clienteID, f.postID, 12000, 3, "", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("own post: got %v, want validation error", err)
	}

	// Non-positive value is invalid.
	if _, err := f.svc.Submeter(ctx, f.prestadorID, f.postID, 0, 3, "", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("zero value: got %v, want validation error", err)
	}
}

func TestNegociacao(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.submeter(t)

	// A counter-proposal straight from PENDENTE is a conflict: negotiation
	// must be opened first.
	valor := int64(13000)
	if _, err := f.svc.Contrapropor(ctx, o.ID, f.clienteID, &valor, nil, "um pouco caro"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("counter before negotiation: got %v, want conflict", err)
	}

	if _, err := f.svc.IniciarNegociacao(ctx, o.ID, f.clienteID); err != nil {
		t.Fatalf("IniciarNegociacao: %v", err)
	}

	// Opening twice is a conflict.
	if _, err := f.svc.IniciarNegociacao(ctx, o.ID, f.clienteID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("reopen negotiation: got %v, want conflict", err)
	}

	n, err := f.svc.Contrapropor(ctx, o.ID, f.clienteID, &valor, nil, "um pouco caro")
	if err != nil {
		t.Fatalf("Contrapropor: %v", err)
	}
	if n.Tipo != models.NegociacaoContraproposta {
		t.Errorf("event tipo: got %s, want CONTRAPROPOSTA", n.Tipo)
	}

	// The counter-proposal updates the quote's current terms.
	atual, _ := f.store.GetByID(ctx, o.ID)
	if atual.ValorCentavos != valor {
		t.Errorf("quote value after counter: got %d, want %d", atual.ValorCentavos, valor)
	}
	if atual.Contrapropostas != 1 {
		t.Errorf("counter count: got %d, want 1", atual.Contrapropostas)
	}

	// Outsiders cannot participate.
	if _, err := f.svc.Perguntar(ctx, o.ID, uuid.New(), "posso ver fotos?"); !apperr.Is(err, apperr.KindAuthorization) {
		t.Errorf("outsider question: got %v, want authorization error", err)
	}
}

func TestResponderAceito(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.submeter(t)

	// Only the client decides.
	if _, err := f.svc.Responder(ctx, o.ID, f.prestadorID, models.OrcamentoStatusAceito); !apperr.Is(err, apperr.KindAuthorization) {
		t.Fatalf("provider responding: got %v, want authorization error", err)
	}

	res, err := f.svc.Responder(ctx, o.ID, f.clienteID, models.OrcamentoStatusAceito)
	if err != nil {
		t.Fatalf("Responder: %v", err)
	}
	if res.Status != models.OrcamentoStatusAceito {
		t.Errorf("status: got %s, want ACEITO", res.Status)
	}

	// Acceptance creates the contract, funds it and projects the post status.
	if len(f.contratos.criados) != 1 {
		t.Fatalf("contracts created: got %d, want 1", len(f.contratos.criados))
	}
	c := f.contratos.criados[0]
	if c.ValorCentavos != o.ValorCentavos || c.OrcamentoID != o.ID {
		t.Error("contract should carry the accepted quote terms")
	}
	if len(f.contratos.fundados) != 1 || f.contratos.fundados[0] != c.ID {
		t.Error("accepted contract should be funded")
	}
	if got := f.projetor.ultimo(f.postID); got != models.PostStatusOrcamentoAceito {
		t.Errorf("post projection: got %q, want ORCAMENTO_ACEITO", got)
	}
	if len(f.store.eventos(o.ID, models.NegociacaoAceite)) != 1 {
		t.Error("acceptance should append an ACEITE event")
	}

	// A terminal quote cannot be answered again.
	if _, err := f.svc.Responder(ctx, o.ID, f.clienteID, models.OrcamentoStatusRejeitado); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("double response: got %v, want conflict", err)
	}
}

func TestResponderRejeitado(t *testing.T) {
	f := newFixture()
	o := f.submeter(t)

	res, err := f.svc.Responder(context.Background(), o.ID, f.clienteID, models.OrcamentoStatusRejeitado)
	if err != nil {
		t.Fatalf("Responder: %v", err)
	}
	if res.Status != models.OrcamentoStatusRejeitado {
		t.Errorf("status: got %s, want REJEITADO", res.Status)
	}
	if len(f.contratos.criados) != 0 {
		t.Error("rejection must not create a contract")
	}
	if len(f.store.eventos(o.ID, models.NegociacaoRejeicao)) != 1 {
		t.Error("rejection should append a REJEICAO event")
	}
}

func TestFundingFailureLeavesQuoteAccepted(t *testing.T) {
	f := newFixture()
	f.contratos.fundErr = context.DeadlineExceeded

	o := f.submeter(t)
	res, err := f.svc.Responder(context.Background(), o.ID, f.clienteID, models.OrcamentoStatusAceito)
	if err != nil {
		t.Fatalf("Responder: %v", err)
	}
	// The acceptance is committed; funding is retried through the payment
	// endpoint later.
	if res.Status != models.OrcamentoStatusAceito {
		t.Errorf("status: got %s, want ACEITO", res.Status)
	}
	if len(f.contratos.criados) != 1 {
		t.Error("contract should exist despite the funding failure")
	}
}

func TestExpiracaoLazy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.submeter(t)

	// Push the quote past its deadline.
	f.store.mu.Lock()
	f.store.orcamentos[o.ID].DataExpiracao = time.Now().Add(-time.Minute)
	f.store.mu.Unlock()

	// Any touch observes EXPIRADO, and the stored status flips.
	if _, err := f.svc.Responder(ctx, o.ID, f.clienteID, models.OrcamentoStatusAceito); !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("respond on expired: got %v, want expired error", err)
	}
	atual, _ := f.store.GetByID(ctx, o.ID)
	if atual.Status != models.OrcamentoStatusExpirado {
		t.Errorf("stored status: got %s, want EXPIRADO", atual.Status)
	}
	if _, err := f.svc.IniciarNegociacao(ctx, o.ID, f.clienteID); !apperr.Is(err, apperr.KindExpired) {
		t.Errorf("negotiate on expired: got %v, want expired error", err)
	}
	if len(f.contratos.criados) != 0 {
		t.Error("expired quote must not create a contract")
	}
}

func TestExpirarVencidosSweep(t *testing.T) {
	f := newFixture()
	o := f.submeter(t)

	f.store.mu.Lock()
	f.store.orcamentos[o.ID].DataExpiracao = time.Now().Add(-time.Minute)
	f.store.mu.Unlock()

	n, err := f.svc.ExpirarVencidos(context.Background())
	if err != nil {
		t.Fatalf("ExpirarVencidos: %v", err)
	}
	if n != 1 {
		t.Errorf("swept: got %d, want 1", n)
	}
}
