package pagamentos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chamaservico/backend/internal/apperr"
	"github.com/chamaservico/backend/internal/models"
	"github.com/chamaservico/backend/internal/scheduler"
)

// ---------------------------------------------------------------------------
// In-memory mocks. The store mirrors the repository's guarded transitions,
// including the dispute check in the compare-and-swap release.
// ---------------------------------------------------------------------------

type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type mockStore struct {
	mu           sync.Mutex
	pagamentos   map[uuid.UUID]*models.Pagamento
	disputaAberta map[uuid.UUID]bool // keyed by contrato_id
}

func newMockStore(ps ...*models.Pagamento) *mockStore {
	m := &mockStore{
		pagamentos:   make(map[uuid.UUID]*models.Pagamento),
		disputaAberta: make(map[uuid.UUID]bool),
	}
	for _, p := range ps {
		cp := *p
		m.pagamentos[p.ID] = &cp
	}
	return m
}

func (m *mockStore) byContrato(contratoID uuid.UUID) *models.Pagamento {
	for _, p := range m.pagamentos {
		if p.ContratoID == contratoID {
			return p
		}
	}
	return nil
}

func (m *mockStore) CriarTx(_ context.Context, _ pgx.Tx, p *models.Pagamento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.pagamentos[p.ID] = &cp
	return nil
}

func (m *mockStore) GetByContrato(_ context.Context, contratoID uuid.UUID) (*models.Pagamento, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) MarcarPago(_ context.Context, contratoID uuid.UUID, gatewayID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || p.Status != models.PagamentoStatusPendente {
		return false, nil
	}
	p.Status = models.PagamentoStatusPago
	p.GatewayID = &gatewayID
	return true, nil
}

func (m *mockStore) LiberarImediatoTx(_ context.Context, _ pgx.Tx, contratoID uuid.UUID, liberadoPor string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || p.Status != models.PagamentoStatusPago {
		return false, nil
	}
	p.Status = models.PagamentoStatusLiberado
	p.LiberadoPor = &liberadoPor
	return true, nil
}

func (m *mockStore) MarcarAguardandoTx(_ context.Context, _ pgx.Tx, contratoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || p.Status != models.PagamentoStatusPago {
		return false, nil
	}
	p.Status = models.PagamentoStatusAguardandoLiberacao
	return true, nil
}

func (m *mockStore) LiberarSeElegivel(_ context.Context, pagamentoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pagamentos[pagamentoID]
	if p == nil || p.Status != models.PagamentoStatusAguardandoLiberacao || m.disputaAberta[p.ContratoID] {
		return false, nil
	}
	por := models.LiberadoPorSistema
	p.Status = models.PagamentoStatusLiberado
	p.LiberadoPor = &por
	return true, nil
}

func (m *mockStore) ConfirmarCliente(_ context.Context, contratoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || p.Status != models.PagamentoStatusAguardandoLiberacao || m.disputaAberta[contratoID] {
		return false, nil
	}
	por := models.LiberadoPorCliente
	p.Status = models.PagamentoStatusLiberado
	p.LiberadoPor = &por
	return true, nil
}

func (m *mockStore) LiberarPorDisputaTx(_ context.Context, _ pgx.Tx, contratoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || (p.Status != models.PagamentoStatusPago && p.Status != models.PagamentoStatusAguardandoLiberacao) {
		return false, nil
	}
	por := models.LiberadoPorAdmin
	p.Status = models.PagamentoStatusLiberado
	p.LiberadoPor = &por
	return true, nil
}

func (m *mockStore) ReembolsarPorDisputaTx(_ context.Context, _ pgx.Tx, contratoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || !p.PagoViaPlataforma() {
		return false, nil
	}
	p.Status = models.PagamentoStatusReembolsado
	return true, nil
}

func (m *mockStore) Reembolsar(_ context.Context, contratoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byContrato(contratoID)
	if p == nil || (p.Status != models.PagamentoStatusPago && p.Status != models.PagamentoStatusAguardandoLiberacao) {
		return false, nil
	}
	p.Status = models.PagamentoStatusReembolsado
	return true, nil
}

func (m *mockStore) ListarLiberacoesVencidas(_ context.Context, _ int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for id, p := range m.pagamentos {
		if p.Status == models.PagamentoStatusAguardandoLiberacao {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockStore) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pagamentos[id].Status
}

// ---

type fakeGateway struct {
	mu        sync.Mutex
	cobrancas int
	estornos  []string
	cobrarErr error
}

func (g *fakeGateway) Cobrar(_ context.Context, contratoID uuid.UUID, _ int64, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cobrarErr != nil {
		return "", g.cobrarErr
	}
	g.cobrancas++
	return "mp-" + contratoID.String(), nil
}

func (g *fakeGateway) Estornar(_ context.Context, transacaoID string, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.estornos = append(g.estornos, transacaoID)
	return nil
}

// insertRecorder captures release-job enqueues.
type insertRecorder struct {
	mu   sync.Mutex
	jobs []scheduler.LiberarPagamentoArgs
	ems  []time.Time
}

func (r *insertRecorder) insertTx(_ context.Context, _ pgx.Tx, args scheduler.LiberarPagamentoArgs, em time.Time) error {
	return r.insert(context.Background(), args, em)
}

func (r *insertRecorder) insert(_ context.Context, args scheduler.LiberarPagamentoArgs, em time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, args)
	r.ems = append(r.ems, em)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func pagamento(status string) *models.Pagamento {
	return &models.Pagamento{
		ID:            uuid.New(),
		ContratoID:    uuid.New(),
		ValorCentavos: 15000,
		Status:        status,
	}
}

func newService(store *mockStore, gw *fakeGateway, rec *insertRecorder) Service {
	return NewService(store, gw, rec.insertTx, rec.insert, nil)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestFinanciar(t *testing.T) {
	p := pagamento(models.PagamentoStatusPendente)
	store := newMockStore(p)
	gw := &fakeGateway{}
	svc := newService(store, gw, &insertRecorder{})
	ctx := context.Background()

	if err := svc.Financiar(ctx, p.ContratoID, p.ValorCentavos, "contrato teste"); err != nil {
		t.Fatalf("Financiar: %v", err)
	}
	if got := store.status(p.ID); got != models.PagamentoStatusPago {
		t.Errorf("status: got %s, want PAGO", got)
	}
	atual, _ := store.GetByContrato(ctx, p.ContratoID)
	if atual.GatewayID == nil {
		t.Error("funding must record the gateway transaction id")
	}

	// Funding twice is a conflict, and the card is not charged again.
	if err := svc.Financiar(ctx, p.ContratoID, p.ValorCentavos, "contrato teste"); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("double funding: got %v, want conflict", err)
	}
	if gw.cobrancas != 1 {
		t.Errorf("gateway charges: got %d, want 1", gw.cobrancas)
	}
}

func TestFinanciarGatewayFailure(t *testing.T) {
	p := pagamento(models.PagamentoStatusPendente)
	store := newMockStore(p)
	gw := &fakeGateway{cobrarErr: errors.New("card declined")}
	svc := newService(store, gw, &insertRecorder{})

	if err := svc.Financiar(context.Background(), p.ContratoID, p.ValorCentavos, ""); err == nil {
		t.Fatal("expected gateway error")
	}
	// Payment stays PENDENTE so the client can retry.
	if got := store.status(p.ID); got != models.PagamentoStatusPendente {
		t.Errorf("status after failure: got %s, want PENDENTE", got)
	}
}

func TestAgendarLiberacaoTx(t *testing.T) {
	p := pagamento(models.PagamentoStatusPago)
	store := newMockStore(p)
	rec := &insertRecorder{}
	svc := newService(store, &fakeGateway{}, rec)

	prevista := time.Now().Add(24 * time.Hour)
	if err := svc.AgendarLiberacaoTx(context.Background(), fakeTx{}, p.ContratoID, prevista); err != nil {
		t.Fatalf("AgendarLiberacaoTx: %v", err)
	}
	if got := store.status(p.ID); got != models.PagamentoStatusAguardandoLiberacao {
		t.Errorf("status: got %s, want AGUARDANDO_LIBERACAO", got)
	}
	if len(rec.jobs) != 1 {
		t.Fatalf("jobs enqueued: got %d, want 1", len(rec.jobs))
	}
	if rec.jobs[0].PagamentoID != p.ID || rec.jobs[0].ContratoID != p.ContratoID {
		t.Error("job args must reference the payment and contract")
	}
	if !rec.ems[0].Equal(prevista) {
		t.Errorf("job scheduled at %s, want %s", rec.ems[0], prevista)
	}

	// Scheduling from any state but PAGO is a conflict.
	if err := svc.AgendarLiberacaoTx(context.Background(), fakeTx{}, p.ContratoID, prevista); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("double schedule: got %v, want conflict", err)
	}
}

func TestLiberarSeElegivel(t *testing.T) {
	p := pagamento(models.PagamentoStatusAguardandoLiberacao)
	store := newMockStore(p)
	svc := newService(store, &fakeGateway{}, &insertRecorder{})
	ctx := context.Background()

	ok, err := svc.LiberarSeElegivel(ctx, p.ID)
	if err != nil {
		t.Fatalf("LiberarSeElegivel: %v", err)
	}
	if !ok {
		t.Fatal("release should fire with no dispute open")
	}
	atual, _ := store.GetByContrato(ctx, p.ContratoID)
	if atual.Status != models.PagamentoStatusLiberado || atual.LiberadoPor == nil || *atual.LiberadoPor != models.LiberadoPorSistema {
		t.Error("system release must set LIBERADO por SISTEMA")
	}

	// Firing again is a clean no-op.
	ok, err = svc.LiberarSeElegivel(ctx, p.ID)
	if err != nil || ok {
		t.Errorf("second fire: got (%v, %v), want no-op", ok, err)
	}
}

func TestLiberarSeElegivelDisputaAberta(t *testing.T) {
	p := pagamento(models.PagamentoStatusAguardandoLiberacao)
	store := newMockStore(p)
	store.disputaAberta[p.ContratoID] = true
	svc := newService(store, &fakeGateway{}, &insertRecorder{})

	ok, err := svc.LiberarSeElegivel(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("LiberarSeElegivel: %v", err)
	}
	if ok {
		t.Fatal("release must not fire while a dispute is open")
	}
	// Frozen, not moved: arbitration owns the outcome.
	if got := store.status(p.ID); got != models.PagamentoStatusAguardandoLiberacao {
		t.Errorf("status: got %s, want AGUARDANDO_LIBERACAO", got)
	}
}

func TestConfirmarCliente(t *testing.T) {
	p := pagamento(models.PagamentoStatusAguardandoLiberacao)
	store := newMockStore(p)
	svc := newService(store, &fakeGateway{}, &insertRecorder{})
	ctx := context.Background()

	if err := svc.ConfirmarCliente(ctx, p.ContratoID); err != nil {
		t.Fatalf("ConfirmarCliente: %v", err)
	}
	atual, _ := store.GetByContrato(ctx, p.ContratoID)
	if atual.LiberadoPor == nil || *atual.LiberadoPor != models.LiberadoPorCliente {
		t.Error("client confirmation must set liberado_por CLIENTE")
	}

	// Not awaiting anymore: conflict.
	if err := svc.ConfirmarCliente(ctx, p.ContratoID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("double confirm: got %v, want conflict", err)
	}
}

func TestReembolsarCancelamento(t *testing.T) {
	gatewayID := "mp-123"
	p := pagamento(models.PagamentoStatusPago)
	p.GatewayID = &gatewayID
	store := newMockStore(p)
	gw := &fakeGateway{}
	svc := newService(store, gw, &insertRecorder{})

	if err := svc.ReembolsarCancelamento(context.Background(), p.ContratoID); err != nil {
		t.Fatalf("ReembolsarCancelamento: %v", err)
	}
	if got := store.status(p.ID); got != models.PagamentoStatusReembolsado {
		t.Errorf("status: got %s, want REEMBOLSADO", got)
	}
	if len(gw.estornos) != 1 || gw.estornos[0] != gatewayID {
		t.Error("refund must reverse the gateway charge")
	}
}

func TestReembolsarCancelamentoNaoFinanciado(t *testing.T) {
	p := pagamento(models.PagamentoStatusPendente)
	store := newMockStore(p)
	gw := &fakeGateway{}
	svc := newService(store, gw, &insertRecorder{})

	// Never funded: nothing to refund, nothing to reverse.
	if err := svc.ReembolsarCancelamento(context.Background(), p.ContratoID); err != nil {
		t.Fatalf("ReembolsarCancelamento: %v", err)
	}
	if got := store.status(p.ID); got != models.PagamentoStatusPendente {
		t.Errorf("status: got %s, want PENDENTE", got)
	}
	if len(gw.estornos) != 0 {
		t.Error("unfunded payment must not hit the gateway")
	}
}

func TestRetomarLiberacao(t *testing.T) {
	p := pagamento(models.PagamentoStatusAguardandoLiberacao)
	store := newMockStore(p)
	rec := &insertRecorder{}
	svc := newService(store, &fakeGateway{}, rec)
	ctx := context.Background()

	// Past-due window fires immediately, not in the past.
	antes := time.Now()
	if err := svc.RetomarLiberacao(ctx, p.ContratoID, antes.Add(-time.Hour)); err != nil {
		t.Fatalf("RetomarLiberacao: %v", err)
	}
	if len(rec.jobs) != 1 {
		t.Fatalf("jobs enqueued: got %d, want 1", len(rec.jobs))
	}
	if rec.ems[0].Before(antes) {
		t.Errorf("resumed job scheduled at %s, should not be in the past", rec.ems[0])
	}

	// A future window keeps its original deadline.
	futuro := time.Now().Add(6 * time.Hour)
	if err := svc.RetomarLiberacao(ctx, p.ContratoID, futuro); err != nil {
		t.Fatalf("RetomarLiberacao: %v", err)
	}
	if !rec.ems[1].Equal(futuro) {
		t.Errorf("resumed job at %s, want %s", rec.ems[1], futuro)
	}
}

func TestRetomarLiberacaoJaLiberado(t *testing.T) {
	p := pagamento(models.PagamentoStatusLiberado)
	store := newMockStore(p)
	rec := &insertRecorder{}
	svc := newService(store, &fakeGateway{}, rec)

	// Nothing pending: no job.
	if err := svc.RetomarLiberacao(context.Background(), p.ContratoID, time.Now()); err != nil {
		t.Fatalf("RetomarLiberacao: %v", err)
	}
	if len(rec.jobs) != 0 {
		t.Errorf("jobs enqueued: got %d, want 0", len(rec.jobs))
	}
}
