package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubLiberador struct {
	mu       sync.Mutex
	elegivel map[uuid.UUID]bool
	chamadas []uuid.UUID
	err      error
}

func (s *stubLiberador) LiberarSeElegivel(_ context.Context, pagamentoID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.chamadas = append(s.chamadas, pagamentoID)
	return s.elegivel[pagamentoID], nil
}

func (s *stubLiberador) ListarLiberacoesVencidas(_ context.Context, _ int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id := range s.elegivel {
		out = append(out, id)
	}
	return out, nil
}

type stubExpirador struct {
	expirados int64
	err       error
}

func (s *stubExpirador) ExpirarVencidos(context.Context) (int64, error) {
	return s.expirados, s.err
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestLiberarPagamentoWorker(t *testing.T) {
	pagamentoID := uuid.New()
	stub := &stubLiberador{elegivel: map[uuid.UUID]bool{pagamentoID: true}}
	w := NewLiberarPagamentoWorker(stub, nil)

	job := &river.Job[LiberarPagamentoArgs]{
		Args: LiberarPagamentoArgs{PagamentoID: pagamentoID, ContratoID: uuid.New()},
	}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(stub.chamadas) != 1 || stub.chamadas[0] != pagamentoID {
		t.Error("worker must attempt the release for the job's payment")
	}
}

func TestLiberarPagamentoWorkerIneligible(t *testing.T) {
	// Dispute open or payment already moved: the job completes as a no-op so
	// river does not retry it.
	pagamentoID := uuid.New()
	stub := &stubLiberador{elegivel: map[uuid.UUID]bool{pagamentoID: false}}
	w := NewLiberarPagamentoWorker(stub, nil)

	job := &river.Job[LiberarPagamentoArgs]{
		Args: LiberarPagamentoArgs{PagamentoID: pagamentoID},
	}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("ineligible release should not error: %v", err)
	}
}

func TestLiberarPagamentoWorkerError(t *testing.T) {
	// Infrastructure errors surface so river retries the job.
	stub := &stubLiberador{err: errors.New("db down")}
	w := NewLiberarPagamentoWorker(stub, nil)

	job := &river.Job[LiberarPagamentoArgs]{
		Args: LiberarPagamentoArgs{PagamentoID: uuid.New()},
	}
	if err := w.Work(context.Background(), job); err == nil {
		t.Fatal("expected the store error to propagate")
	}
}

func TestExpirarOrcamentosWorker(t *testing.T) {
	w := NewExpirarOrcamentosWorker(&stubExpirador{expirados: 3}, nil)
	if err := w.Work(context.Background(), &river.Job[ExpirarOrcamentosArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}

	w = NewExpirarOrcamentosWorker(&stubExpirador{err: errors.New("db down")}, nil)
	if err := w.Work(context.Background(), &river.Job[ExpirarOrcamentosArgs]{}); err == nil {
		t.Fatal("expected the sweep error to propagate")
	}
}

func TestVarreduraLiberacaoWorker(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	stub := &stubLiberador{elegivel: map[uuid.UUID]bool{a: true, b: false}}
	w := NewVarreduraLiberacaoWorker(stub, nil)

	if err := w.Work(context.Background(), &river.Job[VarreduraLiberacaoArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	// Every overdue payment gets an attempt; the CAS decides per payment.
	if len(stub.chamadas) != 2 {
		t.Errorf("release attempts: got %d, want 2", len(stub.chamadas))
	}
}
