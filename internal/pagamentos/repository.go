package pagamentos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamaservico/backend/internal/models"
)

// Repository owns the pagamentos table. Every transition is a conditional
// UPDATE guarded on the expected source status, so concurrent actors race
// safely: the loser sees zero rows affected, never a double transition.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) CriarTx(ctx context.Context, tx pgx.Tx, p *models.Pagamento) error {
	return tx.QueryRow(ctx, `
		INSERT INTO pagamentos (id, contrato_id, valor_centavos, status)
		VALUES ($1, $2, $3, 'PENDENTE')
		RETURNING created_at, updated_at
	`, p.ID, p.ContratoID, p.ValorCentavos).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repository) GetByContrato(ctx context.Context, contratoID uuid.UUID) (*models.Pagamento, error) {
	var p models.Pagamento
	row := r.pool.QueryRow(ctx, `
		SELECT id, contrato_id, valor_centavos, status, data_liberacao, liberado_por, gateway_id, created_at, updated_at
		FROM pagamentos WHERE contrato_id = $1
	`, contratoID)
	err := row.Scan(&p.ID, &p.ContratoID, &p.ValorCentavos, &p.Status, &p.DataLiberacao, &p.LiberadoPor, &p.GatewayID, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarcarPago confirms funding: PENDENTE → PAGO, recording the gateway
// transaction id.
func (r *Repository) MarcarPago(ctx context.Context, contratoID uuid.UUID, gatewayID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pagamentos SET status = 'PAGO', gateway_id = $1, updated_at = now()
		WHERE contrato_id = $2 AND status = 'PENDENTE'
	`, gatewayID, contratoID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LiberarImediatoTx is the client-finalized path: PAGO → LIBERADO with no
// AGUARDANDO_LIBERACAO intermediate state.
func (r *Repository) LiberarImediatoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID, liberadoPor string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE pagamentos SET status = 'LIBERADO', liberado_por = $1, data_liberacao = now(), updated_at = now()
		WHERE contrato_id = $2 AND status = 'PAGO'
	`, liberadoPor, contratoID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarcarAguardandoTx is the provider-finalized path: PAGO → AGUARDANDO_LIBERACAO.
func (r *Repository) MarcarAguardandoTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE pagamentos SET status = 'AGUARDANDO_LIBERACAO', updated_at = now()
		WHERE contrato_id = $1 AND status = 'PAGO'
	`, contratoID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LiberarSeElegivel performs the scheduled release as a compare-and-swap: the
// payment must still be AGUARDANDO_LIBERACAO and no dispute may be open
// against the contract, both checked atomically at fire time. On success it
// also clears the contract's pending-release flags. Returns false (no-op)
// when either guard fails, leaving the status untouched for arbitration.
func (r *Repository) LiberarSeElegivel(ctx context.Context, pagamentoID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var contratoID uuid.UUID
	row := tx.QueryRow(ctx, `
		UPDATE pagamentos p SET status = 'LIBERADO', liberado_por = 'SISTEMA', data_liberacao = now(), updated_at = now()
		WHERE p.id = $1 AND p.status = 'AGUARDANDO_LIBERACAO'
		  AND NOT EXISTS (
			SELECT 1 FROM disputas d
			WHERE d.contrato_id = p.contrato_id AND d.status IN ('ABERTA', 'EM_ANALISE')
		  )
		RETURNING p.contrato_id
	`, pagamentoID)
	if err := row.Scan(&contratoID); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE contratos SET aguardando_liberacao = FALSE, data_liberacao_prevista = NULL, updated_at = now()
		WHERE id = $1
	`, contratoID); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// ConfirmarCliente accelerates a deferred release before the window elapses:
// AGUARDANDO_LIBERACAO → LIBERADO, liberado_por = CLIENTE. Same dispute guard
// as the scheduled release.
func (r *Repository) ConfirmarCliente(ctx context.Context, contratoID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE pagamentos p SET status = 'LIBERADO', liberado_por = 'CLIENTE', data_liberacao = now(), updated_at = now()
		WHERE p.contrato_id = $1 AND p.status = 'AGUARDANDO_LIBERACAO'
		  AND NOT EXISTS (
			SELECT 1 FROM disputas d
			WHERE d.contrato_id = p.contrato_id AND d.status IN ('ABERTA', 'EM_ANALISE')
		  )
	`, contratoID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE contratos SET aguardando_liberacao = FALSE, data_liberacao_prevista = NULL, updated_at = now()
		WHERE id = $1
	`, contratoID); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// LiberarPorDisputaTx releases the payment to the provider on a moderator's
// decision, from either funded state.
func (r *Repository) LiberarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE pagamentos SET status = 'LIBERADO', liberado_por = 'ADMIN', data_liberacao = now(), updated_at = now()
		WHERE contrato_id = $1 AND status IN ('PAGO', 'AGUARDANDO_LIBERACAO')
	`, contratoID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return r.limparPendenciaTx(ctx, tx, contratoID)
}

// ReembolsarPorDisputaTx refunds the client on a moderator's decision. This is
// the only path that may pull an already-LIBERADO payment back.
func (r *Repository) ReembolsarPorDisputaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE pagamentos SET status = 'REEMBOLSADO', updated_at = now()
		WHERE contrato_id = $1 AND status IN ('PAGO', 'AGUARDANDO_LIBERACAO', 'LIBERADO')
	`, contratoID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return r.limparPendenciaTx(ctx, tx, contratoID)
}

// Reembolsar refunds on outright cancellation. Monotonicity holds: a payment
// already LIBERADO is out of reach for cancellation.
func (r *Repository) Reembolsar(ctx context.Context, contratoID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pagamentos SET status = 'REEMBOLSADO', updated_at = now()
		WHERE contrato_id = $1 AND status IN ('PAGO', 'AGUARDANDO_LIBERACAO')
	`, contratoID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListarLiberacoesVencidas returns payments whose release window has elapsed,
// for the periodic sweep.
func (r *Repository) ListarLiberacoesVencidas(ctx context.Context, limite int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id FROM pagamentos p
		JOIN contratos c ON c.id = p.contrato_id
		WHERE p.status = 'AGUARDANDO_LIBERACAO' AND c.data_liberacao_prevista <= now()
		ORDER BY c.data_liberacao_prevista ASC
		LIMIT $1
	`, limite)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) limparPendenciaTx(ctx context.Context, tx pgx.Tx, contratoID uuid.UUID) (bool, error) {
	_, err := tx.Exec(ctx, `
		UPDATE contratos SET aguardando_liberacao = FALSE, data_liberacao_prevista = NULL, updated_at = now()
		WHERE id = $1
	`, contratoID)
	if err != nil {
		return false, err
	}
	return true, nil
}
